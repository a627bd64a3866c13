package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jszwec/csvutil"
	"go.uber.org/zap"

	"github.com/sigepol/sigepol-engine/pkg/config"
	"github.com/sigepol/sigepol-engine/pkg/database"
	"github.com/sigepol/sigepol-engine/pkg/models"
	"github.com/sigepol/sigepol-engine/pkg/repositories"
	"github.com/sigepol/sigepol-engine/pkg/spreadsheet"
)

// ProcessResult is the outcome of one pipeline run. Error is set only for
// the single fatal failure mode, an unusable workbook at the validate stage.
type ProcessResult struct {
	UploadID   uuid.UUID `json:"upload_id"`
	UploadedBy string    `json:"-"`
	Processed  int       `json:"processed"`
	Inserted   int       `json:"inserted"`
	Updated    int       `json:"updated"`
	Errors     int       `json:"errors"`
	Error      string    `json:"error,omitempty"`

	// TouchedClients are the normalized RUTs upserted by this run, in first
	// appearance order. Consumed by the freshness post-commit hook.
	TouchedClients []string `json:"-"`
}

// PostCommitHook is one ordered post-success side effect. Hooks run after
// the job is marked completed; a hook failure is logged and never flips a
// successful run to failed.
type PostCommitHook struct {
	Name string
	Run  func(ctx context.Context, result *ProcessResult) error
}

// rowError is one failed row collected during the process stage.
type rowError struct {
	RowNumber int
	RawData   map[string]any
	Message   string
}

// errorCSVRow is the downloadable error report shape.
type errorCSVRow struct {
	RowNumber int    `csv:"row_number"`
	Error     string `csv:"error"`
	RawData   string `csv:"raw_data"`
}

// UploadService owns the spreadsheet ingestion pipeline: validate, clean,
// process in transactional batches, finalize with alerts and hooks.
type UploadService struct {
	db         *database.DB
	uploadRepo repositories.UploadRepository
	clientRepo repositories.ClientRepository
	policyRepo repositories.PolicyRepository
	alerts     *AlertService
	audit      *AuditService
	cfg        config.UploadConfig
	hooks      []PostCommitHook
	logger     *zap.Logger
}

func NewUploadService(
	db *database.DB,
	uploadRepo repositories.UploadRepository,
	clientRepo repositories.ClientRepository,
	policyRepo repositories.PolicyRepository,
	alerts *AlertService,
	audit *AuditService,
	cfg config.UploadConfig,
	logger *zap.Logger,
) *UploadService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	return &UploadService{
		db:         db,
		uploadRepo: uploadRepo,
		clientRepo: clientRepo,
		policyRepo: policyRepo,
		alerts:     alerts,
		audit:      audit,
		cfg:        cfg,
		logger:     logger.Named("upload_service"),
	}
}

// SetPostCommitHooks installs the ordered post-success side effects. Called
// once during wiring, before the service is used.
func (s *UploadService) SetPostCommitHooks(hooks []PostCommitHook) {
	s.hooks = hooks
}

// CreateFromFile stores an uploaded workbook on disk and registers the
// pending upload job.
func (s *UploadService) CreateFromFile(ctx context.Context, originalFilename string, content io.Reader, uploadedBy string) (*models.DataUpload, error) {
	id := uuid.New()
	path := filepath.Join(s.cfg.Dir, id.String()+filepath.Ext(originalFilename))

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	written, err := io.Copy(f, content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	if maxBytes := s.cfg.MaxFileSizeMB * 1024 * 1024; maxBytes > 0 && written > maxBytes {
		os.Remove(path)
		return nil, fmt.Errorf("file exceeds the %d MB limit", s.cfg.MaxFileSizeMB)
	}

	upload := &models.DataUpload{
		ID:               id,
		FilePath:         path,
		OriginalFilename: originalFilename,
		UploadedBy:       uploadedBy,
		Status:           models.UploadStatusPending,
	}
	if err := s.uploadRepo.Create(ctx, upload); err != nil {
		os.Remove(path)
		return nil, err
	}

	s.audit.Record(ctx, uploadedBy, models.AuditActionUpload,
		fmt.Sprintf("Subió archivo %s", originalFilename),
		map[string]any{"upload_id": id.String(), "bytes": written})

	return upload, nil
}

// GetUpload returns an upload job.
func (s *UploadService) GetUpload(ctx context.Context, id uuid.UUID) (*models.DataUpload, error) {
	return s.uploadRepo.GetByID(ctx, id)
}

// ListUploads returns the most recent upload jobs.
func (s *UploadService) ListUploads(ctx context.Context, limit int) ([]*models.DataUpload, error) {
	return s.uploadRepo.List(ctx, limit)
}

// ProcessUpload runs the full pipeline for one job. Row failures never
// abort the run; the only fatal path is an unusable workbook during
// validation, reported through ProcessResult.Error.
func (s *UploadService) ProcessUpload(ctx context.Context, uploadID uuid.UUID, runML bool) (*ProcessResult, error) {
	upload, err := s.uploadRepo.GetByID(ctx, uploadID)
	if err != nil {
		return nil, err
	}

	result := &ProcessResult{UploadID: upload.ID, UploadedBy: upload.UploadedBy}

	// Validate stage. Any failure here is fatal for the whole job.
	sheet, mapped, fatal := s.validate(ctx, upload)
	if fatal != "" {
		result.Error = fatal
		s.recordProcessAudit(ctx, upload, result)
		return result, nil
	}

	// Clean stage. Pass-through, reserved for structural repair.
	if err := s.uploadRepo.UpdateStatus(ctx, upload.ID, models.UploadStatusCleaning, nil); err != nil {
		s.logger.Warn("failed to update upload status", zap.Error(err))
	}

	// Process stage: batched, per-row failure isolation.
	if err := s.uploadRepo.UpdateStatus(ctx, upload.ID, models.UploadStatusProcessing, nil); err != nil {
		s.logger.Warn("failed to update upload status", zap.Error(err))
	}
	rowErrors := s.processRows(ctx, upload, sheet, mapped, result)

	// Finalize stage.
	result.Errors = len(rowErrors)
	if err := s.uploadRepo.SetCounters(ctx, upload.ID, result.Processed, result.Inserted, result.Updated); err != nil {
		s.logger.Warn("failed to save upload counters", zap.Error(err))
	}

	if len(rowErrors) > 0 {
		s.finalizeWithErrors(ctx, upload, result, rowErrors)
	} else {
		s.finalizeSuccess(ctx, upload, result, runML)
	}

	s.recordProcessAudit(ctx, upload, result)
	return result, nil
}

// validate loads the workbook, maps its columns and persists the structural
// validation snapshot. Returns a non-empty fatal message when the job
// cannot proceed.
func (s *UploadService) validate(ctx context.Context, upload *models.DataUpload) (*spreadsheet.Sheet, map[string]int, string) {
	if err := s.uploadRepo.UpdateStatus(ctx, upload.ID, models.UploadStatusValidating, nil); err != nil {
		s.logger.Warn("failed to update upload status", zap.Error(err))
	}

	sheet, err := spreadsheet.ReadWorkbook(upload.FilePath)
	if err != nil {
		return nil, nil, s.failJob(ctx, upload, err.Error())
	}
	if len(sheet.Rows) == 0 {
		return nil, nil, s.failJob(ctx, upload, "archivo Excel vacío")
	}

	mapped := spreadsheet.MapColumns(sheet.Header)
	report := spreadsheet.ValidateStructure(sheet, mapped)

	upload.DetectedColumns = report.DetectedColumns
	upload.ColumnsValidated = report.Valid
	upload.ValidationErrors = map[string]any{
		"errores":      report.Errors,
		"advertencias": report.Advisories,
	}
	upload.PreviewRows = spreadsheet.Preview(sheet, mapped, s.cfg.PreviewRows)
	if err := s.uploadRepo.SetValidation(ctx, upload); err != nil {
		s.logger.Warn("failed to save validation snapshot", zap.Error(err))
	}

	if !report.Valid {
		return nil, nil, s.failJob(ctx, upload, strings.Join(report.Errors, "; "))
	}
	return sheet, mapped, ""
}

// failJob marks the job error with msg and returns msg.
func (s *UploadService) failJob(ctx context.Context, upload *models.DataUpload, msg string) string {
	if err := s.uploadRepo.UpdateStatus(ctx, upload.ID, models.UploadStatusError, &msg); err != nil {
		s.logger.Warn("failed to mark upload error", zap.Error(err))
	}
	s.logger.Error("upload failed during validation",
		zap.String("upload_id", upload.ID.String()),
		zap.String("error", msg))
	return msg
}

// processRows walks the sheet in fixed-size batches. Each batch commits as
// one transaction; inside it every row runs under its own savepoint so a
// bad row rolls back alone and the batch's good rows still commit.
func (s *UploadService) processRows(ctx context.Context, upload *models.DataUpload, sheet *spreadsheet.Sheet, mapped map[string]int, result *ProcessResult) []rowError {
	var rowErrors []rowError
	touched := make(map[string]bool)

	batchSize := s.cfg.BatchSize
	for start := 0; start < len(sheet.Rows); start += batchSize {
		end := start + batchSize
		if end > len(sheet.Rows) {
			end = len(sheet.Rows)
		}

		batchErrors := s.processBatch(ctx, sheet, mapped, start, end, result, touched)
		rowErrors = append(rowErrors, batchErrors...)

		// Error rows persist outside the batch transaction, best effort.
		for _, re := range batchErrors {
			errRow := &models.ImportErrorRow{
				UploadID:  upload.ID,
				RowNumber: re.RowNumber,
				RawData:   re.RawData,
				Error:     re.Message,
			}
			if err := s.uploadRepo.CreateErrorRow(ctx, errRow); err != nil {
				s.logger.Warn("failed to persist error row",
					zap.Int("row_number", re.RowNumber), zap.Error(err))
			}
		}
	}

	return rowErrors
}

// processBatch runs rows [start, end) inside one transaction.
func (s *UploadService) processBatch(ctx context.Context, sheet *spreadsheet.Sheet, mapped map[string]int, start, end int, result *ProcessResult, touched map[string]bool) []rowError {
	var batchErrors []rowError

	tx, err := s.db.Begin(ctx)
	if err != nil {
		// A batch that cannot open a transaction fails row by row.
		for idx := start; idx < end; idx++ {
			raw := spreadsheet.NewRawRow(sheet.Header, mapped, sheet.Rows[idx])
			result.Processed++
			batchErrors = append(batchErrors, rowError{
				RowNumber: idx + sheet.HeaderRow + 2,
				RawData:   raw.Payload(),
				Message:   fmt.Sprintf("error de transacción: %v", err),
			})
		}
		return batchErrors
	}

	for idx := start; idx < end; idx++ {
		raw := spreadsheet.NewRawRow(sheet.Header, mapped, sheet.Rows[idx])
		rowNumber := idx + sheet.HeaderRow + 2 // 1-based, counting from the header
		result.Processed++

		sp, err := tx.Begin(ctx) // savepoint
		if err != nil {
			batchErrors = append(batchErrors, rowError{
				RowNumber: rowNumber,
				RawData:   raw.Payload(),
				Message:   fmt.Sprintf("error de transacción: %v", err),
			})
			continue
		}
		spCtx := database.WithTx(ctx, sp)

		created, rut, rowErr := s.processRow(spCtx, raw)
		if rowErr != nil {
			_ = sp.Rollback(ctx)
			batchErrors = append(batchErrors, rowError{
				RowNumber: rowNumber,
				RawData:   raw.Payload(),
				Message:   rowErr.Error(),
			})
			continue
		}
		if err := sp.Commit(ctx); err != nil {
			batchErrors = append(batchErrors, rowError{
				RowNumber: rowNumber,
				RawData:   raw.Payload(),
				Message:   fmt.Sprintf("error de transacción: %v", err),
			})
			continue
		}

		if created {
			result.Inserted++
		} else {
			result.Updated++
		}
		if !touched[rut] {
			touched[rut] = true
			result.TouchedClients = append(result.TouchedClients, rut)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		s.logger.Error("batch commit failed",
			zap.Int("batch_start", start), zap.Error(err))
	}
	return batchErrors
}

// processRow ingests one spreadsheet row: identifier, client, policy
// number, validity window, amount, then the policy upsert. Returns whether
// the policy was created and the client RUT it touched.
func (s *UploadService) processRow(ctx context.Context, raw spreadsheet.RawRow) (bool, string, error) {
	rutRaw := raw.Get(spreadsheet.ColRUT)
	rut := spreadsheet.NormalizeRUT(rutRaw)
	if rut == "" || !spreadsheet.IsValidRUT(rut) {
		return false, "", fmt.Errorf("RUT inválido: %s", rutRaw)
	}

	name := strings.TrimSpace(raw.Get(spreadsheet.ColClientName))
	client, _, err := s.clientRepo.GetOrCreate(ctx, rut, name)
	if err != nil {
		return false, "", err
	}

	number := strings.TrimSpace(raw.Get(spreadsheet.ColPolicyNum))
	if number == "" || strings.EqualFold(number, "nan") {
		return false, "", fmt.Errorf("número de póliza inválido o vacío")
	}

	vigencia := raw.Get(spreadsheet.ColVigencia)
	startDate, endDate, err := spreadsheet.ParseVigencia(vigencia)
	if err != nil {
		return false, "", fmt.Errorf("vigencia inválida: %s", vigencia)
	}

	amount := 0.0
	if amountRaw := strings.TrimSpace(raw.Get(spreadsheet.ColNetPremium)); amountRaw != "" {
		amount, err = spreadsheet.ParseAmount(amountRaw)
		if err != nil {
			return false, "", err
		}
	}

	policy := &models.Policy{
		Number:    number,
		ClientID:  client.ID,
		ClientRUT: client.RUT,
		StartDate: startDate,
		EndDate:   endDate,
		AmountUF:  amount,
		Status:    models.PolicyStatusActive,
	}
	created, err := s.policyRepo.Upsert(ctx, policy)
	if err != nil {
		return false, "", err
	}
	return created, rut, nil
}

// finalizeWithErrors writes the error CSV, marks the job error and files
// the warning alert. All three are best effort after the counters landed.
func (s *UploadService) finalizeWithErrors(ctx context.Context, upload *models.DataUpload, result *ProcessResult, rowErrors []rowError) {
	if path, err := s.writeErrorCSV(upload.ID, rowErrors); err != nil {
		s.logger.Warn("failed to write error csv", zap.Error(err))
	} else if err := s.uploadRepo.SetErrorFile(ctx, upload.ID, path); err != nil {
		s.logger.Warn("failed to attach error csv", zap.Error(err))
	}

	msg := fmt.Sprintf("%d filas con error de %d procesadas", len(rowErrors), result.Processed)
	if err := s.uploadRepo.UpdateStatus(ctx, upload.ID, models.UploadStatusError, &msg); err != nil {
		s.logger.Warn("failed to mark upload error", zap.Error(err))
	}

	user := upload.UploadedBy
	if _, err := s.alerts.CreateAlert(ctx, AlertParams{
		Type:      models.AlertTypeLoadError,
		Severity:  models.AlertSeverityWarning,
		Title:     fmt.Sprintf("Errores en carga de %s", upload.OriginalFilename),
		Message:   fmt.Sprintf("El archivo %s tiene %d filas con error.", upload.OriginalFilename, len(rowErrors)),
		CreatedBy: &user,
	}); err != nil {
		s.logger.Warn("failed to create load error alert", zap.Error(err))
	}
}

// finalizeSuccess marks the terminal state, files the success alert and
// runs the post-commit hooks in order, each independently guarded.
func (s *UploadService) finalizeSuccess(ctx context.Context, upload *models.DataUpload, result *ProcessResult, runML bool) {
	status := models.UploadStatusCompleted
	if runML {
		status = models.UploadStatusML
	}
	if err := s.uploadRepo.UpdateStatus(ctx, upload.ID, status, nil); err != nil {
		s.logger.Warn("failed to mark upload completed", zap.Error(err))
	}

	user := upload.UploadedBy
	if _, err := s.alerts.CreateAlert(ctx, AlertParams{
		Type:     models.AlertTypeImports,
		Severity: models.AlertSeverityInfo,
		Title:    fmt.Sprintf("Carga exitosa: %s", upload.OriginalFilename),
		Message: fmt.Sprintf("Archivo %s procesado correctamente. %d nuevas pólizas, %d actualizadas.",
			upload.OriginalFilename, result.Inserted, result.Updated),
		CreatedBy: &user,
	}); err != nil {
		s.logger.Warn("failed to create success alert", zap.Error(err))
	}

	for _, hook := range s.hooks {
		if err := hook.Run(ctx, result); err != nil {
			s.logger.Warn("post-commit hook failed",
				zap.String("hook", hook.Name), zap.Error(err))
		}
	}
}

func (s *UploadService) writeErrorCSV(uploadID uuid.UUID, rowErrors []rowError) (string, error) {
	path := filepath.Join(s.cfg.ErrorDir, fmt.Sprintf("errores_%s.csv", uploadID))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	enc := csvutil.NewEncoder(w)
	for _, re := range rowErrors {
		rawJSON, err := json.Marshal(re.RawData)
		if err != nil {
			rawJSON = []byte(fmt.Sprintf("%v", re.RawData))
		}
		row := errorCSVRow{
			RowNumber: re.RowNumber,
			Error:     re.Message,
			RawData:   string(rawJSON),
		}
		if err := enc.Encode(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return path, nil
}

func (s *UploadService) recordProcessAudit(ctx context.Context, upload *models.DataUpload, result *ProcessResult) {
	action := models.AuditActionProcess
	if result.Error != "" {
		action = models.AuditActionError
	}
	s.audit.Record(ctx, upload.UploadedBy, action,
		fmt.Sprintf("Procesó upload %s: %d insertadas, %d actualizadas, %d errores",
			upload.ID, result.Inserted, result.Updated, result.Errors),
		map[string]any{
			"upload_id": upload.ID.String(),
			"processed": result.Processed,
			"inserted":  result.Inserted,
			"updated":   result.Updated,
			"errors":    result.Errors,
		})
}
