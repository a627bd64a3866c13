package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sigepol/sigepol-engine/pkg/apperrors"
	"github.com/sigepol/sigepol-engine/pkg/database"
	"github.com/sigepol/sigepol-engine/pkg/models"
)

// UploadRepository tracks spreadsheet upload jobs and their rejected rows.
type UploadRepository interface {
	Create(ctx context.Context, upload *models.DataUpload) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.DataUpload, error)
	List(ctx context.Context, limit int) ([]*models.DataUpload, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error
	SetValidation(ctx context.Context, upload *models.DataUpload) error
	SetCounters(ctx context.Context, id uuid.UUID, processed, inserted, updated int) error
	SetErrorFile(ctx context.Context, id uuid.UUID, path string) error

	CreateErrorRow(ctx context.Context, row *models.ImportErrorRow) error
	ListErrorRows(ctx context.Context, uploadID uuid.UUID) ([]*models.ImportErrorRow, error)
}

type uploadRepository struct {
	db *database.DB
}

func NewUploadRepository(db *database.DB) UploadRepository {
	return &uploadRepository{db: db}
}

var _ UploadRepository = (*uploadRepository)(nil)

const uploadColumns = `
	id, file_path, original_filename, uploaded_by, estado, error_message,
	error_file_path, processed_rows, inserted_rows, updated_rows,
	detected_columns, columns_validated, validation_errors, preview_rows,
	uploaded_at, updated_at`

func scanUpload(row pgx.Row) (*models.DataUpload, error) {
	u := &models.DataUpload{}
	err := row.Scan(
		&u.ID, &u.FilePath, &u.OriginalFilename, &u.UploadedBy, &u.Status, &u.ErrorMessage,
		&u.ErrorFilePath, &u.ProcessedRows, &u.InsertedRows, &u.UpdatedRows,
		&u.DetectedColumns, &u.ColumnsValidated, &u.ValidationErrors, &u.PreviewRows,
		&u.UploadedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *uploadRepository) Create(ctx context.Context, upload *models.DataUpload) error {
	if upload.ID == uuid.Nil {
		upload.ID = uuid.New()
	}
	if upload.Status == "" {
		upload.Status = models.UploadStatusPending
	}
	err := r.db.Querier(ctx).QueryRow(ctx, `
		INSERT INTO data_uploads (id, file_path, original_filename, uploaded_by, estado)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING uploaded_at, updated_at`,
		upload.ID, upload.FilePath, upload.OriginalFilename, upload.UploadedBy, upload.Status,
	).Scan(&upload.UploadedAt, &upload.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create upload: %w", err)
	}
	return nil
}

func (r *uploadRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DataUpload, error) {
	row := r.db.Querier(ctx).QueryRow(ctx, `
		SELECT `+uploadColumns+`
		FROM data_uploads
		WHERE id = $1`, id)

	u, err := scanUpload(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrUploadNotFound
		}
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}
	return u, nil
}

func (r *uploadRepository) List(ctx context.Context, limit int) ([]*models.DataUpload, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Querier(ctx).Query(ctx, `
		SELECT `+uploadColumns+`
		FROM data_uploads
		ORDER BY uploaded_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	defer rows.Close()

	var out []*models.DataUpload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *uploadRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error {
	tag, err := r.db.Querier(ctx).Exec(ctx, `
		UPDATE data_uploads
		SET estado = $1, error_message = $2, updated_at = now()
		WHERE id = $3`, status, errorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to update upload status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUploadNotFound
	}
	return nil
}

func (r *uploadRepository) SetValidation(ctx context.Context, upload *models.DataUpload) error {
	_, err := r.db.Querier(ctx).Exec(ctx, `
		UPDATE data_uploads
		SET detected_columns = $1, columns_validated = $2, validation_errors = $3,
		    preview_rows = $4, updated_at = now()
		WHERE id = $5`,
		upload.DetectedColumns, upload.ColumnsValidated, upload.ValidationErrors,
		upload.PreviewRows, upload.ID)
	if err != nil {
		return fmt.Errorf("failed to save upload validation: %w", err)
	}
	return nil
}

func (r *uploadRepository) SetCounters(ctx context.Context, id uuid.UUID, processed, inserted, updated int) error {
	_, err := r.db.Querier(ctx).Exec(ctx, `
		UPDATE data_uploads
		SET processed_rows = $1, inserted_rows = $2, updated_rows = $3, updated_at = now()
		WHERE id = $4`, processed, inserted, updated, id)
	if err != nil {
		return fmt.Errorf("failed to save upload counters: %w", err)
	}
	return nil
}

func (r *uploadRepository) SetErrorFile(ctx context.Context, id uuid.UUID, path string) error {
	_, err := r.db.Querier(ctx).Exec(ctx, `
		UPDATE data_uploads
		SET error_file_path = $1, updated_at = now()
		WHERE id = $2`, path, id)
	if err != nil {
		return fmt.Errorf("failed to save upload error file: %w", err)
	}
	return nil
}

func (r *uploadRepository) CreateErrorRow(ctx context.Context, row *models.ImportErrorRow) error {
	err := r.db.Querier(ctx).QueryRow(ctx, `
		INSERT INTO import_error_rows (upload_id, row_number, raw_data, error)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		row.UploadID, row.RowNumber, row.RawData, row.Error,
	).Scan(&row.ID, &row.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create error row: %w", err)
	}
	return nil
}

func (r *uploadRepository) ListErrorRows(ctx context.Context, uploadID uuid.UUID) ([]*models.ImportErrorRow, error) {
	rows, err := r.db.Querier(ctx).Query(ctx, `
		SELECT id, upload_id, row_number, raw_data, error, created_at
		FROM import_error_rows
		WHERE upload_id = $1
		ORDER BY row_number ASC`, uploadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list error rows: %w", err)
	}
	defer rows.Close()

	var out []*models.ImportErrorRow
	for rows.Next() {
		er := &models.ImportErrorRow{}
		if err := rows.Scan(&er.ID, &er.UploadID, &er.RowNumber, &er.RawData, &er.Error, &er.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan error row: %w", err)
		}
		out = append(out, er)
	}
	return out, rows.Err()
}
