package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sigepol/sigepol-engine/pkg/apperrors"
	"github.com/sigepol/sigepol-engine/pkg/models"
	"github.com/sigepol/sigepol-engine/pkg/services"
)

// UploadHandler exposes the ETL pipeline over HTTP: file intake, job
// status, processing trigger and the error CSV download.
type UploadHandler struct {
	uploadService *services.UploadService
	logger        *zap.Logger
}

func NewUploadHandler(uploadService *services.UploadService, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{uploadService: uploadService, logger: logger}
}

// RegisterRoutes registers the upload handler's routes on the given mux.
func (h *UploadHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/uploads", h.CreateUpload)
	mux.HandleFunc("GET /api/uploads", h.ListUploads)
	mux.HandleFunc("GET /api/uploads/{id}", h.GetUpload)
	mux.HandleFunc("POST /api/uploads/{id}/process", h.ProcessUpload)
	mux.HandleFunc("GET /api/uploads/{id}/errors.csv", h.DownloadErrorCSV)
}

// jobStatus is the status contract consumed by callers.
type jobStatus struct {
	ID            uuid.UUID `json:"id"`
	Status        string    `json:"status"`
	ProcessedRows int       `json:"processed_rows"`
	InsertedRows  int       `json:"inserted_rows"`
	UpdatedRows   int       `json:"updated_rows"`
	ErrorMessage  *string   `json:"error_message,omitempty"`
}

func toJobStatus(u *models.DataUpload) jobStatus {
	return jobStatus{
		ID:            u.ID,
		Status:        u.Status,
		ProcessedRows: u.ProcessedRows,
		InsertedRows:  u.InsertedRows,
		UpdatedRows:   u.UpdatedRows,
		ErrorMessage:  u.ErrorMessage,
	}
}

// CreateUpload handles POST /api/uploads (multipart form, field "archivo").
func (h *UploadHandler) CreateUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_multipart", err.Error())
		return
	}
	file, header, err := r.FormFile("archivo")
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "missing_file", "multipart field 'archivo' is required")
		return
	}
	defer file.Close()

	uploadedBy := r.FormValue("usuario")
	if uploadedBy == "" {
		uploadedBy = "sistema"
	}

	upload, err := h.uploadService.CreateFromFile(r.Context(), header.Filename, file, uploadedBy)
	if err != nil {
		h.logger.Error("Failed to create upload", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "create_upload_failed", err.Error())
		return
	}

	if err := WriteJSON(w, http.StatusCreated, toJobStatus(upload)); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListUploads handles GET /api/uploads.
func (h *UploadHandler) ListUploads(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	uploads, err := h.uploadService.ListUploads(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list uploads", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "list_uploads_failed", err.Error())
		return
	}

	statuses := make([]jobStatus, 0, len(uploads))
	for _, u := range uploads {
		statuses = append(statuses, toJobStatus(u))
	}
	if err := WriteJSON(w, http.StatusOK, statuses); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// GetUpload handles GET /api/uploads/{id}.
func (h *UploadHandler) GetUpload(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseUploadID(w, r)
	if !ok {
		return
	}

	upload, err := h.uploadService.GetUpload(r.Context(), id)
	if err != nil {
		h.handleUploadError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, toJobStatus(upload)); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ProcessUpload handles POST /api/uploads/{id}/process. The optional
// query parameter ml=true requests ML post-processing.
func (h *UploadHandler) ProcessUpload(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseUploadID(w, r)
	if !ok {
		return
	}
	runML := r.URL.Query().Get("ml") == "true"

	result, err := h.uploadService.ProcessUpload(r.Context(), id, runML)
	if err != nil {
		h.handleUploadError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// DownloadErrorCSV handles GET /api/uploads/{id}/errors.csv.
func (h *UploadHandler) DownloadErrorCSV(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseUploadID(w, r)
	if !ok {
		return
	}

	upload, err := h.uploadService.GetUpload(r.Context(), id)
	if err != nil {
		h.handleUploadError(w, err)
		return
	}
	if upload.ErrorFilePath == nil {
		writeError(w, h.logger, http.StatusNotFound, "no_error_file", "upload has no error report")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=errores_%s.csv", upload.ID))
	http.ServeFile(w, r, *upload.ErrorFilePath)
}

func (h *UploadHandler) parseUploadID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_upload_id", "upload id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *UploadHandler) handleUploadError(w http.ResponseWriter, err error) {
	if errors.Is(err, apperrors.ErrUploadNotFound) {
		writeError(w, h.logger, http.StatusNotFound, "upload_not_found", err.Error())
		return
	}
	h.logger.Error("Upload request failed", zap.Error(err))
	writeError(w, h.logger, http.StatusInternalServerError, "upload_failed", err.Error())
}

func writeError(w http.ResponseWriter, logger *zap.Logger, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}
