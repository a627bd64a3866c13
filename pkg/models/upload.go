package models

import (
	"time"

	"github.com/google/uuid"
)

// Upload pipeline lifecycle states. Terminal states are completado and error.
const (
	UploadStatusPending    = "pendiente"
	UploadStatusValidating = "validando"
	UploadStatusCleaning   = "limpiando"
	UploadStatusProcessing = "procesando"
	UploadStatusML         = "ml"
	UploadStatusCompleted  = "completado"
	UploadStatusError      = "error"
)

// DataUpload represents one ingestion attempt. It is owned exclusively by
// the ETL pipeline: only pipeline stage transitions mutate it.
type DataUpload struct {
	ID               uuid.UUID `json:"id"`
	FilePath         string    `json:"-"`
	OriginalFilename string    `json:"nombre_archivo_original"`
	UploadedBy       string    `json:"cargado_por"`
	Status           string    `json:"estado"`
	ErrorMessage     *string   `json:"mensaje_error,omitempty"`
	ErrorFilePath    *string   `json:"-"`
	ProcessedRows    int       `json:"processed_rows"`
	InsertedRows     int       `json:"inserted_rows"`
	UpdatedRows      int       `json:"updated_rows"`

	// Structural validation snapshot (filled during the validate stage).
	DetectedColumns  []string         `json:"columnas_detectadas,omitempty"`
	ColumnsValidated bool             `json:"columnas_validadas"`
	ValidationErrors map[string]any   `json:"errores_validacion,omitempty"`
	PreviewRows      []map[string]any `json:"preview_filas,omitempty"`

	UploadedAt time.Time `json:"fecha_carga"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ValidUploadStatus reports whether s is a known pipeline state.
func ValidUploadStatus(s string) bool {
	switch s {
	case UploadStatusPending, UploadStatusValidating, UploadStatusCleaning,
		UploadStatusProcessing, UploadStatusML, UploadStatusCompleted, UploadStatusError:
		return true
	}
	return false
}

// ImportErrorRow records one spreadsheet row that failed during processing.
// Rows are append-only and never mutated after creation.
type ImportErrorRow struct {
	ID        int64          `json:"id"`
	UploadID  uuid.UUID      `json:"upload_id"`
	RowNumber int            `json:"row_number"`
	RawData   map[string]any `json:"raw_data"`
	Error     string         `json:"error"`
	CreatedAt time.Time      `json:"created_at"`
}
