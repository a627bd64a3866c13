package models

import "time"

// Audit actions recorded by the engine.
const (
	AuditActionUpload   = "upload"
	AuditActionProcess  = "process"
	AuditActionError    = "error"
	AuditActionRulesRun = "rules_run"
	AuditActionReport   = "report_generate"
	AuditActionExport   = "export"
)

// AuditLog is a lightweight, append-only trail of engine operations.
type AuditLog struct {
	ID          int64          `json:"id"`
	User        string         `json:"usuario"`
	Action      string         `json:"accion"`
	Description string         `json:"descripcion"`
	Details     map[string]any `json:"detalles,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}
