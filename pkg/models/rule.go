package models

import "time"

// Rule categories.
const (
	RuleTypeExpirations = "vencimientos"
	RuleTypeProduction  = "produccion"
	RuleTypeTopClient   = "cliente_top"
	RuleTypeAnomaly     = "anomalia"
	RuleTypeCompliance  = "compliance"
)

// Rule is a named, parameterized, orderable unit of business logic with
// running execution totals and a cached last result.
type Rule struct {
	ID             int64          `json:"id"`
	Name           string         `json:"nombre"`
	Description    string         `json:"descripcion"`
	Type           string         `json:"tipo"`
	Code           string         `json:"codigo"`
	Active         bool           `json:"activa"`
	ExecutionOrder int            `json:"orden_ejecucion"`
	Parameters     map[string]any `json:"parametros"`

	CreatedAt     time.Time      `json:"creada_en"`
	ModifiedAt    time.Time      `json:"modificada_en"`
	LastExecution *time.Time     `json:"ultima_ejecucion,omitempty"`
	NextExecution *time.Time     `json:"proxima_ejecucion,omitempty"`
	LastResult    map[string]any `json:"ultimo_resultado,omitempty"`
	LastError     *string        `json:"ultimo_error,omitempty"`

	TotalExecutions int `json:"total_ejecuciones"`
	SuccessfulRuns  int `json:"ejecuciones_exitosas"`
	FailedRuns      int `json:"ejecuciones_fallidas"`
}

// SuccessRate returns the percentage of successful executions.
func (r *Rule) SuccessRate() float64 {
	if r.TotalExecutions == 0 {
		return 0
	}
	return float64(r.SuccessfulRuns) / float64(r.TotalExecutions) * 100
}

// IntParam reads an integer parameter with a default. JSON numbers arrive
// as float64, so both representations are accepted.
func (r *Rule) IntParam(key string, def int) int {
	v, ok := r.Parameters[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return def
}

// Float64Param reads a float parameter with a default.
func (r *Rule) Float64Param(key string, def float64) float64 {
	v, ok := r.Parameters[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return def
}

// StringParam reads a string parameter with a default.
func (r *Rule) StringParam(key, def string) string {
	if s, ok := r.Parameters[key].(string); ok && s != "" {
		return s
	}
	return def
}

// BoolParam reads a boolean parameter with a default.
func (r *Rule) BoolParam(key string, def bool) bool {
	if b, ok := r.Parameters[key].(bool); ok {
		return b
	}
	return def
}

// RuleExecution outcome states.
const (
	ExecutionStatusPending = "pendiente"
	ExecutionStatusRunning = "ejecutando"
	ExecutionStatusSuccess = "exitosa"
	ExecutionStatusError   = "error"
	ExecutionStatusPartial = "parcial"
)

// RuleExecution is the append-only audit row written for every rule
// invocation, success or failure.
type RuleExecution struct {
	ID              int64          `json:"id"`
	RuleID          int64          `json:"regla_id"`
	StartedAt       time.Time      `json:"inicio"`
	FinishedAt      *time.Time     `json:"fin,omitempty"`
	DurationSeconds *float64       `json:"duracion_segundos,omitempty"`
	Status          string         `json:"estado"`
	Result          map[string]any `json:"resultado,omitempty"`
	ErrorMessage    string         `json:"error_mensaje,omitempty"`
	ErrorTraceback  string         `json:"error_traceback,omitempty"`
	ParametersUsed  map[string]any `json:"parametros_utilizados,omitempty"`
}
