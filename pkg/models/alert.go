package models

import (
	"time"

	"github.com/google/uuid"
)

// Alert types. Machine-origin (ML) types are uppercase by convention,
// rule/pipeline types lowercase, matching the historical data.
const (
	AlertTypeMLProductionRisk = "ML_RIESGO_PRODUCCION"
	AlertTypeMLNegativeTrend  = "ML_VARIACION_NEGATIVA"
	AlertTypeMLAnomaly        = "ML_ANOMALIA"

	AlertTypeLowProduction  = "produccion_baja"
	AlertTypeNegativeGrowth = "crecimiento_negativo"
	AlertTypeClientRisk     = "cliente_riesgo"
	AlertTypeLoadError      = "error_carga"
	AlertTypeManual         = "manual"
	AlertTypeTopClient      = "cliente_top"
	AlertTypeIrregularTerm  = "vigencia_irregular"
	AlertTypeDataSanity     = "sanidad_datos"

	AlertTypeExpirations = "vencimientos"
	AlertTypeCollections = "cobranzas"
	AlertTypeImports     = "importaciones"
	AlertTypeSystem      = "sistema"
)

// Alert severities.
const (
	AlertSeverityInfo     = "info"
	AlertSeverityWarning  = "warning"
	AlertSeverityCritical = "critical"
)

// Alert lifecycle states. PENDIENTE and LEIDA are the "active" states that
// participate in deduplication.
const (
	AlertStatusPending   = "PENDIENTE"
	AlertStatusRead      = "LEIDA"
	AlertStatusResolved  = "RESUELTA"
	AlertStatusDiscarded = "DESCARTADA"
)

var alertTitles = map[string]string{
	AlertTypeMLProductionRisk: "ML: Riesgo de Producción Baja",
	AlertTypeMLNegativeTrend:  "ML: Variación Negativa Detectada",
	AlertTypeMLAnomaly:        "ML: Anomalía en Datos",
	AlertTypeLowProduction:    "Producción Baja",
	AlertTypeNegativeGrowth:   "Crecimiento Negativo",
	AlertTypeClientRisk:       "Cliente en Cluster de Bajo Rendimiento",
	AlertTypeLoadError:        "Error en Carga de Datos",
	AlertTypeManual:           "Alerta Manual",
	AlertTypeTopClient:        "Cliente Top",
	AlertTypeIrregularTerm:    "Vigencia Irregular",
	AlertTypeDataSanity:       "Sanidad de Datos",
	AlertTypeExpirations:      "Vencimientos",
	AlertTypeCollections:      "Cobranzas",
	AlertTypeImports:          "Importaciones",
	AlertTypeSystem:           "Sistema",
}

// DefaultAlertTitle returns the display title for an alert type, falling
// back to the raw type for unknown codes.
func DefaultAlertTitle(alertType string) string {
	if title, ok := alertTitles[alertType]; ok {
		return title
	}
	return alertType
}

// ValidAlertSeverity reports whether s is a known severity.
func ValidAlertSeverity(s string) bool {
	switch s {
	case AlertSeverityInfo, AlertSeverityWarning, AlertSeverityCritical:
		return true
	}
	return false
}

// resolution SLA per severity, in days
var severityDeadlineDays = map[string]int{
	AlertSeverityCritical: 1,
	AlertSeverityWarning:  3,
	AlertSeverityInfo:     7,
}

// DeadlineFor computes the resolution deadline for a severity from now.
// Unknown severities get the info SLA.
func DeadlineFor(severity string, now time.Time) time.Time {
	days, ok := severityDeadlineDays[severity]
	if !ok {
		days = 7
	}
	return now.AddDate(0, 0, days)
}

// Alert is a typed, severity-leveled notice optionally bound to a policy
// and/or client.
type Alert struct {
	ID       uuid.UUID `json:"id"`
	Type     string    `json:"tipo"`
	Severity string    `json:"severidad"`
	Title    string    `json:"titulo"`
	Message  string    `json:"mensaje"`
	Status   string    `json:"estado"`

	// Confidence downgrade based on data freshness at creation time.
	Confident        bool   `json:"confiable"`
	UnreliableReason string `json:"razon_no_confiable,omitempty"`

	PolicyID  *int64  `json:"poliza_id,omitempty"`
	ClientID  *int64  `json:"cliente_id,omitempty"`
	CreatedBy *string `json:"creada_por,omitempty"`

	CreatedAt  time.Time  `json:"fecha_creacion"`
	ReadAt     *time.Time `json:"fecha_lectura,omitempty"`
	ResolvedAt *time.Time `json:"fecha_resolucion,omitempty"`
	Deadline   *time.Time `json:"fecha_limite,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// Active reports whether the alert participates in deduplication.
func (a *Alert) Active() bool {
	return a.Status == AlertStatusPending || a.Status == AlertStatusRead
}

// Overdue reports whether a still-pending alert has passed its deadline.
func (a *Alert) Overdue(now time.Time) bool {
	return a.Deadline != nil && now.After(*a.Deadline) && a.Status == AlertStatusPending
}

// AlertHistory final states.
const (
	HistoryStateNew       = "nueva"
	HistoryStateResolved  = "resuelta"
	HistoryStateDiscarded = "descartada"
	HistoryStateExpired   = "expirada"
)

// AlertHistory is the append-only mirror written alongside every alert.
// Its resolution state evolves independently of the live alert so that
// historical queries survive alert mutation or deletion.
type AlertHistory struct {
	ID         int64      `json:"id"`
	AlertID    *uuid.UUID `json:"alerta_id,omitempty"`
	Type       string     `json:"tipo"`
	Severity   string     `json:"severidad"`
	Title      string     `json:"titulo"`
	Message    string     `json:"mensaje"`
	ClientID   *int64     `json:"cliente_id,omitempty"`
	PolicyID   *int64     `json:"poliza_id,omitempty"`
	FinalState string     `json:"estado_final"`
	CreatedAt  time.Time  `json:"creada_en"`
	ResolvedAt *time.Time `json:"resuelta_en,omitempty"`
	ResolvedBy *string    `json:"resuelta_por,omitempty"`
	Notes      *string    `json:"notas,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// AlertStats summarizes alerts by state for the dashboard endpoint.
type AlertStats struct {
	Total    int `json:"total"`
	Pending  int `json:"pendientes"`
	Read     int `json:"leidas"`
	Resolved int `json:"resueltas"`
	Critical int `json:"criticas"`
	Overdue  int `json:"vencidas"`
}

// AlertFilters narrows alert listings.
type AlertFilters struct {
	Status   string
	Severity string
	Type     string
	Limit    int
	Offset   int
}
