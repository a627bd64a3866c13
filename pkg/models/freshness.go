package models

import (
	"fmt"
	"time"
)

// Freshness buckets. Alerts built on ADVERTENCIA or CRITICO data are tagged
// as not trustworthy.
const (
	FreshnessExcellent = "EXCELENTE"
	FreshnessGood      = "BUENO"
	FreshnessWarning   = "ADVERTENCIA"
	FreshnessCritical  = "CRITICO"
)

// StaleThresholdDays is the default cut-off after which a client's data is
// no longer considered fresh.
const StaleThresholdDays = 30

// DataFreshness is the per-client last-load ledger. DaysSinceUpdate is a
// derived field: it is only meaningful after Recalculate (or the freshness
// service's recompute-on-read) has run.
type DataFreshness struct {
	ID              int64      `json:"id"`
	ClientRUT       string     `json:"cliente"`
	LastUpdate      time.Time  `json:"ultima_actualizacion"`
	DaysSinceUpdate int        `json:"dias_sin_actualizacion"`
	StaleAlert      bool       `json:"alerta_frescura"`
	LastLoadDate    *time.Time `json:"fecha_ultima_carga,omitempty"`
	LastLoadUser    *string    `json:"usuario_ultima_carga,omitempty"`
	RecordsUpdated  int        `json:"registros_actualizados"`
	RegisteredAt    time.Time  `json:"fecha_registro"`
}

// Recalculate refreshes DaysSinceUpdate from the stored LastUpdate and the
// given reference date, and flips StaleAlert at the 30 day threshold.
// Returns the recomputed day count.
func (f *DataFreshness) Recalculate(today time.Time) int {
	days := int(today.Sub(f.LastUpdate).Hours() / 24)
	if days < 0 {
		days = 0
	}
	f.DaysSinceUpdate = days
	f.StaleAlert = days >= StaleThresholdDays
	return days
}

// FreshnessState is the bucketed view returned to alerting and the API.
type FreshnessState struct {
	Status     string `json:"status"`
	Days       int    `json:"dias_sin_actualizar"`
	Confident  bool   `json:"confiable"`
	ClientRUT  string `json:"cliente"`
	LastUpdate string `json:"ultima_carga"`
	Message    string `json:"mensaje"`
}

// State buckets the current DaysSinceUpdate. Callers must Recalculate first;
// the freshness service does this on every read.
func (f *DataFreshness) State() FreshnessState {
	days := f.DaysSinceUpdate

	var status string
	var confident bool
	switch {
	case days < 15:
		status, confident = FreshnessExcellent, true
	case days < 30:
		status, confident = FreshnessGood, true
	case days < 45:
		status, confident = FreshnessWarning, false
	default:
		status, confident = FreshnessCritical, false
	}

	return FreshnessState{
		Status:     status,
		Days:       days,
		Confident:  confident,
		ClientRUT:  f.ClientRUT,
		LastUpdate: f.LastUpdate.Format("2006-01-02"),
		Message:    freshnessMessage(status, days),
	}
}

func freshnessMessage(status string, days int) string {
	switch status {
	case FreshnessExcellent:
		return fmt.Sprintf("Datos muy actualizados (hace %d días)", days)
	case FreshnessGood:
		return fmt.Sprintf("Datos actualizados (hace %d días)", days)
	case FreshnessWarning:
		return fmt.Sprintf("Datos desactualizados (hace %d días)", days)
	default:
		return fmt.Sprintf("Datos muy desactualizados (hace %d días) - subir archivo urgentemente", days)
	}
}

// FreshnessStats is the system-wide freshness summary.
type FreshnessStats struct {
	TotalClients    int     `json:"total_clientes"`
	FreshClients    int     `json:"clientes_frescos"`
	StaleClients    int     `json:"clientes_desactualizados"`
	CriticalClients int     `json:"clientes_criticos"`
	AverageDays     float64 `json:"dias_promedio_sin_actualizar"`
	FreshPercent    float64 `json:"porcentaje_frescos"`
}
