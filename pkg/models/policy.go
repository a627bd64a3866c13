package models

import "time"

// Policy lifecycle states. The values are the wire/storage representation
// and match the spreadsheet vocabulary used by the brokers.
const (
	PolicyStatusActive    = "VIGENTE"
	PolicyStatusExpired   = "VENCIDA"
	PolicyStatusCancelled = "CANCELADA"
)

// Policy is an insurance policy, upserted by its unique external number.
type Policy struct {
	ID         int64     `json:"id"`
	Number     string    `json:"numero"`
	ClientID   int64     `json:"cliente_id"`
	ClientRUT  string    `json:"cliente_rut"`
	ClientName string    `json:"cliente_nombre,omitempty"`
	StartDate  time.Time `json:"fecha_inicio"`
	EndDate    time.Time `json:"fecha_vencimiento"`
	AmountUF   float64   `json:"monto_uf"`
	Status     string    `json:"estado"`
	Cluster    *int      `json:"cluster,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ValidPolicyStatus reports whether s is a known policy state.
func ValidPolicyStatus(s string) bool {
	switch s {
	case PolicyStatusActive, PolicyStatusExpired, PolicyStatusCancelled:
		return true
	}
	return false
}

// ClientProduction is an aggregation row used by the top-client rule and report.
type ClientProduction struct {
	ClientID int64   `json:"cliente_id"`
	RUT      string  `json:"rut"`
	Name     string  `json:"nombre"`
	TotalUF  float64 `json:"total_uf"`
	Policies int     `json:"polizas_vigentes"`
}

// ClientRenewals counts policy starts per client inside an analysis window.
type ClientRenewals struct {
	ClientID int64  `json:"cliente_id"`
	RUT      string `json:"rut"`
	Name     string `json:"nombre"`
	Renewals int    `json:"renovaciones"`
}
