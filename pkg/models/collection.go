package models

import "time"

// Collection (cobranza) states.
const (
	CollectionStatusPending    = "PENDIENTE"
	CollectionStatusInProgress = "EN_PROCESO"
	CollectionStatusPaid       = "PAGADA"
	CollectionStatusOverdue    = "VENCIDA"
	CollectionStatusCancelled  = "CANCELADA"
)

// Collection accounting classes.
const (
	CollectionTypeCurrent        = "PAGO_VIGENTE"
	CollectionTypeOverduePayment = "PAGO_VENCIDO"
	CollectionTypeFinancialRisk  = "RIESGO_FINANCIERO"
)

// Collection tracks an expected payment for a policy. Rows flagged with
// FromETL were derived automatically after an ingestion run.
type Collection struct {
	ID           int64      `json:"id"`
	PolicyID     int64      `json:"poliza_id"`
	PolicyNumber string     `json:"poliza_numero,omitempty"`
	AmountUF     float64    `json:"monto_uf"`
	IssueDate    time.Time  `json:"fecha_emision"`
	DueDate      time.Time  `json:"fecha_vencimiento"`
	PaidDate     *time.Time `json:"fecha_pago,omitempty"`
	DaysOverdue  int        `json:"dias_atraso"`
	Status       string     `json:"estado"`
	Type         string     `json:"tipo_cobranza"`
	FromETL      bool       `json:"fuente_etl"`
	Notes        string     `json:"observaciones,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
