package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sigepol/sigepol-engine/pkg/models"
	"github.com/sigepol/sigepol-engine/pkg/repositories"
)

// ReportService builds read-only policy aggregations. Generating the expiry
// reports also files the matching vencimientos alerts, relying on the alert
// factory's dedup to keep repeated report runs idempotent.
type ReportService struct {
	policyRepo repositories.PolicyRepository
	alerts     *AlertService
	logger     *zap.Logger
}

func NewReportService(policyRepo repositories.PolicyRepository, alerts *AlertService, logger *zap.Logger) *ReportService {
	return &ReportService{
		policyRepo: policyRepo,
		alerts:     alerts,
		logger:     logger.Named("report_service"),
	}
}

// ExpiredPolicyEntry is one row of the expired-policies report.
type ExpiredPolicyEntry struct {
	ID          int64   `json:"id"`
	ClientName  string  `json:"cliente"`
	RUT         string  `json:"rut"`
	Policy      string  `json:"poliza"`
	EndDate     string  `json:"vencimiento"`
	DaysOverdue int     `json:"dias_atraso"`
	Status      string  `json:"estado"`
	PremiumUF   float64 `json:"prima_uf"`
}

// ExpiredReport lists active policies already past their end date.
type ExpiredReport struct {
	Total       int                  `json:"total"`
	Policies    []ExpiredPolicyEntry `json:"polizas"`
	GeneratedAt time.Time            `json:"generado"`
}

// ExpiredPolicies builds the expired-policies report and files a critical
// vencimientos alert per policy.
func (s *ReportService) ExpiredPolicies(ctx context.Context) (*ExpiredReport, error) {
	today := dateOnly(time.Now())
	policies, err := s.policyRepo.ListExpiredOpen(ctx, today)
	if err != nil {
		return nil, err
	}

	report := &ExpiredReport{GeneratedAt: time.Now(), Policies: []ExpiredPolicyEntry{}}
	for _, p := range policies {
		days := int(today.Sub(dateOnly(p.EndDate)).Hours() / 24)

		if _, err := s.alerts.CreateAlert(ctx, AlertParams{
			Type:     models.AlertTypeExpirations,
			Title:    "PÓLIZA VENCIDA",
			Message:  fmt.Sprintf("La póliza %s venció hace %d días", p.Number, days),
			Severity: models.AlertSeverityCritical,
			Policy:   p,
		}); err != nil {
			s.logger.Warn("failed to alert expired policy",
				zap.String("poliza", p.Number), zap.Error(err))
		}

		report.Policies = append(report.Policies, ExpiredPolicyEntry{
			ID:          p.ID,
			ClientName:  p.ClientName,
			RUT:         p.ClientRUT,
			Policy:      p.Number,
			EndDate:     p.EndDate.Format("2006-01-02"),
			DaysOverdue: days,
			Status:      p.Status,
			PremiumUF:   p.AmountUF,
		})
	}
	report.Total = len(report.Policies)
	return report, nil
}

// ExpiringPolicyEntry is one row of the expiring-policies report.
type ExpiringPolicyEntry struct {
	ID             int64   `json:"id"`
	ClientName     string  `json:"cliente"`
	RUT            string  `json:"rut"`
	Policy         string  `json:"poliza"`
	EndDate        string  `json:"vencimiento"`
	DaysRemaining  int     `json:"dias_restantes"`
	Recommendation string  `json:"recomendacion"`
	PremiumUF      float64 `json:"prima_uf"`
	Status         string  `json:"estado"`
}

// ExpiringReport lists active policies ending within the analysis window.
type ExpiringReport struct {
	Total       int                   `json:"total"`
	Policies    []ExpiringPolicyEntry `json:"polizas"`
	GeneratedAt time.Time             `json:"generado"`
}

// ExpiringPolicies builds the upcoming-expirations report over the next
// windowDays (30 when zero) and files one tiered alert per policy:
// 5 days or less critical, 15 or less warning, otherwise informational.
func (s *ReportService) ExpiringPolicies(ctx context.Context, windowDays int) (*ExpiringReport, error) {
	if windowDays <= 0 {
		windowDays = 30
	}
	today := dateOnly(time.Now())
	limit := today.AddDate(0, 0, windowDays)

	policies, err := s.policyRepo.ListExpiringBetween(ctx, today, limit)
	if err != nil {
		return nil, err
	}

	report := &ExpiringReport{GeneratedAt: time.Now(), Policies: []ExpiringPolicyEntry{}}
	for _, p := range policies {
		days := int(dateOnly(p.EndDate).Sub(today).Hours() / 24)

		var recommendation, severity string
		switch {
		case days <= 5:
			recommendation = "URGENTE: Contactar cliente para renovación inmediata"
			severity = models.AlertSeverityCritical
		case days <= 15:
			recommendation = "Contactar cliente para renovación"
			severity = models.AlertSeverityWarning
		default:
			recommendation = "Preparar comunicación de renovación"
			severity = models.AlertSeverityInfo
		}

		if _, err := s.alerts.CreateAlert(ctx, AlertParams{
			Type:     models.AlertTypeExpirations,
			Title:    "EXPIRACIÓN PRÓXIMA",
			Message:  fmt.Sprintf("La póliza %s vence en %d días", p.Number, days),
			Severity: severity,
			Policy:   p,
		}); err != nil {
			s.logger.Warn("failed to alert expiring policy",
				zap.String("poliza", p.Number), zap.Error(err))
		}

		report.Policies = append(report.Policies, ExpiringPolicyEntry{
			ID:             p.ID,
			ClientName:     p.ClientName,
			RUT:            p.ClientRUT,
			Policy:         p.Number,
			EndDate:        p.EndDate.Format("2006-01-02"),
			DaysRemaining:  days,
			Recommendation: recommendation,
			PremiumUF:      p.AmountUF,
			Status:         p.Status,
		})
	}
	report.Total = len(report.Policies)
	return report, nil
}

// TopClientEntry is one row of the top-clients ranking.
type TopClientEntry struct {
	Position int     `json:"posicion"`
	ClientID int64   `json:"cliente_id"`
	Name     string  `json:"cliente"`
	RUT      string  `json:"rut"`
	TotalUF  float64 `json:"total_uf"`
	Policies int     `json:"cantidad_polizas"`
	SharePct float64 `json:"participacion_porcentaje"`
}

// TopClientsReport ranks clients by active production.
type TopClientsReport struct {
	Total       int              `json:"total"`
	Ranking     []TopClientEntry `json:"ranking"`
	GeneratedAt time.Time        `json:"generado"`
}

// TopClients ranks the ten largest clients by active premium volume.
func (s *ReportService) TopClients(ctx context.Context) (*TopClientsReport, error) {
	production, err := s.policyRepo.ProductionByClient(ctx, 0, 10)
	if err != nil {
		return nil, err
	}

	var totalUF float64
	for _, cp := range production {
		totalUF += cp.TotalUF
	}

	report := &TopClientsReport{GeneratedAt: time.Now(), Ranking: []TopClientEntry{}}
	for i, cp := range production {
		share := 0.0
		if totalUF > 0 {
			share = cp.TotalUF / totalUF * 100
		}
		report.Ranking = append(report.Ranking, TopClientEntry{
			Position: i + 1,
			ClientID: cp.ClientID,
			Name:     cp.Name,
			RUT:      cp.RUT,
			TotalUF:  cp.TotalUF,
			Policies: cp.Policies,
			SharePct: share,
		})
	}
	report.Total = len(report.Ranking)
	return report, nil
}
