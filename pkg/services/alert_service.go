package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sigepol/sigepol-engine/pkg/models"
	"github.com/sigepol/sigepol-engine/pkg/repositories"
)

// AlertParams is the single creation contract shared by every alert
// producer. Callers never deal with dedup, freshness or history internals.
type AlertParams struct {
	Type     string
	Message  string
	Severity string
	// Title overrides the default title derived from Type.
	Title     string
	CreatedBy *string
	// Policy scopes the alert to a policy and enables deduplication.
	Policy *models.Policy
	// Client scopes the alert to a client. Client-only alerts are
	// intentionally not deduplicated.
	Client   *models.Client
	Metadata map[string]any
}

// AlertService is the alert factory: deduplication, freshness-based
// confidence tagging, SLA deadlines, notification dispatch and the
// append-only history mirror.
type AlertService struct {
	alertRepo  repositories.AlertRepository
	policyRepo repositories.PolicyRepository
	freshness  *FreshnessService
	notifier   Notifier
	logger     *zap.Logger
}

func NewAlertService(
	alertRepo repositories.AlertRepository,
	policyRepo repositories.PolicyRepository,
	freshness *FreshnessService,
	notifier Notifier,
	logger *zap.Logger,
) *AlertService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &AlertService{
		alertRepo:  alertRepo,
		policyRepo: policyRepo,
		freshness:  freshness,
		notifier:   notifier,
		logger:     logger.Named("alert_service"),
	}
}

// CreateAlert creates an alert, or returns the existing active alert when an
// identical (type, policy) one is still open. The side-effect order is fixed:
// dedup, freshness check, create, notify, history. A dedup hit skips
// everything after it, so an existing alert is never retagged or re-mirrored.
func (s *AlertService) CreateAlert(ctx context.Context, p AlertParams) (*models.Alert, error) {
	if p.Severity == "" {
		p.Severity = models.AlertSeverityInfo
	}
	if !models.ValidAlertSeverity(p.Severity) {
		return nil, fmt.Errorf("unknown alert severity %q", p.Severity)
	}
	title := p.Title
	if title == "" {
		title = models.DefaultAlertTitle(p.Type)
	}

	if p.Policy != nil {
		existing, err := s.alertRepo.FindActiveByTypeAndPolicy(ctx, p.Type, p.Policy.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	confident := true
	unreliableReason := ""
	if rut := s.clientRUT(p); rut != "" {
		state, err := s.freshness.State(ctx, rut)
		if err != nil {
			// A freshness lookup problem never blocks alert creation.
			s.logger.Warn("freshness check failed", zap.String("cliente", rut), zap.Error(err))
		} else if state != nil && state.Days >= models.StaleThresholdDays {
			confident = false
			unreliableReason = fmt.Sprintf("Datos desactualizados hace %d días", state.Days)
		}
	}

	now := time.Now()
	deadline := models.DeadlineFor(p.Severity, now)
	alert := &models.Alert{
		Type:             p.Type,
		Severity:         p.Severity,
		Title:            title,
		Message:          p.Message,
		Status:           models.AlertStatusPending,
		Confident:        confident,
		UnreliableReason: unreliableReason,
		CreatedBy:        p.CreatedBy,
		Deadline:         &deadline,
		Metadata:         p.Metadata,
	}
	if p.Policy != nil {
		alert.PolicyID = &p.Policy.ID
		if alert.ClientID == nil && p.Policy.ClientID != 0 {
			alert.ClientID = &p.Policy.ClientID
		}
	}
	if p.Client != nil {
		alert.ClientID = &p.Client.ID
	}

	if err := s.alertRepo.Create(ctx, alert); err != nil {
		return nil, err
	}

	if err := s.notifier.NotifyAlert(alert); err != nil {
		s.logger.Warn("alert notification failed",
			zap.String("alert_id", alert.ID.String()), zap.Error(err))
	}

	history := &models.AlertHistory{
		AlertID:    &alert.ID,
		Type:       alert.Type,
		Severity:   alert.Severity,
		Title:      alert.Title,
		Message:    alert.Message,
		ClientID:   alert.ClientID,
		PolicyID:   alert.PolicyID,
		FinalState: models.HistoryStateNew,
		Metadata:   alert.Metadata,
	}
	if err := s.alertRepo.CreateHistory(ctx, history); err != nil {
		return nil, err
	}

	s.logger.Info("alert created",
		zap.String("alert_id", alert.ID.String()),
		zap.String("tipo", alert.Type),
		zap.String("severidad", alert.Severity),
		zap.Bool("confiable", alert.Confident))
	return alert, nil
}

func (s *AlertService) clientRUT(p AlertParams) string {
	if p.Client != nil {
		return p.Client.RUT
	}
	if p.Policy != nil {
		return p.Policy.ClientRUT
	}
	return ""
}

// GetAlert returns one alert by id.
func (s *AlertService) GetAlert(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	return s.alertRepo.GetByID(ctx, id)
}

// ListAlerts returns alerts matching the filters, newest first.
func (s *AlertService) ListAlerts(ctx context.Context, filters models.AlertFilters) ([]*models.Alert, error) {
	return s.alertRepo.List(ctx, filters)
}

// MarkRead transitions a pending alert to LEIDA.
func (s *AlertService) MarkRead(ctx context.Context, id uuid.UUID) error {
	return s.alertRepo.MarkRead(ctx, id, time.Now())
}

// Resolve closes an active alert and syncs its history mirror.
func (s *AlertService) Resolve(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	if err := s.alertRepo.Resolve(ctx, id, now); err != nil {
		return err
	}
	if err := s.alertRepo.SetHistoryState(ctx, id, models.HistoryStateResolved, &now); err != nil {
		s.logger.Warn("failed to sync alert history", zap.String("alert_id", id.String()), zap.Error(err))
	}
	return nil
}

// Stats summarizes alerts by lifecycle state.
func (s *AlertService) Stats(ctx context.Context) (*models.AlertStats, error) {
	return s.alertRepo.Stats(ctx, time.Now())
}

// RunAutomaticChecks is the post-ingestion anomaly sweep: zero production
// today, an empty policy base, and week-over-week production shrinkage.
func (s *AlertService) RunAutomaticChecks(ctx context.Context) error {
	today := dateOnly(time.Now())

	productionToday, err := s.policyRepo.CountStartedBetween(ctx, today, today)
	if err != nil {
		return err
	}
	if productionToday == 0 {
		_, err := s.CreateAlert(ctx, AlertParams{
			Type:     models.AlertTypeLowProduction,
			Severity: models.AlertSeverityWarning,
			Title:    "Producción del día en cero",
			Message:  "La producción de pólizas del día es 0. Esto es inusual.",
		})
		if err != nil {
			return err
		}
	}

	total, err := s.policyRepo.Count(ctx)
	if err != nil {
		return err
	}
	if total == 0 {
		_, err := s.CreateAlert(ctx, AlertParams{
			Type:     models.AlertTypeSystem,
			Severity: models.AlertSeverityCritical,
			Title:    "Base de datos de pólizas vacía",
			Message:  "No hay pólizas registradas en el sistema.",
		})
		if err != nil {
			return err
		}
	}

	weekAgo := today.AddDate(0, 0, -7)
	twoWeeksAgo := today.AddDate(0, 0, -14)
	lastWeek, err := s.policyRepo.CountStartedBetween(ctx, weekAgo, today)
	if err != nil {
		return err
	}
	previousWeek, err := s.policyRepo.CountStartedBetween(ctx, twoWeeksAgo, weekAgo.AddDate(0, 0, -1))
	if err != nil {
		return err
	}
	if previousWeek > 0 && float64(lastWeek) < float64(previousWeek)*0.7 {
		_, err := s.CreateAlert(ctx, AlertParams{
			Type:     models.AlertTypeNegativeGrowth,
			Severity: models.AlertSeverityWarning,
			Title:    "Decrecimiento de producción detectado",
			Message: fmt.Sprintf(
				"Producción últimos 7 días: %d vs 14 días anteriores: %d. Decrecimiento > 30%%.",
				lastWeek, previousWeek),
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
