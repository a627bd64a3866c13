package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sigepol/sigepol-engine/pkg/models"
	"github.com/sigepol/sigepol-engine/pkg/repositories"
)

// FreshnessService maintains the per-client data freshness ledger.
//
// DaysSinceUpdate is a derived field: every read path here recomputes it
// from the stored last_update before using or returning it.
type FreshnessService struct {
	freshnessRepo repositories.FreshnessRepository
	logger        *zap.Logger
}

func NewFreshnessService(freshnessRepo repositories.FreshnessRepository, logger *zap.Logger) *FreshnessService {
	return &FreshnessService{
		freshnessRepo: freshnessRepo,
		logger:        logger.Named("freshness_service"),
	}
}

// RegisterLoad records that a data load touched the given client, resetting
// its staleness counters.
func (s *FreshnessService) RegisterLoad(ctx context.Context, rut, user string, recordsUpdated int) (*models.DataFreshness, error) {
	f, err := s.freshnessRepo.RegisterLoad(ctx, rut, user, recordsUpdated, time.Now())
	if err != nil {
		return nil, err
	}
	s.logger.Debug("data load registered",
		zap.String("cliente", rut),
		zap.String("usuario", user),
		zap.Int("registros", recordsUpdated))
	return f, nil
}

// IsFresh reports whether the client's data is younger than thresholdDays.
// A client without a freshness row is not fresh.
func (s *FreshnessService) IsFresh(ctx context.Context, rut string, thresholdDays int) (bool, error) {
	f, err := s.freshnessRepo.GetByRUT(ctx, rut)
	if err != nil {
		return false, err
	}
	if f == nil {
		return false, nil
	}
	days := f.Recalculate(time.Now())
	if err := s.freshnessRepo.Save(ctx, f); err != nil {
		return false, err
	}
	return days < thresholdDays, nil
}

// State returns the bucketed freshness state for a client.
func (s *FreshnessService) State(ctx context.Context, rut string) (*models.FreshnessState, error) {
	f, err := s.freshnessRepo.GetByRUT(ctx, rut)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, nil
	}
	f.Recalculate(time.Now())
	if err := s.freshnessRepo.Save(ctx, f); err != nil {
		return nil, err
	}
	state := f.State()
	return &state, nil
}

// ClientsOverdue lists clients whose stored last_update predates
// today - thresholdDays.
func (s *FreshnessService) ClientsOverdue(ctx context.Context, thresholdDays int) ([]*models.DataFreshness, error) {
	if thresholdDays <= 0 {
		thresholdDays = models.StaleThresholdDays
	}
	cutoff := time.Now().AddDate(0, 0, -thresholdDays)
	overdue, err := s.freshnessRepo.ListOverdue(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue clients: %w", err)
	}
	now := time.Now()
	for _, f := range overdue {
		f.Recalculate(now)
	}
	return overdue, nil
}

// Stats summarizes ledger-wide freshness.
func (s *FreshnessService) Stats(ctx context.Context) (*models.FreshnessStats, error) {
	now := time.Now()
	staleBefore := now.AddDate(0, 0, -models.StaleThresholdDays)
	criticalBefore := now.AddDate(0, 0, -45)
	return s.freshnessRepo.Stats(ctx, staleBefore, criticalBefore)
}
