package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sigepol/sigepol-engine/pkg/models"
	"github.com/sigepol/sigepol-engine/pkg/repositories"
)

// collectionTermDays is the payment window granted from policy issue date.
const collectionTermDays = 30

// CollectionService derives cobranza records from the policy base after an
// ingestion run and keeps their overdue state current.
type CollectionService struct {
	collectionRepo repositories.CollectionRepository
	logger         *zap.Logger
}

// CollectionSweepResult reports one automatic sweep.
type CollectionSweepResult struct {
	Created    int `json:"creadas"`
	Errors     int `json:"errores"`
	MarkedLate int `json:"marcadas_vencidas"`
}

func NewCollectionService(collectionRepo repositories.CollectionRepository, logger *zap.Logger) *CollectionService {
	return &CollectionService{
		collectionRepo: collectionRepo,
		logger:         logger.Named("collection_service"),
	}
}

// SweepFromETL creates a pending collection for every billable active
// policy that has none, then refreshes overdue markers. Per-policy failures
// are counted and skipped, never aborting the sweep.
func (s *CollectionService) SweepFromETL(ctx context.Context) (*CollectionSweepResult, error) {
	policies, err := s.collectionRepo.ListPoliciesNeedingCollection(ctx)
	if err != nil {
		return nil, err
	}

	result := &CollectionSweepResult{}
	today := dateOnly(time.Now())
	for _, p := range policies {
		collType := models.CollectionTypeCurrent
		if p.EndDate.Before(today) {
			collType = models.CollectionTypeOverduePayment
		}
		c := &models.Collection{
			PolicyID:  p.ID,
			AmountUF:  p.AmountUF,
			IssueDate: today,
			DueDate:   p.StartDate.AddDate(0, 0, collectionTermDays),
			Status:    models.CollectionStatusPending,
			Type:      collType,
			FromETL:   true,
		}
		if err := s.collectionRepo.Create(ctx, c); err != nil {
			result.Errors++
			s.logger.Warn("failed to create collection",
				zap.String("poliza", p.Number), zap.Error(err))
			continue
		}
		result.Created++
	}

	marked, err := s.collectionRepo.MarkOverdue(ctx, today)
	if err != nil {
		// Overdue refresh is secondary to creation; report what succeeded.
		s.logger.Warn("failed to refresh overdue collections", zap.Error(err))
	} else {
		result.MarkedLate = marked
	}

	s.logger.Info("collection sweep finished",
		zap.Int("creadas", result.Created),
		zap.Int("errores", result.Errors),
		zap.Int("marcadas_vencidas", result.MarkedLate))
	return result, nil
}

// ListByPolicy returns a policy's collections ordered by due date.
func (s *CollectionService) ListByPolicy(ctx context.Context, policyID int64) ([]*models.Collection, error) {
	return s.collectionRepo.ListByPolicy(ctx, policyID)
}
