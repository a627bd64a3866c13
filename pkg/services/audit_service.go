package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/sigepol/sigepol-engine/pkg/models"
	"github.com/sigepol/sigepol-engine/pkg/repositories"
)

// AuditService records engine operations. Recording is always best effort:
// an audit write failure is logged and swallowed so it can never break the
// operation being audited.
type AuditService struct {
	auditRepo repositories.AuditRepository
	logger    *zap.Logger
}

func NewAuditService(auditRepo repositories.AuditRepository, logger *zap.Logger) *AuditService {
	return &AuditService{
		auditRepo: auditRepo,
		logger:    logger.Named("audit_service"),
	}
}

// Record appends one audit entry.
func (s *AuditService) Record(ctx context.Context, user, action, description string, details map[string]any) {
	entry := &models.AuditLog{
		User:        user,
		Action:      action,
		Description: description,
		Details:     details,
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit entry",
			zap.String("accion", action), zap.Error(err))
	}
}

// Recent returns the latest audit entries.
func (s *AuditService) Recent(ctx context.Context, limit int) ([]*models.AuditLog, error) {
	return s.auditRepo.List(ctx, limit)
}
