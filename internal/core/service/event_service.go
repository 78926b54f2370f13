package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/neurolearn/marketplace/internal/api/metrics"
	"github.com/neurolearn/marketplace/internal/core/domain"
	"github.com/neurolearn/marketplace/internal/core/ports"
)

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService returns an AuditService implementation.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Record persists a single audit event.
func (s *auditService) Record(ctx context.Context, event domain.AuthEvent) error {
	start := time.Now()

	if event.At.IsZero() {
		event.At = start.UTC()
	}

	if err := s.repo.InsertEvent(ctx, &event); err != nil {
		metrics.AuditEventsErrorsTotal.WithLabelValues("insert_failed").Inc()
		metrics.AuditProcessingDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return fmt.Errorf("record audit event: %w", err)
	}

	metrics.AuditEventsProcessedTotal.WithLabelValues(string(event.Kind)).Inc()
	metrics.AuditProcessingDuration.WithLabelValues(string(event.Kind)).Observe(time.Since(start).Seconds())

	s.log.Debug().
		Str("event_id", event.ID).
		Str("kind", string(event.Kind)).
		Str("user_id", event.UserID).
		Msg("audit event recorded")

	return nil
}
