package ports

import (
	"context"

	"github.com/neurolearn/marketplace/internal/core/domain"
)

// AuditService processes a single audit event.
type AuditService interface {
	Record(ctx context.Context, event domain.AuthEvent) error
}

// AuditSink accepts audit events without blocking the caller.
type AuditSink interface {
	Enqueue(event domain.AuthEvent)
}
