package ports

import (
	"context"

	"github.com/neurolearn/marketplace/internal/core/domain"
)

// AuditRepository persists the account audit trail.
type AuditRepository interface {
	InsertEvent(ctx context.Context, event *domain.AuthEvent) error
}
