package ports

import (
	"context"

	"github.com/cp25sy5-modjot/pii-redact-service/internal/domain"
)

type AuditPort interface {
	Publish(ctx context.Context, event domain.AuditEvent) error
	Close() error
}
