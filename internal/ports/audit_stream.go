package ports

import "context"

// AuditStream mirrors committed audit events to downstream compliance
// consumers. Publishing is best-effort: failures are logged, never returned
// to the caller of the originating operation.
type AuditStream interface {
	Publish(ctx context.Context, event AuditEvent) error
	Close() error
}
