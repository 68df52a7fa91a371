package audit

import (
	"context"

	"github.com/google/uuid"
)

// Store persists audit entries. Append-only: no update or delete operations
// exist by design.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	// List returns entries matching the filter, newest-first, plus the total
	// match count before pagination.
	List(ctx context.Context, filter Filter) ([]Entry, int, error)
	// ListByUser returns up to limit entries for one user, newest-first.
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Entry, error)
	Stats(ctx context.Context) (Stats, error)
}
