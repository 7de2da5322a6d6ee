// Package syncstate persists the sync engine's bookkeeping: the set of
// booking ids already surfaced to the technician, the unread-arrivals
// counter, the last sync time, and the logged-in session record. Everything
// lives in one key/value table; each key is written independently.
package syncstate

import (
	"context"
	"time"

	"github.com/zeroeau/washpro-technician/internal/client/models"
)

type Repository interface {
	// KnownIDs returns the persisted known-id set (empty on first run).
	KnownIDs(ctx context.Context) (map[string]struct{}, error)
	SetKnownIDs(ctx context.Context, ids map[string]struct{}) error

	// UnreadCount returns the persisted unread-arrivals counter.
	UnreadCount(ctx context.Context) (int, error)
	SetUnreadCount(ctx context.Context, n int) error

	LastSync(ctx context.Context) (time.Time, error)
	SetLastSync(ctx context.Context, t time.Time) error

	// Session returns the logged-in technician, or common.ErrNotLoggedIn.
	Session(ctx context.Context) (*models.Technician, error)
	SetSession(ctx context.Context, t *models.Technician) error

	// Reset wipes all sync state. Only logout calls this; it is the one
	// event allowed to shrink the known-id set.
	Reset(ctx context.Context) error
}
