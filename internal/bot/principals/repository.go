package principals

import "context"

// Repository persists principals and their credential state.
//
// UpdateCredentials is compare-and-swap guarded: it matches the stored
// Version and bumps it, returning common.ErrVersionConflict when a
// concurrent writer got there first. UpdateLastAuth is last-writer-wins
// since activity timestamps need no fencing.
type Repository interface {
	Get(ctx context.Context, id int64) (*Principal, error)
	UpsertRole(ctx context.Context, id int64, role Role) error
	UpdateCredentials(ctx context.Context, p *Principal) error
	UpdateLastAuth(ctx context.Context, id int64, ts int64) error
	InvalidateStale(ctx context.Context, cutoff int64) (int64, error)
}
