// Package session implements the sliding-window session tracker. Every
// observed activity pushes the expiry forward by the full timeout,
// modeling an idle-timeout policy (sudo-like) rather than a fixed
// session length.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mgkeit/pairalert/internal/bot/principals"
	"github.com/mgkeit/pairalert/internal/common"
)

// DefaultTimeout matches the reference idle window.
const DefaultTimeout = 120 * time.Second

type Tracker struct {
	repo    principals.Repository
	timeout time.Duration
	now     func() time.Time
}

func NewTracker(repo principals.Repository, timeout time.Duration) *Tracker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Tracker{repo: repo, timeout: timeout, now: time.Now}
}

// WithClock replaces the time source. Test hook.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

func (t *Tracker) Timeout() time.Duration {
	return t.timeout
}

// Authenticate marks the principal authenticated as of now.
func (t *Tracker) Authenticate(ctx context.Context, id int64) error {
	if err := t.repo.UpdateLastAuth(ctx, id, t.now().Unix()); err != nil {
		return fmt.Errorf("error updating auth time: %w", err)
	}
	return nil
}

// RefreshActivity extends the window; identical effect to Authenticate,
// called on every inbound action from an already-active principal.
func (t *Tracker) RefreshActivity(ctx context.Context, id int64) error {
	return t.Authenticate(ctx, id)
}

// IsActive reports whether the principal authenticated within the
// timeout window. A zero timestamp always reads as inactive.
func (t *Tracker) IsActive(ctx context.Context, id int64) (bool, error) {
	p, err := t.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("error loading principal: %w", err)
	}

	if p.LastAuthTime == 0 {
		return false, nil
	}
	elapsed := t.now().Unix() - p.LastAuthTime
	return elapsed < int64(t.timeout.Seconds()), nil
}

// Invalidate ends the session immediately regardless of timeout math.
func (t *Tracker) Invalidate(ctx context.Context, id int64) error {
	if err := t.repo.UpdateLastAuth(ctx, id, 0); err != nil && !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("error invalidating session: %w", err)
	}
	return nil
}

// Remaining returns the seconds left in the window, 0 when expired or
// never authenticated.
func (t *Tracker) Remaining(ctx context.Context, id int64) (int64, error) {
	p, err := t.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("error loading principal: %w", err)
	}

	if p.LastAuthTime == 0 {
		return 0, nil
	}
	remaining := int64(t.timeout.Seconds()) - (t.now().Unix() - p.LastAuthTime)
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}
