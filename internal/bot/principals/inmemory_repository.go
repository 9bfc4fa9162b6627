package principals

import (
	"context"
	"sync"

	"github.com/mgkeit/pairalert/internal/common"
)

// InMemoryRepository is a map-backed Repository with the same CAS
// semantics as the Postgres implementation. Used in tests and useful for
// running the bot without a database.
type InMemoryRepository struct {
	mu   sync.Mutex
	data map[int64]*Principal
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{data: make(map[int64]*Principal)}
}

func clone(p *Principal) *Principal {
	c := *p
	c.PasswordHistory = append([]string(nil), p.PasswordHistory...)
	c.BackupCodes = append([]string(nil), p.BackupCodes...)
	return &c
}

func (r *InMemoryRepository) Get(ctx context.Context, id int64) (*Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.data[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return clone(p), nil
}

func (r *InMemoryRepository) UpsertRole(ctx context.Context, id int64, role Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.data[id]; ok {
		p.Role = role
		return nil
	}
	r.data[id] = &Principal{ID: id, Role: role}
	return nil
}

func (r *InMemoryRepository) UpdateCredentials(ctx context.Context, p *Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.data[p.ID]
	if !ok {
		return common.ErrNotFound
	}
	if stored.Version != p.Version {
		return common.ErrVersionConflict
	}

	next := clone(p)
	next.Version++
	r.data[p.ID] = next
	p.Version++
	return nil
}

func (r *InMemoryRepository) UpdateLastAuth(ctx context.Context, id int64, ts int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.data[id]
	if !ok {
		return common.ErrNotFound
	}
	p.LastAuthTime = ts
	return nil
}

func (r *InMemoryRepository) InvalidateStale(ctx context.Context, cutoff int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, p := range r.data {
		if p.LastAuthTime != 0 && p.LastAuthTime < cutoff {
			p.LastAuthTime = 0
			n++
		}
	}
	return n, nil
}
