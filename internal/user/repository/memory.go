package repository

import (
	"context"
	"sync"

	"github.com/gogotex/gogotex/backend/userstore/internal/user"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryRepo is an in-memory user store used by tests and by the demo when no
// MongoDB is configured. Ids have the same shape as the Mongo ones.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*user.User
	order []string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*user.User)}
}

func clone(u *user.User) *user.User {
	cp := *u
	if u.Hobbies != nil {
		cp.Hobbies = append([]string(nil), u.Hobbies...)
	}
	if u.BestFriend != nil {
		// only the reference is stored, never the populated document
		cp.BestFriend = user.RefTo(u.BestFriend.ID)
	}
	return &cp
}

func (m *MemoryRepo) Insert(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = primitive.NewObjectID().Hex()
	m.store[u.ID] = clone(u)
	m.order = append(m.order, u.ID)
	return nil
}

func (m *MemoryRepo) Update(_ context.Context, u *user.User) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.store[u.ID]
	if !ok {
		return nil, user.ErrNotFound
	}
	next := clone(u)
	next.CreatedAt = cur.CreatedAt
	m.store[u.ID] = next
	return clone(next), nil
}

func (m *MemoryRepo) FindByID(_ context.Context, id string) (*user.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.store[id]; ok {
		return clone(u), nil
	}
	return nil, user.ErrNotFound
}

func (m *MemoryRepo) FindOne(ctx context.Context, f user.Filter) (*user.User, error) {
	out, err := m.Find(ctx, f, user.FindOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, user.ErrNotFound
	}
	return out[0], nil
}

func (m *MemoryRepo) Find(_ context.Context, f user.Filter, opts user.FindOptions) ([]*user.User, error) {
	fields, err := user.NormalizeFields(opts.Fields)
	if err != nil {
		return nil, err
	}
	if _, err := f.Normalize(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*user.User{}
	for _, id := range m.order {
		u := m.store[id]
		ok, err := f.Matches(u)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, user.Project(clone(u), fields))
		if opts.Limit > 0 && int64(len(out)) >= opts.Limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryRepo) DeleteOne(_ context.Context, f user.Filter) (int64, error) {
	return m.delete(f, 1)
}

func (m *MemoryRepo) DeleteMany(_ context.Context, f user.Filter) (int64, error) {
	return m.delete(f, 0)
}

func (m *MemoryRepo) delete(f user.Filter, limit int) (int64, error) {
	// reject bad filters before order is rewritten in place
	if _, err := f.Normalize(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.order[:0]
	var n int64
	for _, id := range m.order {
		if limit > 0 && n >= int64(limit) {
			kept = append(kept, id)
			continue
		}
		if ok, _ := f.Matches(m.store[id]); ok {
			delete(m.store, id)
			n++
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
	return n, nil
}
