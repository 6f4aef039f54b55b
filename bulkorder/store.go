package bulkorder

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Store persists bulk upload records.
type Store interface {
	// Save inserts a new record. A reused upload id gives ErrUploadExists.
	Save(ctx context.Context, u *Upload) error

	// Get returns the record with the given id or ErrUploadNotFound.
	Get(ctx context.Context, uploadID string) (*Upload, error)

	// ListByOwner returns an owner's records, newest first. A limit of zero
	// or less returns all of them.
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]*Upload, error)

	// UpdateStatus moves a record to status to, enforcing CanTransition.
	UpdateStatus(ctx context.Context, uploadID string, to Status) (*Upload, error)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	uploads map[string]*Upload
	now     func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{uploads: make(map[string]*Upload), now: time.Now}
}

func (s *MemoryStore) Save(ctx context.Context, u *Upload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.uploads[u.UploadID]; ok {
		return fmt.Errorf("%w: %s", ErrUploadExists, u.UploadID)
	}
	s.uploads[u.UploadID] = u.Clone()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, uploadID string) (*Upload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.uploads[uploadID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUploadNotFound, uploadID)
	}
	return u.Clone(), nil
}

func (s *MemoryStore) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*Upload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var out []*Upload
	for _, u := range s.uploads {
		if u.OwnerID == ownerID {
			out = append(out, u.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].UploadID > out[j].UploadID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, uploadID string, to Status) (*Upload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.uploads[uploadID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUploadNotFound, uploadID)
	}
	if err := u.Transition(to, s.now().UTC()); err != nil {
		return nil, err
	}
	return u.Clone(), nil
}
