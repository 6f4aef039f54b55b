package dedup

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const memoryShards = 16

// MemoryRepository is an in-process Repository, sharded by key hash.
type MemoryRepository struct {
	shards [memoryShards]memoryShard
}

type memoryShard struct {
	mu   sync.Mutex
	refs map[Key]Ref
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	r := &MemoryRepository{}
	for i := range r.shards {
		r.shards[i].refs = make(map[Key]Ref)
	}
	return r
}

func (r *MemoryRepository) shard(key Key) *memoryShard {
	h := xxhash.New()
	_, _ = h.WriteString(key.OwnerKind)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(key.OwnerID)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(key.Category)
	_, _ = h.Write(key.Hash[:])
	return &r.shards[h.Sum64()%memoryShards]
}

// LookupByHash returns the ref holding key.
func (r *MemoryRepository) LookupByHash(ctx context.Context, key Key) (Ref, error) {
	if err := ctx.Err(); err != nil {
		return Ref{}, err
	}
	s := r.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, ok := s.refs[key]
	if !ok {
		return Ref{}, ErrNotFound
	}
	return ref, nil
}

// Insert records ref unless its key is already held.
func (r *MemoryRepository) Insert(ctx context.Context, ref Ref) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := ref.Key()
	s := r.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.refs[key]; ok {
		return ErrConflict
	}
	s.refs[key] = ref
	return nil
}

// Delete removes key.
func (r *MemoryRepository) Delete(ctx context.Context, key Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := r.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.refs[key]; !ok {
		return ErrNotFound
	}
	delete(s.refs, key)
	return nil
}

// Len returns the number of recorded refs.
func (r *MemoryRepository) Len() int {
	n := 0
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.Lock()
		n += len(s.refs)
		s.mu.Unlock()
	}
	return n
}
