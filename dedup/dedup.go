package dedup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ErrNotFound is returned by LookupByHash when no ref holds the key.
	ErrNotFound = errors.New("dedup: fingerprint not found")

	// ErrConflict is returned by Insert when the key is already held.
	ErrConflict = errors.New("dedup: fingerprint already recorded")
)

// Repository is the store the deduplicator depends on.
// Insert must be atomic: of two concurrent inserts of one key, exactly one
// succeeds and the other gets ErrConflict.
type Repository interface {
	LookupByHash(ctx context.Context, key Key) (Ref, error)
	Insert(ctx context.Context, ref Ref) error
}

// Releaser is implemented by repositories that can drop a reservation, so a
// reservation whose artifact was never stored does not block later uploads.
type Releaser interface {
	Delete(ctx context.Context, key Key) error
}

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "intake_dedup_cache_hits_total",
		Help: "Duplicate lookups answered from the in-process cache.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "intake_dedup_cache_misses_total",
		Help: "Duplicate lookups that went to the repository.",
	})
	reservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_dedup_reservations_total",
		Help: "Reservation attempts by outcome.",
	}, []string{"outcome"})
)

// Deduplicator answers duplicate queries against a Repository and keeps
// confirmed refs in an expiring LRU cache.
type Deduplicator struct {
	repo   Repository
	cache  *expirable.LRU[Key, Ref]
	logger *slog.Logger
}

// Option configures a Deduplicator.
type Option func(*Deduplicator)

// WithCache sets the size and TTL of the confirmed-ref cache. A size of zero
// disables caching.
func WithCache(size int, ttl time.Duration) Option {
	return func(d *Deduplicator) {
		if size <= 0 {
			d.cache = nil
			return
		}
		d.cache = expirable.NewLRU[Key, Ref](size, nil, ttl)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Deduplicator) { d.logger = l }
}

// New creates a Deduplicator. By default it caches 4096 refs for ten minutes.
func New(repo Repository, opts ...Option) *Deduplicator {
	d := &Deduplicator{
		repo:   repo,
		cache:  expirable.NewLRU[Key, Ref](4096, nil, 10*time.Minute),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "dedup")
	return d
}

// Fingerprint hashes data.
func (d *Deduplicator) Fingerprint(data []byte) Fingerprint {
	return Sum(data)
}

// IsDuplicate returns the ref already holding key, if any.
func (d *Deduplicator) IsDuplicate(ctx context.Context, key Key) (Ref, bool, error) {
	if err := key.Validate(); err != nil {
		return Ref{}, false, err
	}
	if ref, ok := d.cached(key); ok {
		return ref, true, nil
	}

	ref, err := d.repo.LookupByHash(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		return Ref{}, false, nil
	case err != nil:
		return Ref{}, false, fmt.Errorf("lookup %s: %w", key, err)
	}
	d.remember(ref)
	return ref, true, nil
}

// Reserve claims ref's key for ref. When the key is already held, either
// before the call or by a concurrent winner, it returns the existing ref and
// duplicate == true; nothing is inserted in that case.
func (d *Deduplicator) Reserve(ctx context.Context, ref Ref) (existing Ref, duplicate bool, err error) {
	key := ref.Key()
	if err := key.Validate(); err != nil {
		return Ref{}, false, err
	}
	if ref.FileID == "" {
		return Ref{}, false, fmt.Errorf("reserve %s: file id is required", key)
	}
	if cached, ok := d.cached(key); ok {
		reservationsTotal.WithLabelValues("duplicate").Inc()
		return cached, true, nil
	}
	if ref.CreatedAt.IsZero() {
		ref.CreatedAt = time.Now().UTC()
	}

	err = d.repo.Insert(ctx, ref)
	if err == nil {
		reservationsTotal.WithLabelValues("reserved").Inc()
		d.remember(ref)
		return ref, false, nil
	}
	if !errors.Is(err, ErrConflict) {
		reservationsTotal.WithLabelValues("error").Inc()
		return Ref{}, false, fmt.Errorf("reserve %s: %w", key, err)
	}

	reservationsTotal.WithLabelValues("duplicate").Inc()
	existing, err = d.repo.LookupByHash(ctx, key)
	if err != nil {
		// The winner may have released between our insert and this lookup.
		return Ref{}, false, fmt.Errorf("reserve %s: conflicting ref: %w", key, err)
	}
	d.logger.DebugContext(ctx, "duplicate upload",
		slog.String("key", key.String()),
		slog.String("existing_file", existing.FileID),
	)
	d.remember(existing)
	return existing, true, nil
}

// Release drops the reservation for key when the repository supports it.
func (d *Deduplicator) Release(ctx context.Context, key Key) error {
	if d.cache != nil {
		d.cache.Remove(key)
	}
	r, ok := d.repo.(Releaser)
	if !ok {
		return nil
	}
	if err := r.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

func (d *Deduplicator) cached(key Key) (Ref, bool) {
	if d.cache == nil {
		return Ref{}, false
	}
	if ref, ok := d.cache.Get(key); ok {
		cacheHitsTotal.Inc()
		return ref, true
	}
	cacheMissesTotal.Inc()
	return Ref{}, false
}

func (d *Deduplicator) remember(ref Ref) {
	if d.cache != nil {
		d.cache.Add(ref.Key(), ref)
	}
}
