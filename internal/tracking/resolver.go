package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linkbio/linkbio/internal/cache"
	"github.com/linkbio/linkbio/internal/metrics"
	"github.com/linkbio/linkbio/internal/repository"
)

// ProfileStore resolves usernames to owner ids from persistent storage.
type ProfileStore interface {
	ResolveOwner(ctx context.Context, username string) (string, error)
}

// OwnerCache is the caching layer for username -> owner id lookups,
// including negative entries for usernames known not to exist.
type OwnerCache interface {
	GetOwner(ctx context.Context, username string) (string, error)
	SetOwner(ctx context.Context, username, userID string) error
	IsOwnerNotFound(ctx context.Context, username string) (bool, error)
	SetOwnerNotFound(ctx context.Context, username string) error
}

// ErrOwnerNotFound indicates no profile exists for the username.
var ErrOwnerNotFound = errors.New("profile not found")

// Resolver maps profile usernames to owner ids using a cache-aside
// pattern with negative caching for missing profiles.
type Resolver struct {
	store   ProfileStore
	cache   OwnerCache
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewResolver creates an owner resolver. The cache may be nil, in
// which case every lookup hits the store.
func NewResolver(store ProfileStore, ownerCache OwnerCache, rec metrics.Recorder, logger *slog.Logger) *Resolver {
	if rec == nil {
		rec = metrics.NewNoop()
	}
	return &Resolver{
		store:   store,
		cache:   ownerCache,
		metrics: rec,
		logger:  logger.With("component", "resolver"),
	}
}

// Resolve returns the owner id for a profile username.
// Returns ErrOwnerNotFound when no such profile exists.
func (r *Resolver) Resolve(ctx context.Context, username string) (string, error) {
	if r.cache != nil {
		if userID, err := r.cache.GetOwner(ctx, username); err == nil {
			r.metrics.IncOwnerCacheHit()
			return userID, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			r.logger.Warn("owner cache read failed", "error", err)
		}

		if notFound, err := r.cache.IsOwnerNotFound(ctx, username); err == nil && notFound {
			r.metrics.IncOwnerCacheHit()
			return "", ErrOwnerNotFound
		}

		r.metrics.IncOwnerCacheMiss()
	}

	userID, err := r.store.ResolveOwner(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			if r.cache != nil {
				if cerr := r.cache.SetOwnerNotFound(ctx, username); cerr != nil {
					r.logger.Warn("owner negative cache write failed", "error", cerr)
				}
			}
			return "", ErrOwnerNotFound
		}
		return "", fmt.Errorf("resolve owner: %w", err)
	}

	if r.cache != nil {
		if cerr := r.cache.SetOwner(ctx, username, userID); cerr != nil {
			r.logger.Warn("owner cache write failed", "error", cerr)
		}
	}

	return userID, nil
}
