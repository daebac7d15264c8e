package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/accountpulse/accountpulse/internal/metrics"
)

// ListCache stores serialized listings. *cache.Cache satisfies it.
type ListCache interface {
	GetList(ctx context.Context, key string, dst any) (bool, error)
	SetList(ctx context.Context, key string, value any, ttl time.Duration) error
}

// FetchFunc loads a listing from its upstream API.
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// ListingOptions configures a Listing.
type ListingOptions struct {
	// Service labels logs and metrics.
	Service string
	// Key is the cache key of the listing.
	Key string
	// Cache is optional; nil or a non-positive TTL disables caching.
	Cache ListCache
	TTL   time.Duration
	// Timeout bounds one fetch across all of its pages. Zero means no bound.
	Timeout time.Duration
	Logger  *slog.Logger
	Metrics metrics.Recorder
}

// Listing serves an upstream listing through an optional read-through cache.
// Cache failures never fail the request.
type Listing[T any] struct {
	fetch FetchFunc[T]
	opts  ListingOptions
}

// NewListing creates a Listing around fetch.
func NewListing[T any](fetch FetchFunc[T], opts ListingOptions) *Listing[T] {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNoop()
	}
	return &Listing[T]{fetch: fetch, opts: opts}
}

// List returns the listing, from cache when fresh. The result is never nil
// on success.
func (l *Listing[T]) List(ctx context.Context) ([]T, error) {
	if !l.cached() {
		return l.load(ctx)
	}

	var items []T
	hit, err := l.opts.Cache.GetList(ctx, l.opts.Key, &items)
	switch {
	case err != nil:
		l.opts.Metrics.IncListCache(l.opts.Service, metrics.CacheError)
		l.opts.Logger.Warn("listing cache read failed",
			slog.String("service", l.opts.Service),
			slog.String("error", err.Error()),
		)
	case hit:
		l.opts.Metrics.IncListCache(l.opts.Service, metrics.CacheHit)
		if items == nil {
			items = []T{}
		}
		return items, nil
	default:
		l.opts.Metrics.IncListCache(l.opts.Service, metrics.CacheMiss)
	}

	items, err = l.load(ctx)
	if err != nil {
		return nil, err
	}

	if err := l.opts.Cache.SetList(ctx, l.opts.Key, items, l.opts.TTL); err != nil {
		l.opts.Metrics.IncListCache(l.opts.Service, metrics.CacheError)
		l.opts.Logger.Warn("listing cache write failed",
			slog.String("service", l.opts.Service),
			slog.String("error", err.Error()),
		)
	}

	return items, nil
}

func (l *Listing[T]) cached() bool {
	return l.opts.Cache != nil && l.opts.TTL > 0
}

func (l *Listing[T]) load(ctx context.Context) ([]T, error) {
	fetchCtx := ctx
	if l.opts.Timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, l.opts.Timeout)
		defer cancel()
	}

	items, err := l.fetch(fetchCtx)
	if err != nil {
		// Only our own deadline is reported as a timeout; a canceled
		// request passes its error through.
		if l.opts.Timeout > 0 && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s listing timed out after %s: %w", l.opts.Service, l.opts.Timeout, err)
		}
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}
