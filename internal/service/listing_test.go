package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accountpulse/accountpulse/internal/metrics"
	"github.com/accountpulse/accountpulse/internal/model"
)

type fakeListCache struct {
	entries map[string][]byte
	getErr  error
	setErr  error
	ttls    []time.Duration
}

func newFakeListCache() *fakeListCache {
	return &fakeListCache{entries: make(map[string][]byte)}
}

func (f *fakeListCache) GetList(_ context.Context, key string, dst any) (bool, error) {
	if f.getErr != nil {
		return false, f.getErr
	}
	data, ok := f.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dst)
}

func (f *fakeListCache) SetList(_ context.Context, key string, value any, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.entries[key] = data
	f.ttls = append(f.ttls, ttl)
	return nil
}

type countingFetch struct {
	calls    int
	projects []model.Project
	err      error
}

func (c *countingFetch) fetch(context.Context) ([]model.Project, error) {
	c.calls++
	return c.projects, c.err
}

func TestListing_ReadThrough(t *testing.T) {
	rec := metrics.NewInMemory()
	cache := newFakeListCache()
	src := &countingFetch{projects: []model.Project{{GID: "1", Name: "Launch"}}}

	listing := NewListing(src.fetch, ListingOptions{Service: "asana", Key: "asana:projects", Cache: cache, TTL: time.Minute, Metrics: rec})

	first, err := listing.List(context.Background())
	require.NoError(t, err)
	second, err := listing.List(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, first, second)
	assert.Equal(t, []time.Duration{time.Minute}, cache.ttls)

	snap := rec.Snapshot()
	assert.Equal(t, uint64(1), snap.ListCache["asana/miss"])
	assert.Equal(t, uint64(1), snap.ListCache["asana/hit"])
}

func TestListing_NoCache(t *testing.T) {
	src := &countingFetch{}
	listing := NewListing(src.fetch, ListingOptions{Service: "asana", Key: "asana:projects", TTL: time.Minute})

	items, err := listing.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	_, err = listing.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestListing_ZeroTTLDisablesCache(t *testing.T) {
	cache := newFakeListCache()
	src := &countingFetch{projects: []model.Project{{GID: "1"}}}
	listing := NewListing(src.fetch, ListingOptions{Service: "asana", Key: "asana:projects", Cache: cache})

	_, err := listing.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cache.entries)
}

func TestListing_CacheErrorsFailOpen(t *testing.T) {
	rec := metrics.NewInMemory()
	cache := newFakeListCache()
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")
	src := &countingFetch{projects: []model.Project{{GID: "1"}}}

	listing := NewListing(src.fetch, ListingOptions{Service: "asana", Key: "asana:projects", Cache: cache, TTL: time.Minute, Metrics: rec})

	items, err := listing.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, uint64(2), rec.Snapshot().ListCache["asana/error"])
}

func TestListing_FetchErrorNotCached(t *testing.T) {
	cache := newFakeListCache()
	src := &countingFetch{err: errors.New("upstream 500")}

	listing := NewListing(src.fetch, ListingOptions{Service: "asana", Key: "asana:projects", Cache: cache, TTL: time.Minute})

	_, err := listing.List(context.Background())
	assert.EqualError(t, err, "upstream 500")
	assert.Empty(t, cache.entries)
}

func TestListing_TimeoutBoundsWholeFetch(t *testing.T) {
	slow := func(ctx context.Context) ([]model.Project, error) {
		for {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(20 * time.Millisecond):
			}
		}
	}
	listing := NewListing(slow, ListingOptions{Service: "slack", Timeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := listing.List(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "slack listing timed out after 50ms")
	assert.Less(t, time.Since(start), time.Second)
}

func TestListing_CanceledRequestIsNotATimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	listing := NewListing(func(ctx context.Context) ([]model.Project, error) {
		return nil, ctx.Err()
	}, ListingOptions{Service: "slack", Timeout: time.Second})

	_, err := listing.List(ctx)
	assert.Equal(t, context.Canceled, err)
}

func TestListing_LogsThroughInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	cache := newFakeListCache()
	cache.getErr = errors.New("redis down")
	src := &countingFetch{}

	listing := NewListing(src.fetch, ListingOptions{
		Service: "asana",
		Key:     "asana:projects",
		Cache:   cache,
		TTL:     time.Minute,
		Logger:  slog.New(slog.NewJSONHandler(&buf, nil)),
	})

	_, err := listing.List(context.Background())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"msg":"listing cache read failed"`)
	assert.Contains(t, buf.String(), `"service":"asana"`)
}
