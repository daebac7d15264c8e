//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/accountpulse/accountpulse/internal/model"
	"github.com/accountpulse/accountpulse/internal/testutil"
)

func newCacheTestEnv(t *testing.T) (context.Context, *Cache) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	redisURL := testutil.RequireEnv(t, "REDIS_URL")

	c, err := New(ctx, redisURL, 2)
	if err != nil {
		t.Skipf("Skipping integration test: Redis not available: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if err := testutil.FlushRedis(ctx, c.Client()); err != nil {
		t.Fatalf("flush redis: %v", err)
	}

	return ctx, c
}

func TestIntegrationCache_ListRoundTrip(t *testing.T) {
	ctx, c := newCacheTestEnv(t)

	projects := []model.Project{{GID: "1", Name: "Launch"}, {GID: "2", Name: "Support"}}
	if err := c.SetList(ctx, ListKeyAsanaProjects, projects, time.Minute); err != nil {
		t.Fatalf("SetList failed: %v", err)
	}

	var got []model.Project
	hit, err := c.GetList(ctx, ListKeyAsanaProjects, &got)
	if err != nil {
		t.Fatalf("GetList failed: %v", err)
	}
	if !hit {
		t.Fatal("expected cache hit")
	}
	if len(got) != 2 || got[1].Name != "Support" {
		t.Errorf("unexpected cached projects: %+v", got)
	}

	ttl, err := c.Client().TTL(ctx, listKeyPrefix+ListKeyAsanaProjects).Result()
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("expected entry to expire within a minute, ttl = %s", ttl)
	}

	var channels []model.Channel
	hit, err = c.GetList(ctx, ListKeySlackChannels, &channels)
	if err != nil {
		t.Fatalf("GetList for unset key failed: %v", err)
	}
	if hit {
		t.Error("expected miss for a key that was never set")
	}
}

func TestIntegrationCache_CorruptedEntryIsMiss(t *testing.T) {
	ctx, c := newCacheTestEnv(t)

	if err := c.Client().Set(ctx, listKeyPrefix+ListKeySlackChannels, "{not json", time.Minute).Err(); err != nil {
		t.Fatalf("seed corrupted entry: %v", err)
	}

	var got []model.Channel
	hit, err := c.GetList(ctx, ListKeySlackChannels, &got)
	if err != nil {
		t.Fatalf("GetList failed: %v", err)
	}
	if hit {
		t.Error("corrupted entry should be treated as a miss")
	}
}

func TestIntegrationCache_IPRateLimit(t *testing.T) {
	ctx, c := newCacheTestEnv(t)

	allowed := 0
	for i := 0; i < 5; i++ {
		result, err := c.CheckIPRateLimit(ctx, "voice_token", "192.0.2.10", 1, 3)
		if err != nil {
			t.Fatalf("CheckIPRateLimit failed: %v", err)
		}
		if result.Allowed {
			allowed++
		}
	}

	// A second boundary during the loop may refill one token.
	if allowed < 3 || allowed > 4 {
		t.Errorf("expected the burst of 3 (plus at most one refill) allowed, got %d", allowed)
	}

	// A different scope has its own bucket.
	result, err := c.CheckIPRateLimit(ctx, "other", "192.0.2.10", 1, 3)
	if err != nil {
		t.Fatalf("CheckIPRateLimit failed: %v", err)
	}
	if !result.Allowed {
		t.Error("separate scope should not share the bucket")
	}
}
