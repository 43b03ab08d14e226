package record

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewCache("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCachePushAndRecent(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		res := sample(fmt.Sprintf("g%d", i), "roomA", "checkmate", base.Add(time.Duration(i)*time.Hour))
		if err := c.Push(ctx, res); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}

	recent, err := c.Recent(ctx, "roomA", 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 results, got %d", len(recent))
	}
	if recent[0].ID != "g2" || recent[1].ID != "g1" {
		t.Fatalf("results not newest-first: %s, %s", recent[0].ID, recent[1].ID)
	}
	if recent[0].Outcome != "checkmate" || len(recent[0].MovesSAN) != 4 {
		t.Fatalf("result fields lost in the round trip: %+v", recent[0])
	}
}

func TestCacheTrimsToDepth(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < cacheDepth+5; i++ {
		res := sample(fmt.Sprintf("g%d", i), "roomA", "draw", base.Add(time.Duration(i)*time.Minute))
		if err := c.Push(ctx, res); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}

	recent, err := c.Recent(ctx, "roomA", 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != cacheDepth {
		t.Fatalf("expected the list trimmed to %d, got %d", cacheDepth, len(recent))
	}
	if recent[0].ID != fmt.Sprintf("g%d", cacheDepth+4) {
		t.Fatalf("newest entry missing after trim: %s", recent[0].ID)
	}
}

func TestCacheRoomsAreIsolated(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Push(ctx, sample("g1", "roomA", "draw", time.Now())); err != nil {
		t.Fatalf("Push: %v", err)
	}

	recent, err := c.Recent(ctx, "roomB", 5)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 0 {
		t.Fatalf("roomB must be empty, got %d results", len(recent))
	}
}
