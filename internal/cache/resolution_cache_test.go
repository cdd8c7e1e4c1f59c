package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/ticket-desk/internal/resolution"
)

func TestKey(t *testing.T) {
	if got := Key(42); got != "ticket-desk:resolution:42" {
		t.Fatalf("Key(42) = %q", got)
	}
}

func TestDisabledCache(t *testing.T) {
	ctx := context.Background()
	for name, c := range map[string]*ResolutionCache{
		"nil":      nil,
		"no ttl":   NewResolutionCache(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), 0),
		"noclient": NewResolutionCache(nil, time.Minute),
	} {
		t.Run(name, func(t *testing.T) {
			if err := c.Set(ctx, resolution.Report{TicketID: 1}); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if _, ok, err := c.Get(ctx, 1); ok || err != nil {
				t.Fatalf("Get = ok %v err %v", ok, err)
			}
		})
	}
}

// TestRedisRoundTrip runs against the server named by REDIS_ADDR.
func TestRedisRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}

	c := NewResolutionCache(client, time.Minute)
	report := resolution.Report{
		TicketID:  900001,
		Status:    "Resuelto",
		Outcome:   resolution.OutcomeDuration,
		Text:      "1 hora",
		Breakdown: &resolution.Breakdown{Hours: 1},
	}
	if err := c.Set(ctx, report); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := c.Get(ctx, report.TicketID)
	if err != nil || !ok {
		t.Fatalf("Get = ok %v err %v", ok, err)
	}
	if got.Text != "1 hora" || got.Breakdown == nil || got.Breakdown.Hours != 1 {
		t.Fatalf("unexpected report %+v", got)
	}

	if err := c.Invalidate(ctx, report.TicketID); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, ok, _ := c.Get(ctx, report.TicketID); ok {
		t.Fatalf("expected miss after Invalidate")
	}
}
