// Package cache keeps computed resolution reports in Redis so repeated page
// loads do not recompute them.
package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/ticket-desk/internal/resolution"
)

const keyPrefix = "ticket-desk:resolution:"

// ResolutionCache stores resolution reports keyed by ticket id. A nil cache,
// or one built with a non-positive TTL, never hits and never stores.
type ResolutionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResolutionCache builds a cache over client.
func NewResolutionCache(client *redis.Client, ttl time.Duration) *ResolutionCache {
	return &ResolutionCache{client: client, ttl: ttl}
}

func (c *ResolutionCache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// Key returns the Redis key for a ticket.
func Key(ticketID int64) string {
	return keyPrefix + strconv.FormatInt(ticketID, 10)
}

// Get returns the cached report. ok is false on a miss.
func (c *ResolutionCache) Get(ctx context.Context, ticketID int64) (report *resolution.Report, ok bool, err error) {
	if !c.enabled() {
		return nil, false, nil
	}
	raw, err := c.client.Get(ctx, Key(ticketID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var out resolution.Report
	if err := json.Unmarshal(raw, &out); err != nil {
		// a stale or foreign value; treat it as a miss so it gets overwritten
		return nil, false, nil
	}
	return &out, true, nil
}

// Set stores report for the cache TTL.
func (c *ResolutionCache) Set(ctx context.Context, report resolution.Report) error {
	if !c.enabled() {
		return nil
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, Key(report.TicketID), raw, c.ttl).Err()
}

// Invalidate drops the cached report for a ticket.
func (c *ResolutionCache) Invalidate(ctx context.Context, ticketID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, Key(ticketID)).Err()
}
