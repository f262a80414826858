// Package blocklist serves the Block/Follow State: the set of mints
// excluded from ingestion by the admission filter. The durable source of
// truth is written by the dashboard (out of scope here); this package
// only reads it, cached in Redis, and tolerates staleness up to one
// refresh interval per spec.
package blocklist

import (
	"context"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const redisKey = "solflow:mint_blocklist"

// Store answers "is this mint blocked" with an in-memory set refreshed
// periodically from Redis. Reads never touch the network — the hot path
// (the admission filter, called once per matched transaction) takes an
// RWMutex read lock over a plain map, the same posture as the teacher's
// address watchlist.
type Store struct {
	mu      sync.RWMutex
	blocked map[string]struct{}

	rdb    *redis.Client
	log    *logrus.Entry
	period time.Duration
}

// New constructs a Store. Call Refresh once synchronously before serving
// traffic, then Run in a goroutine to keep it current.
func New(rdb *redis.Client, refreshPeriod time.Duration, log *logrus.Entry) *Store {
	return &Store{
		blocked: make(map[string]struct{}),
		rdb:     rdb,
		log:     log,
		period:  refreshPeriod,
	}
}

// IsBlocked reports whether mint is currently excluded from ingestion.
func (s *Store) IsBlocked(mint string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, blocked := s.blocked[mint]
	return blocked
}

// Refresh pulls the full blocked-mint set from Redis and swaps it in
// atomically. A failed refresh leaves the previous set in place — a
// stale read is acceptable, an empty admission filter is not.
func (s *Store) Refresh(ctx context.Context) error {
	members, err := s.rdb.SMembers(ctx, redisKey).Result()
	if err != nil {
		return err
	}

	next := make(map[string]struct{}, len(members))
	for _, m := range members {
		if _, err := base58.Decode(m); err != nil {
			s.log.WithField("entry", m).Warn("ignoring malformed blocklist entry from redis")
			continue
		}
		next[m] = struct{}{}
	}

	s.mu.Lock()
	s.blocked = next
	s.mu.Unlock()
	return nil
}

// Run refreshes the blocklist on a fixed interval until ctx is canceled.
// Refresh errors are logged, not propagated — a transient Redis outage
// degrades to "serve the last known blocklist", not "stop admitting
// transactions".
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.log.WithError(err).Warn("blocklist refresh failed, serving stale set")
			}
		}
	}
}

// Size reports how many mints are currently blocked, for ops metrics.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blocked)
}
