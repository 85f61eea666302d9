package ratelimit

import (
	"context"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	shardCount    = 32
	idleEviction  = 10 * time.Minute
	sweepInterval = time.Minute
)

// bucket holds the state of one (key, class) pair. Refill is computed
// lazily on access instead of by a background timer per bucket.
type bucket struct {
	tokens     int
	lastRefill time.Time
	lastSeen   time.Time
}

type shard struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

// MemoryLimiter is the default in-process limiter. Buckets live in a
// sharded map so unrelated tenants never contend on one lock. The Clock
// field may be replaced with a mock clock in tests; it defaults to the
// real-time clock.
type MemoryLimiter struct {
	shards [shardCount]*shard
	clock  clock.Clock
}

// Option configures a MemoryLimiter.
type Option func(*MemoryLimiter)

// WithClock substitutes the clock, for tests with controllable time.
func WithClock(c clock.Clock) Option {
	return func(l *MemoryLimiter) { l.clock = c }
}

func NewMemoryLimiter(opts ...Option) *MemoryLimiter {
	l := &MemoryLimiter{clock: clock.New()}
	for i := range l.shards {
		l.shards[i] = &shard{buckets: make(map[string]*bucket)}
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Admit consumes one token from the bucket of (key, class), refilling
// lazily first. When the bucket is empty the decision carries the time
// until the next refill, rounded up to whole seconds.
func (l *MemoryLimiter) Admit(_ context.Context, key string, class Class) (Decision, error) {
	preset := PresetFor(class)
	mapKey := string(class) + "|" + key
	sh := l.shards[shardIndex(mapKey)]
	now := l.clock.Now()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	b, ok := sh.buckets[mapKey]
	if !ok {
		b = &bucket{tokens: preset.MaxRequests, lastRefill: now}
		sh.buckets[mapKey] = b
	}
	b.lastSeen = now

	// Lazy refill: whole elapsed windows each add a full allotment,
	// capped at capacity.
	elapsed := now.Sub(b.lastRefill)
	if windows := int(elapsed / preset.Window); windows > 0 {
		b.tokens += windows * preset.MaxRequests
		if b.tokens > preset.MaxRequests {
			b.tokens = preset.MaxRequests
		}
		b.lastRefill = b.lastRefill.Add(time.Duration(windows) * preset.Window)
		elapsed = now.Sub(b.lastRefill)
	}

	if b.tokens <= 0 {
		retry := time.Duration(math.Ceil((preset.Window - elapsed).Seconds())) * time.Second
		if retry <= 0 {
			retry = time.Second
		}
		return Decision{Allowed: false, Remaining: 0, RetryAfter: retry}, nil
	}

	b.tokens--
	return Decision{Allowed: true, Remaining: b.tokens}, nil
}

// StartEviction runs the idle-bucket sweep until ctx is cancelled. The
// sweep is pure memory housekeeping: it never blocks admission and makes
// no distinction between idle-because-empty and idle-because-exhausted.
func (l *MemoryLimiter) StartEviction(ctx context.Context) {
	go func() {
		ticker := l.clock.Ticker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.evictIdle()
			}
		}
	}()
}

func (l *MemoryLimiter) evictIdle() {
	cutoff := l.clock.Now().Add(-idleEviction)
	for _, sh := range l.shards {
		sh.mu.Lock()
		for key, b := range sh.buckets {
			if b.lastSeen.Before(cutoff) {
				delete(sh.buckets, key)
			}
		}
		sh.mu.Unlock()
	}
}

// bucketCount reports the live bucket total across shards. Test hook.
func (l *MemoryLimiter) bucketCount() int {
	n := 0
	for _, sh := range l.shards {
		sh.mu.Lock()
		n += len(sh.buckets)
		sh.mu.Unlock()
	}
	return n
}

func shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % shardCount)
}
