// Package audit delivers audit entries to durable storage asynchronously.
// Appends are fire-and-forget: the primary operation never waits on, or
// fails because of, the audit trail.
package audit

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/rs/zerolog"

	"github.com/appforge/data-platform/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	writeTimeout   = 5 * time.Second
)

// Store is the durable end of the audit pipeline.
type Store interface {
	InsertEntry(ctx context.Context, entry ports.AuditEntry) error
}

// Dispatcher fans audit entries out to a fixed set of workers using
// consistent hashing on the tenant id, so one tenant's entries stay
// ordered. Implements ports.AuditSink.
type Dispatcher struct {
	workers []chan ports.AuditEntry
	store   Store
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, store Store, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.AuditEntry, numWorkers),
		store:   store,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.AuditEntry, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Record enqueues one entry. When the responsible worker's buffer is full
// the entry is dropped with a warning rather than blocking the request.
func (d *Dispatcher) Record(_ context.Context, entry ports.AuditEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	select {
	case d.workers[d.shardIndex(entry.TenantID)] <- entry:
	default:
		d.log.Warn().
			Str("tenant_id", entry.TenantID).
			Str("action", entry.Action).
			Msg("audit buffer full, entry dropped")
	}
}

// shardIndex maps a tenant id deterministically to a worker index.
func (d *Dispatcher) shardIndex(tenantID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(tenantID))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.AuditEntry) {
	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-ch:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			if err := d.store.InsertEntry(writeCtx, entry); err != nil {
				d.log.Warn().Err(err).
					Str("tenant_id", entry.TenantID).
					Str("action", entry.Action).
					Int("worker_id", id).
					Msg("audit write failed")
			}
			cancel()
		}
	}
}

// NopSink discards every entry. Used in tests and when auditing is
// disabled by configuration.
type NopSink struct{}

func (NopSink) Record(context.Context, ports.AuditEntry) {}
