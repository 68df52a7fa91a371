package audit

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"docvault/internal/platform/metrics"
	"docvault/pkg/requestcontext"
)

// Sink accepts audit entries without ever failing the caller. Business
// operations invoke it after (or while) completing, so a logging outage can
// never block or roll back user-facing functionality.
type Sink interface {
	Record(ctx context.Context, entry Entry)
}

// Recorder is the fire-and-forget boundary in front of the audit store:
// Record enqueues without blocking, a worker goroutine persists, and every
// failure ends up in operational telemetry instead of the caller's response.
type Recorder struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	inbox   chan Entry
}

// NewRecorder builds a Recorder with the given buffer size. Run must be
// started for entries to be persisted.
func NewRecorder(store Store, logger *slog.Logger, m *metrics.Metrics, buffer int) *Recorder {
	if buffer < 1 {
		buffer = 1
	}
	return &Recorder{
		store:   store,
		logger:  logger,
		metrics: m,
		inbox:   make(chan Entry, buffer),
	}
}

// Record stamps the entry with the server-side timestamp and request origin,
// then enqueues it. A full buffer drops the entry: counted and logged, never
// surfaced. The ctx is read for request metadata only; enqueueing does not
// block on it.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	entry.ID = uuid.New()
	entry.Timestamp = time.Now()
	if entry.IPAddress == "" {
		entry.IPAddress = requestcontext.ClientIP(ctx)
	}
	if entry.UserAgent == "" {
		entry.UserAgent = requestcontext.UserAgent(ctx)
	}

	select {
	case r.inbox <- entry:
	default:
		r.metrics.AuditEntriesDropped.Inc()
		r.logger.Error("audit entry dropped - buffer full",
			"action", entry.Action,
			"user_id", entry.UserID,
		)
	}
}

// Run consumes the inbox until ctx is canceled, then drains whatever is still
// buffered best-effort before returning.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			r.drain()
			return ctx.Err()
		case entry := <-r.inbox:
			r.append(entry)
		}
	}
}

// drain persists buffered entries at shutdown. Best-effort: bounded, and a
// failing store cannot hold the process open.
func (r *Recorder) drain() {
	for {
		select {
		case entry := <-r.inbox:
			r.append(entry)
		default:
			return
		}
	}
}

func (r *Recorder) append(entry Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.store.Append(ctx, entry); err != nil {
		r.metrics.AuditEntriesDropped.Inc()
		r.logger.Error("audit append failed",
			"error", err,
			"action", entry.Action,
			"user_id", entry.UserID,
		)
		return
	}
	r.metrics.AuditEntriesWritten.Inc()
}

func sortActionStats(stats []ActionStat) {
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Action < stats[j].Action
	})
}
