package trace

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/tud-hci/ticketlab/internal/model"
	"github.com/tud-hci/ticketlab/internal/session"
	"github.com/tud-hci/ticketlab/internal/telemetry"
)

// Sink is the persistence collaborator: it accepts batched appends
// keyed by participant id and must tolerate redelivery of overlapping
// batches (delivery is at-least-once; the store deduplicates by event
// id).
type Sink interface {
	AppendEvents(ctx context.Context, participantID string, events []model.TraceEvent) error
}

// Flusher periodically drains each session's sync buffer to the sink.
// The discipline is: snapshot the buffer, deliver the whole batch,
// clear only the delivered prefix on confirmed success. On failure the
// buffer is left intact and a data_sync_failed event is recorded so the
// research data itself captures the data-loss risk.
type Flusher struct {
	store    *session.Store
	sink     Sink
	recorder *Recorder
	logger   *slog.Logger
	interval time.Duration

	failedSyncs atomic.Int64
	flushMu     sync.Map // participant id -> *sync.Mutex

	started    atomic.Bool
	cancelLoop context.CancelFunc
	done       chan struct{}
	drainCtx   context.Context // set by Drain so the final flush respects the caller's deadline
}

// NewFlusher creates a Flusher that syncs every interval.
func NewFlusher(store *session.Store, sink Sink, recorder *Recorder, logger *slog.Logger, interval time.Duration) *Flusher {
	return &Flusher{
		store:    store,
		sink:     sink,
		recorder: recorder,
		logger:   logger,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start begins the background sync loop and registers buffer gauges.
// Idempotent; call Drain to stop.
func (f *Flusher) Start(ctx context.Context) {
	if !f.started.CompareAndSwap(false, true) {
		f.logger.Warn("trace: flusher already started")
		return
	}
	f.registerMetrics()
	loopCtx, cancel := context.WithCancel(ctx)
	f.cancelLoop = cancel
	go f.loop(loopCtx)
}

func (f *Flusher) loop(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Final flush. ctx is already done, so use the drain context
			// (or a short fallback when cancelled without Drain).
			finalCtx := f.drainCtx
			if finalCtx == nil {
				var cancel context.CancelFunc
				finalCtx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
			}
			f.FlushAll(finalCtx, "final")
			close(f.done)
			return
		case <-ticker.C:
			f.FlushAll(ctx, "auto")
		}
	}
}

// FlushAll flushes every session's pending buffer. Failures are
// per-participant and do not stop the sweep.
func (f *Flusher) FlushAll(ctx context.Context, trigger string) {
	for _, pid := range f.store.Participants() {
		f.Flush(ctx, pid, trigger)
	}
}

// Flush attempts to deliver one participant's entire pending buffer in
// a single batch. Returns whether delivery succeeded and how many
// events were delivered. An empty buffer succeeds trivially.
//
// Flushes for one participant are serialized: the periodic sweep and a
// survey-time Final may race, and two overlapping successful deliveries
// would each drop a snapshot-length prefix, discarding events appended
// while the first batch was in flight.
func (f *Flusher) Flush(ctx context.Context, participantID, trigger string) (bool, int) {
	muAny, _ := f.flushMu.LoadOrStore(participantID, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	batch := f.store.BufferSnapshot(participantID)
	if len(batch) == 0 {
		return true, 0
	}

	start := time.Now()
	err := f.sink.AppendEvents(ctx, participantID, batch)
	if err != nil {
		f.failedSyncs.Add(1)
		f.logger.Error("trace: sync failed, buffer retained",
			"participant_id", participantID,
			"pending", f.store.BufferLen(participantID),
			"trigger", trigger,
			"error", err,
		)
		f.recorder.Record(participantID, model.DataSyncFailedPayload{
			Error:        err.Error(),
			PendingCount: f.store.BufferLen(participantID),
			Trigger:      trigger,
		})
		return false, 0
	}

	// Only the delivered snapshot is cleared; events appended while the
	// batch was in flight stay pending for the next sweep.
	f.store.DropBufferPrefix(participantID, len(batch))
	f.recorder.Record(participantID, model.DataSyncedPayload{
		EventCount: len(batch),
		Trigger:    trigger,
	})
	f.logger.Info("trace: batch synced",
		"participant_id", participantID,
		"batch_size", len(batch),
		"trigger", trigger,
		"flush_duration_ms", time.Since(start).Milliseconds(),
	)
	return true, len(batch)
}

// Final performs the synchronous best-effort flush used at survey
// submission. It never returns an error: a failed final sync is logged
// and recorded but must not block navigation to the completion screen.
func (f *Flusher) Final(ctx context.Context, participantID string) {
	f.Flush(ctx, participantID, "final")
}

// Drain stops the background loop, waits for its final flush, and
// returns. The context bounds the wait and the final delivery.
func (f *Flusher) Drain(ctx context.Context) {
	f.drainCtx = ctx
	if f.cancelLoop != nil {
		f.cancelLoop()
	}
	select {
	case <-f.done:
	case <-ctx.Done():
		f.logger.Warn("trace: drain timed out waiting for sync loop")
	}
}

// FailedSyncs returns the number of failed delivery attempts. Non-zero
// values indicate at-risk data that is still buffered locally.
func (f *Flusher) FailedSyncs() int64 {
	return f.failedSyncs.Load()
}

func (f *Flusher) registerMetrics() {
	meter := telemetry.Meter("ticketlab/sync")

	_, _ = meter.Int64ObservableGauge("ticketlab.sync.pending",
		metric.WithDescription("Trace events buffered and awaiting delivery"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(f.store.TotalBuffered()))
			return nil
		}),
	)

	_, _ = meter.Int64ObservableGauge("ticketlab.sync.failed_total",
		metric.WithDescription("Total failed sync attempts"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(f.FailedSyncs())
			return nil
		}),
	)
}
