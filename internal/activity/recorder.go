package activity

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/robotctl/internal/infrastructure/logging"
	"github.com/nerrad567/robotctl/internal/robot"
)

const (
	// DefaultQueueSize is used when New is given a non-positive size.
	DefaultQueueSize = 256

	// sinkTimeout bounds each sink delivery.
	sinkTimeout = 5 * time.Second
)

// Recorder queues call records and delivers them to sinks on one worker.
//
// Thread Safety:
//   - ObserveCall, AddSink and Dropped are safe for concurrent use.
//   - Close may be called once from any goroutine; later calls are no-ops.
type Recorder struct {
	queue  chan robot.CallRecord
	logger *logging.Logger

	sinks   []Sink
	sinksMu sync.RWMutex

	closed   bool
	closedMu sync.RWMutex
	done     chan struct{}

	dropped atomic.Uint64
}

// New starts a Recorder with the given queue size and initial sinks.
func New(queueSize int, logger *logging.Logger, sinks ...Sink) *Recorder {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = logging.Default()
	}

	r := &Recorder{
		queue:  make(chan robot.CallRecord, queueSize),
		logger: logger,
		sinks:  sinks,
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// AddSink registers another sink. It sees only records dequeued after the call.
func (r *Recorder) AddSink(s Sink) {
	r.sinksMu.Lock()
	r.sinks = append(r.sinks, s)
	r.sinksMu.Unlock()
}

// ObserveCall implements robot.Observer. It never blocks.
func (r *Recorder) ObserveCall(_ context.Context, rec robot.CallRecord) {
	r.closedMu.RLock()
	defer r.closedMu.RUnlock()

	if r.closed {
		return
	}

	select {
	case r.queue <- rec:
	default:
		n := r.dropped.Add(1)
		r.logger.Warn("activity queue full, call record dropped",
			"tool", rec.Tool, "call_id", rec.ID, "dropped_total", n)
	}
}

// Dropped returns how many records were discarded because the queue was full.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Close stops accepting records and waits until queued ones are delivered
// or ctx expires.
func (r *Recorder) Close(ctx context.Context) error {
	r.closedMu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.closedMu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) run() {
	defer close(r.done)

	for rec := range r.queue {
		r.deliver(rec)
	}
}

func (r *Recorder) deliver(rec robot.CallRecord) {
	r.sinksMu.RLock()
	sinks := make([]Sink, len(r.sinks))
	copy(sinks, r.sinks)
	r.sinksMu.RUnlock()

	for _, s := range sinks {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		err := safeRecord(ctx, s, rec)
		cancel()

		if err != nil {
			r.logger.Warn("activity sink failed",
				"sink", s.Name(), "tool", rec.Tool, "call_id", rec.ID, "error", err)
		}
	}
}

// safeRecord turns a sink panic into an error so one bad sink cannot stop the worker.
func safeRecord(ctx context.Context, s Sink, rec robot.CallRecord) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("sink panicked: %v", p)
		}
	}()
	return s.Record(ctx, rec)
}
