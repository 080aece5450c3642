package activity

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/itz-ankit01/inbotiq-core/internal/auth"
)

// DefaultQueueSize bounds the number of events buffered per Async sink.
const DefaultQueueSize = 256

// Async decouples a sink from the caller. Record never blocks: when the
// queue is full the event is dropped and counted.
type Async struct {
	sink    auth.EventSink
	queue   chan auth.Event
	logger  *slog.Logger
	dropped atomic.Uint64
}

// NewAsync wraps sink with a queue of the given size (DefaultQueueSize when
// size <= 0). Events are delivered only while Run is active.
func NewAsync(sink auth.EventSink, size int, logger *slog.Logger) *Async {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Async{
		sink:   sink,
		queue:  make(chan auth.Event, size),
		logger: logger,
	}
}

// Record enqueues e.
func (a *Async) Record(_ context.Context, e auth.Event) {
	select {
	case a.queue <- e:
	default:
		if a.dropped.Add(1) == 1 {
			a.logger.Warn("activity queue full, dropping events")
		}
	}
}

// Dropped reports how many events were discarded because the queue was full.
func (a *Async) Dropped() uint64 {
	return a.dropped.Load()
}

// Pending reports the number of queued events.
func (a *Async) Pending() int {
	return len(a.queue)
}

// Run delivers queued events until ctx is cancelled, then drains what is
// already queued and returns.
func (a *Async) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			a.drain()
			return
		case e := <-a.queue:
			a.deliver(e)
		}
	}
}

func (a *Async) drain() {
	for {
		select {
		case e := <-a.queue:
			a.deliver(e)
		default:
			return
		}
	}
}

func (a *Async) deliver(e auth.Event) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("activity sink panic recovered", "type", e.Type, "panic", r)
		}
	}()
	a.sink.Record(context.Background(), e)
}
