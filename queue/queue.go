// Package queue is the bounded channel between pollers and the
// dispatcher. One instance is constructed at startup and shared by
// every poller; it is the only concurrency primitive crossing that
// boundary.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"rssd/models"
)

var (
	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rssd_event_queue_depth",
		Help: "The current number of events waiting in the queue",
	})

	eventsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rssd_events_enqueued_total",
		Help: "The total number of events accepted into the queue",
	})

	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rssd_events_dropped_total",
		Help: "The total number of events dropped because the queue was full",
	})
)

// ErrQueueFull is returned when an enqueue times out. The item is
// already marked seen at this point, so a drop means the notification
// is lost; treat sustained drops as a capacity tuning signal.
var ErrQueueFull = errors.New("event queue full")

// Queue is a bounded FIFO of events. Many producers, one consumer.
// FIFO holds per producer; no ordering is guaranteed across feeds.
type Queue struct {
	events chan models.Event
}

func New(capacity int) *Queue {
	return &Queue{
		events: make(chan models.Event, capacity),
	}
}

// Enqueue blocks until the event is accepted, the timeout elapses, or
// the context is cancelled. A cancelled context wins over a ready
// channel so a removed feed never sneaks an event in.
func (q *Queue) Enqueue(ctx context.Context, event models.Event, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case q.events <- event:
		eventsEnqueued.Inc()
		queueDepth.Set(float64(len(q.events)))
		return nil
	case <-timer.C:
		eventsDropped.Inc()
		return ErrQueueFull
	}
}

// Dequeue blocks until an event is available or the context is
// cancelled. The second return is false only on cancellation.
func (q *Queue) Dequeue(ctx context.Context) (models.Event, bool) {
	select {
	case <-ctx.Done():
		return models.Event{}, false
	case event := <-q.events:
		queueDepth.Set(float64(len(q.events)))
		return event, true
	}
}

func (q *Queue) Len() int {
	return len(q.events)
}

func (q *Queue) Cap() int {
	return cap(q.events)
}
