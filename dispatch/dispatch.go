// Package dispatch drains the event queue and turns events into
// outbound notifications. A single consumer keeps sink-side ordering
// equal to dequeue order.
package dispatch

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"rssd/models"
	"rssd/queue"
)

var (
	notificationsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rssd_notifications_sent_total",
		Help: "The total number of notifications delivered to the sink",
	})

	notificationsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rssd_notifications_failed_total",
		Help: "The total number of notifications dropped after retry exhaustion",
	})
)

// NotifyMarker records confirmed deliveries back into the dedup store.
type NotifyMarker interface {
	MarkNotified(ctx context.Context, feed, fingerprint string) error
}

// Dispatcher consumes the event queue one event at a time.
type Dispatcher struct {
	queue          *queue.Queue
	builder        PayloadBuilder
	sink           Sink
	marker         NotifyMarker
	maxAttempts    int
	initialBackoff time.Duration
}

func New(q *queue.Queue, builder PayloadBuilder, sink Sink, marker NotifyMarker, maxAttempts int, initialBackoff time.Duration) *Dispatcher {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Dispatcher{
		queue:          q,
		builder:        builder,
		sink:           sink,
		marker:         marker,
		maxAttempts:    maxAttempts,
		initialBackoff: initialBackoff,
	}
}

// Run consumes events until the context is cancelled. A failing sink
// never blocks the queue indefinitely: after maxAttempts the event is
// logged and dropped, and the loop moves on.
func (d *Dispatcher) Run(ctx context.Context) {
	log.Info("Dispatcher started")
	for {
		event, ok := d.queue.Dequeue(ctx)
		if !ok {
			log.Info("Dispatcher stopped")
			return
		}
		d.handle(ctx, event)
	}
}

func (d *Dispatcher) handle(ctx context.Context, event models.Event) {
	payload, err := d.builder.Build(event.Feed, event.Item)
	if err != nil {
		log.WithError(err).WithField("feed", event.Feed).Error("Error building payload")
		return
	}

	if err := d.send(ctx, payload); err != nil {
		notificationsFailed.Inc()
		log.WithError(err).WithFields(log.Fields{
			"feed":  event.Feed,
			"title": event.Item.Title,
		}).Error("Dropping notification after retry exhaustion")
		return
	}

	notificationsSent.Inc()
	log.WithFields(log.Fields{
		"feed":  event.Feed,
		"title": event.Item.Title,
		"link":  event.Item.Link,
	}).Debug("Notification sent")

	if d.marker != nil {
		if err := d.marker.MarkNotified(ctx, event.Feed, event.Fingerprint); err != nil {
			log.WithError(err).WithField("feed", event.Feed).Warn("Failed to mark item notified")
		}
	}
}

func (d *Dispatcher) send(ctx context.Context, payload []byte) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = d.initialBackoff
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0

	attempts := 0
	operation := func() error {
		attempts++
		err := d.sink.Send(ctx, payload)
		if err != nil {
			log.WithError(err).WithField("attempt", attempts).Warn("Error sending notification")
		}
		return err
	}

	return backoff.Retry(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(bo, uint64(d.maxAttempts-1)), ctx),
	)
}
