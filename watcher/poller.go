package watcher

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"rssd/fetch"
	"rssd/models"
	"rssd/queue"
)

var (
	pollCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rssd_poll_cycles_total",
		Help: "The total number of completed poll cycles",
	}, []string{"outcome"})

	newItems = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rssd_new_items_total",
		Help: "The total number of items that passed the dedup gate",
	})
)

// poller is the per-feed task: fetch, filter through the dedup store,
// emit events. It never terminates on a transient error; only
// cancellation ends the loop.
type poller struct {
	feed           string
	fetcher        fetch.Fetcher
	store          SeenStore
	queue          *queue.Queue
	refresh        time.Duration
	fail           time.Duration
	enqueueTimeout time.Duration
	status         *feedStatus
}

func (p *poller) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	// First cycle runs immediately so a freshly added feed notifies
	// without waiting a full interval.
	for {
		sleep := p.refresh
		if err := p.cycle(ctx); err != nil {
			if ctx.Err() != nil {
				log.WithField("feed", p.feed).Debug("Poller cancelled")
				return
			}
			sleep = p.fail
		}

		select {
		case <-ctx.Done():
			log.WithField("feed", p.feed).Debug("Poller cancelled")
			return
		case <-time.After(sleep):
		}
	}
}

// cycle runs one fetch -> dedup -> enqueue pass. Items are processed
// in fetch order; the cancellation check between stages guarantees a
// removed feed discards the rest of an in-flight result set.
func (p *poller) cycle(ctx context.Context) error {
	start := time.Now()

	items, err := p.fetcher.Fetch(ctx, p.feed)
	if err != nil {
		if ctx.Err() == nil {
			pollCycles.WithLabelValues("error").Inc()
			p.status.recordFailure(err)
			log.WithError(err).WithField("feed", p.feed).Error("Error fetching feed")
		}
		return err
	}

	var fresh int64
	for _, item := range items {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fingerprint := fetch.Fingerprint(item)
		inserted, err := p.store.InsertIfAbsent(ctx, p.feed, fingerprint, item)
		if err != nil {
			// Item is neither marked seen nor enqueued; the next
			// cycle retries it.
			log.WithError(err).WithFields(log.Fields{
				"feed":        p.feed,
				"fingerprint": fingerprint,
			}).Error("Dedup store error, item deferred")
			continue
		}
		if !inserted {
			continue
		}

		fresh++
		newItems.Inc()

		event := models.Event{
			Feed:        p.feed,
			Fingerprint: fingerprint,
			Item:        item,
		}
		if err := p.queue.Enqueue(ctx, event, p.enqueueTimeout); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Already marked seen, so this notification is lost.
			log.WithError(err).WithFields(log.Fields{
				"feed":  p.feed,
				"title": item.Title,
			}).Warn("Event queue full, dropping event")
		}
	}

	pollCycles.WithLabelValues("ok").Inc()
	p.status.recordSuccess(fresh)

	log.WithFields(log.Fields{
		"feed":    p.feed,
		"items":   len(items),
		"new":     fresh,
		"elapsed": time.Since(start),
	}).Trace("Poll cycle finished")

	return nil
}

// feedStatus tracks per-feed health, read by the registry's List and
// written by the feed's poller.
type feedStatus struct {
	mu       sync.Mutex
	url      string
	lastPoll time.Time
	lastErr  string
	newItems int64
}

func newFeedStatus(url string) *feedStatus {
	return &feedStatus{url: url}
}

func (s *feedStatus) recordSuccess(fresh int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPoll = time.Now()
	s.lastErr = ""
	s.newItems += fresh
}

func (s *feedStatus) recordFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPoll = time.Now()
	s.lastErr = err.Error()
}

func (s *feedStatus) snapshot() models.FeedStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := models.FeedStateActive
	if s.lastErr != "" {
		state = models.FeedStateFailing
	}

	return models.FeedStatus{
		URL:       s.url,
		State:     state,
		LastPoll:  s.lastPoll,
		LastError: s.lastErr,
		NewItems:  s.newItems,
	}
}
