// Package watcher owns the feed registry and the per-feed poller
// lifecycle. Registry mutations are the only path that starts or
// stops polling; every entry maps a normalized feed URL to exactly
// one running poller and its cancellation handle.
package watcher

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"rssd/fetch"
	"rssd/models"
	"rssd/queue"
)

var (
	ErrAlreadyWatched = errors.New("feed already watched")
	ErrNotWatched     = errors.New("feed not watched")
	ErrInvalidURL     = errors.New("invalid feed url")
)

// SeenStore is the slice of the dedup store a poller needs.
type SeenStore interface {
	InsertIfAbsent(ctx context.Context, feed, fingerprint string, item models.Item) (bool, error)
}

// WatchStore additionally persists the watch list across restarts.
type WatchStore interface {
	SeenStore
	AddFeed(ctx context.Context, url string) error
	RemoveFeed(ctx context.Context, url string) error
}

// Config wires a registry to its collaborators.
type Config struct {
	Fetcher        fetch.Fetcher
	Store          WatchStore
	Queue          *queue.Queue
	Refresh        time.Duration
	Fail           time.Duration
	EnqueueTimeout time.Duration
}

type entry struct {
	cancel context.CancelFunc
	done   chan struct{}
	status *feedStatus
}

// Registry is the authoritative mapping of watched URL to running
// poller. All mutations serialize on one mutex so a feed can never be
// double-started or double-stopped.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry

	ctx context.Context
	cfg Config
}

func NewRegistry(ctx context.Context, cfg Config) *Registry {
	if cfg.EnqueueTimeout <= 0 {
		cfg.EnqueueTimeout = 5 * time.Second
	}
	return &Registry{
		entries: make(map[string]*entry),
		ctx:     ctx,
		cfg:     cfg,
	}
}

// NormalizeURL canonicalizes a feed URL so equality and dedup keys
// are stable: lowercased scheme and host, no fragment, no trailing
// slash. Only http and https feeds are accepted.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrInvalidURL
	}
	if u.Host == "" {
		return "", ErrInvalidURL
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")

	return u.String(), nil
}

// Add normalizes the URL, persists it on the watch list and spawns a
// poller bound to it.
func (r *Registry) Add(rawURL string) error {
	feedURL, err := NormalizeURL(rawURL)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ctx.Err() != nil {
		return r.ctx.Err()
	}

	if _, ok := r.entries[feedURL]; ok {
		return ErrAlreadyWatched
	}

	if err := r.cfg.Store.AddFeed(r.ctx, feedURL); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(r.ctx)
	status := newFeedStatus(feedURL)
	done := make(chan struct{})

	p := &poller{
		feed:           feedURL,
		fetcher:        r.cfg.Fetcher,
		store:          r.cfg.Store,
		queue:          r.cfg.Queue,
		refresh:        r.cfg.Refresh,
		fail:           r.cfg.Fail,
		enqueueTimeout: r.cfg.EnqueueTimeout,
		status:         status,
	}
	go p.run(ctx, done)

	r.entries[feedURL] = &entry{cancel: cancel, done: done, status: status}

	log.WithField("feed", feedURL).Info("Watching feed")
	return nil
}

// Remove cancels the feed's poller, waits for it to exit, and drops
// the entry. An in-flight fetch is allowed to finish; its results are
// discarded, never enqueued.
func (r *Registry) Remove(rawURL string) error {
	feedURL, err := NormalizeURL(rawURL)
	if err != nil {
		// Removal by the exact raw string still works for URLs that
		// no longer normalize, so a bad entry can always be dropped.
		feedURL = strings.TrimSpace(rawURL)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[feedURL]
	if !ok {
		return ErrNotWatched
	}

	e.cancel()
	<-e.done
	delete(r.entries, feedURL)

	if err := r.cfg.Store.RemoveFeed(r.ctx, feedURL); err != nil {
		log.WithError(err).WithField("feed", feedURL).Error("Failed to remove feed from store")
	}

	log.WithField("feed", feedURL).Info("Stopped watching feed")
	return nil
}

// List returns a status snapshot for every watched feed, sorted by
// URL.
func (r *Registry) List() []models.FeedStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	statuses := make([]models.FeedStatus, 0, len(r.entries))
	for _, e := range r.entries {
		statuses = append(statuses, e.status.snapshot())
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].URL < statuses[j].URL
	})

	return statuses
}

// Watched returns the number of active feeds.
func (r *Registry) Watched() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Bootstrap adds the initial feed set. Invalid or duplicate URLs are
// logged and skipped; one bad entry never blocks startup.
func (r *Registry) Bootstrap(urls []string) (started int) {
	for _, u := range urls {
		if err := r.Add(u); err != nil {
			if errors.Is(err, ErrAlreadyWatched) {
				continue
			}
			log.WithError(err).WithField("feed", u).Warn("Skipping feed")
			continue
		}
		started++
	}
	return started
}

// Shutdown stops every poller and waits for them to exit.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for feedURL, e := range r.entries {
		e.cancel()
		<-e.done
		delete(r.entries, feedURL)
	}
}
