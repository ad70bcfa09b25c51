// Package fetch resolves feed URLs to lists of items. It wraps gofeed
// behind a small Fetcher interface so pollers and tests do not depend
// on the network.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"

	"rssd/models"
)

const userAgent = "rssd/0.4 (+https://github.com/rssd/rssd)"

// ErrorKind classifies fetch failures.
type ErrorKind int

const (
	KindTimeout ErrorKind = iota
	KindNetwork
	KindHTTP
	KindParse
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network"
	case KindHTTP:
		return "http"
	case KindParse:
		return "parse"
	}
	return "unknown"
}

// FetchError is returned for every failed fetch. All fetch errors are
// transient from the poller's point of view: the next cycle retries.
type FetchError struct {
	Kind   ErrorKind
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Kind == KindHTTP {
		return fmt.Sprintf("fetch %s: http status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher resolves a feed URL to its current items.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]models.Item, error)
}

// HTTPFetcher fetches and parses feeds over HTTP.
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch retrieves and parses one feed. Items are returned in document
// order; the caller decides what is new.
func (f *HTTPFetcher) Fetch(ctx context.Context, feedURL string) ([]models.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindParse, URL: feedURL, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		kind := KindNetwork
		if urlErr, ok := err.(*url.Error); ok && urlErr.Timeout() {
			kind = KindTimeout
		}
		return nil, &FetchError{Kind: kind, URL: feedURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Kind: KindHTTP, URL: feedURL, Status: resp.StatusCode}
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: KindParse, URL: feedURL, Err: err}
	}

	now := time.Now()
	items := make([]models.Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		items = append(items, convertItem(entry, now))
	}

	return items, nil
}

func convertItem(entry *gofeed.Item, fetched time.Time) models.Item {
	published := fetched
	if entry.PublishedParsed != nil {
		published = *entry.PublishedParsed
	} else if entry.UpdatedParsed != nil {
		published = *entry.UpdatedParsed
	}

	return models.Item{
		GUID:      entry.GUID,
		Title:     entry.Title,
		Link:      entry.Link,
		Summary:   entry.Description,
		Published: published,
	}
}
