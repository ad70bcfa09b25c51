package models

import "time"

// Item is a single entry parsed out of a syndication feed.
type Item struct {
	GUID      string    `json:"guid,omitempty"`
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Summary   string    `json:"summary,omitempty"`
	Published time.Time `json:"published"`
}

// Event is emitted by a poller for every item that passed the dedup
// gate. Events are in-memory only and consumed exactly once by the
// dispatcher.
type Event struct {
	Feed        string
	Fingerprint string
	Item        Item
}

type FeedState string

const (
	FeedStateActive  FeedState = "active"
	FeedStateFailing FeedState = "failing"
)

// FeedStatus is a point-in-time snapshot of a watched feed's health.
type FeedStatus struct {
	URL       string    `json:"url"`
	State     FeedState `json:"state"`
	LastPoll  time.Time `json:"lastPoll,omitempty"`
	LastError string    `json:"lastError,omitempty"`
	NewItems  int64     `json:"newItems"`
}
