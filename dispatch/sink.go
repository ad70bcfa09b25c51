package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
)

// SinkErrorKind classifies send failures.
type SinkErrorKind int

const (
	SinkHTTP SinkErrorKind = iota
	SinkTimeout
	SinkNetwork
)

func (k SinkErrorKind) String() string {
	switch k {
	case SinkHTTP:
		return "http"
	case SinkTimeout:
		return "timeout"
	case SinkNetwork:
		return "network"
	}
	return "unknown"
}

type SinkError struct {
	Kind   SinkErrorKind
	Status int
	Err    error
}

func (e *SinkError) Error() string {
	if e.Kind == SinkHTTP {
		return fmt.Sprintf("sink: http status %d", e.Status)
	}
	return fmt.Sprintf("sink: %s: %v", e.Kind, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// Sink delivers one notification payload. All errors are treated as
// transient by the dispatcher and retried with backoff.
type Sink interface {
	Send(ctx context.Context, payload []byte) error
}

// WebhookSink posts payloads to an HTTP webhook.
type WebhookSink struct {
	url    string
	client *http.Client
}

func NewWebhookSink(webhookURL string, timeout time.Duration) *WebhookSink {
	return &WebhookSink{
		url: webhookURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (s *WebhookSink) Send(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return &SinkError{Kind: SinkNetwork, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		kind := SinkNetwork
		if urlErr, ok := err.(*url.Error); ok && urlErr.Timeout() {
			kind = SinkTimeout
		}
		return &SinkError{Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &SinkError{Kind: SinkHTTP, Status: resp.StatusCode}
	}

	return nil
}

// LogSink logs notifications instead of delivering them. Used when no
// webhook is configured.
type LogSink struct{}

func (LogSink) Send(ctx context.Context, payload []byte) error {
	log.WithField("payload", string(payload)).Info("Notification (no sink configured)")
	return nil
}
