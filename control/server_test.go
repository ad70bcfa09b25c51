package control_test

import (
	"context"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rssd/control"
	"rssd/models"
	"rssd/watcher"
)

// fakeRegistry implements the registry surface with a plain map, so
// the server tests cover protocol behavior without real pollers.
type fakeRegistry struct {
	mu    sync.Mutex
	feeds map[string]bool
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{feeds: make(map[string]bool)}
}

func (r *fakeRegistry) Add(url string) error {
	normalized, err := watcher.NormalizeURL(url)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.feeds[normalized] {
		return watcher.ErrAlreadyWatched
	}
	r.feeds[normalized] = true
	return nil
}

func (r *fakeRegistry) Remove(url string) error {
	normalized, err := watcher.NormalizeURL(url)
	if err != nil {
		normalized = url
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.feeds[normalized] {
		return watcher.ErrNotWatched
	}
	delete(r.feeds, normalized)
	return nil
}

func (r *fakeRegistry) List() []models.FeedStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	statuses := make([]models.FeedStatus, 0, len(r.feeds))
	for url := range r.feeds {
		statuses = append(statuses, models.FeedStatus{URL: url, State: models.FeedStateActive})
	}
	return statuses
}

// startServer binds a server on a temp socket and waits until the
// socket accepts connections.
func startServer(t *testing.T) (string, *fakeRegistry) {
	t.Helper()

	socket := filepath.Join(t.TempDir(), "rssd-test.sock")
	registry := newFakeRegistry()
	server := control.NewServer(socket, "0.4.1", registry)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() {
		if err := server.Listen(ctx); err != nil {
			t.Errorf("control server exited: %v", err)
		}
	}()

	require.Eventually(t, func() bool {
		conn, err := net.Dial("unix", socket)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 5*time.Second, 10*time.Millisecond)

	return socket, registry
}

func send(t *testing.T, socket, line string) string {
	t.Helper()
	reply, err := control.Send(socket, mustParse(t, line))
	require.NoError(t, err)
	return reply
}

func mustParse(t *testing.T, line string) control.Command {
	t.Helper()
	cmd, err := control.Parse(line)
	require.NoError(t, err)
	return cmd
}

func TestServerCommandSequence(t *testing.T) {
	socket, _ := startServer(t)

	// Each command is its own connection, like a real ctl invocation.
	assert.Equal(t, "OK", send(t, socket, "feed add https://example.org/feed"))
	assert.Equal(t, "PONG", send(t, socket, "ping"))
	assert.Equal(t, "OK", send(t, socket, "feed remove https://example.org/feed"))
	assert.Equal(t, "ERR not-watched", send(t, socket, "feed remove https://example.org/feed"))
}

func TestServerAddErrors(t *testing.T) {
	socket, _ := startServer(t)

	assert.Equal(t, "OK", send(t, socket, "feed add https://example.org/feed"))
	assert.Equal(t, "ERR already-watched", send(t, socket, "feed add https://example.org/feed"))
	assert.Equal(t, "ERR invalid-url", send(t, socket, "feed add not-a-url"))
}

func TestServerVersion(t *testing.T) {
	socket, _ := startServer(t)

	assert.Equal(t, "0.4.1", send(t, socket, "version"))
}

func TestServerList(t *testing.T) {
	socket, _ := startServer(t)

	assert.Equal(t, "OK", send(t, socket, "feed list"))

	require.Equal(t, "OK", send(t, socket, "feed add https://example.org/feed"))
	assert.Equal(t, "OK https://example.org/feed=active", send(t, socket, "feed list"))
}

func TestServerBadCommand(t *testing.T) {
	socket, _ := startServer(t)

	// Raw writes bypass the client's parse step to exercise the
	// server's own validation.
	for _, line := range []string{"frobnicate\n", "feed add\n", "feed add a b\n", "\n"} {
		conn, err := net.Dial("unix", socket)
		require.NoError(t, err)

		_, err = conn.Write([]byte(line))
		require.NoError(t, err)

		buf := make([]byte, 64)
		n, err := conn.Read(buf)
		require.NoError(t, err)
		assert.Equal(t, "ERR bad-command\n", string(buf[:n]))

		conn.Close()
	}
}

func TestServerRemovesStaleSocket(t *testing.T) {
	socket, _ := startServer(t)

	// A second server on the same path must replace the socket, as
	// after an unclean daemon exit.
	registry := newFakeRegistry()
	server := control.NewServer(socket, "0.4.1", registry)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go server.Listen(ctx)

	require.Eventually(t, func() bool {
		reply, err := control.Send(socket, control.Command{Kind: control.CmdPing})
		return err == nil && reply == "PONG"
	}, 5*time.Second, 10*time.Millisecond)
}
