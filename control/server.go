// Package control implements the local socket protocol for runtime
// feed management. One connection carries exactly one command and one
// response; there are no sessions and no pipelining.
package control

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"rssd/models"
	"rssd/watcher"
)

const connTimeout = 10 * time.Second

// Registry is the slice of the feed registry the control plane may
// touch. Commands never hold raw poller handles.
type Registry interface {
	Add(url string) error
	Remove(url string) error
	List() []models.FeedStatus
}

// Server accepts control connections on a unix socket.
type Server struct {
	socket   string
	version  string
	registry Registry
	listener net.Listener
}

func NewServer(socket, version string, registry Registry) *Server {
	return &Server{
		socket:   socket,
		version:  version,
		registry: registry,
	}
}

// Listen binds the control socket and serves until the context is
// cancelled. A stale socket file from a previous run is removed
// before binding.
func (s *Server) Listen(ctx context.Context) error {
	if err := os.Remove(s.socket); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socket)
	if err != nil {
		return fmt.Errorf("failed to bind control socket: %w", err)
	}
	s.listener = listener

	log.WithField("socket", s.socket).Info("Listening for commands")

	go func() {
		<-ctx.Done()
		listener.Close()
		os.Remove(s.socket)
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.WithError(err).Error("Error accepting connection")
			continue
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(connTimeout))

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && line == "" {
		log.WithError(err).Debug("Client disconnected before sending a command")
		return
	}

	log.WithField("command", strings.TrimSpace(line)).Debug("Client sent command")

	cmd, err := Parse(line)
	if err != nil {
		s.reply(conn, "ERR bad-command")
		return
	}

	s.reply(conn, s.execute(cmd))
}

// execute maps a command onto the registry. Errors stay local to the
// issuing connection.
func (s *Server) execute(cmd Command) string {
	switch cmd.Kind {
	case CmdAddFeed:
		switch err := s.registry.Add(cmd.URL); {
		case err == nil:
			return "OK"
		case errors.Is(err, watcher.ErrAlreadyWatched):
			return "ERR already-watched"
		case errors.Is(err, watcher.ErrInvalidURL):
			return "ERR invalid-url"
		default:
			log.WithError(err).WithField("feed", cmd.URL).Error("Error adding feed")
			return "ERR internal"
		}

	case CmdRemoveFeed:
		switch err := s.registry.Remove(cmd.URL); {
		case err == nil:
			return "OK"
		case errors.Is(err, watcher.ErrNotWatched):
			return "ERR not-watched"
		default:
			log.WithError(err).WithField("feed", cmd.URL).Error("Error removing feed")
			return "ERR internal"
		}

	case CmdListFeeds:
		statuses := s.registry.List()
		if len(statuses) == 0 {
			return "OK"
		}
		pairs := lo.Map(statuses, func(fs models.FeedStatus, _ int) string {
			return fmt.Sprintf("%s=%s", fs.URL, fs.State)
		})
		return "OK " + strings.Join(pairs, " ")

	case CmdPing:
		return "PONG"

	case CmdVersion:
		return s.version
	}

	return "ERR bad-command"
}

func (s *Server) reply(conn net.Conn, response string) {
	if _, err := fmt.Fprintf(conn, "%s\n", response); err != nil {
		log.WithError(err).Error("Failed to send reply to client")
	}
}
