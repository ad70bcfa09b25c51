package control

import (
	"errors"
	"fmt"
	"strings"
)

// Kind enumerates control-plane commands.
type Kind int

const (
	CmdAddFeed Kind = iota
	CmdRemoveFeed
	CmdListFeeds
	CmdPing
	CmdVersion
)

// ErrBadCommand covers unrecognized keywords and malformed syntax.
var ErrBadCommand = errors.New("bad command")

// Command is one parsed control-plane request.
type Command struct {
	Kind Kind
	URL  string
}

// Parse turns one request line into a Command. Parsing never mutates
// state; a malformed line is reported to the caller and nothing else.
func Parse(line string) (Command, error) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return Command{}, ErrBadCommand
	}

	switch fields[0] {
	case "feed":
		if len(fields) < 2 {
			return Command{}, ErrBadCommand
		}
		switch fields[1] {
		case "add":
			if len(fields) != 3 {
				return Command{}, ErrBadCommand
			}
			return Command{Kind: CmdAddFeed, URL: fields[2]}, nil
		case "remove":
			if len(fields) != 3 {
				return Command{}, ErrBadCommand
			}
			return Command{Kind: CmdRemoveFeed, URL: fields[2]}, nil
		case "list":
			if len(fields) != 2 {
				return Command{}, ErrBadCommand
			}
			return Command{Kind: CmdListFeeds}, nil
		}
		return Command{}, ErrBadCommand
	case "ping":
		if len(fields) != 1 {
			return Command{}, ErrBadCommand
		}
		return Command{Kind: CmdPing}, nil
	case "version":
		if len(fields) != 1 {
			return Command{}, ErrBadCommand
		}
		return Command{Kind: CmdVersion}, nil
	}

	return Command{}, ErrBadCommand
}

// String renders the command back into wire form, used by the client.
func (c Command) String() string {
	switch c.Kind {
	case CmdAddFeed:
		return fmt.Sprintf("feed add %s", c.URL)
	case CmdRemoveFeed:
		return fmt.Sprintf("feed remove %s", c.URL)
	case CmdListFeeds:
		return "feed list"
	case CmdPing:
		return "ping"
	case CmdVersion:
		return "version"
	}
	return ""
}
