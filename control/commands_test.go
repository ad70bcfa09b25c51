package control_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rssd/control"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    control.Command
		wantErr bool
	}{
		{name: "feed add", line: "feed add https://example.org/feed", want: control.Command{Kind: control.CmdAddFeed, URL: "https://example.org/feed"}},
		{name: "feed remove", line: "feed remove https://example.org/feed", want: control.Command{Kind: control.CmdRemoveFeed, URL: "https://example.org/feed"}},
		{name: "feed list", line: "feed list", want: control.Command{Kind: control.CmdListFeeds}},
		{name: "ping", line: "ping", want: control.Command{Kind: control.CmdPing}},
		{name: "version", line: "version", want: control.Command{Kind: control.CmdVersion}},
		{name: "trailing newline", line: "ping\n", want: control.Command{Kind: control.CmdPing}},
		{name: "extra whitespace", line: "  feed   add   https://example.org/feed  ", want: control.Command{Kind: control.CmdAddFeed, URL: "https://example.org/feed"}},

		{name: "empty line", line: "", wantErr: true},
		{name: "whitespace only", line: "   \n", wantErr: true},
		{name: "unknown keyword", line: "frobnicate", wantErr: true},
		{name: "feed alone", line: "feed", wantErr: true},
		{name: "feed unknown subcommand", line: "feed flush", wantErr: true},
		{name: "feed add missing url", line: "feed add", wantErr: true},
		{name: "feed add extra args", line: "feed add a b", wantErr: true},
		{name: "feed remove missing url", line: "feed remove", wantErr: true},
		{name: "feed list extra args", line: "feed list now", wantErr: true},
		{name: "ping extra args", line: "ping hard", wantErr: true},
		{name: "version extra args", line: "version full", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := control.Parse(tt.line)
			if tt.wantErr {
				assert.ErrorIs(t, err, control.ErrBadCommand)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommandString(t *testing.T) {
	tests := []struct {
		cmd  control.Command
		want string
	}{
		{control.Command{Kind: control.CmdAddFeed, URL: "https://example.org/feed"}, "feed add https://example.org/feed"},
		{control.Command{Kind: control.CmdRemoveFeed, URL: "https://example.org/feed"}, "feed remove https://example.org/feed"},
		{control.Command{Kind: control.CmdListFeeds}, "feed list"},
		{control.Command{Kind: control.CmdPing}, "ping"},
		{control.Command{Kind: control.CmdVersion}, "version"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.cmd.String())
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, line := range []string{
		"feed add https://example.org/feed",
		"feed remove https://example.org/feed",
		"feed list",
		"ping",
		"version",
	} {
		cmd, err := control.Parse(line)
		require.NoError(t, err)
		assert.Equal(t, line, cmd.String())
	}
}
