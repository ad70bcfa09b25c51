package control

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"time"
)

// Send delivers one command line to a running daemon and returns the
// single-line reply.
func Send(socket string, cmd Command) (string, error) {
	conn, err := net.DialTimeout("unix", socket, connTimeout)
	if err != nil {
		return "", fmt.Errorf("failed to connect to daemon: %w", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(connTimeout))

	if _, err := fmt.Fprintf(conn, "%s\n", cmd.String()); err != nil {
		return "", fmt.Errorf("failed to send command: %w", err)
	}

	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && reply == "" {
		return "", fmt.Errorf("failed to read reply: %w", err)
	}

	return strings.TrimSpace(reply), nil
}
