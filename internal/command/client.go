package command

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"
)

const dialTimeout = 2 * time.Second

// Send delivers cmd to the server listening on socketPath and waits for its
// reply.
func Send(ctx context.Context, socketPath string, cmd Command) error {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", socketPath, err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			_ = cerr
		}
	}()

	deadline := time.Now().Add(readTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set deadline: %w", err)
	}
	if _, err := fmt.Fprintln(conn, string(cmd)); err != nil {
		return fmt.Errorf("failed to send %s: %w", cmd, err)
	}

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read reply: %w", err)
	}
	if err := parseReply(line); err != nil {
		return fmt.Errorf("%s rejected: %w", cmd, err)
	}
	return nil
}
