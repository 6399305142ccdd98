package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultSocketName is the socket file created under the runtime dir.
	DefaultSocketName = "tuisplit.sock"
	readTimeout       = 5 * time.Second
	maxLineBytes      = 4096
)

// Reply values written back to a client.
const (
	ReplyOK = "ok"
)

// Server accepts one command per connection on a unix socket.
type Server struct {
	path   string
	target Target
	logger *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

// NewServer returns a server that dispatches to target.
func NewServer(path string, target Target, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{path: path, target: target, logger: logger.With("socket", path)}
}

// Path returns the socket path.
func (s *Server) Path() string {
	return s.path
}

// Listen binds the socket, replacing any stale socket file.
func (s *Server) Listen() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create socket dir: %w", err)
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.path, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.logger.Info("listening for commands")
	return nil
}

// Serve accepts connections until ctx is cancelled. Listen must be called
// first.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return errors.New("server is not listening")
	}

	stop := context.AfterFunc(ctx, func() {
		if cerr := ln.Close(); cerr != nil {
			_ = cerr
		}
	})
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Warn("accept failed", "error", err)
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
		}()
	}
	s.wg.Wait()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("failed to remove socket", "error", err)
	}
	return nil
}

// ListenAndServe binds the socket and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

func (s *Server) handle(conn net.Conn) {
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			_ = cerr
		}
	}()
	if err := conn.SetDeadline(time.Now().Add(readTimeout)); err != nil {
		s.logger.Warn("failed to set deadline", "error", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 256), maxLineBytes)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			s.logger.Warn("failed to read command", "error", err)
		}
		return
	}

	reply := ReplyOK
	if err := Execute(s.target, scanner.Text(), s.logger); err != nil {
		reply = "error: " + err.Error()
	}
	if _, err := fmt.Fprintln(conn, reply); err != nil {
		s.logger.Debug("failed to write reply", "error", err)
	}
}

// parseReply converts a server reply line into an error.
func parseReply(line string) error {
	line = strings.TrimSpace(line)
	if line == ReplyOK {
		return nil
	}
	if msg, ok := strings.CutPrefix(line, "error: "); ok {
		return errors.New(msg)
	}
	return fmt.Errorf("unexpected reply %q", line)
}
