// Package core runs the accept loop and the per-connection session state
// machine.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"syscall"
	"time"

	"golang.org/x/net/netutil"

	"github.com/searchktools/prefix-server/core/observability"
)

// Server accepts connections and hands each one to its own Session.
// Configure the exported fields before calling Serve or ListenAndServe.
type Server struct {
	Addr              string
	Dispatcher        Dispatcher
	Logger            *slog.Logger
	Monitor           *observability.Monitor
	InactivityTimeout time.Duration
	WriteTimeout      time.Duration
	ReadChunkSize     int
	MaxConnections    int // 0 means unlimited

	mu       sync.Mutex
	listener net.Listener
	sessions sync.WaitGroup
}

// NewServer creates a server for addr with default settings
func NewServer(addr string, d Dispatcher, logger *slog.Logger) *Server {
	return &Server{
		Addr:       addr,
		Dispatcher: d,
		Logger:     logger,
	}
}

// ListenAndServe binds Addr and serves until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context) error {
	lc := net.ListenConfig{Control: controlListener}
	ln, err := lc.Listen(ctx, "tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled or ln fails. On
// return the listener is closed and every session has finished. A
// cancelled ctx yields ErrServerClosed.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.Dispatcher == nil {
		return errors.New("server has no dispatcher")
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.Monitor == nil {
		s.Monitor = observability.Default()
	}
	if s.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.MaxConnections)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	defer s.sessions.Wait()
	defer ln.Close()

	s.Logger.Info("server listening", "addr", ln.Addr().String(), "max_connections", s.MaxConnections)

	opts := SessionOptions{
		Timeout:      s.InactivityTimeout,
		ChunkSize:    s.ReadChunkSize,
		WriteTimeout: s.WriteTimeout,
		Logger:       s.Logger,
		Monitor:      s.Monitor,
	}

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.Logger.Info("server stopped", "addr", ln.Addr().String())
				return ErrServerClosed
			}
			if isTemporary(err) {
				backoff = nextBackoff(backoff)
				s.Logger.Warn("accept failed, retrying", "error", err, "backoff", backoff)
				select {
				case <-time.After(backoff):
				case <-ctx.Done():
				}
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}
		backoff = 0

		s.Monitor.RecordConnection()
		sess := NewSession(conn, s.Dispatcher, opts)

		s.sessions.Add(1)
		go func() {
			defer s.sessions.Done()
			sess.Run(ctx)
		}()
	}
}

// ListenAddr returns the bound address, or nil before Serve starts
func (s *Server) ListenAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func isTemporary(err error) bool {
	if errors.Is(err, net.ErrClosed) {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	// descriptor exhaustion and aborted handshakes clear on their own
	return errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE) ||
		errors.Is(err, syscall.ECONNABORTED)
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	d *= 2
	if d > time.Second {
		d = time.Second
	}
	return d
}
