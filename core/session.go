package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/searchktools/prefix-server/core/http"
	"github.com/searchktools/prefix-server/core/observability"
	"github.com/searchktools/prefix-server/core/pools"
)

// Dispatcher turns a valid request into a response. *router.Router
// implements it.
type Dispatcher interface {
	Dispatch(req *http.Request) *http.Response
}

// State is a session's position in its lifecycle
type State int32

// Session states
const (
	StateReading State = iota
	StateFramingCheck
	StateDispatching
	StateWriting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateReading:
		return "reading"
	case StateFramingCheck:
		return "framing"
	case StateDispatching:
		return "dispatching"
	case StateWriting:
		return "writing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// SessionOptions configure a session. Zero fields take the package defaults.
type SessionOptions struct {
	Timeout      time.Duration
	ChunkSize    int
	WriteTimeout time.Duration
	Logger       *slog.Logger
	Monitor      *observability.Monitor
}

// Session serves exactly one request on one connection and then closes it.
// Run is called once, on the goroutine that owns the connection; only Close
// and the inactivity timer touch the session from elsewhere.
type Session struct {
	id         string
	conn       net.Conn
	client     string
	dispatcher Dispatcher
	opts       SessionOptions

	state     atomic.Int32
	buf       []byte
	buffered  atomic.Int64
	timer     *time.Timer
	timedOut  atomic.Bool
	closeOnce sync.Once
}

// NewSession wraps conn. The connection belongs to the session from here on.
func NewSession(conn net.Conn, d Dispatcher, opts SessionOptions) *Session {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultInactivityTimeout
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultReadChunkSize
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Monitor == nil {
		opts.Monitor = observability.Default()
	}

	client := ""
	if addr := conn.RemoteAddr(); addr != nil {
		client = addr.String()
	}

	return &Session{
		id:         uuid.NewString(),
		conn:       conn,
		client:     client,
		dispatcher: d,
		opts:       opts,
	}
}

// ID returns the connection id used in log records
func (s *Session) ID() string { return s.id }

// State returns the current state
func (s *Session) State() State { return State(s.state.Load()) }

// setState moves to st unless the session is already closed
func (s *Session) setState(st State) {
	for {
		cur := s.state.Load()
		if State(cur) == StateClosed {
			return
		}
		if s.state.CompareAndSwap(cur, int32(st)) {
			return
		}
	}
}

// Run drives the session to StateClosed. Cancelling ctx closes the
// connection, which unblocks any pending read or write.
func (s *Session) Run(ctx context.Context) {
	defer s.Close()

	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	s.opts.Logger.Debug("connection accepted", "conn_id", s.id, "client", s.client)

	req, err := s.readRequest()
	if err != nil {
		s.logReadError(err)
		return
	}

	s.setState(StateDispatching)
	start := time.Now()

	var resp *http.Response
	if !req.Valid() {
		resp = http.BadRequest(req)
	} else {
		resp = s.dispatcher.Dispatch(req)
	}
	elapsed := time.Since(start)

	s.opts.Monitor.RecordRequest(resp.Handler(), elapsed, resp.StatusCode() >= 500)
	s.opts.Logger.Info("request",
		"conn_id", s.id,
		"client", s.client,
		"method", req.Method(),
		"url", req.URL(),
		"status", resp.StatusCode(),
		"handler", resp.Handler(),
		"duration", elapsed,
	)

	s.setState(StateWriting)
	if err := s.write(resp); err != nil {
		s.opts.Logger.Debug("write failed", "conn_id", s.id, "client", s.client, "error", err)
	}
}

// readRequest accumulates bytes until a full request is framed. The
// inactivity timer is armed for the first read, re-armed after every read
// that delivered bytes, and stopped once the request is complete.
func (s *Session) readRequest() (*http.Request, error) {
	chunk := pools.GetChunk(s.opts.ChunkSize)
	defer pools.PutChunk(chunk)

	s.timer = time.AfterFunc(s.opts.Timeout, s.expire)
	defer s.timer.Stop()

	for {
		s.setState(StateReading)
		n, err := s.conn.Read(chunk)
		if n > 0 {
			if !s.timer.Stop() {
				// the timer already fired and closed the connection
				return nil, ErrSessionTimeout
			}
			s.timer.Reset(s.opts.Timeout)

			s.buf = append(s.buf, chunk[:n]...)
			s.buffered.Store(int64(len(s.buf)))

			s.setState(StateFramingCheck)
			if frame, ok := http.FrameRequest(s.buf); ok {
				s.timer.Stop()
				return http.ParseRequest(frame), nil
			}
			if len(s.buf) > MaxRequestSize {
				return nil, ErrRequestTooLarge
			}
		}
		if err != nil {
			if s.timedOut.Load() {
				return nil, ErrSessionTimeout
			}
			return nil, err
		}
	}
}

func (s *Session) write(resp *http.Response) error {
	out := pools.AcquireOut(len(resp.Body()) + 128)
	defer pools.ReleaseOut(out)
	*out = resp.AppendTo(*out)

	if err := s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout)); err != nil {
		return err
	}
	_, err := s.conn.Write(*out)
	return err
}

// expire runs on the timer goroutine
func (s *Session) expire() {
	s.timedOut.Store(true)
	s.opts.Monitor.RecordTimeout()
	s.opts.Logger.Warn("connection timed out",
		"conn_id", s.id,
		"client", s.client,
		"state", s.State().String(),
		"buffered", s.buffered.Load(),
	)
	s.Close()
}

func (s *Session) logReadError(err error) {
	switch {
	case errors.Is(err, ErrSessionTimeout):
		// already logged by expire
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		s.opts.Logger.Debug("connection closed by peer", "conn_id", s.id, "client", s.client)
	case errors.Is(err, ErrRequestTooLarge):
		s.opts.Logger.Warn("request too large", "conn_id", s.id, "client", s.client, "buffered", len(s.buf))
	default:
		s.opts.Logger.Debug("read failed", "conn_id", s.id, "client", s.client, "error", err)
	}
}

// Close shuts the connection down in both directions and closes it. Safe to
// call any number of times from any goroutine.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosed))
		shutdownConn(s.conn)
		_ = s.conn.Close()
	})
}
