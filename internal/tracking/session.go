package tracking

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"pharmacy-dashboard/internal/api"
	"pharmacy-dashboard/models"
)

// ConnectionState is the lifecycle state of a tracking stream.
type ConnectionState string

const (
	StateConnecting ConnectionState = "connecting"
	StateOpen       ConnectionState = "open"
	StateErrored    ConnectionState = "errored"
	StateClosed     ConnectionState = "closed"
)

// heartbeatSentinel is the keep-alive payload the backend sends on connect
// and between frames. It refreshes connectivity but carries no telemetry.
const heartbeatSentinel = ":connected"

// Logger is the subset of *log.Logger the session uses for dropped frames
// and reconnect notices.
type Logger interface {
	Printf(format string, v ...any)
}

// Options tune a Session beyond its required fields.
type Options struct {
	HTTPClient *http.Client
	// Observer is invoked synchronously once per valid frame. The consumer
	// uses it to spot terminal "delivered" telemetry and refresh the order
	// list; it must not block.
	Observer func(models.TrackingFrame)
	Logger   Logger

	// Reconnect backoff. Defaults: 1s initial, 30s cap. The delay doubles
	// per failed attempt and resets after a successfully delivered frame.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Session maintains the live delivery telemetry feed for exactly one order.
// It dials the backend's per-order SSE endpoint, parses frames into `latest`,
// and reconnects with capped exponential backoff on transport errors. Closed
// is terminal: no frame is applied after Close returns.
type Session struct {
	orderID  string
	baseURL  string
	tokens   api.TokenSource
	httpc    *http.Client
	observer func(models.TrackingFrame)
	logger   Logger

	initialBackoff time.Duration
	maxBackoff     time.Duration

	mu        sync.RWMutex
	state     ConnectionState
	latest    *models.TrackingFrame
	cancel    context.CancelFunc
	done      chan struct{}
	started   bool
	frameSeen bool // guards backoff reset
}

// NewSession creates a Session for orderID against the backend base URL
// (including the /api prefix). Call Start to begin streaming.
func NewSession(baseURL, orderID string, tokens api.TokenSource, opts Options) *Session {
	httpc := opts.HTTPClient
	if httpc == nil {
		// No overall client timeout: the stream is long-lived. The handshake
		// alone is bounded.
		httpc = &http.Client{Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: 15 * time.Second,
		}}
	}
	initial := opts.InitialBackoff
	if initial <= 0 {
		initial = time.Second
	}
	max := opts.MaxBackoff
	if max <= 0 {
		max = 30 * time.Second
	}
	return &Session{
		orderID:        orderID,
		baseURL:        strings.TrimRight(baseURL, "/"),
		tokens:         tokens,
		httpc:          httpc,
		observer:       opts.Observer,
		logger:         opts.Logger,
		initialBackoff: initial,
		maxBackoff:     max,
		state:          StateConnecting,
		done:           make(chan struct{}),
	}
}

// OrderID returns the order this session is scoped to.
func (s *Session) OrderID() string { return s.orderID }

// State returns the current connection state.
func (s *Session) State() ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Latest returns the most recently applied frame, or nil before the first
// valid frame arrives.
func (s *Session) Latest() *models.TrackingFrame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Start begins streaming in a background goroutine. It is a no-op after the
// first call and after Close.
func (s *Session) Start() {
	s.mu.Lock()
	if s.started || s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.started = true
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()
	go s.run(ctx)
}

// Close tears the stream down. It aborts any in-flight reconnect, waits for
// the streaming goroutine to exit, and guarantees no frame is applied
// afterwards. Safe to call multiple times.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	cancel := s.cancel
	started := s.started
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if started {
		<-s.done
	} else {
		close(s.done)
	}
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	backoff := s.initialBackoff
	for {
		err := s.streamOnce(ctx)
		if ctx.Err() != nil {
			return
		}

		// A connection that delivered frames was healthy; retry eagerly.
		s.mu.Lock()
		if s.frameSeen {
			backoff = s.initialBackoff
			s.frameSeen = false
		}
		s.mu.Unlock()

		s.setState(StateErrored)
		s.logf("tracking stream for order %s interrupted: %v; retrying in %s", s.orderID, err, backoff)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > s.maxBackoff {
			backoff = s.maxBackoff
		}
	}
}

// streamOnce dials the stream and consumes it until the transport fails or
// the session context is cancelled.
func (s *Session) streamOnce(ctx context.Context) error {
	s.setState(StateConnecting)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.streamURL(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream handshake: unexpected status %d", resp.StatusCode)
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 4096), 256*1024)

	var data []string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if len(data) > 0 {
				s.handlePayload(strings.Join(data, "\n"))
				data = data[:0]
			}
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case strings.HasPrefix(line, ":"):
			// SSE comment, a transport-level keep-alive
		default:
			// event:/id:/retry: fields are not used by this stream
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return errors.New("stream closed by server")
}

// handlePayload applies one event payload: heartbeats are ignored, malformed
// payloads are logged and dropped, valid frames win unconditionally
// (last-write-wins; the transport delivers in order per connection).
func (s *Session) handlePayload(payload string) {
	if payload == heartbeatSentinel {
		return
	}
	var frame models.TrackingFrame
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		s.logf("dropping malformed tracking payload for order %s: %v", s.orderID, err)
		return
	}

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateOpen
	s.latest = &frame
	s.frameSeen = true
	observer := s.observer
	s.mu.Unlock()

	if observer != nil {
		observer(frame)
	}
}

// streamURL builds the per-order endpoint. SSE cannot carry arbitrary
// headers, so the bearer token travels as a query parameter, read fresh at
// each dial so reconnects pick up a rotated token.
func (s *Session) streamURL() string {
	u := s.baseURL + "/deliveries/" + url.PathEscape(s.orderID) + "/stream"
	if tok := s.tokens.Token(); tok != "" {
		u += "?token=" + url.QueryEscape(tok)
	}
	return u
}

func (s *Session) setState(st ConnectionState) {
	s.mu.Lock()
	if s.state != StateClosed {
		s.state = st
	}
	s.mu.Unlock()
}

func (s *Session) logf(format string, v ...any) {
	if s.logger != nil {
		s.logger.Printf(format, v...)
	}
}
