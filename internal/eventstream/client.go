// Package eventstream keeps a long-lived server-push (text/event-stream)
// connection to the exchange backend and dispatches typed envelopes to
// registered handlers, reconnecting after transport failures.
package eventstream

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const maxEventSize = 1 << 20

// Handler receives one event. Handlers run one at a time in arrival order.
type Handler func(Event)

// TransportError describes a failed or dropped push connection
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("event stream %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("event stream %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

type options struct {
	client    *http.Client
	backoff   Backoff
	clock     Clock
	logger    *zap.Logger
	queueSize int
	header    http.Header
}

// Option configures a Handle
type Option func(*options)

// WithHTTPClient sets the client used for the stream. It must not carry a
// Timeout, the connection is expected to stay open indefinitely.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// WithBackoff replaces the fixed reconnect delay
func WithBackoff(b Backoff) Option {
	return func(o *options) { o.backoff = b }
}

// WithClock injects the clock used for reconnect timers
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithQueueSize bounds the number of decoded events waiting for handlers
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithHeader adds a request header to every connection attempt
func WithHeader(key, value string) Option {
	return func(o *options) { o.header.Add(key, value) }
}

// Handle is one logical push connection
type Handle struct {
	url  string
	opts options

	ctx     context.Context
	cancel  context.CancelFunc
	stopCtx func() bool

	mu         sync.Mutex
	handlers   map[EventType][]Handler
	catchAll   []Handler
	closed     bool
	connected  bool
	failures   int
	attempts   int
	timer      Timer
	connCancel context.CancelFunc

	ready     chan struct{}
	readyOnce sync.Once
	queue     chan Event
	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
}

// Connect opens a push connection to endpointURL and returns immediately; the
// first attempt runs in the background. Cancelling ctx closes the handle.
func Connect(ctx context.Context, endpointURL string, opts ...Option) (*Handle, error) {
	u, err := url.Parse(endpointURL)
	if err != nil {
		return nil, fmt.Errorf("invalid event stream URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid event stream URL %q: scheme must be http or https", endpointURL)
	}

	o := options{
		client:    &http.Client{},
		backoff:   ConstantBackoff{Delay: DefaultReconnectDelay},
		clock:     realClock{},
		logger:    zap.NewNop(),
		queueSize: 64,
		header:    make(http.Header),
	}
	for _, opt := range opts {
		opt(&o)
	}

	hctx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		url:      endpointURL,
		opts:     o,
		ctx:      hctx,
		cancel:   cancel,
		handlers: make(map[EventType][]Handler),
		ready:    make(chan struct{}),
		queue:    make(chan Event, o.queueSize),
		done:     make(chan struct{}),
	}
	if ctx != nil {
		h.stopCtx = context.AfterFunc(ctx, h.Close)
	}

	h.wg.Add(2)
	go h.dispatch()
	go h.dial()

	return h, nil
}

// OnEvent registers fn for the given event types, or for every known type
// when none are given. Registrations survive reconnects.
func (h *Handle) OnEvent(fn Handler, types ...EventType) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(types) == 0 {
		h.catchAll = append(h.catchAll, fn)
		return
	}
	for _, t := range types {
		h.handlers[t] = append(h.handlers[t], fn)
	}
}

// Ready is closed once the first connection has been accepted
func (h *Handle) Ready() <-chan struct{} {
	return h.ready
}

// Done is closed once every goroutine owned by the handle has exited after Close
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Connected reports whether a connection is currently open
func (h *Handle) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected
}

// Attempts is the number of connection attempts made so far
func (h *Handle) Attempts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.attempts
}

// URL is the endpoint this handle connects to
func (h *Handle) URL() string {
	return h.url
}

// Close tears down the connection and cancels any pending reconnect. No
// handler is invoked after Close returns.
func (h *Handle) Close() {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.closed = true
		h.connected = false
		if h.timer != nil && h.timer.Stop() {
			h.wg.Done()
		}
		h.timer = nil
		if h.connCancel != nil {
			h.connCancel()
		}
		h.mu.Unlock()

		h.cancel()
		if h.stopCtx != nil {
			h.stopCtx()
		}

		go func() {
			h.wg.Wait()
			close(h.done)
		}()

		h.opts.logger.Info("event stream closed", zap.String("url", h.url))
	})
}

func (h *Handle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// dial runs one connection attempt and schedules the next one when it ends
func (h *Handle) dial() {
	defer h.wg.Done()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(h.ctx)
	h.connCancel = cancel
	h.attempts++
	attempt := h.attempts
	h.mu.Unlock()

	err := h.stream(ctx)
	cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	h.connected = false
	h.connCancel = nil
	if h.closed {
		return
	}

	delay := h.opts.backoff.Next(h.failures)
	h.failures++
	h.opts.logger.Warn("event stream disconnected, reconnecting",
		zap.String("url", h.url),
		zap.Int("attempt", attempt),
		zap.Duration("delay", delay),
		zap.Error(err))

	h.wg.Add(1)
	h.timer = h.opts.clock.AfterFunc(delay, h.dial)
}

func (h *Handle) stream(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	for key, values := range h.opts.header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := h.opts.client.Do(req)
	if err != nil {
		return &TransportError{URL: h.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &TransportError{URL: h.url, StatusCode: resp.StatusCode}
	}

	h.mu.Lock()
	h.connected = true
	h.failures = 0
	h.mu.Unlock()
	h.readyOnce.Do(func() { close(h.ready) })
	h.opts.logger.Info("event stream connected", zap.String("url", h.url))

	return h.read(ctx, resp.Body)
}

// read consumes SSE frames. Bare newline-delimited JSON lines are accepted too.
func (h *Handle) read(ctx context.Context, body io.Reader) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	var data bytes.Buffer
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data.Len() > 0 {
				h.handlePayload(data.Bytes())
				data.Reset()
			}
		case strings.HasPrefix(line, ":"):
			// comment / keep-alive
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case strings.HasPrefix(line, "{"):
			h.handlePayload([]byte(line))
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransportError{URL: h.url, Err: err}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &TransportError{URL: h.url, Err: io.ErrUnexpectedEOF}
}

func (h *Handle) handlePayload(data []byte) {
	ev, err := Decode(data)
	if err != nil {
		h.opts.logger.Warn("discarding malformed event", zap.Error(err), zap.Int("bytes", len(data)))
		return
	}
	if !ev.Type.Known() {
		h.opts.logger.Debug("ignoring unknown event type", zap.String("type", string(ev.Type)))
		return
	}
	ev.ReceivedAt = h.opts.clock.Now()

	select {
	case h.queue <- ev:
	case <-h.ctx.Done():
	default:
		h.opts.logger.Warn("event queue full, dropping event", zap.String("type", string(ev.Type)))
	}
}

func (h *Handle) dispatch() {
	defer h.wg.Done()

	for {
		select {
		case <-h.ctx.Done():
			return
		case ev := <-h.queue:
			h.deliver(ev)
		}
	}
}

func (h *Handle) deliver(ev Event) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	targets := make([]Handler, 0, len(h.handlers[ev.Type])+len(h.catchAll))
	targets = append(targets, h.handlers[ev.Type]...)
	targets = append(targets, h.catchAll...)
	h.mu.Unlock()

	for _, fn := range targets {
		if h.isClosed() {
			return
		}
		h.invoke(fn, ev)
	}
}

func (h *Handle) invoke(fn Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			h.opts.logger.Error("event handler panicked", zap.String("type", string(ev.Type)), zap.Any("panic", r))
		}
	}()
	fn(ev)
}
