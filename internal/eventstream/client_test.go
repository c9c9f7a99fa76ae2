package eventstream

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualTimer struct {
	clock   *manualClock
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Fire runs the timer's function unless it was stopped
func (t *manualTimer) Fire() {
	t.clock.mu.Lock()
	if t.stopped || t.fired {
		t.clock.mu.Unlock()
		return
	}
	t.fired = true
	t.clock.mu.Unlock()
	t.fn()
}

type manualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (c *manualClock) Now() time.Time { return time.Now() }

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, delay: d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) scheduled() []*manualTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*manualTimer(nil), c.timers...)
}

func writeEvent(w http.ResponseWriter, payload string) {
	fmt.Fprintf(w, "data: %s\n\n", payload)
	w.(http.Flusher).Flush()
}

func waitDone(t *testing.T, h *Handle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("handle goroutines did not exit")
	}
}

func TestConnectRejectsInvalidURL(t *testing.T) {
	_, err := Connect(context.Background(), "ftp://example.com/events")
	assert.Error(t, err)

	_, err = Connect(context.Background(), "://nope")
	assert.Error(t, err)
}

func TestDispatchesKnownEventsInOrder(t *testing.T) {
	start := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-start
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)

		writeEvent(w, `{"type":"CONNECTION_ESTABLISHED","clientId":"c-1"}`)
		writeEvent(w, `{"type":"KYC_SUBMITTED","message":"new form"}`)
		writeEvent(w, `{"type":"SOMETHING_ELSE"}`)
		writeEvent(w, `{not json`)
		fmt.Fprint(w, ": keep-alive\n\n")
		writeEvent(w, `{"type":"NEW_REQFORM","message":"deposit"}`)

		<-r.Context().Done()
	}))
	defer server.Close()

	received := make(chan Event, 10)
	h, err := Connect(context.Background(), server.URL, WithClock(&manualClock{}))
	require.NoError(t, err)
	h.OnEvent(func(ev Event) { received <- ev }, KYCSubmitted, RequestSubmitted)
	close(start)

	select {
	case <-h.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("stream never became ready")
	}

	var got []Event
	for len(got) < 2 {
		select {
		case ev := <-received:
			got = append(got, ev)
		case <-time.After(2 * time.Second):
			t.Fatalf("expected 2 events, got %d", len(got))
		}
	}

	assert.Equal(t, KYCSubmitted, got[0].Type)
	assert.Equal(t, "new form", got[0].Message)
	assert.Equal(t, RequestSubmitted, got[1].Type)
	assert.Equal(t, "deposit", got[1].Message)
	assert.True(t, h.Connected())

	h.Close()
	waitDone(t, h)
	assert.False(t, h.Connected())
}

func TestCatchAllHandlerSeesEveryKnownEvent(t *testing.T) {
	start := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-start
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "{\"type\":\"KYC_STATUS_CHANGED\"}\n")
		fmt.Fprint(w, "{\"type\":\"REQUEST_STATUS_CHANGED\"}\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer server.Close()

	received := make(chan EventType, 10)
	h, err := Connect(context.Background(), server.URL, WithClock(&manualClock{}))
	require.NoError(t, err)
	h.OnEvent(func(ev Event) { received <- ev.Type })
	close(start)

	assert.Equal(t, KYCStatusChanged, <-received)
	assert.Equal(t, RequestStatusChanged, <-received)

	h.Close()
	waitDone(t, h)
}

func TestReconnectsOnceAfterFixedDelay(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
		writeEvent(w, `{"type":"CONNECTION_ESTABLISHED"}`)
	}))
	defer server.Close()

	clock := &manualClock{}
	h, err := Connect(context.Background(), server.URL, WithClock(clock))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(clock.scheduled()) == 1 }, 2*time.Second, 5*time.Millisecond)
	timers := clock.scheduled()
	assert.Equal(t, DefaultReconnectDelay, timers[0].delay)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	go timers[0].Fire()

	require.Eventually(t, func() bool { return len(clock.scheduled()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.Equal(t, 2, h.Attempts())

	h.Close()
	for _, timer := range clock.scheduled() {
		timer.Fire()
	}
	waitDone(t, h)

	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.Len(t, clock.scheduled(), 2)
}

func TestNonOKStatusSchedulesReconnect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	clock := &manualClock{}
	h, err := Connect(context.Background(), server.URL, WithClock(clock), WithBackoff(ConstantBackoff{Delay: time.Second}))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(clock.scheduled()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, time.Second, clock.scheduled()[0].delay)

	select {
	case <-h.Ready():
		t.Fatal("ready must not fire for a rejected connection")
	default:
	}

	h.Close()
	waitDone(t, h)
}

func TestContextCancellationClosesHandle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	h, err := Connect(ctx, server.URL, WithClock(&manualClock{}))
	require.NoError(t, err)
	<-h.Ready()

	cancel()
	waitDone(t, h)
}

func TestNoHandlerAfterClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer server.Close()

	h, err := Connect(context.Background(), server.URL, WithClock(&manualClock{}))
	require.NoError(t, err)

	var calls int32
	h.OnEvent(func(Event) { atomic.AddInt32(&calls, 1) })

	h.Close()
	h.deliver(Event{Type: KYCSubmitted})
	h.handlePayload([]byte(`{"type":"KYC_SUBMITTED"}`))
	waitDone(t, h)

	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}
