// Package console ties an operator session to its review controllers, push
// connections and notification hub.
package console

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/AurifyAE/Mac-and-Ro/internal/config"
	"github.com/AurifyAE/Mac-and-Ro/internal/eventstream"
	"github.com/AurifyAE/Mac-and-Ro/internal/models"
	"github.com/AurifyAE/Mac-and-Ro/internal/notify"
	"github.com/AurifyAE/Mac-and-Ro/internal/review"
	"github.com/AurifyAE/Mac-and-Ro/internal/security/audit"
	"github.com/AurifyAE/Mac-and-Ro/internal/services/upstream"
	"github.com/AurifyAE/Mac-and-Ro/internal/session"
)

// DecisionRecorder stores decisions together with the operator who took them
type DecisionRecorder interface {
	Recorder(actor audit.Actor) review.Recorder
}

// Settings configures the workspaces a Registry opens
type Settings struct {
	EventsURL       string
	Backoff         eventstream.Backoff
	QueueSize       int
	RequestTimeout  time.Duration
	ReversalWindow  time.Duration
	NotificationTTL time.Duration
	// StreamTransport is the base transport for push connections
	StreamTransport http.RoundTripper
}

// BackoffFor picks the reconnect policy configured for push connections
func BackoffFor(cfg config.EventsConfig) eventstream.Backoff {
	if cfg.Backoff == "exponential" {
		return eventstream.ExponentialBackoff{Base: cfg.ReconnectDelay, Max: cfg.MaxDelay, Jitter: 0.2}
	}
	return eventstream.ConstantBackoff{Delay: cfg.ReconnectDelay}
}

// Workspace is everything one logged-in operator is looking at
type Workspace struct {
	Session  session.Session
	Client   *upstream.Client
	Hub      *notify.Hub
	KYC      *review.Controller
	Requests *review.Controller

	streams []*eventstream.Handle
	logger  *zap.Logger

	mu       sync.Mutex
	lastUsed time.Time
	closed   bool
}

func openWorkspace(ctx context.Context, s session.Session, base *upstream.Client, settings Settings, recorder DecisionRecorder, logger *zap.Logger) (*Workspace, error) {
	ts := session.TokenSource(s)
	client := base.WithTokenSource(ts)
	logger = logger.With(zap.String("session", s.ID), zap.String("operator", s.Actor()))

	hub := notify.NewHub(settings.NotificationTTL, logger)
	opts := []review.Option{
		review.WithNotifier(hub),
		review.WithLogger(logger),
		review.WithTimeout(settings.RequestTimeout),
		review.WithReversalWindow(settings.ReversalWindow),
	}
	if recorder != nil {
		opts = append(opts, review.WithRecorder(recorder.Recorder(audit.Actor{
			UserID:   s.UserID,
			Username: s.Actor(),
			Role:     s.Role,
		})))
	}

	w := &Workspace{
		Session:  s,
		Client:   client,
		Hub:      hub,
		KYC:      review.NewController(review.KYC, NewKYCBackend(client, s), opts...),
		Requests: review.NewController(review.Requests, NewRequestBackend(client), opts...),
		logger:   logger,
		lastUsed: time.Now(),
	}

	if settings.EventsURL != "" {
		transport := settings.StreamTransport
		if transport == nil {
			transport = http.DefaultTransport
		}
		streamClient := &http.Client{Transport: &oauth2.Transport{Source: ts, Base: transport}}

		for _, c := range []*review.Controller{w.KYC, w.Requests} {
			streamOpts := []eventstream.Option{
				eventstream.WithHTTPClient(streamClient),
				eventstream.WithLogger(logger.With(zap.String("screen", string(c.Kind().Entity)))),
				eventstream.WithQueueSize(settings.QueueSize),
			}
			if settings.Backoff != nil {
				streamOpts = append(streamOpts, eventstream.WithBackoff(settings.Backoff))
			}
			h, err := eventstream.Connect(context.Background(), settings.EventsURL, streamOpts...)
			if err != nil {
				w.Close()
				return nil, err
			}
			c.BindEvents(h)
			w.streams = append(w.streams, h)
		}
	}

	for _, c := range []*review.Controller{w.KYC, w.Requests} {
		if err := c.Load(ctx, review.Filter{}); err != nil {
			logger.Warn("initial load failed", zap.String("kind", string(c.Kind().Entity)), zap.Error(err))
		}
	}
	return w, nil
}

// Controller returns the controller for an entity kind
func (w *Workspace) Controller(kind models.EntityKind) (*review.Controller, bool) {
	switch kind {
	case models.KindKYC:
		return w.KYC, true
	case models.KindRequest:
		return w.Requests, true
	}
	return nil, false
}

// Touch marks the workspace as used
func (w *Workspace) Touch() {
	w.mu.Lock()
	w.lastUsed = time.Now()
	w.mu.Unlock()
}

// IdleSince returns when the workspace was last used
func (w *Workspace) IdleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastUsed
}

// Connected reports whether every push connection is currently open
func (w *Workspace) Connected() bool {
	if len(w.streams) == 0 {
		return false
	}
	for _, h := range w.streams {
		if !h.Connected() {
			return false
		}
	}
	return true
}

// Resync reloads both controllers with their current filters
func (w *Workspace) Resync(ctx context.Context) {
	for _, c := range []*review.Controller{w.KYC, w.Requests} {
		if err := c.Reload(ctx); err != nil {
			w.logger.Warn("resync failed", zap.String("kind", string(c.Kind().Entity)), zap.Error(err))
		}
	}
}

// Close stops the push connections first so no event reaches a closed controller
func (w *Workspace) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()

	for _, h := range w.streams {
		h.Close()
	}
	w.KYC.Close()
	w.Requests.Close()
	for _, h := range w.streams {
		<-h.Done()
	}
	w.Hub.Close()
}
