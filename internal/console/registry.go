package console

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AurifyAE/Mac-and-Ro/internal/review"
	"github.com/AurifyAE/Mac-and-Ro/internal/services/upstream"
	"github.com/AurifyAE/Mac-and-Ro/internal/session"
)

// Registry holds one workspace per logged-in session
type Registry struct {
	client   *upstream.Client
	settings Settings
	recorder DecisionRecorder
	logger   *zap.Logger

	mu         sync.Mutex
	workspaces map[string]*Workspace
	opening    map[string]*sync.WaitGroup
	// sessions closed while their workspace was still opening
	cancelled map[string]bool
}

// NewRegistry creates an empty registry. recorder may be nil.
func NewRegistry(client *upstream.Client, settings Settings, recorder DecisionRecorder, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		client:     client,
		settings:   settings,
		recorder:   recorder,
		logger:     logger,
		workspaces: make(map[string]*Workspace),
		opening:    make(map[string]*sync.WaitGroup),
		cancelled:  make(map[string]bool),
	}
}

// Open returns the session's workspace, opening it on first use
func (r *Registry) Open(ctx context.Context, s session.Session) (*Workspace, error) {
	for {
		r.mu.Lock()
		if w, ok := r.workspaces[s.ID]; ok {
			r.mu.Unlock()
			w.Touch()
			return w, nil
		}
		if wg, ok := r.opening[s.ID]; ok {
			r.mu.Unlock()
			wg.Wait()
			continue
		}
		wg := &sync.WaitGroup{}
		wg.Add(1)
		r.opening[s.ID] = wg
		r.mu.Unlock()

		w, err := openWorkspace(ctx, s, r.client, r.settings, r.recorder, r.logger)

		r.mu.Lock()
		delete(r.opening, s.ID)
		cancelled := r.cancelled[s.ID]
		delete(r.cancelled, s.ID)
		if err == nil && !cancelled {
			r.workspaces[s.ID] = w
		}
		r.mu.Unlock()
		wg.Done()

		if err != nil {
			return nil, err
		}
		if cancelled {
			w.Close()
			r.logger.Info("session closed while its workspace was opening", zap.String("session", s.ID))
			return nil, review.ErrClosed
		}
		r.logger.Info("workspace opened", zap.String("session", s.ID))
		return w, nil
	}
}

// Get returns an already open workspace
func (r *Registry) Get(sessionID string) (*Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workspaces[sessionID]
	return w, ok
}

// Close closes and forgets the session's workspace
func (r *Registry) Close(sessionID string) {
	r.mu.Lock()
	w, ok := r.workspaces[sessionID]
	delete(r.workspaces, sessionID)
	if _, opening := r.opening[sessionID]; opening {
		r.cancelled[sessionID] = true
	}
	r.mu.Unlock()

	if ok {
		w.Close()
		r.logger.Info("workspace closed", zap.String("session", sessionID))
	}
}

// Len is the number of open workspaces
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}

func (r *Registry) snapshot() []*Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Workspace, 0, len(r.workspaces))
	for _, w := range r.workspaces {
		out = append(out, w)
	}
	return out
}

// ResyncAll reloads every open workspace. Push delivery is at-most-once, so
// this is the backstop for missed events.
func (r *Registry) ResyncAll(ctx context.Context) int {
	workspaces := r.snapshot()
	for _, w := range workspaces {
		w.Resync(ctx)
	}
	return len(workspaces)
}

// SweepIdle closes workspaces unused for longer than maxIdle
func (r *Registry) SweepIdle(now time.Time, maxIdle time.Duration) int {
	var idle []string
	for _, w := range r.snapshot() {
		if now.Sub(w.IdleSince()) > maxIdle {
			idle = append(idle, w.Session.ID)
		}
	}
	for _, id := range idle {
		r.Close(id)
	}
	if len(idle) > 0 {
		r.logger.Info("closed idle workspaces", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// CloseAll closes every workspace
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.workspaces
	r.workspaces = make(map[string]*Workspace)
	for id := range r.opening {
		r.cancelled[id] = true
	}
	r.mu.Unlock()

	for _, w := range all {
		w.Close()
	}
}
