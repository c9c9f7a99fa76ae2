package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/AurifyAE/Mac-and-Ro/internal/config"
	"github.com/AurifyAE/Mac-and-Ro/internal/console"
	"github.com/AurifyAE/Mac-and-Ro/internal/database"
	"github.com/AurifyAE/Mac-and-Ro/internal/models"
	"github.com/AurifyAE/Mac-and-Ro/internal/review"
	"github.com/AurifyAE/Mac-and-Ro/internal/security/audit"
	"github.com/AurifyAE/Mac-and-Ro/internal/services/upstream"
	"github.com/AurifyAE/Mac-and-Ro/internal/session"
)

const currentFile = "current"

var errNotLoggedIn = errors.New("not logged in, run `consolectl login` first")

// app carries what every subcommand shares
type app struct {
	stateDir string
	jsonOut  bool
	verbose  bool

	cfg      *config.Config
	logger   *zap.Logger
	client   *upstream.Client
	sessions *session.Manager
	db       *gorm.DB
}

func (a *app) init() error {
	a.cfg = config.LoadConfig()

	a.logger = zap.NewNop()
	if a.verbose {
		if l, err := zap.NewDevelopment(); err == nil {
			a.logger = l
		}
	}

	if a.stateDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("failed to locate config dir: %w", err)
		}
		a.stateDir = filepath.Join(dir, "consolectl")
	}
	store, err := session.NewFileStore(filepath.Join(a.stateDir, "sessions"))
	if err != nil {
		return err
	}

	a.client = upstream.NewClient(a.cfg.Upstream.BaseURL,
		upstream.WithRateLimit(a.cfg.Upstream.RequestsPerSec, a.cfg.Upstream.Burst),
		upstream.WithTimeout(a.cfg.Upstream.RequestTimeout),
		upstream.WithLogger(a.logger),
	)
	a.sessions = session.NewManager(store, session.NewSealer(a.cfg.Session.SealKey), a.client, session.ManagerConfig{
		TTL:        a.cfg.Session.TTL,
		TOTPSecret: a.cfg.Session.TOTPSecret,
		TOTPPeriod: a.cfg.Security.MFAPeriod,
		TOTPSkew:   a.cfg.Security.MFASkew,
	}, a.logger)
	return nil
}

func (a *app) close() {
	if err := database.Close(a.db); err != nil {
		a.logger.Warn("failed to close database", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func (a *app) saveCurrent(id string) error {
	return os.WriteFile(filepath.Join(a.stateDir, currentFile), []byte(id), 0o600)
}

func (a *app) currentID() string {
	raw, err := os.ReadFile(filepath.Join(a.stateDir, currentFile))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

func (a *app) forgetCurrent() error {
	err := os.Remove(filepath.Join(a.stateDir, currentFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// current resolves the saved session
func (a *app) current(ctx context.Context) (session.Session, error) {
	s, err := a.sessions.Current(ctx, a.currentID())
	if errors.Is(err, session.ErrNotAuthenticated) {
		return session.Session{}, errNotLoggedIn
	}
	return s, err
}

// recorder returns the decision audit trail when a database is configured
func (a *app) recorder(s session.Session) review.Recorder {
	if a.db == nil {
		db, err := database.InitDB(a.cfg.Database, false, a.logger)
		if err != nil {
			a.logger.Warn("audit trail unavailable", zap.Error(err))
			return nil
		}
		a.db = db
	}
	if a.db == nil {
		return nil
	}
	return audit.NewLogger(a.db).Recorder(audit.Actor{UserID: s.UserID, Username: s.Actor(), Role: s.Role})
}

// controller builds a review controller for kind bound to the saved session
// and loads it with filter.
func (a *app) controller(ctx context.Context, kind review.Kind, filter review.Filter, out io.Writer) (*review.Controller, error) {
	s, err := a.current(ctx)
	if err != nil {
		return nil, err
	}
	backend, ok := console.BackendFor(kind.Entity, a.client.WithTokenSource(session.TokenSource(s)), s)
	if !ok {
		return nil, fmt.Errorf("unsupported entity kind %q", kind.Entity)
	}

	opts := []review.Option{
		review.WithNotifier(printNotifier{w: out}),
		review.WithLogger(a.logger),
		review.WithTimeout(a.cfg.Upstream.RequestTimeout),
		review.WithReversalWindow(a.cfg.Review.ReversalWindow),
	}
	if r := a.recorder(s); r != nil {
		opts = append(opts, review.WithRecorder(r))
	}

	c := review.NewController(kind, backend, opts...)
	if err := c.Load(ctx, filter); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to load %s: %w", kind.Plural, err)
	}
	return c, nil
}

// printNotifier writes operator notifications as plain lines
type printNotifier struct {
	w io.Writer
}

func (p printNotifier) Success(message string) { fmt.Fprintln(p.w, "ok:", message) }
func (p printNotifier) Error(message string)   { fmt.Fprintln(p.w, "error:", message) }

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func statusFilter(status string) (review.Filter, error) {
	if status == "" || status == review.All {
		return review.Filter{}, nil
	}
	s := models.Status(strings.ToLower(status))
	if !s.Valid() {
		return review.Filter{}, fmt.Errorf("unknown status %q", status)
	}
	return review.Filter{Status: s}, nil
}
