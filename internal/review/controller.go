// Package review implements the approve/reject/reverse workflow shared by the
// KYC and request-form screens.
package review

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/AurifyAE/Mac-and-Ro/internal/eventstream"
	"github.com/AurifyAE/Mac-and-Ro/internal/models"
)

// DefaultTimeout bounds every remote call made by a controller
const DefaultTimeout = 30 * time.Second

// Filter is passed to the backend on load
type Filter struct {
	Status     models.Status `json:"status,omitempty"`
	CustomerID string        `json:"customerId,omitempty"`
}

// Backend performs the remote reads and mutations for one entity kind
type Backend interface {
	List(ctx context.Context, filter Filter) ([]models.ReviewableEntity, error)
	Approve(ctx context.Context, id string, numeric decimal.Decimal) error
	Reject(ctx context.Context, id string, reason string) error
	Reverse(ctx context.Context, id string) error
}

// Notifier shows transient operator messages
type Notifier interface {
	Success(message string)
	Error(message string)
}

// Decision is one operator decision and its outcome
type Decision struct {
	Kind             models.EntityKind
	EntityID         string
	SubjectName      string
	Operation        Operation
	Reason           string
	NumericParameter decimal.NullDecimal
	Err              error
	At               time.Time
}

// Succeeded reports whether the remote mutation went through
func (d Decision) Succeeded() bool { return d.Err == nil }

// Recorder keeps an audit trail of decisions
type Recorder interface {
	Record(ctx context.Context, d Decision) error
}

// Subscriber is the part of an event stream handle a controller binds to
type Subscriber interface {
	OnEvent(fn eventstream.Handler, types ...eventstream.EventType)
}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}

// Option configures a Controller
type Option func(*Controller)

// WithNotifier sets where success and error toasts go
func WithNotifier(n Notifier) Option { return func(c *Controller) { c.notifier = n } }

// WithRecorder stores every decision outcome
func WithRecorder(r Recorder) Option { return func(c *Controller) { c.recorder = r } }

// WithLogger sets the controller logger
func WithLogger(l *zap.Logger) Option { return func(c *Controller) { c.logger = l } }

// WithNow overrides the clock used for reversal checks and decision times
func WithNow(now func() time.Time) Option { return func(c *Controller) { c.now = now } }

// WithTimeout bounds each backend call
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithReversalWindow changes how long a decision can be reversed
func WithReversalWindow(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.window = d
		}
	}
}

// Controller owns the snapshot of one screen's entities and mediates every
// decision taken on them. The snapshot is only ever replaced by a load.
type Controller struct {
	kind     Kind
	backend  Backend
	notifier Notifier
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time
	timeout  time.Duration
	window   time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	entities []models.ReviewableEntity
	filter   Filter
	loading  int
	loadErr  error
	loadedAt time.Time
	issued   uint64
	applied  uint64
	inFlight map[string]Operation
	closed   bool
}

// NewController creates a controller for one entity kind
func NewController(kind Kind, backend Backend, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		kind:     kind,
		backend:  backend,
		notifier: nopNotifier{},
		logger:   zap.NewNop(),
		now:      time.Now,
		timeout:  DefaultTimeout,
		window:   ReversalWindow,
		ctx:      ctx,
		cancel:   cancel,
		inFlight: make(map[string]Operation),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Kind returns the rules the controller was built with
func (c *Controller) Kind() Kind { return c.kind }

// Filter returns the filter of the most recent load
func (c *Controller) Filter() Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// callContext derives a context bounded by the request timeout and the
// controller's lifetime.
func (c *Controller) callContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	stop := context.AfterFunc(c.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Load fetches the collection and replaces the snapshot. On failure the
// previous snapshot stays visible. Responses older than an already applied
// load are discarded.
func (c *Controller) Load(ctx context.Context, filter Filter) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.issued++
	seq := c.issued
	c.filter = filter
	c.loading++
	c.wg.Add(1)
	c.mu.Unlock()
	defer c.wg.Done()

	callCtx, cancel := c.callContext(ctx)
	items, err := c.backend.List(callCtx, filter)
	cancel()

	c.mu.Lock()
	c.loading--
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if seq < c.applied {
		c.mu.Unlock()
		c.logger.Debug("discarding stale load",
			zap.String("kind", string(c.kind.Entity)),
			zap.Uint64("seq", seq))
		return nil
	}
	if err != nil {
		// a failed load still supersedes anything issued before it
		c.applied = seq
		c.loadErr = err
		c.mu.Unlock()
		c.logger.Error("failed to load entities", zap.String("kind", string(c.kind.Entity)), zap.Error(err))
		c.notifier.Error(fmt.Sprintf("Failed to load %s.", c.kind.Plural))
		return fmt.Errorf("failed to load %s: %w", c.kind.Plural, err)
	}
	c.applied = seq
	c.entities = append([]models.ReviewableEntity(nil), items...)
	c.loadErr = nil
	c.loadedAt = c.now()
	c.mu.Unlock()
	return nil
}

// Reload repeats the last load
func (c *Controller) Reload(ctx context.Context) error {
	return c.Load(ctx, c.Filter())
}

// RequestApprove approves a pending entity
func (c *Controller) RequestApprove(ctx context.Context, id string, numeric decimal.Decimal) error {
	if err := c.kind.validateApprove(numeric); err != nil {
		return err
	}
	var param decimal.NullDecimal
	if c.kind.NumericField != "" {
		param = decimal.NewNullDecimal(numeric)
	}
	return c.decide(ctx, OpApprove, id, "", param, func(ctx context.Context) error {
		return c.backend.Approve(ctx, id, numeric)
	})
}

// RequestReject rejects a pending entity. The reason must not be blank.
func (c *Controller) RequestReject(ctx context.Context, id string, reason string) error {
	if err := c.kind.validateReject(reason); err != nil {
		return err
	}
	return c.decide(ctx, OpReject, id, reason, decimal.NullDecimal{}, func(ctx context.Context) error {
		return c.backend.Reject(ctx, id, reason)
	})
}

// RequestReverse sends a decided entity back to pending while the reversal
// window is open.
func (c *Controller) RequestReverse(ctx context.Context, id string) error {
	return c.decide(ctx, OpReverse, id, "", decimal.NullDecimal{}, func(ctx context.Context) error {
		return c.backend.Reverse(ctx, id)
	})
}

func (c *Controller) decide(ctx context.Context, op Operation, id, reason string, param decimal.NullDecimal, call func(context.Context) error) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	entity, ok := c.find(id)
	if !ok {
		c.mu.Unlock()
		return ErrUnknownEntity
	}
	if _, busy := c.inFlight[id]; busy {
		c.mu.Unlock()
		return ErrInFlight
	}
	switch op {
	case OpReverse:
		if !CanReverseWithin(entity, c.now(), c.window) {
			c.mu.Unlock()
			return ErrReversalWindowClosed
		}
	default:
		if entity.Status != models.StatusPending {
			c.mu.Unlock()
			return ErrInvalidTransition
		}
	}
	c.inFlight[id] = op
	c.wg.Add(1)
	c.mu.Unlock()

	defer c.wg.Done()
	defer func() {
		c.mu.Lock()
		delete(c.inFlight, id)
		c.mu.Unlock()
	}()

	callCtx, cancel := c.callContext(ctx)
	err := call(callCtx)
	cancel()

	if c.isClosed() {
		return ErrClosed
	}

	name := entity.DisplayName()
	c.record(ctx, Decision{
		Kind:             c.kind.Entity,
		EntityID:         id,
		SubjectName:      entity.SubjectName,
		Operation:        op,
		Reason:           reason,
		NumericParameter: param,
		Err:              err,
		At:               c.now(),
	})

	if err != nil {
		c.logger.Error("decision failed",
			zap.String("kind", string(c.kind.Entity)),
			zap.String("operation", string(op)),
			zap.String("id", id),
			zap.Error(err))
		c.notifier.Error(c.kind.failureMessage(op, name))
		return fmt.Errorf("failed to %s %s %s: %w", op, c.kind.Noun, id, err)
	}

	c.logger.Info("decision applied",
		zap.String("kind", string(c.kind.Entity)),
		zap.String("operation", string(op)),
		zap.String("id", id))
	c.notifier.Success(c.kind.successMessage(op, name))

	// the entity stays in flight until the snapshot reflects the decision
	if err := c.Reload(ctx); err != nil && !errors.Is(err, ErrClosed) {
		c.logger.Warn("reload after decision failed", zap.String("id", id), zap.Error(err))
	}
	return nil
}

func (c *Controller) record(ctx context.Context, d Decision) {
	if c.recorder == nil {
		return
	}
	rctx, cancel := c.callContext(context.WithoutCancel(ctx))
	defer cancel()
	if err := c.recorder.Record(rctx, d); err != nil {
		c.logger.Warn("failed to record decision", zap.String("id", d.EntityID), zap.Error(err))
	}
}

func (c *Controller) find(id string) (models.ReviewableEntity, bool) {
	for _, e := range c.entities {
		if e.ID == id {
			return e, true
		}
	}
	return models.ReviewableEntity{}, false
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Actions lists the controls offered for an entity
type Actions struct {
	Approve bool `json:"approve"`
	Reject  bool `json:"reject"`
	Reverse bool `json:"reverse"`
}

// Actions reports which decisions are offered for entity at now
func (c *Controller) Actions(entity models.ReviewableEntity, now time.Time) Actions {
	c.mu.Lock()
	_, busy := c.inFlight[entity.ID]
	c.mu.Unlock()
	return actionsFor(entity, now, c.window, busy)
}

func actionsFor(e models.ReviewableEntity, now time.Time, window time.Duration, busy bool) Actions {
	if busy {
		return Actions{}
	}
	pending := e.Status == models.StatusPending
	return Actions{
		Approve: pending,
		Reject:  pending,
		Reverse: CanReverseWithin(e, now, window),
	}
}

// Row is one visible entity with its offered controls
type Row struct {
	Entity   models.ReviewableEntity `json:"entity"`
	Actions  Actions                 `json:"actions"`
	InFlight bool                    `json:"inFlight"`
}

// View is the rendered state of a controller for a set of criteria
type View struct {
	Rows     []Row     `json:"rows"`
	Counts   Counts    `json:"counts"`
	Loading  bool      `json:"loading"`
	Error    string    `json:"error,omitempty"`
	LoadedAt time.Time `json:"loadedAt"`
}

// Snapshot returns a copy of the entities from the last applied load
func (c *Controller) Snapshot() []models.ReviewableEntity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.ReviewableEntity(nil), c.entities...)
}

// Loading reports whether a load is outstanding
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading > 0
}

// Err returns the error of the last failed load, cleared by the next success
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadErr
}

// View projects the snapshot through criteria
func (c *Controller) View(criteria Criteria) View {
	now := c.now()

	c.mu.Lock()
	entities := c.entities
	busy := make(map[string]bool, len(c.inFlight))
	for id := range c.inFlight {
		busy[id] = true
	}
	v := View{Loading: c.loading > 0, LoadedAt: c.loadedAt}
	if c.loadErr != nil {
		v.Error = c.loadErr.Error()
	}
	c.mu.Unlock()

	visible := Project(entities, criteria)
	v.Counts = Count(entities)
	v.Rows = make([]Row, 0, len(visible))
	for _, e := range visible {
		v.Rows = append(v.Rows, Row{
			Entity:   e,
			Actions:  actionsFor(e, now, c.window, busy[e.ID]),
			InFlight: busy[e.ID],
		})
	}
	return v
}

// BindEvents reloads the snapshot whenever src delivers an event relevant to
// this kind, and surfaces submissions as notifications.
func (c *Controller) BindEvents(src Subscriber) {
	src.OnEvent(c.handleEvent, c.kind.ReloadOn...)
}

func (c *Controller) handleEvent(ev eventstream.Event) {
	if c.isClosed() {
		return
	}
	if msg, ok := c.kind.eventMessage(ev); ok {
		c.notifier.Success(msg)
	}
	if err := c.Reload(c.ctx); err != nil && !errors.Is(err, ErrClosed) {
		c.logger.Warn("reload after push event failed",
			zap.String("event", string(ev.Type)),
			zap.Error(err))
	}
}

// Close discards every result that resolves afterwards and waits for
// outstanding calls to return.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}
