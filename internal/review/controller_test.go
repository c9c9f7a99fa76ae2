package review

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/AurifyAE/Mac-and-Ro/internal/eventstream"
	"github.com/AurifyAE/Mac-and-Ro/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeBackend keeps entities in memory and applies decisions the way the
// exchange backend does.
type fakeBackend struct {
	mu        sync.Mutex
	entities  []models.ReviewableEntity
	now       func() time.Time
	listErr   error
	mutateErr error
	// hold, when set, blocks mutations until closed or ctx is done
	hold chan struct{}
	// listHook replaces List entirely when set
	listHook func(ctx context.Context, n int) ([]models.ReviewableEntity, error)

	lists   int
	mutates []string
}

func newFakeBackend(entities ...models.ReviewableEntity) *fakeBackend {
	return &fakeBackend{entities: entities, now: func() time.Time { return baseTime }}
}

func (b *fakeBackend) List(ctx context.Context, filter Filter) ([]models.ReviewableEntity, error) {
	b.mu.Lock()
	b.lists++
	n := b.lists
	hook := b.listHook
	err := b.listErr
	out := append([]models.ReviewableEntity(nil), b.entities...)
	b.mu.Unlock()

	if hook != nil {
		return hook(ctx, n)
	}
	if err != nil {
		return nil, err
	}
	if filter.Status != "" {
		out = Project(out, Criteria{Status: string(filter.Status)})
	}
	return out, nil
}

func (b *fakeBackend) mutate(ctx context.Context, op, id string, apply func(*models.ReviewableEntity)) error {
	b.mu.Lock()
	b.mutates = append(b.mutates, op+":"+id)
	hold := b.hold
	err := b.mutateErr
	b.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.entities {
		if b.entities[i].ID == id {
			apply(&b.entities[i])
		}
	}
	return nil
}

func (b *fakeBackend) Approve(ctx context.Context, id string, numeric decimal.Decimal) error {
	return b.mutate(ctx, "approve", id, func(e *models.ReviewableEntity) {
		ts := b.now()
		e.Status = models.StatusApproved
		e.ActionTimestamp = &ts
		e.NumericParameter = decimal.NewNullDecimal(numeric)
	})
}

func (b *fakeBackend) Reject(ctx context.Context, id string, reason string) error {
	return b.mutate(ctx, "reject", id, func(e *models.ReviewableEntity) {
		ts := b.now()
		e.Status = models.StatusRejected
		e.ActionTimestamp = &ts
		e.Reason = reason
	})
}

func (b *fakeBackend) Reverse(ctx context.Context, id string) error {
	return b.mutate(ctx, "reverse", id, func(e *models.ReviewableEntity) {
		e.Status = models.StatusPending
		e.ActionTimestamp = nil
	})
}

func (b *fakeBackend) mutations() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.mutates...)
}

func (b *fakeBackend) listCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lists
}

type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (n *recordingNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, msg)
}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func (n *recordingNotifier) snapshot() ([]string, []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.successes...), append([]string(nil), n.errors...)
}

type recordingRecorder struct {
	mu        sync.Mutex
	decisions []Decision
}

func (r *recordingRecorder) Record(_ context.Context, d Decision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions = append(r.decisions, d)
	return nil
}

type fakeSubscriber struct {
	handler eventstream.Handler
	types   []eventstream.EventType
}

func (s *fakeSubscriber) OnEvent(fn eventstream.Handler, types ...eventstream.EventType) {
	s.handler = fn
	s.types = types
}

func (s *fakeSubscriber) emit(ev eventstream.Event) {
	for _, t := range s.types {
		if t == ev.Type {
			s.handler(ev)
			return
		}
	}
}

func pending(id, name string) models.ReviewableEntity {
	return models.ReviewableEntity{ID: id, Status: models.StatusPending, SubjectName: name}
}

func newTestController(t *testing.T, kind Kind, backend *fakeBackend, opts ...Option) (*Controller, *recordingNotifier) {
	t.Helper()
	notifier := &recordingNotifier{}
	all := append([]Option{WithNotifier(notifier), WithNow(func() time.Time { return baseTime })}, opts...)
	c := NewController(kind, backend, all...)
	t.Cleanup(c.Close)
	return c, notifier
}

func loaded(t *testing.T, kind Kind, backend *fakeBackend, opts ...Option) (*Controller, *recordingNotifier) {
	t.Helper()
	c, n := newTestController(t, kind, backend, opts...)
	require.NoError(t, c.Load(context.Background(), Filter{}))
	return c, n
}

func TestLoadReplacesSnapshot(t *testing.T) {
	backend := newFakeBackend(pending("1", "Amal"), pending("2", "Bilal"))
	c, _ := loaded(t, KYC, backend)
	assert.Equal(t, []string{"1", "2"}, ids(c.Snapshot()))

	backend.mu.Lock()
	backend.entities = []models.ReviewableEntity{pending("3", "Chitra")}
	backend.mu.Unlock()

	require.NoError(t, c.Reload(context.Background()))
	assert.Equal(t, []string{"3"}, ids(c.Snapshot()))
	assert.NoError(t, c.Err())
}

func TestLoadTwiceIsIdempotent(t *testing.T) {
	backend := newFakeBackend(pending("1", "Amal"), pending("2", "Bilal"), decided(models.StatusApproved, time.Minute))
	c, _ := loaded(t, KYC, backend)
	first := c.View(Criteria{})

	require.NoError(t, c.Reload(context.Background()))
	second := c.View(Criteria{})

	if diff := cmp.Diff(first.Rows, second.Rows); diff != "" {
		t.Errorf("reload changed projection (-first +second):\n%s", diff)
	}
}

func TestLoadingFlagDuringLoad(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	backend := newFakeBackend(pending("1", "Amal"))
	backend.listHook = func(ctx context.Context, n int) ([]models.ReviewableEntity, error) {
		close(started)
		<-release
		return []models.ReviewableEntity{pending("1", "Amal")}, nil
	}
	c, _ := newTestController(t, KYC, backend)

	errc := make(chan error, 1)
	go func() { errc <- c.Load(context.Background(), Filter{}) }()

	<-started
	assert.True(t, c.Loading())
	assert.True(t, c.View(Criteria{}).Loading)

	close(release)
	require.NoError(t, <-errc)
	assert.False(t, c.Loading())
}

func TestLoadFailureKeepsPreviousSnapshot(t *testing.T) {
	backend := newFakeBackend(pending("1", "Amal"))
	c, notifier := loaded(t, KYC, backend)

	boom := errors.New("backend down")
	backend.mu.Lock()
	backend.listErr = boom
	backend.mu.Unlock()

	err := c.Reload(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"1"}, ids(c.Snapshot()))
	assert.ErrorIs(t, c.Err(), boom)
	assert.Equal(t, "backend down", c.View(Criteria{}).Error)

	_, errs := notifier.snapshot()
	assert.Equal(t, []string{"Failed to load KYC forms."}, errs)
}

func TestStaleLoadIsDiscarded(t *testing.T) {
	slow := make(chan struct{})
	backend := newFakeBackend()
	backend.listHook = func(ctx context.Context, n int) ([]models.ReviewableEntity, error) {
		if n == 1 {
			<-slow
			return []models.ReviewableEntity{pending("old", "Old")}, nil
		}
		return []models.ReviewableEntity{pending("new", "New")}, nil
	}
	c, _ := newTestController(t, Requests, backend)

	errc := make(chan error, 1)
	go func() { errc <- c.Load(context.Background(), Filter{}) }()
	require.Eventually(t, func() bool { return backend.listCalls() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, c.Load(context.Background(), Filter{}))
	close(slow)
	require.NoError(t, <-errc)

	assert.Equal(t, []string{"new"}, ids(c.Snapshot()))
}

func TestFailedNewerLoadDiscardsOlderResponse(t *testing.T) {
	slow := make(chan struct{})
	backend := newFakeBackend()
	backend.listHook = func(ctx context.Context, n int) ([]models.ReviewableEntity, error) {
		if n == 1 {
			<-slow
			return []models.ReviewableEntity{pending("old", "Old")}, nil
		}
		return nil, errors.New("boom")
	}
	c, notifier := newTestController(t, KYC, backend)

	errc := make(chan error, 1)
	go func() { errc <- c.Load(context.Background(), Filter{Status: models.StatusPending}) }()
	require.Eventually(t, func() bool { return backend.listCalls() == 1 }, time.Second, time.Millisecond)

	require.Error(t, c.Load(context.Background(), Filter{Status: models.StatusApproved}))
	close(slow)
	require.NoError(t, <-errc)

	assert.Empty(t, c.Snapshot())
	assert.Error(t, c.Err())
	assert.Equal(t, models.StatusApproved, c.Filter().Status)
	_, errs := notifier.snapshot()
	assert.Equal(t, []string{"Failed to load KYC forms."}, errs)
}

func TestRejectValidation(t *testing.T) {
	backend := newFakeBackend(pending("1", "Amal"))
	c, _ := loaded(t, KYC, backend)

	for _, reason := range []string{"", "   ", "\t\n"} {
		err := c.RequestReject(context.Background(), "1", reason)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "reasons", verr.Field)
	}
	assert.Empty(t, backend.mutations())

	require.NoError(t, c.RequestReject(context.Background(), "1", "not enough docs"))
	assert.Equal(t, []string{"reject:1"}, backend.mutations())
}

func TestApproveValidationForKYC(t *testing.T) {
	backend := newFakeBackend(pending("1", "Amal"))
	c, _ := loaded(t, KYC, backend)

	for _, v := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-2)} {
		err := c.RequestApprove(context.Background(), "1", v)
		assert.True(t, IsValidation(err), "value %s", v)
	}
	assert.Empty(t, backend.mutations())
}

func TestApproveRequestNeedsNoNumericParameter(t *testing.T) {
	backend := newFakeBackend(pending("1", "Amal"))
	c, notifier := loaded(t, Requests, backend)

	require.NoError(t, c.RequestApprove(context.Background(), "1", decimal.Zero))
	assert.Equal(t, []string{"approve:1"}, backend.mutations())

	successes, _ := notifier.snapshot()
	assert.Equal(t, []string{"Request for Amal approved successfully!"}, successes)
}

func TestConcurrentApproveIssuesOneCall(t *testing.T) {
	backend := newFakeBackend(pending("1", "Amal"))
	backend.hold = make(chan struct{})
	c, _ := loaded(t, KYC, backend)

	errc := make(chan error, 1)
	go func() { errc <- c.RequestApprove(context.Background(), "1", decimal.NewFromInt(5)) }()
	require.Eventually(t, func() bool { return len(backend.mutations()) == 1 }, time.Second, time.Millisecond)

	err := c.RequestApprove(context.Background(), "1", decimal.NewFromInt(5))
	assert.ErrorIs(t, err, ErrInFlight)

	entity := c.Snapshot()[0]
	assert.Equal(t, Actions{}, c.Actions(entity, baseTime))
	view := c.View(Criteria{})
	assert.True(t, view.Rows[0].InFlight)

	close(backend.hold)
	require.NoError(t, <-errc)
	assert.Equal(t, []string{"approve:1"}, backend.mutations())
}

func TestOtherEntitiesAreNotBlocked(t *testing.T) {
	backend := newFakeBackend(pending("1", "Amal"), pending("2", "Bilal"))
	backend.hold = make(chan struct{})
	c, _ := loaded(t, Requests, backend)

	errc := make(chan error, 2)
	go func() { errc <- c.RequestApprove(context.Background(), "1", decimal.Zero) }()
	go func() { errc <- c.RequestReject(context.Background(), "2", "duplicate") }()
	require.Eventually(t, func() bool { return len(backend.mutations()) == 2 }, time.Second, time.Millisecond)

	close(backend.hold)
	require.NoError(t, <-errc)
	require.NoError(t, <-errc)
}

func TestScenarioApprove(t *testing.T) {
	backend := newFakeBackend(pending("1", "Amal"))
	recorder := &recordingRecorder{}
	c, notifier := loaded(t, KYC, backend, WithRecorder(recorder))

	require.NoError(t, c.RequestApprove(context.Background(), "1", decimal.RequireFromString("1.5")))

	snapshot := c.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, models.StatusApproved, snapshot[0].Status)
	require.NotNil(t, snapshot[0].ActionTimestamp)
	assert.Equal(t, baseTime, *snapshot[0].ActionTimestamp)
	assert.True(t, CanReverse(snapshot[0], baseTime))

	successes, errs := notifier.snapshot()
	assert.Equal(t, []string{"KYC for Amal approved successfully!"}, successes)
	assert.Empty(t, errs)

	require.Len(t, recorder.decisions, 1)
	d := recorder.decisions[0]
	assert.Equal(t, OpApprove, d.Operation)
	assert.True(t, d.Succeeded())
	assert.True(t, d.NumericParameter.Valid)
	assert.Equal(t, "1.5", d.NumericParameter.Decimal.String())
}

func TestScenarioReverseInsideWindow(t *testing.T) {
	e := decided(models.StatusApproved, time.Minute)
	e.ID = "2"
	e.SubjectName = "Bilal"
	backend := newFakeBackend(e)
	c, notifier := loaded(t, KYC, backend)

	assert.True(t, c.Actions(c.Snapshot()[0], baseTime).Reverse)
	require.NoError(t, c.RequestReverse(context.Background(), "2"))

	snapshot := c.Snapshot()
	assert.Equal(t, models.StatusPending, snapshot[0].Status)
	assert.Nil(t, snapshot[0].ActionTimestamp)

	successes, _ := notifier.snapshot()
	assert.Equal(t, []string{"KYC for Bilal reversed to pending successfully!"}, successes)
}

func TestScenarioReverseOutsideWindow(t *testing.T) {
	e := decided(models.StatusRejected, 10*time.Minute)
	e.ID = "3"
	backend := newFakeBackend(e)
	c, _ := loaded(t, Requests, backend)

	actions := c.Actions(c.Snapshot()[0], baseTime)
	assert.False(t, actions.Reverse)
	assert.False(t, actions.Approve)

	err := c.RequestReverse(context.Background(), "3")
	assert.ErrorIs(t, err, ErrReversalWindowClosed)
	assert.Empty(t, backend.mutations())
}

func TestScenarioPushEventTriggersLoad(t *testing.T) {
	backend := newFakeBackend(pending("1", "Amal"))
	c, notifier := loaded(t, KYC, backend)
	sub := &fakeSubscriber{}
	c.BindEvents(sub)

	backend.mu.Lock()
	backend.entities = append(backend.entities, pending("9", "Nadia"))
	backend.mu.Unlock()

	sub.emit(eventstream.Event{Type: eventstream.KYCSubmitted, Message: "new form"})

	assert.Equal(t, 2, backend.listCalls())
	assert.Equal(t, []string{"1", "9"}, ids(c.Snapshot()))
	successes, _ := notifier.snapshot()
	assert.Equal(t, []string{"new form"}, successes)
}

func TestStatusEventReloadsWithoutNotification(t *testing.T) {
	backend := newFakeBackend(pending("1", "Amal"))
	c, notifier := loaded(t, Requests, backend)
	sub := &fakeSubscriber{}
	c.BindEvents(sub)

	sub.emit(eventstream.Event{Type: eventstream.RequestStatusChanged, Message: "updated"})
	sub.emit(eventstream.Event{Type: eventstream.KYCSubmitted, Message: "not ours"})

	assert.Equal(t, 2, backend.listCalls())
	successes, _ := notifier.snapshot()
	assert.Empty(t, successes)
}

func TestRemoteFailureLeavesStateUnchanged(t *testing.T) {
	backend := newFakeBackend(models.ReviewableEntity{ID: "1", Status: models.StatusPending})
	boom := errors.New("502 bad gateway")
	backend.mutateErr = boom
	recorder := &recordingRecorder{}
	c, notifier := loaded(t, KYC, backend, WithRecorder(recorder))

	err := c.RequestApprove(context.Background(), "1", decimal.NewFromInt(2))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, models.StatusPending, c.Snapshot()[0].Status)
	assert.Equal(t, 1, backend.listCalls())

	successes, errs := notifier.snapshot()
	assert.Empty(t, successes)
	assert.Equal(t, []string{"Failed to approve KYC for N/A."}, errs)

	require.Len(t, recorder.decisions, 1)
	assert.False(t, recorder.decisions[0].Succeeded())

	assert.Equal(t, Actions{Approve: true, Reject: true}, c.Actions(c.Snapshot()[0], baseTime))
}

func TestDecisionGuards(t *testing.T) {
	backend := newFakeBackend(decided(models.StatusApproved, time.Minute))
	c, _ := loaded(t, KYC, backend)

	assert.ErrorIs(t, c.RequestApprove(context.Background(), "missing", decimal.NewFromInt(1)), ErrUnknownEntity)
	assert.ErrorIs(t, c.RequestApprove(context.Background(), "e", decimal.NewFromInt(1)), ErrInvalidTransition)
	assert.ErrorIs(t, c.RequestReject(context.Background(), "e", "late"), ErrInvalidTransition)
	assert.Empty(t, backend.mutations())
}

func TestRequestTimeout(t *testing.T) {
	backend := newFakeBackend(pending("1", "Amal"))
	backend.hold = make(chan struct{})
	c, notifier := loaded(t, Requests, backend, WithTimeout(20*time.Millisecond))

	err := c.RequestReject(context.Background(), "1", "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, errs := notifier.snapshot()
	assert.Equal(t, []string{"Failed to reject request for Amal."}, errs)
	close(backend.hold)
}

func TestResultsAfterCloseAreDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	backend := newFakeBackend()
	backend.listHook = func(ctx context.Context, n int) ([]models.ReviewableEntity, error) {
		if n == 1 {
			return []models.ReviewableEntity{pending("1", "Amal")}, nil
		}
		started <- struct{}{}
		<-release
		return []models.ReviewableEntity{pending("2", "Bilal")}, nil
	}
	c, _ := loaded(t, KYC, backend)

	errc := make(chan error, 1)
	go func() { errc <- c.Reload(context.Background()) }()
	<-started

	closed := make(chan struct{})
	go func() {
		c.Close()
		close(closed)
	}()
	require.Eventually(t, c.isClosed, time.Second, time.Millisecond)

	close(release)
	assert.ErrorIs(t, <-errc, ErrClosed)
	<-closed

	assert.Equal(t, []string{"1"}, ids(c.Snapshot()))
	assert.ErrorIs(t, c.Load(context.Background(), Filter{}), ErrClosed)
	assert.ErrorIs(t, c.RequestReverse(context.Background(), "1"), ErrClosed)
}

func TestEventsAfterCloseAreIgnored(t *testing.T) {
	backend := newFakeBackend(pending("1", "Amal"))
	c, notifier := loaded(t, KYC, backend)
	sub := &fakeSubscriber{}
	c.BindEvents(sub)

	c.Close()
	sub.emit(eventstream.Event{Type: eventstream.KYCSubmitted, Message: "new form"})

	assert.Equal(t, 1, backend.listCalls())
	successes, _ := notifier.snapshot()
	assert.Empty(t, successes)
}
