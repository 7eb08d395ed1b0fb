package subscription

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// defaultUnsubscribeGrace bounds how long Unsubscribe waits for an
// in-flight callback to finish before returning anyway.
const defaultUnsubscribeGrace = 2 * time.Second

// defaultPoolSize is the number of synchronous callbacks the
// dispatcher lets run at once across every subscription.
const defaultPoolSize = 16

// SubscriptionInfo is a snapshot of one subscription's bookkeeping,
// returned by GetSubscriptionInfo.
type SubscriptionInfo[S comparable] struct {
	ID                  string
	Subjects            []S
	Status              Status
	Config              Config
	ConsecutiveFailures int
	CallbackFailures    int
	CreatedAt           time.Time
}

// Option configures a Manager at construction time.
type Option[S comparable, O Observation[S, O]] func(*Manager[S, O])

func WithClock[S comparable, O Observation[S, O]](c Clock) Option[S, O] {
	return func(m *Manager[S, O]) { m.clock = c }
}

func WithLogger[S comparable, O Observation[S, O]](log *slog.Logger) Option[S, O] {
	return func(m *Manager[S, O]) { m.log = log }
}

func WithPoolSize[S comparable, O Observation[S, O]](n int) Option[S, O] {
	return func(m *Manager[S, O]) { m.poolSize = n }
}

func WithUnsubscribeGrace[S comparable, O Observation[S, O]](d time.Duration) Option[S, O] {
	return func(m *Manager[S, O]) { m.unsubscribeGrace = d }
}

func WithAuthRefresher[S comparable, O Observation[S, O]](a AuthRefresher) Option[S, O] {
	return func(m *Manager[S, O]) { m.authRefresher = a }
}

// WithTerminalFunc marks observations that should auto-cancel their
// subscription once delivered. Only the order manager uses this.
func WithTerminalFunc[S comparable, O Observation[S, O]](fn TerminalFunc[O]) Option[S, O] {
	return func(m *Manager[S, O]) { m.terminalFunc = fn }
}

// Manager is the generic polling/subscription engine shared by the
// price and order subscription managers. S is the subject type a
// subscription watches (an instrument, an order key); O is the
// observation type the Fetcher returns for a subject.
type Manager[S comparable, O Observation[S, O]] struct {
	fetcher Fetcher[S, O]
	reg     *registry[S, O]
	disp    *dispatcher[S, O]
	sched   *scheduler[S, O]

	clock Clock
	log   *slog.Logger

	poolSize         int
	unsubscribeGrace time.Duration
	authRefresher    AuthRefresher
	terminalFunc     TerminalFunc[O]

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	stopped bool
}

// NewManager builds a Manager around fetcher. Start must be called
// before any subscription's subjects will actually be polled.
func NewManager[S comparable, O Observation[S, O]](fetcher Fetcher[S, O], opts ...Option[S, O]) *Manager[S, O] {
	m := &Manager[S, O]{
		fetcher:          fetcher,
		clock:            RealClock(),
		log:              slog.Default(),
		poolSize:         defaultPoolSize,
		unsubscribeGrace: defaultUnsubscribeGrace,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.reg = newRegistry[S, O]()
	m.disp = newDispatcher[S, O](m.poolSize, m.log)
	m.sched = newScheduler[S, O](fetcher, m.reg, m.disp, m.clock, m.log)
	m.sched.authRefresher = m.authRefresher
	m.sched.terminalFunc = m.terminalFunc
	m.sched.onTerminal = func(id string) { go func() { _ = m.Unsubscribe(id) }() }

	return m
}

// Start begins the scheduler's poll loop. It returns immediately; the
// loop runs until ctx is cancelled or Stop is called. Calling Start is
// optional: the first Subscribe starts the loop with a background
// context if nobody has. Start is idempotent, and a no-op once the
// manager has been stopped.
func (m *Manager[S, O]) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started || m.stopped {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.ctx = runCtx
	m.cancel = cancel
	m.started = true
	go m.sched.run(runCtx)
	return nil
}

// Stop halts the scheduler, transitions every remaining subscription
// to CANCELLED (waking its pending waiters with ErrWaitCancelled), and
// closes the drain queues. It does not wait for in-flight callbacks;
// call Unsubscribe individually first if that matters to the caller.
// A stopped Manager stays stopped.
func (m *Manager[S, O]) Stop() {
	m.mu.Lock()
	m.stopped = true
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	cancel := m.cancel
	m.mu.Unlock()

	cancel()
	<-m.sched.done

	for _, st := range m.reg.list() {
		st.cancelSeq.Store(int64(st.seqCounter.Load()))
		st.cancelled.Store(true)
		st.mu.Lock()
		st.status = StatusCancelled
		waiters := st.waiters
		st.waiters = nil
		st.mu.Unlock()

		for _, w := range waiters {
			w.fail(ErrWaitCancelled)
		}
		m.disp.stop(st)
	}
}

// Subscribe registers a new subscription over subjects with the given
// policy and callback, and returns its opaque id.
func (m *Manager[S, O]) Subscribe(subjects []S, cfg Config, cb Callback[S, O]) (string, error) {
	if len(subjects) == 0 {
		return "", ErrEmptySubscription
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	id := uuid.NewString()
	st := newSubscriptionState[S, O](id, subjects, cfg, cb, m.clock.Now())
	m.reg.add(st)
	go m.disp.run(st)

	// Lazy start: a caller that never calls Start explicitly still
	// gets polling from the first Subscribe on.
	_ = m.Start(context.Background())
	m.sched.nudge()

	return id, nil
}

// Unsubscribe cancels a subscription. By the time it returns, no new
// callback invocation for id will begin; at most one already-running
// callback may still be completing in the background.
func (m *Manager[S, O]) Unsubscribe(id string) error {
	st, ok := m.reg.get(id)
	if !ok {
		return ErrSubscriptionNotFound
	}

	// Freeze the cutoff before flipping cancelled so any event already
	// enqueued (including the final event a terminal observation
	// produced) is still delivered by the drain goroutine; only events
	// racing in afterward are dropped.
	st.cancelSeq.Store(int64(st.seqCounter.Load()))
	st.cancelled.Store(true)
	st.mu.Lock()
	st.status = StatusCancelled
	waiters := st.waiters
	st.waiters = nil
	st.mu.Unlock()

	for _, w := range waiters {
		w.fail(ErrWaitCancelled)
	}

	st.awaitIdle(m.unsubscribeGrace)
	m.disp.stop(st)
	m.reg.remove(id)

	return nil
}

// UnsubscribeAll cancels every subscription currently registered.
func (m *Manager[S, O]) UnsubscribeAll() {
	for _, st := range m.reg.list() {
		_ = m.Unsubscribe(st.id)
	}
}

// Pause suspends polling for id without losing its place: its
// subjects stop appearing in due batches (and, if nothing else
// watches them, stop being fetched at all) until Resume is called.
func (m *Manager[S, O]) Pause(id string) error {
	st, ok := m.reg.get(id)
	if !ok {
		return ErrSubscriptionNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.status == StatusCancelled {
		return ErrSubscriptionNotFound
	}
	st.status = StatusPaused
	return nil
}

// Resume reactivates a PAUSED or ERROR subscription. Resuming from
// ERROR clears consecutive_failures so the subscription gets a full
// fresh run of retries before erroring out again.
func (m *Manager[S, O]) Resume(id string) error {
	st, ok := m.reg.get(id)
	if !ok {
		return ErrSubscriptionNotFound
	}
	st.mu.Lock()
	if st.status == StatusCancelled {
		st.mu.Unlock()
		return ErrSubscriptionNotFound
	}
	st.status = StatusActive
	st.consecutiveFailures = 0
	st.nextDueAt = m.clock.Now()
	st.mu.Unlock()

	m.sched.nudge()
	return nil
}

// SetPollingFrequency changes a subscription's polling interval,
// taking effect on its next scheduled tick.
func (m *Manager[S, O]) SetPollingFrequency(id string, freq time.Duration) error {
	if freq < MinPollingFrequency || freq > MaxPollingFrequency {
		return ErrInvalidPollingFrequency
	}
	st, ok := m.reg.get(id)
	if !ok {
		return ErrSubscriptionNotFound
	}
	st.mu.Lock()
	st.config.PollingFrequency = freq
	if st.status == StatusActive {
		due := m.clock.Now().Add(freq)
		if due.Before(st.nextDueAt) {
			st.nextDueAt = due
		}
	}
	st.mu.Unlock()

	m.sched.nudge()
	return nil
}

// GetActiveSubscriptions returns the ids of every subscription whose
// status is ACTIVE; PAUSED, ERROR, and CANCELLED subscriptions are
// excluded.
func (m *Manager[S, O]) GetActiveSubscriptions() []string {
	list := m.reg.list()
	ids := make([]string, 0, len(list))
	for _, st := range list {
		if st.snapshotStatus() == StatusActive {
			ids = append(ids, st.id)
		}
	}
	return ids
}

// GetSubscriptionInfo returns a point-in-time snapshot of a
// subscription's bookkeeping.
func (m *Manager[S, O]) GetSubscriptionInfo(id string) (SubscriptionInfo[S], error) {
	st, ok := m.reg.get(id)
	if !ok {
		return SubscriptionInfo[S]{}, ErrSubscriptionNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return SubscriptionInfo[S]{
		ID:                  st.id,
		Subjects:            append([]S(nil), st.subjects...),
		Status:              st.status,
		Config:              st.config,
		ConsecutiveFailures: st.consecutiveFailures,
		CallbackFailures:    st.callbackFailures,
		CreatedAt:           st.createdAt,
	}, nil
}

// LatestObservation returns the most recently fetched observation for
// subject, if the engine has polled it at least once.
func (m *Manager[S, O]) LatestObservation(subject S) (O, bool) {
	return m.reg.getObservation(subject)
}

// WaitForCondition blocks until a new observation for one of id's
// subjects satisfies pred, ctx is cancelled, or the subscription is
// cancelled, whichever happens first. If the most recently fetched
// observation for id's subject already satisfies pred, it returns
// immediately without waiting for a new poll. It is intended for
// subscriptions with exactly one subject, such as a single order.
func (m *Manager[S, O]) WaitForCondition(ctx context.Context, id string, pred func(O) bool) (O, error) {
	var zero O

	st, ok := m.reg.get(id)
	if !ok {
		return zero, ErrSubscriptionNotFound
	}

	if len(st.subjects) > 0 {
		if obs, ok := m.reg.getObservation(st.subjects[0]); ok && pred(obs) {
			return obs, nil
		}
	}

	w := &waiter[O]{pred: pred, done: make(chan struct{})}
	st.mu.Lock()
	st.waiters = append(st.waiters, w)
	st.mu.Unlock()

	select {
	case <-w.done:
		return w.result, w.err
	case <-ctx.Done():
		st.mu.Lock()
		for i, other := range st.waiters {
			if other == w {
				st.waiters = append(st.waiters[:i], st.waiters[i+1:]...)
				break
			}
		}
		st.mu.Unlock()

		err := ctx.Err()
		if err == context.DeadlineExceeded {
			// A deadline on the caller's own ctx means the wait
			// timed out; outright cancellation by the caller is
			// reported as-is, distinct from ErrWaitCancelled (which
			// means the subscription itself was cancelled instead).
			err = ErrWaitTimeout
		}
		return zero, err
	}
}
