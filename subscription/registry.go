package subscription

import (
	"sync"
	"sync/atomic"
	"time"
)

// waiter is a one-shot condition registered against a subscription's
// observation stream by WaitForStatus/WaitForTerminalStatus-style
// helpers. The scheduler evaluates pred against every new observation
// for the subscription's subjects and resolves the waiter the first
// time it returns true.
type waiter[O any] struct {
	pred   func(O) bool
	done   chan struct{}
	result O
	err    error
	once   sync.Once
}

func (w *waiter[O]) resolve(obs O) {
	w.once.Do(func() {
		w.result = obs
		close(w.done)
	})
}

func (w *waiter[O]) fail(err error) {
	w.once.Do(func() {
		w.err = err
		close(w.done)
	})
}

// queuedEvent wraps an Event with the monotonic sequence number it was
// enqueued under, so the dispatcher can tell a job that was already
// queued before an unsubscribe apart from one raced in alongside it.
type queuedEvent[S comparable, O any] struct {
	ev  Event[S, O]
	seq uint64
}

// subscriptionState holds everything the engine tracks for one
// subscription: its subjects, policy, callback, retry bookkeeping, and
// the per-subscription ordered dispatch queue.
type subscriptionState[S comparable, O any] struct {
	id       string
	subjects []S
	callback Callback[S, O]

	createdAt time.Time

	// cancelled, cancelSeq and execLock implement the unsubscribe
	// happens-before guarantee. Unsubscribe freezes cancelSeq to the
	// sequence number of the last event enqueued so far, then sets
	// cancelled, so a job already queued at or before that cutoff is
	// still delivered while anything racing in afterward is dropped.
	// execLock is held for the duration of a callback invocation so
	// unsubscribe can wait out one in-flight call without blocking
	// indefinitely.
	cancelled  atomic.Bool
	cancelSeq  atomic.Int64
	execLock   sync.Mutex
	seqCounter atomic.Uint64

	queue *ringBuffer[queuedEvent[S, O]]

	mu                  sync.Mutex
	status              Status
	config              Config
	consecutiveFailures int
	callbackFailures    int
	nextDueAt           time.Time
	waiters             []*waiter[O]
}

func newSubscriptionState[S comparable, O any](id string, subjects []S, cfg Config, cb Callback[S, O], now time.Time) *subscriptionState[S, O] {
	st := &subscriptionState[S, O]{
		id:        id,
		subjects:  subjects,
		callback:  cb,
		createdAt: now,
		queue:     newRingBuffer[queuedEvent[S, O]](8),
		status:    StatusActive,
		config:    cfg,
		nextDueAt: now,
	}
	st.cancelSeq.Store(-1)
	return st
}

func (s *subscriptionState[S, O]) snapshotStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// shouldDeliver reports whether a job carrying seq is still eligible
// to run: always true before cancellation, and true after cancellation
// only for jobs enqueued at or before the frozen cutoff.
func (s *subscriptionState[S, O]) shouldDeliver(seq uint64) bool {
	if !s.cancelled.Load() {
		return true
	}
	cutoff := s.cancelSeq.Load()
	return cutoff >= 0 && seq <= uint64(cutoff)
}

// registry is the generic engine's mutex-guarded index of
// subscriptions, the reverse subject -> subscriber-ids index used to
// batch due subjects without duplicates, and the last-seen observation
// per subject used for change detection.
type registry[S comparable, O any] struct {
	mu sync.RWMutex

	subs map[string]*subscriptionState[S, O]

	// subjectIndex maps a subject to the set of subscription ids
	// currently watching it (regardless of ACTIVE/PAUSED status).
	subjectIndex map[S]map[string]struct{}

	lastObservation map[S]O
	haveObservation map[S]bool
}

func newRegistry[S comparable, O any]() *registry[S, O] {
	return &registry[S, O]{
		subs:            make(map[string]*subscriptionState[S, O]),
		subjectIndex:    make(map[S]map[string]struct{}),
		lastObservation: make(map[S]O),
		haveObservation: make(map[S]bool),
	}
}

func (r *registry[S, O]) add(st *subscriptionState[S, O]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.subs[st.id] = st
	for _, subj := range st.subjects {
		set, ok := r.subjectIndex[subj]
		if !ok {
			set = make(map[string]struct{})
			r.subjectIndex[subj] = set
		}
		set[st.id] = struct{}{}
	}
}

// remove deletes a subscription and returns the subjects that no
// subscription watches anymore, so the scheduler can drop their
// last-observation entries and stop polling them.
func (r *registry[S, O]) remove(id string) []S {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.subs[id]
	if !ok {
		return nil
	}
	delete(r.subs, id)

	var orphaned []S
	for _, subj := range st.subjects {
		set, ok := r.subjectIndex[subj]
		if !ok {
			continue
		}
		delete(set, id)
		if len(set) == 0 {
			delete(r.subjectIndex, subj)
			delete(r.lastObservation, subj)
			delete(r.haveObservation, subj)
			orphaned = append(orphaned, subj)
		}
	}
	return orphaned
}

func (r *registry[S, O]) get(id string) (*subscriptionState[S, O], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.subs[id]
	return st, ok
}

func (r *registry[S, O]) list() []*subscriptionState[S, O] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*subscriptionState[S, O], 0, len(r.subs))
	for _, st := range r.subs {
		out = append(out, st)
	}
	return out
}

func (r *registry[S, O]) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// dueSubjects returns the deduplicated set of subjects belonging to
// ACTIVE subscriptions whose next_due_at has arrived, along with the
// earliest next_due_at across all ACTIVE subscriptions (for the
// scheduler's wake timer when nothing is due yet).
func (r *registry[S, O]) dueSubjects(now time.Time) (subjects []S, nextWake time.Time) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var due []S
	var soonest time.Time

	for _, st := range r.subs {
		st.mu.Lock()
		status := st.status
		dueAt := st.nextDueAt
		st.mu.Unlock()

		if status != StatusActive {
			continue
		}
		if soonest.IsZero() || dueAt.Before(soonest) {
			soonest = dueAt
		}
		if !dueAt.After(now) {
			due = append(due, st.subjects...)
		}
	}

	return dedupSubjects(due), soonest
}

// watchers returns the subscription ids currently watching subject.
func (r *registry[S, O]) watchers(subject S) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.subjectIndex[subject]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

func (r *registry[S, O]) getObservation(subject S) (O, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	obs, ok := r.haveObservation[subject]
	if !ok {
		var zero O
		return zero, false
	}
	return r.lastObservation[subject], obs
}

func (r *registry[S, O]) setObservation(subject S, obs O) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastObservation[subject] = obs
	r.haveObservation[subject] = true
}
