package subscription

import (
	"context"
	"log/slog"
	"time"
)

// AuthRefresher lets a fetcher's credentials be refreshed in place
// when a fetch fails with an auth-class error. The scheduler calls
// Refresh at most once per failure before retrying the fetch; if the
// retry also fails, the failure counts toward the subscription's
// consecutive_failures as usual.
type AuthRefresher interface {
	Refresh(ctx context.Context) error
}

// TerminalFunc reports whether an observation represents a terminal
// state for its subject. When set, the scheduler cancels any
// subscription whose watched subject reaches a terminal observation,
// after delivering the final event. Only the order manager uses this;
// the quote manager leaves it nil.
type TerminalFunc[O any] func(O) bool

// idleWait bounds how long the scheduler sleeps with nothing due,
// so a newly-registered subscription with an earlier next_due_at is
// never starved by more than this for want of a wake signal.
const idleWait = 1 * time.Second

type scheduler[S comparable, O Observation[S, O]] struct {
	fetcher    Fetcher[S, O]
	registry   *registry[S, O]
	dispatcher *dispatcher[S, O]
	clock      Clock
	log        *slog.Logger

	authRefresher AuthRefresher
	terminalFunc  TerminalFunc[O]
	onTerminal    func(id string)

	wake chan struct{}
	done chan struct{}
}

func newScheduler[S comparable, O Observation[S, O]](f Fetcher[S, O], reg *registry[S, O], disp *dispatcher[S, O], clock Clock, log *slog.Logger) *scheduler[S, O] {
	if log == nil {
		log = slog.Default()
	}
	return &scheduler[S, O]{
		fetcher:    f,
		registry:   reg,
		dispatcher: disp,
		clock:      clock,
		log:        log,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// nudge wakes the scheduler's idle wait early, used when a new
// subscription is added or an existing one's polling frequency or
// status changes in a way that could move up the next wake time.
func (sch *scheduler[S, O]) nudge() {
	select {
	case sch.wake <- struct{}{}:
	default:
	}
}

func (sch *scheduler[S, O]) run(ctx context.Context) {
	defer close(sch.done)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		now := sch.clock.Now()
		due, nextWake := sch.registry.dueSubjects(now)

		if len(due) == 0 {
			wait := idleWait
			if !nextWake.IsZero() {
				if d := nextWake.Sub(now); d > 0 && d < wait {
					wait = d
				}
			}
			// Sleep through the injected Clock, not a raw wall-clock
			// timer, so tests driving a fake Clock never actually wait.
			slept := make(chan struct{})
			go func() {
				sch.clock.Sleep(ctx, wait)
				close(slept)
			}()
			select {
			case <-ctx.Done():
				return
			case <-sch.wake:
			case <-slept:
			}
			continue
		}

		sch.tick(ctx, due, now)
	}
}

// tick fetches the given due subjects once, diffs the results against
// the registry's last-known observations, dispatches change events,
// and reschedules every subscription whose subjects were covered by
// this batch.
func (sch *scheduler[S, O]) tick(ctx context.Context, due []S, now time.Time) {
	results, err := sch.fetcher.Fetch(ctx, due)
	if err != nil {
		class, retryAfter := classify(err)
		if class == ErrClassAuth && sch.authRefresher != nil {
			if refreshErr := sch.authRefresher.Refresh(ctx); refreshErr == nil {
				results, err = sch.fetcher.Fetch(ctx, due)
			}
		}
		if err != nil {
			sch.handleFetchFailure(due, now, retryAfter)
			return
		}
	}

	byKey := make(map[S]O, len(results))
	for _, obs := range results {
		byKey[obs.Key()] = obs
	}

	for _, subject := range due {
		obs, ok := byKey[subject]
		if !ok {
			continue
		}
		sch.applyObservation(subject, obs, now)
	}

	sch.rescheduleSuccess(due, now)
}

func (sch *scheduler[S, O]) applyObservation(subject S, obs O, now time.Time) {
	prev, hadPrev := sch.registry.getObservation(subject)
	// The very first observation for a subject only seeds the
	// last-seen value; a change event fires once there is a prior
	// observation to diff against.
	changed := hadPrev && !prev.Equal(obs)
	sch.registry.setObservation(subject, obs)

	for _, id := range sch.registry.watchers(subject) {
		st, ok := sch.registry.get(id)
		if !ok {
			continue
		}
		if st.snapshotStatus() != StatusActive {
			continue
		}

		sch.resolveWaiters(st, obs)

		if changed {
			var oldPtr *O
			if hadPrev {
				p := prev
				oldPtr = &p
			}
			ev := Event[S, O]{
				SubscriptionID: id,
				Subject:        subject,
				Old:            oldPtr,
				New:            obs,
				At:             now,
			}
			sch.dispatcher.enqueue(st, ev)
		}

		if sch.terminalFunc != nil && sch.terminalFunc(obs) && sch.onTerminal != nil {
			sch.onTerminal(id)
		}
	}
}

func (sch *scheduler[S, O]) resolveWaiters(st *subscriptionState[S, O], obs O) {
	st.mu.Lock()
	remaining := st.waiters[:0]
	var toResolve []*waiter[O]
	for _, w := range st.waiters {
		if w.pred(obs) {
			toResolve = append(toResolve, w)
		} else {
			remaining = append(remaining, w)
		}
	}
	st.waiters = remaining
	st.mu.Unlock()

	for _, w := range toResolve {
		w.resolve(obs)
	}
}

// rescheduleSuccess resets consecutive_failures and pushes nextDueAt
// forward for every ACTIVE subscription whose subjects intersected
// this tick's due batch.
func (sch *scheduler[S, O]) rescheduleSuccess(due []S, now time.Time) {
	touched := make(map[string]struct{})
	for _, subject := range due {
		for _, id := range sch.registry.watchers(subject) {
			touched[id] = struct{}{}
		}
	}
	for id := range touched {
		st, ok := sch.registry.get(id)
		if !ok {
			continue
		}
		st.mu.Lock()
		if st.status == StatusActive {
			st.consecutiveFailures = 0
			st.nextDueAt = now.Add(st.config.PollingFrequency)
		}
		st.mu.Unlock()
	}
}

// handleFetchFailure applies the retry/backoff policy to every ACTIVE
// subscription whose subjects were part of the failed batch.
func (sch *scheduler[S, O]) handleFetchFailure(due []S, now time.Time, retryAfter time.Duration) {
	touched := make(map[string]struct{})
	for _, subject := range due {
		for _, id := range sch.registry.watchers(subject) {
			touched[id] = struct{}{}
		}
	}
	for id := range touched {
		st, ok := sch.registry.get(id)
		if !ok {
			continue
		}
		st.mu.Lock()
		if st.status != StatusActive {
			st.mu.Unlock()
			continue
		}
		st.consecutiveFailures++
		failures := st.consecutiveFailures

		if !st.config.RetryOnError || failures > st.config.MaxRetries {
			st.status = StatusError
			waiters := st.waiters
			st.waiters = nil
			subject := st.subjects[0]
			st.mu.Unlock()

			sch.log.Warn("subscription moved to error", "subscription_id", id, "consecutive_failures", failures)

			for _, w := range waiters {
				w.fail(ErrSubscriptionError)
			}
			sch.dispatcher.enqueue(st, Event[S, O]{
				SubscriptionID: id,
				Subject:        subject,
				At:             now,
				Err:            ErrSubscriptionError,
			})
			continue
		}

		delay := st.config.backoff(st.consecutiveFailures)
		if retryAfter > delay {
			delay = retryAfter
		}
		st.nextDueAt = now.Add(delay)
		st.mu.Unlock()
	}
}
