package subscription

import (
	"log/slog"
	"time"
)

// dispatcher delivers Events to subscriber callbacks. It guarantees,
// for a single subscription, that events are delivered in the order
// the scheduler enqueued them, while limiting how many synchronous
// callbacks run at once across the whole engine.
//
// Each subscription gets its own long-lived goroutine draining its
// ring buffer one event at a time, so per-subscription order falls
// out of that single goroutine rather than needing a lock per event.
// The semaphore below bounds concurrent callback execution across all
// of those goroutines. An Async callback still runs inside its
// subscription's goroutine (so the next event waits for it to finish),
// but releases its semaphore slot the instant it starts so a slow
// async handler doesn't starve other subscriptions of pool capacity.
type dispatcher[S comparable, O any] struct {
	pool chan struct{}
	log  *slog.Logger
}

func newDispatcher[S comparable, O any](poolSize int, log *slog.Logger) *dispatcher[S, O] {
	if poolSize < 1 {
		poolSize = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &dispatcher[S, O]{pool: make(chan struct{}, poolSize), log: log}
}

func (d *dispatcher[S, O]) acquire() { d.pool <- struct{}{} }
func (d *dispatcher[S, O]) release() { <-d.pool }

// run is the per-subscription drain loop. It returns once the
// subscription's queue is closed and empty.
func (d *dispatcher[S, O]) run(st *subscriptionState[S, O]) {
	for {
		qev, ok := st.queue.pop()
		if !ok {
			return
		}
		d.dispatchOne(st, qev)
	}
}

func (d *dispatcher[S, O]) dispatchOne(st *subscriptionState[S, O], qev queuedEvent[S, O]) {
	d.acquire()

	st.execLock.Lock()
	if !st.shouldDeliver(qev.seq) {
		st.execLock.Unlock()
		d.release()
		return
	}

	switch st.callback.kind {
	case callbackAsync:
		d.release()
		func() {
			defer st.execLock.Unlock()
			d.invokeSafely(st, qev.ev)
		}()
	default:
		func() {
			defer st.execLock.Unlock()
			defer d.release()
			d.invokeSafely(st, qev.ev)
		}()
	}
}

// invokeSafely runs a subscriber's callback, isolating any panic the
// same way the scheduler isolates a fetcher error: the failure is
// counted and logged, and the subscription itself stays ACTIVE.
func (d *dispatcher[S, O]) invokeSafely(st *subscriptionState[S, O], ev Event[S, O]) {
	defer func() {
		if r := recover(); r != nil {
			st.mu.Lock()
			st.callbackFailures++
			st.mu.Unlock()
			d.log.Error("subscription callback panicked",
				"subscription_id", st.id,
				"panic", r,
			)
		}
	}()
	st.callback.invoke(ev)
}

// enqueue hands ev to st's queue for delivery, tagging it with the
// subscription's next sequence number. It blocks for the duration of
// this call only while st's queue is full, which is the scheduler's
// one mechanism for backpressure: a slow subscriber's queue filling up
// slows down the tick that's trying to feed it, rather than growing
// memory without bound.
func (d *dispatcher[S, O]) enqueue(st *subscriptionState[S, O], ev Event[S, O]) {
	seq := st.seqCounter.Add(1)
	st.queue.push(queuedEvent[S, O]{ev: ev, seq: seq})
}

// stop closes st's queue so its drain goroutine exits once drained.
func (d *dispatcher[S, O]) stop(st *subscriptionState[S, O]) {
	st.queue.close()
}

// awaitIdle blocks until no callback is in flight for st, or grace
// elapses, whichever comes first. Combined with cancelled being set
// before this is called, it gives unsubscribe a happens-before
// guarantee: by the time it returns, at most one already-started
// callback may still complete, and no new one will start for an event
// enqueued after the cutoff Unsubscribe freezes in cancelSeq.
func (st *subscriptionState[S, O]) awaitIdle(grace time.Duration) {
	deadline := time.Now().Add(grace)
	for {
		if st.execLock.TryLock() {
			st.execLock.Unlock()
			return
		}
		if time.Now().After(deadline) {
			return
		}
		time.Sleep(time.Millisecond)
	}
}
