package subscription

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testSubject/testObs are a minimal comparable subject and Observation
// so the generic engine can be exercised directly without pulling in
// the quotes/orders packages.
type testSubject string

type testObs struct {
	subject testSubject
	value   int
}

func (o testObs) Key() testSubject { return o.subject }
func (o testObs) Equal(other testObs) bool {
	return o.value == other.value
}

// scriptedFetcher returns one pre-programmed batch of observations per
// call, optionally failing instead. Calls are recorded for assertions
// on batching/dedup.
type scriptedFetcher struct {
	mu      sync.Mutex
	batches [][]testObs
	errs    []error
	calls   [][]testSubject
	idx     int
}

func (f *scriptedFetcher) Fetch(ctx context.Context, subjects []testSubject) ([]testObs, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]testSubject(nil), subjects...)
	f.calls = append(f.calls, cp)
	i := f.idx
	f.idx++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.batches) {
		return f.batches[i], nil
	}
	if len(f.batches) > 0 {
		return f.batches[len(f.batches)-1], nil
	}
	return nil, nil
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *scriptedFetcher) callAt(i int) []testSubject {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

func waitForCondition(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	if !cond() {
		t.Fatalf("condition not met within %s", timeout)
	}
}

func newTestManager(f Fetcher[testSubject, testObs], opts ...Option[testSubject, testObs]) *Manager[testSubject, testObs] {
	return NewManager[testSubject, testObs](f, opts...)
}

// Two callbacks on the same instrument, three ticks of
// 150.00/150.00/151.00, expect exactly one change event each and one
// fetch call per tick with a one-element batch.
func TestManager_TwoSubscribersSameSubject_OneChangeEach(t *testing.T) {
	f := &scriptedFetcher{batches: [][]testObs{
		{{subject: "AAPL", value: 150}},
		{{subject: "AAPL", value: 150}},
		{{subject: "AAPL", value: 151}},
	}}
	m := newTestManager(f, WithPoolSize[testSubject, testObs](4))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	cfg := Config{PollingFrequency: 100 * time.Millisecond, RetryOnError: true, MaxRetries: 3, ExponentialBackoff: true}

	var n1, n2 atomic.Int32
	var lastA, lastB atomic.Int64
	_, err := m.Subscribe([]testSubject{"AAPL"}, cfg, Sync[testSubject, testObs](func(ev Event[testSubject, testObs]) {
		n1.Add(1)
		lastA.Store(int64(ev.New.value))
	}))
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	_, err = m.Subscribe([]testSubject{"AAPL"}, cfg, Sync[testSubject, testObs](func(ev Event[testSubject, testObs]) {
		n2.Add(1)
		lastB.Store(int64(ev.New.value))
	}))
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	waitForCondition(t, 2*time.Second, func() bool { return f.callCount() >= 3 })
	// Let any in-flight dispatch settle.
	time.Sleep(50 * time.Millisecond)

	if got := n1.Load(); got != 1 {
		t.Errorf("subscriber 1 got %d events, want 1", got)
	}
	if got := n2.Load(); got != 1 {
		t.Errorf("subscriber 2 got %d events, want 1", got)
	}
	if got := lastA.Load(); got != 151 {
		t.Errorf("subscriber 1 last value = %d, want 151", got)
	}
	if got := lastB.Load(); got != 151 {
		t.Errorf("subscriber 2 last value = %d, want 151", got)
	}

	for i := 0; i < 3 && i < f.callCount(); i++ {
		if got := len(f.callAt(i)); got != 1 {
			t.Errorf("tick %d batch size = %d, want 1", i, got)
		}
	}
}

// Two subscriptions on distinct instruments at the same frequency are
// served by one fetch per tick with a two-element batch (the fetcher
// is invoked at most once per tick).
func TestManager_TwoSubjects_OneBatchedFetchPerTick(t *testing.T) {
	f := &scriptedFetcher{batches: [][]testObs{
		{{subject: "AAPL", value: 1}, {subject: "MSFT", value: 1}},
	}}
	m := newTestManager(f)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = m.Start(ctx)
	defer m.Stop()

	cfg := Config{PollingFrequency: 100 * time.Millisecond, RetryOnError: true, MaxRetries: 3, ExponentialBackoff: true}
	_, _ = m.Subscribe([]testSubject{"AAPL"}, cfg, Sync[testSubject, testObs](func(Event[testSubject, testObs]) {}))
	_, _ = m.Subscribe([]testSubject{"MSFT"}, cfg, Sync[testSubject, testObs](func(Event[testSubject, testObs]) {}))

	waitForCondition(t, 2*time.Second, func() bool { return f.callCount() >= 1 })
	time.Sleep(20 * time.Millisecond)

	batch := f.callAt(0)
	if len(batch) != 2 {
		t.Fatalf("first batch size = %d, want 2", len(batch))
	}
}

// Three server failures then success, with max retries 3, exponential
// backoff on, and a 1s polling frequency, produce due offsets of 1, 2,
// 4, then 1 second, and the subscription stays ACTIVE throughout.
func TestManager_ExponentialBackoffThenRecovery(t *testing.T) {
	f := &scriptedFetcher{
		errs:    []error{&FetchError{Class: ErrClassServer}, &FetchError{Class: ErrClassServer}, &FetchError{Class: ErrClassServer}},
		batches: [][]testObs{{{subject: "AAPL", value: 1}}},
	}
	clk := newFakeClock()
	m := newTestManager(f, WithClock[testSubject, testObs](clk))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = m.Start(ctx)
	defer m.Stop()

	cfg := Config{PollingFrequency: time.Second, RetryOnError: true, MaxRetries: 3, ExponentialBackoff: true}
	id, err := m.Subscribe([]testSubject{"AAPL"}, cfg, Sync[testSubject, testObs](func(Event[testSubject, testObs]) {}))
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	// Tick 0: immediate, fails -> next_due_at = now+1s.
	waitForCondition(t, time.Second, func() bool { return f.callCount() >= 1 })
	clk.Advance(time.Second)
	// Tick 1: fails -> next_due_at = now+2s.
	waitForCondition(t, time.Second, func() bool { return f.callCount() >= 2 })
	clk.Advance(2 * time.Second)
	// Tick 2: fails -> next_due_at = now+4s.
	waitForCondition(t, time.Second, func() bool { return f.callCount() >= 3 })
	clk.Advance(4 * time.Second)
	// Tick 3: succeeds -> next_due_at resets to now+1s (failures=0).
	waitForCondition(t, time.Second, func() bool { return f.callCount() >= 4 })

	info, err := m.GetSubscriptionInfo(id)
	if err != nil {
		t.Fatalf("GetSubscriptionInfo: %v", err)
	}
	if info.Status != StatusActive {
		t.Fatalf("status = %v, want ACTIVE", info.Status)
	}
	if info.ConsecutiveFailures != 0 {
		t.Fatalf("consecutive failures = %d, want 0 after recovery", info.ConsecutiveFailures)
	}
}

// A subscription that exceeds max_retries moves to ERROR and delivers
// one final event with Err set so waiters aren't stranded.
func TestManager_ExceedsRetries_MovesToErrorWithFinalEvent(t *testing.T) {
	f := &scriptedFetcher{errs: []error{
		&FetchError{Class: ErrClassServer},
		&FetchError{Class: ErrClassServer},
	}}
	clk := newFakeClock()
	m := newTestManager(f, WithClock[testSubject, testObs](clk))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = m.Start(ctx)
	defer m.Stop()

	cfg := Config{PollingFrequency: time.Second, RetryOnError: true, MaxRetries: 1, ExponentialBackoff: false}

	var finalErr atomic.Value
	id, _ := m.Subscribe([]testSubject{"AAPL"}, cfg, Sync[testSubject, testObs](func(ev Event[testSubject, testObs]) {
		if ev.Err != nil {
			finalErr.Store(ev.Err)
		}
	}))

	waitForCondition(t, time.Second, func() bool { return f.callCount() >= 1 })
	clk.Advance(time.Second)
	waitForCondition(t, time.Second, func() bool {
		info, err := m.GetSubscriptionInfo(id)
		return err == nil && info.Status == StatusError
	})
	waitForCondition(t, time.Second, func() bool { return finalErr.Load() != nil })
}

// subscribe then unsubscribe returns the registry to its pre-subscribe
// size; after unsubscribe no further events are dispatched.
func TestManager_UnsubscribeRoundTrip(t *testing.T) {
	f := &scriptedFetcher{batches: [][]testObs{{{subject: "AAPL", value: 1}}}}
	m := newTestManager(f)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = m.Start(ctx)
	defer m.Stop()

	before := len(m.GetActiveSubscriptions())
	id, err := m.Subscribe([]testSubject{"AAPL"}, DefaultConfig(), Sync[testSubject, testObs](func(Event[testSubject, testObs]) {}))
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := m.Unsubscribe(id); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	after := len(m.GetActiveSubscriptions())
	if after != before {
		t.Fatalf("subscription count after round trip = %d, want %d", after, before)
	}

	var calledAfter atomic.Bool
	id2, _ := m.Subscribe([]testSubject{"AAPL"}, DefaultConfig(), Sync[testSubject, testObs](func(Event[testSubject, testObs]) {
		calledAfter.Store(true)
	}))
	_ = m.Unsubscribe(id2)
	time.Sleep(30 * time.Millisecond)
	if calledAfter.Load() {
		t.Fatalf("callback invoked after Unsubscribe returned")
	}
}

func TestManager_UnsubscribeUnknownID(t *testing.T) {
	m := newTestManager(&scriptedFetcher{})
	if err := m.Unsubscribe("not-a-real-id"); err != ErrSubscriptionNotFound {
		t.Fatalf("Unsubscribe(unknown) = %v, want ErrSubscriptionNotFound", err)
	}
}

func TestManager_EmptySubscriptionRejected(t *testing.T) {
	m := newTestManager(&scriptedFetcher{})
	if _, err := m.Subscribe(nil, DefaultConfig(), Sync[testSubject, testObs](func(Event[testSubject, testObs]) {})); err != ErrEmptySubscription {
		t.Fatalf("Subscribe([]) = %v, want ErrEmptySubscription", err)
	}
}

func TestManager_PollingFrequencyBoundaries(t *testing.T) {
	m := newTestManager(&scriptedFetcher{})
	id, err := m.Subscribe([]testSubject{"AAPL"}, DefaultConfig(), Sync[testSubject, testObs](func(Event[testSubject, testObs]) {}))
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	cases := []struct {
		freq    time.Duration
		wantErr bool
	}{
		{50 * time.Millisecond, true},
		{100 * time.Millisecond, false},
		{60*time.Second + time.Millisecond, true},
		{60 * time.Second, false},
	}
	for _, c := range cases {
		err := m.SetPollingFrequency(id, c.freq)
		if c.wantErr && err != ErrInvalidPollingFrequency {
			t.Errorf("SetPollingFrequency(%s) = %v, want ErrInvalidPollingFrequency", c.freq, err)
		}
		if !c.wantErr {
			if err != nil {
				t.Errorf("SetPollingFrequency(%s) = %v, want nil", c.freq, err)
			}
			info, _ := m.GetSubscriptionInfo(id)
			if info.Config.PollingFrequency != c.freq {
				t.Errorf("info.Config.PollingFrequency = %s, want %s", info.Config.PollingFrequency, c.freq)
			}
		}
	}
}

func TestManager_PauseResumePreservesConfig(t *testing.T) {
	f := &scriptedFetcher{batches: [][]testObs{{{subject: "AAPL", value: 1}}, {{subject: "AAPL", value: 2}}}}
	m := newTestManager(f)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = m.Start(ctx)
	defer m.Stop()

	cfg := Config{PollingFrequency: 100 * time.Millisecond, RetryOnError: true, MaxRetries: 3, ExponentialBackoff: true}
	var count atomic.Int32
	id, _ := m.Subscribe([]testSubject{"AAPL"}, cfg, Sync[testSubject, testObs](func(Event[testSubject, testObs]) {
		count.Add(1)
	}))

	if err := m.Pause(id); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	info, _ := m.GetSubscriptionInfo(id)
	if info.Status != StatusPaused {
		t.Fatalf("status after Pause = %v, want PAUSED", info.Status)
	}

	time.Sleep(50 * time.Millisecond)
	paused := count.Load()

	if err := m.Resume(id); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	info, _ = m.GetSubscriptionInfo(id)
	if info.Status != StatusActive {
		t.Fatalf("status after Resume = %v, want ACTIVE", info.Status)
	}
	if info.Config != cfg {
		t.Fatalf("config changed across pause/resume: got %+v, want %+v", info.Config, cfg)
	}

	waitForCondition(t, time.Second, func() bool { return count.Load() > paused })
}

func TestManager_UnsubscribeAllEmptiesRegistry(t *testing.T) {
	f := &scriptedFetcher{batches: [][]testObs{{{subject: "AAPL", value: 1}}}}
	m := newTestManager(f)
	for i := 0; i < 5; i++ {
		_, _ = m.Subscribe([]testSubject{testSubject(fmt.Sprintf("SYM%d", i))}, DefaultConfig(), Sync[testSubject, testObs](func(Event[testSubject, testObs]) {}))
	}
	m.UnsubscribeAll()
	if got := len(m.GetActiveSubscriptions()); got != 0 {
		t.Fatalf("active subscriptions after UnsubscribeAll = %d, want 0", got)
	}
	if got := m.reg.count(); got != 0 {
		t.Fatalf("registry size after UnsubscribeAll = %d, want 0", got)
	}
}

// Concurrent rapid subscribe/unsubscribe cycles on the same subject
// never leak registry entries.
func TestManager_ConcurrentSubscribeUnsubscribe_NoLeak(t *testing.T) {
	f := &scriptedFetcher{batches: [][]testObs{{{subject: "AAPL", value: 1}}}}
	m := newTestManager(f)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = m.Start(ctx)
	defer m.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id, err := m.Subscribe([]testSubject{"AAPL"}, DefaultConfig(), Sync[testSubject, testObs](func(Event[testSubject, testObs]) {}))
				if err != nil {
					continue
				}
				_ = m.Unsubscribe(id)
			}
		}()
	}
	wg.Wait()

	if got := m.reg.count(); got != 0 {
		t.Fatalf("registry size after stress = %d, want 0", got)
	}
	if got, _ := m.reg.dueSubjects(time.Now()); len(got) != 0 {
		t.Fatalf("due subjects after stress = %v, want none", got)
	}
}

func TestManager_WaitForCondition_TimesOut(t *testing.T) {
	f := &scriptedFetcher{batches: [][]testObs{{{subject: "AAPL", value: 1}}}}
	m := newTestManager(f)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = m.Start(ctx)
	defer m.Stop()

	cfg := Config{PollingFrequency: 100 * time.Millisecond, RetryOnError: true, MaxRetries: 3, ExponentialBackoff: true}
	id, _ := m.Subscribe([]testSubject{"AAPL"}, cfg, Sync[testSubject, testObs](func(Event[testSubject, testObs]) {}))

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer waitCancel()
	_, err := m.WaitForCondition(waitCtx, id, func(o testObs) bool { return o.value == 999 })
	if !errors.Is(err, ErrWaitTimeout) {
		t.Fatalf("WaitForCondition error = %v, want ErrWaitTimeout", err)
	}
}

func TestManager_WaitForCondition_ResolvesOnMatch(t *testing.T) {
	f := &scriptedFetcher{batches: [][]testObs{{{subject: "AAPL", value: 1}}, {{subject: "AAPL", value: 2}}}}
	m := newTestManager(f)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = m.Start(ctx)
	defer m.Stop()

	cfg := Config{PollingFrequency: 100 * time.Millisecond, RetryOnError: true, MaxRetries: 3, ExponentialBackoff: true}
	id, _ := m.Subscribe([]testSubject{"AAPL"}, cfg, Sync[testSubject, testObs](func(Event[testSubject, testObs]) {}))

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	obs, err := m.WaitForCondition(waitCtx, id, func(o testObs) bool { return o.value == 2 })
	if err != nil {
		t.Fatalf("WaitForCondition: %v", err)
	}
	if obs.value != 2 {
		t.Fatalf("resolved value = %d, want 2", obs.value)
	}
}

// A callback that panics must be isolated the same way a callback that
// returns an error would be in a language with exceptions: the panic
// is caught, counted against the subscription, and delivery continues
// on the next change instead of bringing down the dispatch goroutine.
func TestManager_CallbackPanic_IsolatedAndCounted(t *testing.T) {
	f := &scriptedFetcher{batches: [][]testObs{
		{{subject: "AAPL", value: 1}},
		{{subject: "AAPL", value: 2}},
		{{subject: "AAPL", value: 3}},
	}}
	m := newTestManager(f)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = m.Start(ctx)
	defer m.Stop()

	var calls atomic.Int32
	cfg := Config{PollingFrequency: 100 * time.Millisecond, RetryOnError: true, MaxRetries: 3, ExponentialBackoff: true}
	id, err := m.Subscribe([]testSubject{"AAPL"}, cfg, Sync[testSubject, testObs](func(Event[testSubject, testObs]) {
		calls.Add(1)
		panic("boom")
	}))
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := calls.Load(); got < 2 {
		t.Fatalf("panicking callback invoked %d times, want at least 2 (subscription must survive each panic)", got)
	}

	info, err := m.GetSubscriptionInfo(id)
	if err != nil {
		t.Fatalf("GetSubscriptionInfo: %v", err)
	}
	if info.Status != StatusActive {
		t.Fatalf("status after panicking callbacks = %v, want ACTIVE", info.Status)
	}
	if info.CallbackFailures == 0 {
		t.Fatalf("CallbackFailures = 0, want at least one panic counted")
	}
}

// Subscribe on a manager nobody ever called Start on still begins
// polling: the first subscription starts the loop lazily.
func TestManager_LazyStartOnFirstSubscribe(t *testing.T) {
	f := &scriptedFetcher{batches: [][]testObs{{{subject: "AAPL", value: 1}}}}
	m := newTestManager(f)
	defer m.Stop()

	cfg := Config{PollingFrequency: 100 * time.Millisecond, RetryOnError: true, MaxRetries: 3, ExponentialBackoff: true}
	if _, err := m.Subscribe([]testSubject{"AAPL"}, cfg, Sync[testSubject, testObs](func(Event[testSubject, testObs]) {})); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	waitForCondition(t, 2*time.Second, func() bool { return f.callCount() >= 1 })
}

// Stop transitions every remaining subscription to CANCELLED and
// wakes pending waiters with ErrWaitCancelled.
func TestManager_StopCancelsSubscriptionsAndWaiters(t *testing.T) {
	f := &scriptedFetcher{batches: [][]testObs{{{subject: "AAPL", value: 1}}}}
	m := newTestManager(f)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = m.Start(ctx)

	cfg := Config{PollingFrequency: 100 * time.Millisecond, RetryOnError: true, MaxRetries: 3, ExponentialBackoff: true}
	id, _ := m.Subscribe([]testSubject{"AAPL"}, cfg, Sync[testSubject, testObs](func(Event[testSubject, testObs]) {}))

	waitErr := make(chan error, 1)
	go func() {
		_, err := m.WaitForCondition(context.Background(), id, func(o testObs) bool { return o.value == 999 })
		waitErr <- err
	}()

	// Give the waiter time to register before stopping.
	time.Sleep(30 * time.Millisecond)
	m.Stop()

	select {
	case err := <-waitErr:
		if !errors.Is(err, ErrWaitCancelled) {
			t.Fatalf("waiter error after Stop = %v, want ErrWaitCancelled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter never woke after Stop")
	}

	info, err := m.GetSubscriptionInfo(id)
	if err != nil {
		t.Fatalf("GetSubscriptionInfo: %v", err)
	}
	if info.Status != StatusCancelled {
		t.Fatalf("status after Stop = %v, want CANCELLED", info.Status)
	}
}
