package subscription

import (
	"testing"
	"time"
)

func TestRingBuffer_PushPopOrder(t *testing.T) {
	buf := newRingBuffer[int](8)
	for i := 0; i < 5; i++ {
		if !buf.push(i) {
			t.Fatalf("push(%d) returned false", i)
		}
	}
	if got := buf.len(); got != 5 {
		t.Errorf("len() = %d, want 5", got)
	}
	for i := 0; i < 5; i++ {
		v, ok := buf.pop()
		if !ok {
			t.Fatalf("pop() returned false for item %d", i)
		}
		if v != i {
			t.Errorf("pop() = %d, want %d", v, i)
		}
	}
	if got := buf.len(); got != 0 {
		t.Errorf("len() after drain = %d, want 0", got)
	}
}

func TestRingBuffer_PushBlocksWhenFull(t *testing.T) {
	buf := newRingBuffer[int](2)
	buf.push(1)
	buf.push(2)

	pushed := make(chan struct{})
	go func() {
		buf.push(3)
		close(pushed)
	}()

	select {
	case <-pushed:
		t.Fatal("push() on a full buffer returned before a slot freed up")
	case <-time.After(20 * time.Millisecond):
	}

	v, ok := buf.pop()
	if !ok || v != 1 {
		t.Fatalf("pop() = (%d, %v), want (1, true)", v, ok)
	}

	select {
	case <-pushed:
	case <-time.After(time.Second):
		t.Fatal("push() never unblocked after pop() freed a slot")
	}
	if got := buf.len(); got != 2 {
		t.Errorf("len() = %d, want 2", got)
	}
}

func TestRingBuffer_CloseDrainsThenStops(t *testing.T) {
	buf := newRingBuffer[int](4)
	buf.push(1)
	buf.push(2)
	buf.close()

	if buf.push(3) {
		t.Fatal("push() after close returned true, want false")
	}

	for _, want := range []int{1, 2} {
		v, ok := buf.pop()
		if !ok || v != want {
			t.Fatalf("pop() = (%d, %v), want (%d, true)", v, ok, want)
		}
	}
	if _, ok := buf.pop(); ok {
		t.Fatal("pop() after drain+close returned ok=true, want false")
	}
}

func TestRingBuffer_PopBlocksUntilPush(t *testing.T) {
	buf := newRingBuffer[int](2)
	done := make(chan int, 1)
	go func() {
		v, ok := buf.pop()
		if ok {
			done <- v
		} else {
			done <- -1
		}
	}()

	buf.push(42)
	if got := <-done; got != 42 {
		t.Fatalf("blocked pop() = %d, want 42", got)
	}
}
