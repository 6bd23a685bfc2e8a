package sched

import (
	"sync"
	"testing"
	"time"
)

func TestScheduleFiresStepsInOrder(t *testing.T) {
	r := NewRunner()
	defer r.Close()

	var mu sync.Mutex
	var got []int
	done := make(chan struct{})

	r.Schedule([]time.Duration{0, 10 * time.Millisecond, 20 * time.Millisecond}, func(step int) {
		mu.Lock()
		got = append(got, step)
		n := len(got)
		mu.Unlock()
		if n == 3 {
			close(done)
		}
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("steps did not complete")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, step := range got {
		if step != i {
			t.Errorf("step %d fired out of order: got %d", i, step)
		}
	}
}

func TestZeroOffsetFiresSynchronously(t *testing.T) {
	r := NewRunner()
	defer r.Close()

	fired := false
	r.Schedule([]time.Duration{0}, func(step int) { fired = true })
	if !fired {
		t.Fatal("zero-offset step should fire before Schedule returns")
	}
}

func TestCancelStopsPendingSteps(t *testing.T) {
	r := NewRunner()
	defer r.Close()

	var mu sync.Mutex
	count := 0
	token := r.Schedule([]time.Duration{50 * time.Millisecond, 100 * time.Millisecond}, func(step int) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	r.Cancel(token)
	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 0 {
		t.Errorf("canceled sequence delivered %d steps", count)
	}
	if r.Pending(token) {
		t.Error("canceled token should not be pending")
	}
}

func TestCancelAllStopsEverySequence(t *testing.T) {
	r := NewRunner()
	defer r.Close()

	var mu sync.Mutex
	count := 0
	for i := 0; i < 3; i++ {
		r.Schedule([]time.Duration{50 * time.Millisecond}, func(step int) {
			mu.Lock()
			count++
			mu.Unlock()
		})
	}

	r.CancelAll()
	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 0 {
		t.Errorf("CancelAll left %d steps running", count)
	}
}

func TestPendingClearsAfterCompletion(t *testing.T) {
	r := NewRunner()
	defer r.Close()

	done := make(chan struct{})
	token := r.Schedule([]time.Duration{10 * time.Millisecond}, func(step int) {
		close(done)
	})

	if !r.Pending(token) {
		t.Fatal("token should be pending before delivery")
	}
	<-done
	// fire removes the token under the runner lock before invoking the
	// callback, so Pending is false by the time done is closed
	if r.Pending(token) {
		t.Error("token should not be pending after all steps fired")
	}
}

func TestCloseRejectsNewWork(t *testing.T) {
	r := NewRunner()
	r.Close()

	fired := false
	token := r.Schedule([]time.Duration{time.Millisecond}, func(step int) { fired = true })
	time.Sleep(50 * time.Millisecond)

	if token != 0 {
		t.Errorf("closed runner returned live token %d", token)
	}
	if fired {
		t.Error("closed runner delivered a step")
	}
}
