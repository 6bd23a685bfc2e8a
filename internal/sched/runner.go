// Package sched provides cancelable delayed-step execution for the
// console's simulated pipelines (command execution, brief delivery).
// Every scheduled sequence is keyed by a token; canceling the token
// stops all of its pending steps so a dismissed view never receives
// late callbacks.
package sched

import (
	"sync"
	"time"
)

// Token identifies a scheduled step sequence
type Token uint64

type sequence struct {
	timers    []*time.Timer
	remaining int
}

// Runner schedules step callbacks at fixed offsets from the call time.
// Callbacks run on timer goroutines; callers that touch UI state must
// marshal back onto their event loop themselves.
type Runner struct {
	mu     sync.Mutex
	next   Token
	active map[Token]*sequence
	closed bool
}

// NewRunner creates an empty runner
func NewRunner() *Runner {
	return &Runner{active: make(map[Token]*sequence)}
}

// Schedule arranges for fn to be called once per offset, with the step
// index, after that offset elapses. A zero offset fires synchronously
// before Schedule returns. The returned token cancels the remaining
// steps.
func (r *Runner) Schedule(offsets []time.Duration, fn func(step int)) Token {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0
	}
	r.next++
	token := r.next
	seq := &sequence{}

	var immediate []int
	for i, offset := range offsets {
		if offset <= 0 {
			immediate = append(immediate, i)
			continue
		}
		i := i
		timer := time.AfterFunc(offset, func() {
			r.fire(token, i, fn)
		})
		seq.timers = append(seq.timers, timer)
	}
	seq.remaining = len(seq.timers)
	if seq.remaining > 0 {
		r.active[token] = seq
	}
	r.mu.Unlock()

	for _, i := range immediate {
		fn(i)
	}
	return token
}

// fire runs a step callback unless the token was canceled first
func (r *Runner) fire(token Token, step int, fn func(step int)) {
	r.mu.Lock()
	seq, ok := r.active[token]
	if ok {
		seq.remaining--
		if seq.remaining == 0 {
			delete(r.active, token)
		}
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	fn(step)
}

// Cancel stops all pending steps for a token. Steps already delivered
// are unaffected. Canceling an unknown or finished token is a no-op.
func (r *Runner) Cancel(token Token) {
	r.mu.Lock()
	seq, ok := r.active[token]
	delete(r.active, token)
	r.mu.Unlock()

	if !ok {
		return
	}
	for _, t := range seq.timers {
		t.Stop()
	}
}

// CancelAll stops every pending step across all tokens
func (r *Runner) CancelAll() {
	r.mu.Lock()
	all := r.active
	r.active = make(map[Token]*sequence)
	r.mu.Unlock()

	for _, seq := range all {
		for _, t := range seq.timers {
			t.Stop()
		}
	}
}

// Pending reports whether a token still has undelivered steps
func (r *Runner) Pending(token Token) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[token]
	return ok
}

// Close cancels everything and rejects further scheduling
func (r *Runner) Close() {
	r.mu.Lock()
	r.closed = true
	all := r.active
	r.active = make(map[Token]*sequence)
	r.mu.Unlock()

	for _, seq := range all {
		for _, t := range seq.timers {
			t.Stop()
		}
	}
}
