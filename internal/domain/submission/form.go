package submission

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultResetDelay is how long a terminal form state stays visible.
const DefaultResetDelay = 10 * time.Second

// Phase is the visible state of a form.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSubmitting Phase = "submitting"
	PhaseSuccess    Phase = "success"
	PhaseError      Phase = "error"
)

// Snapshot is a point-in-time view of a form.
type Snapshot struct {
	Phase   Phase
	Message string
}

// FormOption configures a FormState.
type FormOption func(*FormState)

// WithResetDelay sets the auto-reset delay. Non-positive values are ignored.
func WithResetDelay(d time.Duration) FormOption {
	return func(f *FormState) {
		if d > 0 {
			f.delay = d
		}
	}
}

// WithFormClock sets the clock that drives the reset timer.
func WithFormClock(c clockwork.Clock) FormOption {
	return func(f *FormState) {
		if c != nil {
			f.clock = c
		}
	}
}

// WithOnReset registers a callback run after the timer returns the form to idle.
func WithOnReset(fn func()) FormOption {
	return func(f *FormState) { f.onReset = fn }
}

// FormState is the idle -> submitting -> success|error machine shared by
// both forms. Entering a terminal state arms a single timer that returns the
// form to idle and clears the message. Starting a new submission or closing
// the form disarms it.
type FormState struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	delay   time.Duration
	onReset func()

	phase   Phase
	message string
	timer   clockwork.Timer
	gen     uint64
	closed  bool
}

// NewFormState creates an idle form.
func NewFormState(opts ...FormOption) *FormState {
	f := &FormState{
		clock: clockwork.NewRealClock(),
		delay: DefaultResetDelay,
		phase: PhaseIdle,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Begin enters submitting. It reports false when a submission is already
// pending or the form is closed, so the caller must not submit again.
func (f *FormState) Begin() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || f.phase == PhaseSubmitting {
		return false
	}
	f.disarm()
	f.phase = PhaseSubmitting
	f.message = ""
	return true
}

// Succeed enters success with msg and arms the reset timer.
func (f *FormState) Succeed(msg string) {
	f.finish(PhaseSuccess, msg)
}

// Fail enters error with msg and arms the reset timer.
func (f *FormState) Fail(msg string) {
	f.finish(PhaseError, msg)
}

// Complete settles the form from a pipeline outcome.
func (f *FormState) Complete(successMsg string, err error) {
	if err != nil {
		f.Fail(UserMessage(err))
		return
	}
	f.Succeed(successMsg)
}

// Close disarms the timer and freezes the form.
func (f *FormState) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.disarm()
	f.closed = true
}

// Snapshot returns the current phase and message.
func (f *FormState) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Snapshot{Phase: f.phase, Message: f.message}
}

// Armed reports whether a reset timer is pending.
func (f *FormState) Armed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timer != nil
}

func (f *FormState) finish(phase Phase, msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.disarm()
	f.phase = phase
	f.message = msg

	gen := f.gen
	f.timer = f.clock.AfterFunc(f.delay, func() { f.reset(gen) })
}

// reset runs on the timer goroutine. A timer from an older generation may
// still fire after being stopped; it must not touch a newer state.
func (f *FormState) reset(gen uint64) {
	f.mu.Lock()
	if f.closed || gen != f.gen {
		f.mu.Unlock()
		return
	}
	f.phase = PhaseIdle
	f.message = ""
	f.timer = nil
	f.gen++
	cb := f.onReset
	f.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// disarm must be called with f.mu held.
func (f *FormState) disarm() {
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.gen++
}
