package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrOpen is returned while the breaker is rejecting calls outright.
	ErrOpen = errors.New("breaker open")
	// ErrProbeBudget is returned when the half-open probe budget is spent.
	ErrProbeBudget = errors.New("breaker probe budget exhausted")
)

// State is the breaker's position in its closed/open/half-open cycle.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	}
	return "unknown"
}

// Stats is a snapshot of the breaker's counters for the current window.
type Stats struct {
	Calls    uint32
	Failures uint32
	// Streak counts consecutive failures; a success resets it.
	Streak uint32
}

// Options tunes the breaker. Zero values pick conservative defaults.
type Options struct {
	// Probes is how many trial calls the half-open state admits.
	Probes uint32
	// Window is how long closed-state counters accumulate before resetting.
	Window time.Duration
	// Cooldown is how long the open state lasts before probing resumes.
	Cooldown time.Duration
	// TripAfter decides, on each closed-state failure, whether to open.
	TripAfter func(Stats) bool
	// OnTransition observes state changes.
	OnTransition func(name string, from, to State)
}

// Breaker fails fast once the backing service is misbehaving, instead of
// stacking timeouts on every host call.
type Breaker struct {
	name string
	opts Options

	mu       sync.Mutex
	state    State
	stats    Stats
	okProbes uint32
	deadline time.Time
	epoch    uint64
}

// New creates a breaker named for the service it guards.
func New(name string, opts Options) *Breaker {
	if opts.Probes == 0 {
		opts.Probes = 1
	}
	if opts.Window == 0 {
		opts.Window = time.Minute
	}
	if opts.Cooldown == 0 {
		opts.Cooldown = 30 * time.Second
	}
	if opts.TripAfter == nil {
		opts.TripAfter = func(s Stats) bool { return s.Streak >= 5 }
	}
	return &Breaker{
		name:     name,
		opts:     opts,
		deadline: time.Now().Add(opts.Window),
	}
}

func (b *Breaker) Name() string { return b.name }

// State reports the breaker's state, advancing open to half-open when the
// cooldown has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, _ := b.tick(time.Now())
	return s
}

// Stats returns the current window's counters.
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// Do runs fn if the breaker admits the call, folding fn's outcome into the
// breaker's counters. A rejected call returns ErrOpen or ErrProbeBudget
// without invoking fn.
func (b *Breaker) Do(fn func() error) error {
	epoch, err := b.admit()
	if err != nil {
		return err
	}
	err = fn()
	b.settle(epoch, err == nil)
	return err
}

func (b *Breaker) admit() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, epoch := b.tick(time.Now())
	switch state {
	case Open:
		return epoch, ErrOpen
	case HalfOpen:
		if b.stats.Calls >= b.opts.Probes {
			return epoch, ErrProbeBudget
		}
	}
	b.stats.Calls++
	return epoch, nil
}

func (b *Breaker) settle(epoch uint64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state, cur := b.tick(now)
	if cur != epoch {
		// the window or state rolled over while the call was in flight
		return
	}

	if ok {
		b.stats.Streak = 0
		if state == HalfOpen {
			b.okProbes++
			if b.okProbes >= b.opts.Probes {
				b.transition(Closed, now)
			}
		}
		return
	}

	b.stats.Failures++
	b.stats.Streak++
	switch state {
	case Closed:
		if b.opts.TripAfter(b.stats) {
			b.transition(Open, now)
		}
	case HalfOpen:
		b.transition(Open, now)
	}
}

// tick rolls the closed window and the open cooldown forward. Callers hold
// the mutex. The returned epoch changes with every reset so a stale call's
// outcome cannot corrupt a newer window.
func (b *Breaker) tick(now time.Time) (State, uint64) {
	switch b.state {
	case Closed:
		if !b.deadline.IsZero() && now.After(b.deadline) {
			b.stats = Stats{}
			b.deadline = now.Add(b.opts.Window)
			b.epoch++
		}
	case Open:
		if now.After(b.deadline) {
			b.transition(HalfOpen, now)
		}
	}
	return b.state, b.epoch
}

func (b *Breaker) transition(to State, now time.Time) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	b.stats = Stats{}
	b.okProbes = 0
	b.epoch++

	switch to {
	case Closed:
		b.deadline = now.Add(b.opts.Window)
	case Open:
		b.deadline = now.Add(b.opts.Cooldown)
	case HalfOpen:
		b.deadline = time.Time{}
	}

	if b.opts.OnTransition != nil {
		b.opts.OnTransition(b.name, from, to)
	}
}
