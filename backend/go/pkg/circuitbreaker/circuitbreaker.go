package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State represents the state of the circuit breaker.
type State int

const (
	// Closed is the initial state where requests are allowed.
	Closed State = iota
	// Open state is when the circuit has tripped and requests are blocked.
	Open
	// HalfOpen lets trial requests through to test the system's recovery.
	HalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Open:
		return "Open"
	case HalfOpen:
		return "Half-Open"
	default:
		return "Unknown"
	}
}

// ErrCircuitOpen is returned when the circuit breaker is in the Open state.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Settings configures a Breaker.
type Settings struct {
	FailureThreshold uint32        // consecutive failures that open the circuit
	SuccessThreshold uint32        // consecutive half-open successes that close it again
	Timeout          time.Duration // how long the circuit stays open
	OnStateChange    func(from, to State)
}

// Breaker implements the circuit breaker pattern.
type Breaker struct {
	settings  Settings
	state     State
	failures  uint32
	successes uint32
	openedAt  time.Time
	now       func() time.Time
	mutex     sync.Mutex
}

// New creates a Breaker. Zero thresholds are treated as 1.
func New(s Settings) *Breaker {
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 1
	}
	if s.SuccessThreshold == 0 {
		s.SuccessThreshold = 1
	}
	return &Breaker{settings: s, state: Closed, now: time.Now}
}

// State returns the current state, moving Open to HalfOpen once the timeout passed.
func (cb *Breaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.refresh()
	return cb.state
}

// Execute runs req unless the circuit is open. A non-nil error from req counts as a failure.
func (cb *Breaker) Execute(req func() error) error {
	if err := cb.Allow(); err != nil {
		return err
	}
	err := req()
	cb.Done(err == nil)
	return err
}

// Allow reports whether a request may start. Callers that use Allow must call Done.
func (cb *Breaker) Allow() error {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.refresh()
	if cb.state == Open {
		return ErrCircuitOpen
	}
	return nil
}

// Done records the outcome of a request admitted by Allow.
func (cb *Breaker) Done(success bool) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case HalfOpen:
		if !success {
			cb.setState(Open)
			return
		}
		cb.successes++
		if cb.successes >= cb.settings.SuccessThreshold {
			cb.setState(Closed)
		}
	case Closed:
		if success {
			cb.failures = 0
			return
		}
		cb.failures++
		if cb.failures >= cb.settings.FailureThreshold {
			cb.setState(Open)
		}
	}
}

// refresh 假设已持有锁。
func (cb *Breaker) refresh() {
	if cb.state == Open && cb.now().Sub(cb.openedAt) >= cb.settings.Timeout {
		cb.setState(HalfOpen)
	}
}

func (cb *Breaker) setState(to State) {
	from := cb.state
	cb.state = to
	cb.failures, cb.successes = 0, 0
	if to == Open {
		cb.openedAt = cb.now()
	}
	if cb.settings.OnStateChange != nil && from != to {
		cb.settings.OnStateChange(from, to)
	}
}
