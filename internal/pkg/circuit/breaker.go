package circuit

import (
	"sync"
	"time"

	"odta/internal/logger"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// Breaker shields a flaky remote dependency. After threshold consecutive
// failures it opens and refuses calls until the cooldown elapses, then
// admits a single probe.
type Breaker struct {
	mu          sync.Mutex
	state       State
	failures    int
	threshold   int
	cooldown    time.Duration
	lastFailure time.Time
	name        string
}

func NewBreaker(name string, threshold int, cooldown time.Duration) *Breaker {
	return &Breaker{
		name:      name,
		threshold: threshold,
		cooldown:  cooldown,
		state:     StateClosed,
	}
}

// Allow reports whether a call may proceed right now.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if time.Since(b.lastFailure) > b.cooldown {
			b.transition(StateHalfOpen)
			return true
		}
		return false
	default:
		return true
	}
}

func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.transition(StateClosed)
	}
	b.failures = 0
}

func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = time.Now()

	switch b.state {
	case StateClosed:
		if b.failures >= b.threshold {
			b.transition(StateOpen)
		}
	case StateHalfOpen:
		b.transition(StateOpen)
	}
}

func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	logger.Warnf("CircuitBreaker %s: %s -> %s (failures=%d/%d cooldown=%s)",
		b.name, from, to, b.failures, b.threshold, b.cooldown)
}
