package kube

import (
	"errors"
	"sync"
	"time"
)

// ErrClusterUnavailable is returned while a context's breaker is open
var ErrClusterUnavailable = errors.New("cluster unreachable, retry later")

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerHalfOpen
	breakerOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerClosed:
		return "closed"
	case breakerHalfOpen:
		return "half-open"
	case breakerOpen:
		return "open"
	default:
		return "unknown"
	}
}

// BreakerSettings configures the per-context cluster API breaker
type BreakerSettings struct {
	// Failures is the number of consecutive failures that opens the breaker.
	Failures int
	// Cooldown is how long the breaker stays open before one probe is allowed.
	Cooldown time.Duration
}

// DefaultBreakerSettings trips after 3 consecutive failures for 15s
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{Failures: 3, Cooldown: 15 * time.Second}
}

// breaker fails cluster API calls fast after repeated failures, so an
// unreachable cluster does not make every pod refresh wait for a timeout.
type breaker struct {
	settings BreakerSettings
	now      func() time.Time

	mu       sync.Mutex
	state    breakerState
	failures int
	openedAt time.Time
	probing  bool
}

func newBreaker(settings BreakerSettings) *breaker {
	if settings.Failures <= 0 {
		settings.Failures = DefaultBreakerSettings().Failures
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = DefaultBreakerSettings().Cooldown
	}
	return &breaker{settings: settings, now: time.Now}
}

// do runs call unless the breaker is open
func (b *breaker) do(call func() error) error {
	if err := b.before(); err != nil {
		return err
	}
	err := call()
	b.after(err == nil)
	return err
}

func (b *breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == breakerOpen && b.now().Sub(b.openedAt) >= b.settings.Cooldown {
		b.state = breakerHalfOpen
	}

	switch b.state {
	case breakerOpen:
		return ErrClusterUnavailable
	case breakerHalfOpen:
		if b.probing {
			return ErrClusterUnavailable
		}
		b.probing = true
	}
	return nil
}

func (b *breaker) after(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	if success {
		b.state = breakerClosed
		b.failures = 0
		return
	}

	b.failures++
	if b.state == breakerHalfOpen || b.failures >= b.settings.Failures {
		b.state = breakerOpen
		b.openedAt = b.now()
	}
}

func (b *breaker) current() breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
