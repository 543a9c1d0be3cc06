package kube

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBoom = errors.New("boom")

func fail() error    { return errBoom }
func succeed() error { return nil }

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := newBreaker(BreakerSettings{Failures: 2, Cooldown: time.Minute})

	assert.ErrorIs(t, b.do(fail), errBoom)
	assert.Equal(t, breakerClosed, b.current())
	assert.ErrorIs(t, b.do(fail), errBoom)
	assert.Equal(t, breakerOpen, b.current())

	called := false
	err := b.do(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrClusterUnavailable)
	assert.False(t, called)
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	b := newBreaker(BreakerSettings{Failures: 2, Cooldown: time.Minute})

	b.do(fail)
	b.do(succeed)
	b.do(fail)
	assert.Equal(t, breakerClosed, b.current())
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	clock := time.Now()
	b := newBreaker(BreakerSettings{Failures: 1, Cooldown: 10 * time.Second})
	b.now = func() time.Time { return clock }

	b.do(fail)
	assert.Equal(t, breakerOpen, b.current())

	clock = clock.Add(11 * time.Second)
	assert.ErrorIs(t, b.do(fail), errBoom, "probe is let through")
	assert.Equal(t, breakerOpen, b.current(), "failed probe reopens")

	clock = clock.Add(11 * time.Second)
	assert.NoError(t, b.do(succeed))
	assert.Equal(t, breakerClosed, b.current())
}

func TestBreakerStateString(t *testing.T) {
	assert.Equal(t, "closed", breakerClosed.String())
	assert.Equal(t, "half-open", breakerHalfOpen.String())
	assert.Equal(t, "open", breakerOpen.String())
}
