package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/relwatch/internal/shared"
	gobreaker "github.com/sony/gobreaker/v2"
)

// BreakerSettings tunes a [Breaker].
type BreakerSettings struct {
	Name             string
	FailureThreshold uint32        // consecutive failures that open the circuit
	OpenTimeout      time.Duration // time spent open before a half-open probe
}

// Breaker wraps upstream calls with a circuit breaker.
//
// Only transient failures count against the circuit: a 404 means upstream is healthy.
type Breaker struct {
	cb     *gobreaker.CircuitBreaker[any]
	logger *log.Logger
}

// NewBreaker creates a [Breaker] that logs state transitions.
func NewBreaker(settings BreakerSettings, logger *log.Logger) *Breaker {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	threshold := settings.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	b := &Breaker{logger: logger}
	b.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, shared.ErrTransient)
		},
	})
	return b
}

// Execute runs fn through the circuit. A rejected call returns an error wrapping
// both [shared.ErrTransient] and [shared.ErrBreakerOpen].
func (b *Breaker) Execute(fn func() error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w: %v", shared.ErrTransient, shared.ErrBreakerOpen, err)
	}
	return err
}

// State returns the current circuit state name.
func (b *Breaker) State() string {
	return b.cb.State().String()
}
