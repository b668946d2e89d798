package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/tvamit/aya-helthcare-demo/pkg/logging"
)

// ErrUnavailable is returned while a breaker is open.
var ErrUnavailable = errors.New("resilience: dependency temporarily unavailable")

// NewBreaker trips after at least three calls in a minute with a 60% failure
// rate and probes again after thirty seconds.
func NewBreaker(name string, logger *logging.Logger) *gobreaker.CircuitBreaker {
	if logger == nil {
		logger = logging.Default()
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && ratio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			// Callers giving up is not a dependency failure.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// Call runs fn through cb and maps open or half-open rejections to
// ErrUnavailable.
func Call[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	if cb == nil {
		return fn()
	}
	out, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, ErrUnavailable
	}
	if err != nil {
		return zero, err
	}
	v, _ := out.(T)
	return v, nil
}
