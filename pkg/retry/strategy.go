package retry

import (
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/code-payments/todo-server/pkg/retry/backoff"
)

// Strategy decides whether to make another attempt after a failure. It may
// block, eg. to back off.
type Strategy func(attempts uint, err error) bool

// sleep is swapped out in tests.
var sleep = time.Sleep

// Limit allows at most maxAttempts attempts in total, including the first.
func Limit(maxAttempts uint) Strategy {
	return func(attempts uint, _ error) bool {
		return attempts < maxAttempts
	}
}

// RetriableErrors only retries errors that match one of targets via errors.Is.
func RetriableErrors(targets ...error) Strategy {
	return func(_ uint, err error) bool {
		for _, target := range targets {
			if errors.Is(err, target) {
				return true
			}
		}
		return false
	}
}

// Backoff sleeps for the strategy's delay, capped at maxBackoff, and then
// always allows the retry.
func Backoff(strategy backoff.Strategy, maxBackoff time.Duration) Strategy {
	return func(attempts uint, _ error) bool {
		sleep(min(strategy(attempts), maxBackoff))
		return true
	}
}

// BackoffWithJitter is Backoff with the capped delay scaled by a uniform
// factor in [1-jitter, 1+jitter].
func BackoffWithJitter(strategy backoff.Strategy, maxBackoff time.Duration, jitter float64) Strategy {
	return func(attempts uint, _ error) bool {
		delay := float64(min(strategy(attempts), maxBackoff))
		spread := (rand.Float64()*2 - 1) * jitter
		sleep(time.Duration(delay * (1 + spread)))
		return true
	}
}
