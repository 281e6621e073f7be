// Package backoff computes delays between retry attempts.
package backoff

import (
	"math"
	"time"
)

// Strategy returns how long to wait after the given attempt, which starts at 1.
type Strategy func(attempts uint) time.Duration

// Constant waits the same interval after every attempt.
func Constant(interval time.Duration) Strategy {
	return func(uint) time.Duration {
		return interval
	}
}

// BinaryExponential doubles the delay after every attempt, starting at base:
// base, 2*base, 4*base, ... Delays that would overflow saturate.
func BinaryExponential(base time.Duration) Strategy {
	return func(attempts uint) time.Duration {
		if attempts <= 1 {
			return base
		}

		shift := attempts - 1
		if shift >= 63 || base > time.Duration(math.MaxInt64>>shift) {
			return math.MaxInt64
		}
		return base << shift
	}
}
