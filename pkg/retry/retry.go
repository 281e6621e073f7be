// Package retry re-runs an action until it succeeds or a Strategy gives up.
package retry

// Action is a function to be performed in a retriable manner.
type Action func() error

// Retry runs action until it returns nil or any strategy declines another
// attempt, returning the number of attempts made and the final error.
//
// Strategies are consulted in order and evaluation stops at the first one
// that declines, so strategies that sleep belong last.
func Retry(action Action, strategies ...Strategy) (uint, error) {
	for attempts := uint(1); ; attempts++ {
		err := action()
		if err == nil {
			return attempts, nil
		}

		if !allow(strategies, attempts, err) {
			return attempts, err
		}
	}
}

func allow(strategies []Strategy, attempts uint, err error) bool {
	for _, strategy := range strategies {
		if !strategy(attempts, err) {
			return false
		}
	}
	return true
}
