package utils

import (
	"fmt"
)

// RunSafely executes fn and converts panics into returned errors tagged with scope.
// It is used at goroutine and hand-off boundaries so a failing task never takes down
// a pool worker or the host loop.
func RunSafely(scope string, fn func() error) (err error) {
	defer func() {
		recovered := recover()
		if recovered == nil {
			return
		}
		err = fmt.Errorf("%s: panic recovered: %v", scope, recovered)
	}()

	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", scope, err)
	}

	return nil
}
