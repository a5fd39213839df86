package tasks

import (
	"fmt"

	"github.com/n3ms/medialib/internal/shared"
)

// runSupervised invokes fn and converts a panic into an ErrTaskPanic error,
// so an abnormally terminated work unit feeds the same error path as an
// explicit failure and never takes down a manager loop.
func runSupervised(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", shared.ErrTaskPanic, r)
		}
	}()

	return fn()
}
