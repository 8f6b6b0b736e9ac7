package scenario

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownScenario is returned by Run for a name that is not registered.
	ErrUnknownScenario = errors.New("unknown scenario")
	ErrInterrupted     = errors.New("run interrupted")
)

// AssertionError is a scenario check that did not hold.
type AssertionError struct {
	Scenario string
	Expected string
	Got      string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Scenario, e.Expected, e.Got)
}
