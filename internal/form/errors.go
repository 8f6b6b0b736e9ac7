package form

import (
	"errors"
	"fmt"
)

// ErrElementNotFound matches every ElementNotFoundError.
var ErrElementNotFound = errors.New("form element not found")

// ElementNotFoundError means a form control never became visible.
type ElementNotFoundError struct {
	Control  string
	Selector string
	Err      error
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("%s control %s not found: %v", e.Control, e.Selector, e.Err)
}

func (e *ElementNotFoundError) Unwrap() error { return e.Err }

func (e *ElementNotFoundError) Is(target error) bool { return target == ErrElementNotFound }
