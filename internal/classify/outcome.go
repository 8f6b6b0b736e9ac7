package classify

import "fmt"

// Outcome is what a submitted form led to.
type Outcome int

const (
	Unknown Outcome = iota
	Success
	ValidationError
	ApplicationError
)

func (o Outcome) String() string {
	switch o {
	case Unknown:
		return "unknown"
	case Success:
		return "success"
	case ValidationError:
		return "validation_error"
	case ApplicationError:
		return "application_error"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}
