package negotiate

import (
	"errors"
	"strings"
)

// ErrExhausted matches any *ExhaustedError via errors.Is.
var ErrExhausted = errors.New("elicitation call shape not compatible")

// Attempt records one failed step.
type Attempt struct {
	Step Step
	Err  error
}

// ExhaustedError is returned when every step failed. It holds one attempt
// per step tried, in order.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Step.String()+": "+a.Err.Error())
	}
	return ErrExhausted.Error() + "; tried variants: " + strings.Join(parts, " | ")
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}

// Messages returns the underlying failure messages in the order tried.
func (e *ExhaustedError) Messages() []string {
	out := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		out = append(out, a.Err.Error())
	}
	return out
}
