package transform

import "fmt"

// InvariantError is a transformation input that must never reach the stage,
// such as an empty price series at the processed tier.
type InvariantError struct {
	Stage   string
	Message string
	Err     error
}

func (e *InvariantError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s invariant violated: %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("%s invariant violated: %s", e.Stage, e.Message)
}

func (e *InvariantError) Unwrap() error {
	return e.Err
}
