package pipeline

import (
	"errors"
	"fmt"
)

// StageError reports a failed stage. The run is aborted and no partial result
// is returned.
type StageError struct {
	Stage StageID
	Err   error
}

// Error returns the error message
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error
func (e *StageError) Unwrap() error {
	return e.Err
}

// IsStageError reports whether err is or wraps a *StageError.
func IsStageError(err error) bool {
	var se *StageError
	return errors.As(err, &se)
}
