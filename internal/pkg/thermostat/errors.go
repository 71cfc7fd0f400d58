package thermostat

import (
	"errors"
	"fmt"
)

var (
	ErrValidation     = errors.New("invalid variable value")
	ErrDeviceNotFound = errors.New("device not found")
)

// ValidationError is a local write that was rejected before reaching the network.
type ValidationError struct {
	Variable string
	Value    any
	Err      error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid value %v for %s: %v", e.Value, e.Variable, e.Err)
	}
	return fmt.Sprintf("invalid value %v for %s", e.Value, e.Variable)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
