package manager

import "fmt"

// PreconditionError is returned when the cluster is not in a state the
// operation can start from, e.g. there is no RUNNING task to copy network
// settings from.
type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string {
	return "precondition failed: " + e.Message
}

// ConflictError is returned when a create names a task that already exists
type ConflictError struct {
	Name   string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("task name %q already in use: %s", e.Name, e.Reason)
}

// InvalidParameterError is returned for malformed input
type InvalidParameterError struct {
	Field   string
	Message string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
