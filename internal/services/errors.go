package services

import "fmt"

// NotFoundError reports a reference to an unknown template or contract
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// NewNotFoundError creates a NotFoundError for the given resource and id
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError reports missing or malformed input fields
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed on %q: %s", e.Field, e.Reason)
}

// IllegalStateError reports an operation attempted against a contract whose
// current status forbids it, or a service missing required wiring.
type IllegalStateError struct {
	Operation string
	Reason    string
}

func (e *IllegalStateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Operation, e.Reason)
}

// ExternalServiceError wraps a failure from a storage or notification
// collaborator. Storage failures propagate to the caller; notifier failures
// are logged and swallowed at the service boundary.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}
