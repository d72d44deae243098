package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrForbidden signals that the caller may not act on the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidBusiness signals a business that fails validation.
	ErrInvalidBusiness = errors.New("invalid business")
	// ErrLimitReached signals that an owner reached the business quota.
	ErrLimitReached = errors.New("business limit reached")
	// ErrInvalidImage signals an unsupported or empty image upload.
	ErrInvalidImage = errors.New("invalid image")
	// ErrStorageDisabled signals that object storage is not configured.
	ErrStorageDisabled = errors.New("object storage disabled")

	// ErrMalformedQuery signals a raw query that is not a flat string map.
	ErrMalformedQuery = errors.New("malformed query")
	// ErrInvalidParameter signals an invalid limit or page value.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrInvalidLocation signals a location filter that fails validation.
	ErrInvalidLocation = errors.New("invalid location")
	// ErrUnknownPostalCode signals a postal code missing from the lookup table.
	ErrUnknownPostalCode = errors.New("unknown postal code")
	// ErrQueryExecution signals a record store failure while running a query.
	ErrQueryExecution = errors.New("query execution failed")
)

// MalformedQueryError wraps ErrMalformedQuery with the reason the input was rejected.
type MalformedQueryError struct {
	Reason string
}

func (e *MalformedQueryError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMalformedQuery.Error(), e.Reason)
}

func (e *MalformedQueryError) Unwrap() error { return ErrMalformedQuery }

// ParameterError wraps ErrInvalidParameter with the offending parameter.
type ParameterError struct {
	Name  string
	Value string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("%s: %s=%q", ErrInvalidParameter.Error(), e.Name, e.Value)
}

func (e *ParameterError) Unwrap() error { return ErrInvalidParameter }

// LocationError wraps ErrInvalidLocation with a human-readable reason.
type LocationError struct {
	Raw    string
	Reason string
}

func (e *LocationError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrInvalidLocation.Error(), e.Raw, e.Reason)
}

func (e *LocationError) Unwrap() error { return ErrInvalidLocation }

// PostalCodeError wraps ErrUnknownPostalCode with the code that was looked up.
type PostalCodeError struct {
	Code string
}

func (e *PostalCodeError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownPostalCode.Error(), e.Code)
}

func (e *PostalCodeError) Unwrap() error { return ErrUnknownPostalCode }

// ExecutionError wraps a record store failure. It matches both
// ErrQueryExecution and the underlying cause.
type ExecutionError struct {
	Op  string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrQueryExecution.Error(), e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() []error { return []error{ErrQueryExecution, e.Err} }

// NewExecutionError creates a query execution error for the given store operation.
func NewExecutionError(op string, err error) error {
	return &ExecutionError{Op: op, Err: err}
}
