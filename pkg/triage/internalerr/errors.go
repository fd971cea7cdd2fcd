package internalerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrValidation          = errors.New("dataset validation failed")
	ErrNotFitted           = errors.New("model not fitted")
	ErrResourceUnavailable = errors.New("resource unavailable")
	ErrNotFound            = errors.New("not found")
	ErrInvalidConfig       = errors.New("invalid configuration")
)

// Validation rules reported by ValidationError.
const (
	RuleSchema     = "schema"
	RuleCategories = "categories"
	RuleSize       = "size"
)

// ValidationError reports the dataset rule that was violated.
type ValidationError struct {
	Rule   string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v (%s): %s", ErrValidation, e.Rule, e.Detail)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFittedError is returned when inference runs on a model that was never fit.
type NotFittedError struct {
	Op string
}

func (e *NotFittedError) Error() string {
	if e.Op == "" {
		return ErrNotFitted.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, ErrNotFitted)
}

func (e *NotFittedError) Unwrap() error { return ErrNotFitted }

// ResourceUnavailableError means a linguistic resource could neither be read
// nor fetched.
type ResourceUnavailableError struct {
	Resource string
	Err      error
}

func (e *ResourceUnavailableError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrResourceUnavailable, e.Resource, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *ResourceUnavailableError) Unwrap() []error {
	return []error{ErrResourceUnavailable, e.Err}
}
