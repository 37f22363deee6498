package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an alert or owner does not exist or is not visible to the caller.
	ErrNotFound = errors.New("not found")

	// ErrAmbiguous is returned when an id prefix matches more than one alert.
	ErrAmbiguous = errors.New("ambiguous alert id prefix")

	// ErrBudgetExceeded is returned when an expanded request would need too many provider calls.
	ErrBudgetExceeded = errors.New("call budget exceeded")
)

// ValidationError reports bad user input. Nothing is persisted when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// BudgetError carries the call count that tripped the budget.
type BudgetError struct {
	Calls int
	Limit int
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("%s: request expands to %d provider calls, limit is %d", ErrBudgetExceeded, e.Calls, e.Limit)
}

func (e *BudgetError) Is(target error) bool {
	return target == ErrBudgetExceeded
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
