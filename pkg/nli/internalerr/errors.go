package internalerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrUnknownLanguage  = errors.New("unknown language")

	// Dispatch failures are fatal for the current question.
	ErrUnmappedQueryType   = errors.New("unmapped query type")
	ErrUnmappedPlan        = errors.New("unmapped query plan")
	ErrUnmappedPlaceholder = errors.New("unmapped placeholder")
)

// DispatchError reports that a question could not be routed to a query type,
// a query plan, or a binding for one of the plan's placeholders.
type DispatchError struct {
	Err      error // one of the ErrUnmapped* sentinels
	Language string
	Input    string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("%v: %q (language %s)", e.Err, e.Input, e.Language)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Dispatch builds a DispatchError for the given sentinel.
func Dispatch(err error, language, input string) error {
	return &DispatchError{Err: err, Language: language, Input: input}
}

// IsFatal reports whether err is a configuration or dispatch failure that ends
// processing of the current question.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrUnknownLanguage) ||
		errors.Is(err, ErrUnmappedQueryType) ||
		errors.Is(err, ErrUnmappedPlan) ||
		errors.Is(err, ErrUnmappedPlaceholder)
}
