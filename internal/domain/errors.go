package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrShotNotFound        = errors.New("shot not found")
	ErrValidation          = errors.New("validation failed")
	ErrProviderFailure     = errors.New("provider failure")
	ErrAdvisoryUnavailable = errors.New("advisory unavailable")
	ErrNotReady            = errors.New("not ready")
)

// ValidationError is a whole-batch precondition violation. It names the
// offending shot positions so the caller can surface them directly.
type ValidationError struct {
	Reason  string
	Indices []int
}

func (e *ValidationError) Error() string {
	if len(e.Indices) == 0 {
		return e.Reason
	}
	parts := make([]string, len(e.Indices))
	for i, idx := range e.Indices {
		parts[i] = strconv.Itoa(idx)
	}
	return fmt.Sprintf("%s (indices %s)", e.Reason, strings.Join(parts, ", "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
