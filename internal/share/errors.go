package share

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by every NotFoundError so callers can test with
// errors.Is without knowing the concrete message.
var ErrNotFound = errors.New("share not found")

// ErrNoSuchProvider is returned by the registry for an unknown share type or
// provider id.
var ErrNoSuchProvider = errors.New("no provider registered")

// ValidationError marks malformed or self-contradictory input. Its message
// is safe to surface verbatim.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// PolicyError marks a request that is well formed but rejected by the
// sharing policy. Message is the internal diagnostic; only Hint should ever
// reach an end user.
type PolicyError struct {
	Message string
	Hint    string
}

func (e *PolicyError) Error() string { return e.Message }

func policyf(hint string, format string, args ...interface{}) error {
	return &PolicyError{Message: fmt.Sprintf(format, args...), Hint: hint}
}

// ProviderError marks a storage-invariant violation discovered at write
// time, for example a referenced group that vanished between check and
// write.
type ProviderError struct {
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error { return e.Err }

// VetoError reports that a registered before-listener cancelled the
// operation. Reason comes from the listener and is safe to surface.
type VetoError struct {
	Reason string
}

func (e *VetoError) Error() string { return e.Reason }

// NotFoundError covers unresolved ids and tokens, including shares
// discovered to be expired at read time.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string { return e.What }

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func notFoundf(format string, args ...interface{}) error {
	return &NotFoundError{What: fmt.Sprintf(format, args...)}
}
