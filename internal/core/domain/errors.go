package domain

import (
	"errors"
	"fmt"
)

// Kind says how a caller should react to a DomainError.
type Kind string

const (
	// KindConfiguration is a setup problem: unknown workbook alias,
	// malformed credential, bad config value. Never retried.
	KindConfiguration Kind = "configuration"
	// KindValidation is a request rejected before any remote call.
	KindValidation Kind = "validation"
	// KindRemoteStore is a failed or malformed tabular store call.
	KindRemoteStore Kind = "remote_store"
	// KindStateMismatch means the client's sync state is ahead of the server.
	KindStateMismatch Kind = "state_mismatch"
	// KindSystem covers transport and internal failures.
	KindSystem Kind = "system"
)

// DomainError is an error with a stable wire code such as "SS-SYNC-4090".
// The package-level Err values are sentinels; WithDetails, WithCause and
// Wrap return copies that still match their sentinel under errors.Is.
type DomainError struct {
	Kind    Kind
	Code    string
	Message string
	Details string
	Cause   error
}

func (e *DomainError) Error() string {
	if e.Details == "" {
		return "[" + e.Code + "] " + e.Message
	}
	return "[" + e.Code + "] " + e.Message + ": " + e.Details
}

func (e *DomainError) Unwrap() error { return e.Cause }

// Is matches any DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

func (e *DomainError) clone() *DomainError {
	c := *e
	return &c
}

// WithDetails returns a copy carrying details.
func (e *DomainError) WithDetails(details string) *DomainError {
	c := e.clone()
	c.Details = details
	return c
}

// WithDetailsf is WithDetails with fmt.Sprintf formatting.
func (e *DomainError) WithDetailsf(format string, args ...any) *DomainError {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

// WithCause returns a copy wrapping cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	c := e.clone()
	c.Cause = cause
	return c
}

// Wrap is WithCause that also surfaces the cause's message as details
// when none are set.
func (e *DomainError) Wrap(cause error) *DomainError {
	c := e.WithCause(cause)
	if c.Details == "" && cause != nil {
		c.Details = cause.Error()
	}
	return c
}

// AsDomainError finds the first DomainError in err's chain.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// CodeOf returns err's wire code, or "" for foreign errors.
func CodeOf(err error) string {
	if de, ok := AsDomainError(err); ok {
		return de.Code
	}
	return ""
}

// KindOf returns err's Kind, or KindSystem for foreign errors.
func KindOf(err error) Kind {
	if de, ok := AsDomainError(err); ok {
		return de.Kind
	}
	return KindSystem
}
