// Package errors defines unified error types for scoped secret sessions.
// All source-backend failures are mapped to these standard error types so
// callers can branch on error class without knowing which backend was used.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// SecretError represents a standardized failure while resolving or
// materializing a secret. It is fatal to the session that produced it.
type SecretError struct {
	Type    string `json:"type"`
	Name    string `json:"name"`   // offending secret name, if known
	Source  string `json:"source"` // backend scheme ("vault", "env", ...), if known
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Type, e.Message)
	if e.Name != "" {
		fmt.Fprintf(&b, " (secret=%s", e.Name)
		if e.Source != "" {
			fmt.Fprintf(&b, ", source=%s", e.Source)
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause, if any.
func (e *SecretError) Unwrap() error {
	return e.Err
}

// Error types as constants for consistency.
const (
	TypeResolution     = "secret_resolution_error"
	TypeEmptySecret    = "empty_secret_error"
	TypeArtifactWrite  = "artifact_write_error"
	TypeInvalidRequest = "invalid_request_error"
)

// NewResolutionError reports that the source could not resolve a name.
func NewResolutionError(name, source string, err error) *SecretError {
	return &SecretError{
		Type:    TypeResolution,
		Name:    name,
		Source:  source,
		Message: "secret could not be resolved",
		Err:     err,
	}
}

// NewEmptySecretError reports that a resolved payload was empty or
// whitespace-only.
func NewEmptySecretError(name, source string) *SecretError {
	return &SecretError{
		Type:    TypeEmptySecret,
		Name:    name,
		Source:  source,
		Message: "secret payload is empty",
	}
}

// NewArtifactWriteError reports that a materialized artifact could not be
// written to scratch storage.
func NewArtifactWriteError(name string, err error) *SecretError {
	return &SecretError{
		Type:    TypeArtifactWrite,
		Name:    name,
		Message: "write secret artifact",
		Err:     err,
	}
}

// NewInvalidRequestError reports a malformed session request (for example an
// empty name list).
func NewInvalidRequestError(message string) *SecretError {
	return &SecretError{
		Type:    TypeInvalidRequest,
		Message: message,
	}
}

// IsType reports whether err is (or wraps) a SecretError of the given type.
func IsType(err error, errType string) bool {
	var se *SecretError
	if errors.As(err, &se) {
		return se.Type == errType
	}
	return false
}

// IsResolution reports whether err is a secret resolution failure.
func IsResolution(err error) bool { return IsType(err, TypeResolution) }

// IsEmptySecret reports whether err is an empty-payload failure.
func IsEmptySecret(err error) bool { return IsType(err, TypeEmptySecret) }

// IsArtifactWrite reports whether err is an artifact write failure.
func IsArtifactWrite(err error) bool { return IsType(err, TypeArtifactWrite) }

// CleanupWarning records one failed artifact deletion during session
// teardown. It is never fatal: the session's outcome is decided by the
// wrapped action, not by teardown.
type CleanupWarning struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (w *CleanupWarning) Error() string {
	return fmt.Sprintf("remove secret artifact %s: %v", w.Path, w.Err)
}

// Unwrap returns the underlying deletion error.
func (w *CleanupWarning) Unwrap() error { return w.Err }

// CleanupReport aggregates the cleanup warnings of one session teardown.
// An empty report means every artifact was removed.
type CleanupReport struct {
	Warnings []*CleanupWarning
}

// Empty reports whether all deletions succeeded.
func (r *CleanupReport) Empty() bool {
	return r == nil || len(r.Warnings) == 0
}

// Error implements the error interface for non-empty reports.
func (r *CleanupReport) Error() string {
	if r.Empty() {
		return "secret artifact cleanup: no warnings"
	}
	msgs := make([]string, len(r.Warnings))
	for i, w := range r.Warnings {
		msgs[i] = w.Error()
	}
	return fmt.Sprintf("secret artifact cleanup: %s", strings.Join(msgs, "; "))
}
