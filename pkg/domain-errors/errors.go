// Package domainerrors carries coded errors across service and transport
// boundaries. Services create or wrap errors with a Code; the HTTP layer maps
// the Code to a status and a stable machine-readable body.
package domainerrors

import (
	"errors"
	"sort"
)

// Code is a stable, client-visible error identifier.
type Code string

const (
	CodeInternal           Code = "internal_error"
	CodeInvariantViolation Code = "invariant_violation"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeBadRequest         Code = "bad_request"
	CodeInvalidRequest     Code = "invalid_request"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeForbidden          Code = "forbidden"
	CodeUnauthorized       Code = "unauthorized"
	CodeInvalidCredentials Code = "invalid_credentials"
	CodeRateLimited        Code = "rate_limited"
	CodeTimeout            Code = "timeout"
	CodeUnavailable        Code = "unavailable"
)

// Error is a coded domain error. Fields holds per-field messages for
// validation and conflict errors.
type Error struct {
	Code    Code
	Message string
	Fields  map[string][]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a coded error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// Validation builds a validation error from field messages.
func Validation(fields map[string][]string) error {
	return &Error{Code: CodeValidation, Message: "validation failed", Fields: fields}
}

// Conflict builds a conflict error whose fields name the records in the way.
func Conflict(msg string, fields map[string][]string) error {
	return &Error{Code: CodeConflict, Message: msg, Fields: fields}
}

// WithField returns err with an additional field message. Non-coded errors
// are wrapped as validation errors.
func WithField(err error, field, msg string) error {
	var de *Error
	if !errors.As(err, &de) {
		de = &Error{Code: CodeValidation, Message: "validation failed", Err: err}
	} else {
		copied := *de
		copied.Fields = cloneFields(de.Fields)
		de = &copied
	}
	if de.Fields == nil {
		de.Fields = map[string][]string{}
	}
	de.Fields[field] = append(de.Fields[field], msg)
	return de
}

// HasCode reports whether err, or anything it wraps, carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias of HasCode kept for call-site readability.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf returns the code of err, or CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Fields returns the field messages attached to err, if any.
func Fields(err error) map[string][]string {
	var de *Error
	if errors.As(err, &de) {
		return de.Fields
	}
	return nil
}

// Message returns the client-facing message of a coded error.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}

// FieldErrors accumulates validation failures so that every violated rule is
// reported in a single response.
type FieldErrors map[string][]string

func (f FieldErrors) Add(field, msg string) {
	f[field] = append(f[field], msg)
}

// Merge copies every message from other into f.
func (f FieldErrors) Merge(other map[string][]string) {
	for field, msgs := range other {
		f[field] = append(f[field], msgs...)
	}
}

func (f FieldErrors) Empty() bool { return len(f) == 0 }

// Keys returns the failing field names in sorted order.
func (f FieldErrors) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Err returns nil when no field failed, or a validation error otherwise.
func (f FieldErrors) Err() error {
	if f.Empty() {
		return nil
	}
	return Validation(cloneFields(f))
}

func cloneFields(in map[string][]string) map[string][]string {
	if in == nil {
		return nil
	}
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = append([]string(nil), v...)
	}
	return out
}
