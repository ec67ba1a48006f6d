package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about records, not validation failures:
// - ErrNotFound: record does not exist in store
// - ErrConflict: write would break a cross-record rule (e.g. second principal residency)
// - ErrDuplicate: a unique key (username, email, unit code, plate) is already taken
// - ErrReferenced: a referenced record is missing (foreign key)
// - ErrExpired: token has expired
// - ErrRevoked: token was revoked before expiry
// - ErrUnavailable: backing service temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrDuplicate   = errors.New("duplicate")
	ErrReferenced  = errors.New("referenced record missing")
	ErrExpired     = errors.New("expired")
	ErrRevoked     = errors.New("revoked")
	ErrUnavailable = errors.New("unavailable")
)
