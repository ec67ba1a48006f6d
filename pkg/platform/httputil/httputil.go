// Package httputil holds the JSON response and request-decoding helpers shared
// by every handler.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "condo/pkg/domain-errors"
	"condo/pkg/platform/validation"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error            string              `json:"error"`
	ErrorDescription string              `json:"error_description,omitempty"`
	Fields           map[string][]string `json:"fields,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a coded error to its HTTP status and body. Internal errors,
// authorization denials and credential failures carry no description so the
// response does not reveal why the request failed.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := StatusFor(code)

	resp := ErrorResponse{Error: string(code)}
	switch code {
	case dErrors.CodeInternal, dErrors.CodeForbidden, dErrors.CodeInvalidCredentials:
	default:
		resp.ErrorDescription = dErrors.Message(err)
		resp.Fields = dErrors.Fields(err)
	}
	WriteJSON(w, status, resp)
}

// StatusFor returns the HTTP status for an error code.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeValidation, dErrors.CodeInvalidInput, dErrors.CodeBadRequest,
		dErrors.CodeInvalidRequest, dErrors.CodeInvalidCredentials:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	case dErrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type normalizer interface {
	Normalize()
}

type validatable interface {
	Validate() error
}

// DecodeAndPrepare decodes the JSON body into T, normalizes it, runs tag
// validation and the request's own Validate method. On failure it writes the
// error response and returns false.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	var req T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		logger.InfoContext(ctx, "invalid request body",
			"request_id", requestID,
			"error", err.Error(),
		)
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body too large"))
			return nil, false
		}
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}

	if n, ok := any(&req).(normalizer); ok {
		n.Normalize()
	}

	if err := validation.Struct(ctx, &req); err != nil {
		logger.InfoContext(ctx, "request validation failed",
			"request_id", requestID,
			"fields", dErrors.Fields(err),
		)
		WriteError(w, err)
		return nil, false
	}

	if v, ok := any(&req).(validatable); ok {
		if err := v.Validate(); err != nil {
			logger.InfoContext(ctx, "request validation failed",
				"request_id", requestID,
				"error", err.Error(),
			)
			WriteError(w, err)
			return nil, false
		}
	}

	return &req, true
}
