package httputil

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "condo/pkg/domain-errors"
)

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "internal_error", body["error"])
		assert.NotContains(t, body, "error_description")
	})

	t.Run("uncoded error is internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, io.ErrUnexpectedEOF)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("forbidden carries no detail", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeForbidden, "admin tier required for residents"))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.JSONEq(t, `{"error":"forbidden"}`, w.Body.String())
	})

	t.Run("invalid credentials is a bare 400", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInvalidCredentials, "wrong password"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"invalid_credentials"}`, w.Body.String())
	})

	t.Run("validation error includes fields", func(t *testing.T) {
		fe := dErrors.FieldErrors{}
		fe.Add("email", "already registered")
		w := httptest.NewRecorder()
		WriteError(w, fe.Err())

		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "validation_error", body["error"])
		fields, ok := body["fields"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, []any{"already registered"}, fields["email"])
	})

	t.Run("conflict maps to 409", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeConflict, "unit already has a principal resident"))
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

type prepared struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

func (p *prepared) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
}

func (p *prepared) Validate() error {
	if p.Name == "root" {
		return dErrors.WithField(dErrors.New(dErrors.CodeValidation, "validation failed"), "name", "reserved")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	run := func(body string) (*prepared, *httptest.ResponseRecorder) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		w := httptest.NewRecorder()
		got, ok := DecodeAndPrepare[prepared](w, r, logger, r.Context(), "req")
		if !ok {
			return nil, w
		}
		return got, w
	}

	t.Run("normalizes before validating", func(t *testing.T) {
		got, _ := run(`{"name":"  Ana ","email":" ANA@X.COM "}`)
		require.NotNil(t, got)
		assert.Equal(t, "Ana", got.Name)
		assert.Equal(t, "ana@x.com", got.Email)
	})

	t.Run("malformed json", func(t *testing.T) {
		got, w := run(`{"name":`)
		assert.Nil(t, got)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "bad_request", decodeBody(t, w)["error"])
	})

	t.Run("tag validation", func(t *testing.T) {
		got, w := run(`{"name":"","email":"x"}`)
		assert.Nil(t, got)
		assert.Equal(t, "validation_error", decodeBody(t, w)["error"])
	})

	t.Run("request rules", func(t *testing.T) {
		got, w := run(`{"name":"root","email":"r@x.com"}`)
		assert.Nil(t, got)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
