package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"condo/pkg/platform/sentinel"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", sql.ErrNoRows, sentinel.ErrNotFound},
		{"principal index", &pgconn.PgError{Code: "23505", ConstraintName: PrincipalIndex}, sentinel.ErrConflict},
		{"other unique", &pgconn.PgError{Code: "23505", ConstraintName: "units_code_key"}, sentinel.ErrDuplicate},
		{"foreign key", &pgconn.PgError{Code: "23503", ConstraintName: "residencies_unit_id_fkey"}, sentinel.ErrReferenced},
		{"wrapped unique", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), sentinel.ErrDuplicate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, Translate(tt.in), tt.want)
		})
	}

	t.Run("passes other errors through", func(t *testing.T) {
		err := errors.New("connection refused")
		assert.Equal(t, err, Translate(err))
		assert.NoError(t, Translate(nil))
	})
}

func TestSchemaDeclaresPrincipalIndex(t *testing.T) {
	assert.True(t, strings.Contains(Schema(), PrincipalIndex))
	assert.Equal(t, "units_code_key", ConstraintName(&pgconn.PgError{ConstraintName: "units_code_key"}))
}
