// Package postgres opens the database, applies the bootstrap schema and
// translates driver errors into store sentinels.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"condo/pkg/platform/sentinel"
)

//go:embed schema.sql
var schema string

// PrincipalIndex is the partial unique index that allows one principal
// residency per unit.
const PrincipalIndex = "residencies_one_principal_per_unit"

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Open connects through the pgx database/sql driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// ApplySchema creates missing tables, indexes and seed roles.
func ApplySchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Schema returns the embedded bootstrap schema.
func Schema() string { return schema }

// Translate maps driver errors to sentinels so services never see pgconn types.
// Unique violations report the violated constraint in the wrapped message.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			if pgErr.ConstraintName == PrincipalIndex {
				return fmt.Errorf("%w: %s", sentinel.ErrConflict, pgErr.ConstraintName)
			}
			return fmt.Errorf("%w: %s", sentinel.ErrDuplicate, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", sentinel.ErrReferenced, pgErr.ConstraintName)
		}
	}
	return err
}

// ConstraintName returns the violated constraint of a driver error, if any.
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}
