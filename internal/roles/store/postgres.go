package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"condo/internal/platform/postgres"
	"condo/internal/roles"
	id "condo/pkg/domain"
	txcontext "condo/pkg/platform/tx"
)

// PostgresStore persists roles in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) List(ctx context.Context) ([]*roles.Role, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx,
		`SELECT id, name, description FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var out []*roles.Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) FindByName(ctx context.Context, name id.RoleName) (*roles.Role, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT id, name, description FROM roles WHERE name = $1`, string(name))
	r, err := scanRole(row)
	if err != nil {
		return nil, postgres.Translate(err)
	}
	return r, nil
}

func (s *PostgresStore) Ensure(ctx context.Context, role *roles.Role) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO roles (id, name, description) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING
	`, uuid.UUID(role.ID), string(role.Name), role.Description)
	if err != nil {
		return fmt.Errorf("ensure role %s: %w", role.Name, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRole(row rowScanner) (*roles.Role, error) {
	var (
		roleID uuid.UUID
		name   string
		r      roles.Role
	)
	if err := row.Scan(&roleID, &name, &r.Description); err != nil {
		return nil, err
	}
	r.ID = id.RoleID(roleID)
	r.Name = id.RoleName(name)
	return &r, nil
}
