package identity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"condo/internal/auth/models"
	"condo/internal/platform/postgres"
	id "condo/pkg/domain"
	"condo/pkg/platform/sentinel"
	txcontext "condo/pkg/platform/tx"
)

// PostgresStore persists identities and their role memberships.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectIdentity = `
	SELECT i.id, i.username, i.email, i.password_hash, i.active, i.created_at, i.last_login_at,
		COALESCE(array_agg(r.name ORDER BY r.name) FILTER (WHERE r.name IS NOT NULL), '{}')
	FROM identities i
	LEFT JOIN identity_roles ir ON ir.identity_id = i.id
	LEFT JOIN roles r ON r.id = ir.role_id
`

func (s *PostgresStore) Create(ctx context.Context, identity *models.Identity) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO identities (id, username, email, password_hash, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.UUID(identity.ID), identity.Username, identity.Email, string(identity.PasswordHash),
		identity.Active, identity.CreatedAt)
	if err != nil {
		return postgres.Translate(err)
	}
	if len(identity.Roles) > 0 {
		return s.SetRoles(ctx, identity.ID, identity.Roles)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.Identity, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		selectIdentity+` WHERE i.id = $1 GROUP BY i.id`, uuid.UUID(userID))
	return scanIdentity(row)
}

func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*models.Identity, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		selectIdentity+` WHERE lower(i.username) = lower($1) GROUP BY i.id`, username)
	return scanIdentity(row)
}

func (s *PostgresStore) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM identities WHERE lower(username) = lower($1))`, username)
}

func (s *PostgresStore) EmailTaken(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM identities WHERE lower(email) = lower($1))`, email)
}

func (s *PostgresStore) exists(ctx context.Context, query string, arg any) (bool, error) {
	var ok bool
	if err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, arg).Scan(&ok); err != nil {
		return false, fmt.Errorf("check identity: %w", err)
	}
	return ok, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Identity, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx,
		selectIdentity+` GROUP BY i.id ORDER BY i.created_at DESC, i.username`)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var out []*models.Identity
	for rows.Next() {
		i, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return out, nil
}

// SetRoles replaces the role memberships of userID. Unknown role names are
// ignored by the join; callers validate names against the registry first.
func (s *PostgresStore) SetRoles(ctx context.Context, userID id.UserID, roles []id.RoleName) error {
	exec := txcontext.Executor(ctx, s.db)
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	if _, err := exec.ExecContext(ctx, `DELETE FROM identity_roles WHERE identity_id = $1`, uuid.UUID(userID)); err != nil {
		return fmt.Errorf("clear roles: %w", err)
	}
	_, err := exec.ExecContext(ctx, `
		INSERT INTO identity_roles (identity_id, role_id)
		SELECT $1, r.id FROM roles r WHERE r.name = ANY($2)
		ON CONFLICT DO NOTHING
	`, uuid.UUID(userID), pq.Array(names))
	if err != nil {
		return postgres.Translate(err)
	}
	return nil
}

func (s *PostgresStore) AddRole(ctx context.Context, userID id.UserID, role id.RoleName) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO identity_roles (identity_id, role_id)
		SELECT $1, r.id FROM roles r WHERE r.name = $2
		ON CONFLICT DO NOTHING
	`, uuid.UUID(userID), string(role))
	return postgres.Translate(err)
}

func (s *PostgresStore) SetActive(ctx context.Context, userID id.UserID, active bool) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx,
		`UPDATE identities SET active = $2 WHERE id = $1`, uuid.UUID(userID), active)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) TouchLogin(ctx context.Context, userID id.UserID, at time.Time) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx,
		`UPDATE identities SET last_login_at = $2 WHERE id = $1`, uuid.UUID(userID), at)
	if err != nil {
		return fmt.Errorf("touch login: %w", err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx,
		`DELETE FROM identities WHERE id = $1`, uuid.UUID(userID))
	if err != nil {
		return postgres.Translate(err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (*models.Identity, error) {
	var (
		userID    uuid.UUID
		hash      string
		lastLogin sql.NullTime
		roleNames pq.StringArray
		i         models.Identity
	)
	err := row.Scan(&userID, &i.Username, &i.Email, &hash, &i.Active, &i.CreatedAt, &lastLogin, &roleNames)
	if err != nil {
		return nil, postgres.Translate(err)
	}
	i.ID = id.UserID(userID)
	i.PasswordHash = []byte(hash)
	if lastLogin.Valid {
		t := lastLogin.Time
		i.LastLoginAt = &t
	}
	i.Roles = make([]id.RoleName, len(roleNames))
	for n, name := range roleNames {
		i.Roles[n] = id.RoleName(name)
	}
	return &i, nil
}
