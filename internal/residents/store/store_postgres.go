package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"condo/internal/platform/postgres"
	"condo/internal/residents/models"
	id "condo/pkg/domain"
	"condo/pkg/email"
	"condo/pkg/platform/sentinel"
	txcontext "condo/pkg/platform/tx"
)

// PostgresStore persists persons and residencies. Principal uniqueness is
// enforced by the residencies_one_principal_per_unit partial index.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectPerson = `SELECT id, code, first_name, last_name, email, gender, phone, role_id, identity_id, created_at FROM persons`

const selectResidency = `SELECT id, person_id, unit_id, is_principal, created_at FROM residencies`

func (s *PostgresStore) CreatePerson(ctx context.Context, p *models.Person) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO persons (id, code, first_name, last_name, email, gender, phone, role_id, identity_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.UUID(p.ID), p.Code, p.FirstName, p.LastName, p.Email, p.Gender, p.Phone,
		uuid.UUID(p.RoleID), nullUser(p.IdentityID), p.CreatedAt,
	)
	return postgres.Translate(err)
}

func (s *PostgresStore) FindPerson(ctx context.Context, personID id.PersonID) (*models.Person, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, selectPerson+` WHERE id = $1`, uuid.UUID(personID))
	return scanPerson(row)
}

func (s *PostgresStore) FindPersonByIdentity(ctx context.Context, userID id.UserID) (*models.Person, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, selectPerson+` WHERE identity_id = $1`, uuid.UUID(userID))
	return scanPerson(row)
}

func (s *PostgresStore) EmailTaken(ctx context.Context, address string) (bool, error) {
	var taken bool
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM persons WHERE lower(email) = $1)`, email.Normalize(address)).Scan(&taken)
	if err != nil {
		return false, postgres.Translate(err)
	}
	return taken, nil
}

func (s *PostgresStore) CodeTaken(ctx context.Context, code string) (bool, error) {
	var taken bool
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM persons WHERE code = $1)`, code).Scan(&taken)
	if err != nil {
		return false, postgres.Translate(err)
	}
	return taken, nil
}

func (s *PostgresStore) ListPersons(ctx context.Context) ([]*models.Person, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, selectPerson+` ORDER BY last_name, first_name`)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	defer rows.Close()

	var out []*models.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate persons: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdatePerson(ctx context.Context, p *models.Person) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		UPDATE persons SET code = $2, first_name = $3, last_name = $4, email = $5,
			gender = $6, phone = $7, role_id = $8, identity_id = $9
		WHERE id = $1`,
		uuid.UUID(p.ID), p.Code, p.FirstName, p.LastName, p.Email, p.Gender, p.Phone,
		uuid.UUID(p.RoleID), nullUser(p.IdentityID),
	)
	if err != nil {
		return postgres.Translate(err)
	}
	return requireAffected(res)
}

// DeletePerson removes the person; residencies follow through ON DELETE CASCADE.
func (s *PostgresStore) DeletePerson(ctx context.Context, personID id.PersonID) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `DELETE FROM persons WHERE id = $1`, uuid.UUID(personID))
	if err != nil {
		return postgres.Translate(err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) UnlinkIdentity(ctx context.Context, userID id.UserID) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx,
		`UPDATE persons SET identity_id = NULL WHERE identity_id = $1`, uuid.UUID(userID))
	if err != nil {
		return postgres.Translate(err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) CreateResidency(ctx context.Context, r *models.Residency) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO residencies (id, person_id, unit_id, is_principal, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(r.ID), uuid.UUID(r.PersonID), uuid.UUID(r.UnitID), r.IsPrincipal, r.CreatedAt,
	)
	return postgres.Translate(err)
}

func (s *PostgresStore) FindResidency(ctx context.Context, residencyID id.ResidencyID) (*models.Residency, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, selectResidency+` WHERE id = $1`, uuid.UUID(residencyID))
	return scanResidency(row)
}

func (s *PostgresStore) FindPrincipal(ctx context.Context, unitID id.UnitID) (*models.Residency, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		selectResidency+` WHERE unit_id = $1 AND is_principal`, uuid.UUID(unitID))
	return scanResidency(row)
}

func (s *PostgresStore) ListResidencies(ctx context.Context, filter models.ResidencyFilter) ([]*models.Residency, error) {
	query := selectResidency + ` WHERE ($1::uuid IS NULL OR unit_id = $1) AND ($2::uuid IS NULL OR person_id = $2) ORDER BY created_at`
	var unitArg, personArg uuid.NullUUID
	if filter.UnitID != nil {
		unitArg = uuid.NullUUID{UUID: uuid.UUID(*filter.UnitID), Valid: true}
	}
	if filter.PersonID != nil {
		personArg = uuid.NullUUID{UUID: uuid.UUID(*filter.PersonID), Valid: true}
	}
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, unitArg, personArg)
	if err != nil {
		return nil, fmt.Errorf("list residencies: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Residency, 0)
	for rows.Next() {
		r, err := scanResidency(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate residencies: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateResidency(ctx context.Context, r *models.Residency) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		UPDATE residencies SET person_id = $2, unit_id = $3, is_principal = $4 WHERE id = $1`,
		uuid.UUID(r.ID), uuid.UUID(r.PersonID), uuid.UUID(r.UnitID), r.IsPrincipal,
	)
	if err != nil {
		return postgres.Translate(err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) DeleteResidency(ctx context.Context, residencyID id.ResidencyID) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `DELETE FROM residencies WHERE id = $1`, uuid.UUID(residencyID))
	if err != nil {
		return postgres.Translate(err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) DeleteResidenciesByUnit(ctx context.Context, unitID id.UnitID) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `DELETE FROM residencies WHERE unit_id = $1`, uuid.UUID(unitID))
	return postgres.Translate(err)
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

func nullUser(v *id.UserID) uuid.NullUUID {
	if v == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*v), Valid: true}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (*models.Person, error) {
	var (
		personID, roleID uuid.UUID
		identity         uuid.NullUUID
		p                models.Person
	)
	if err := row.Scan(&personID, &p.Code, &p.FirstName, &p.LastName, &p.Email, &p.Gender, &p.Phone,
		&roleID, &identity, &p.CreatedAt); err != nil {
		return nil, postgres.Translate(err)
	}
	p.ID = id.PersonID(personID)
	p.RoleID = id.RoleID(roleID)
	if identity.Valid {
		u := id.UserID(identity.UUID)
		p.IdentityID = &u
	}
	return &p, nil
}

func scanResidency(row rowScanner) (*models.Residency, error) {
	var (
		residencyID, personID, unitID uuid.UUID
		r                             models.Residency
	)
	if err := row.Scan(&residencyID, &personID, &unitID, &r.IsPrincipal, &r.CreatedAt); err != nil {
		return nil, postgres.Translate(err)
	}
	r.ID = id.ResidencyID(residencyID)
	r.PersonID = id.PersonID(personID)
	r.UnitID = id.UnitID(unitID)
	return &r, nil
}
