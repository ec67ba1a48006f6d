package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"condo/internal/platform/postgres"
	"condo/internal/property/models"
	id "condo/pkg/domain"
	"condo/pkg/platform/sentinel"
	txcontext "condo/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectUnit = `SELECT id, code, area_m2, rooms, category_id, description, owner_identity_id, created_at FROM units`

func (s *PostgresStore) Create(ctx context.Context, unit *models.Unit) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO units (id, code, area_m2, rooms, category_id, description, owner_identity_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.UUID(unit.ID), unit.Code, unit.AreaM2, unit.Rooms,
		nullCatalog(unit.CategoryID), unit.Description, nullUser(unit.OwnerIdentityID), unit.CreatedAt,
	)
	return postgres.Translate(err)
}

func (s *PostgresStore) FindByID(ctx context.Context, unitID id.UnitID) (*models.Unit, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, selectUnit+` WHERE id = $1`, uuid.UUID(unitID))
	return scanUnit(row)
}

// LockForUpdate takes the row lock that serializes registrations for the
// unit. It must run inside a transaction.
func (s *PostgresStore) LockForUpdate(ctx context.Context, unitID id.UnitID) error {
	if _, ok := txcontext.From(ctx); !ok {
		return fmt.Errorf("lock unit %s: no transaction in context", unitID)
	}
	var locked uuid.UUID
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT id FROM units WHERE id = $1 FOR UPDATE`, uuid.UUID(unitID)).Scan(&locked)
	return postgres.Translate(err)
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Unit, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, selectUnit+` ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()

	var out []*models.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate units: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, unit *models.Unit) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		UPDATE units SET code = $2, area_m2 = $3, rooms = $4, category_id = $5,
			description = $6, owner_identity_id = $7
		WHERE id = $1`,
		uuid.UUID(unit.ID), unit.Code, unit.AreaM2, unit.Rooms,
		nullCatalog(unit.CategoryID), unit.Description, nullUser(unit.OwnerIdentityID),
	)
	if err != nil {
		return postgres.Translate(err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) Delete(ctx context.Context, unitID id.UnitID) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `DELETE FROM units WHERE id = $1`, uuid.UUID(unitID))
	if err != nil {
		return postgres.Translate(err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) ClearCategory(ctx context.Context, categoryID id.CatalogID) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx,
		`UPDATE units SET category_id = NULL WHERE category_id = $1`, uuid.UUID(categoryID))
	return postgres.Translate(err)
}

func (s *PostgresStore) ClearOwner(ctx context.Context, userID id.UserID) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx,
		`UPDATE units SET owner_identity_id = NULL WHERE owner_identity_id = $1`, uuid.UUID(userID))
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

func nullCatalog(v *id.CatalogID) uuid.NullUUID {
	if v == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*v), Valid: true}
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

func scanUnit(row rowScanner) (*models.Unit, error) {
	var (
		unitID   uuid.UUID
		category uuid.NullUUID
		owner    uuid.NullUUID
		u        models.Unit
	)
	if err := row.Scan(&unitID, &u.Code, &u.AreaM2, &u.Rooms, &category, &u.Description, &owner, &u.CreatedAt); err != nil {
		return nil, postgres.Translate(err)
	}
	u.ID = id.UnitID(unitID)
	if category.Valid {
		c := id.CatalogID(category.UUID)
		u.CategoryID = &c
	}
	if owner.Valid {
		o := id.UserID(owner.UUID)
		u.OwnerIdentityID = &o
	}
	return &u, nil
}
