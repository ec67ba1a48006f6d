package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"condo/internal/gate/models"
	"condo/internal/platform/postgres"
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

const selectVehicle = `SELECT id, plate, brand, model, color, residency_id, created_at FROM vehicles`

const selectVisitor = `SELECT id, full_name, document_id, entered_at, exited_at, authorized_by FROM visitors`

// residencyArray binds residency IDs as a uuid[] parameter.
func residencyArray(ids []id.ResidencyID) any {
	out := make([]string, len(ids))
	for i, r := range ids {
		out[i] = r.String()
	}
	return pq.Array(out)
}

func (s *PostgresStore) CreateVehicle(ctx context.Context, v *models.Vehicle) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO vehicles (id, plate, brand, model, color, residency_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.UUID(v.ID), v.Plate, v.Brand, v.Model, v.Color, uuid.UUID(v.ResidencyID), v.CreatedAt,
	)
	return postgres.Translate(err)
}

func (s *PostgresStore) FindVehicle(ctx context.Context, vehicleID id.VehicleID) (*models.Vehicle, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, selectVehicle+` WHERE id = $1`, uuid.UUID(vehicleID))
	return scanVehicle(row)
}

func (s *PostgresStore) ListVehicles(ctx context.Context, filter models.VehicleFilter) ([]*models.Vehicle, error) {
	var residency uuid.NullUUID
	if filter.ResidencyID != nil {
		residency = uuid.NullUUID{UUID: uuid.UUID(*filter.ResidencyID), Valid: true}
	}
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, selectVehicle+`
		WHERE ($1::uuid IS NULL OR residency_id = $1)
		  AND (NOT $2 OR residency_id = ANY($3::uuid[]))
		ORDER BY plate`,
		residency, filter.Scope.Restricted, residencyArray(filter.Scope.ResidencyIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Vehicle, 0)
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vehicles: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateVehicle(ctx context.Context, v *models.Vehicle) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		UPDATE vehicles SET plate = $2, brand = $3, model = $4, color = $5, residency_id = $6
		WHERE id = $1`,
		uuid.UUID(v.ID), v.Plate, v.Brand, v.Model, v.Color, uuid.UUID(v.ResidencyID),
	)
	if err != nil {
		return postgres.Translate(err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) DeleteVehicle(ctx context.Context, vehicleID id.VehicleID) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `DELETE FROM vehicles WHERE id = $1`, uuid.UUID(vehicleID))
	if err != nil {
		return postgres.Translate(err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) DeleteVehiclesByResidencies(ctx context.Context, residencyIDs []id.ResidencyID) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx,
		`DELETE FROM vehicles WHERE residency_id = ANY($1::uuid[])`, residencyArray(residencyIDs))
	return postgres.Translate(err)
}

func (s *PostgresStore) CreateVisitor(ctx context.Context, v *models.Visitor) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO visitors (id, full_name, document_id, entered_at, exited_at, authorized_by)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(v.ID), v.FullName, v.DocumentID, v.EnteredAt, nullTime(v.ExitedAt), nullResidency(v.AuthorizedBy),
	)
	return postgres.Translate(err)
}

func (s *PostgresStore) FindVisitor(ctx context.Context, visitorID id.VisitorID) (*models.Visitor, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, selectVisitor+` WHERE id = $1`, uuid.UUID(visitorID))
	return scanVisitor(row)
}

func (s *PostgresStore) ListVisitors(ctx context.Context, filter models.VisitorFilter) ([]*models.Visitor, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, selectVisitor+`
		WHERE (NOT $1 OR exited_at IS NULL)
		  AND (NOT $2 OR authorized_by = ANY($3::uuid[]))
		ORDER BY entered_at DESC`,
		filter.InsideOnly, filter.Scope.Restricted, residencyArray(filter.Scope.ResidencyIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("list visitors: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Visitor, 0)
	for rows.Next() {
		v, err := scanVisitor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate visitors: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateVisitor(ctx context.Context, v *models.Visitor) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		UPDATE visitors SET full_name = $2, document_id = $3, exited_at = $4, authorized_by = $5
		WHERE id = $1`,
		uuid.UUID(v.ID), v.FullName, v.DocumentID, nullTime(v.ExitedAt), nullResidency(v.AuthorizedBy),
	)
	if err != nil {
		return postgres.Translate(err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) DeleteVisitor(ctx context.Context, visitorID id.VisitorID) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `DELETE FROM visitors WHERE id = $1`, uuid.UUID(visitorID))
	if err != nil {
		return postgres.Translate(err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) DetachVisitors(ctx context.Context, residencyIDs []id.ResidencyID) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx,
		`UPDATE visitors SET authorized_by = NULL WHERE authorized_by = ANY($1::uuid[])`, residencyArray(residencyIDs))
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

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullResidency(r *id.ResidencyID) uuid.NullUUID {
	if r == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*r), Valid: true}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVehicle(row rowScanner) (*models.Vehicle, error) {
	var (
		vehicleID, residencyID uuid.UUID
		v                      models.Vehicle
	)
	if err := row.Scan(&vehicleID, &v.Plate, &v.Brand, &v.Model, &v.Color, &residencyID, &v.CreatedAt); err != nil {
		return nil, postgres.Translate(err)
	}
	v.ID = id.VehicleID(vehicleID)
	v.ResidencyID = id.ResidencyID(residencyID)
	return &v, nil
}

func scanVisitor(row rowScanner) (*models.Visitor, error) {
	var (
		visitorID  uuid.UUID
		exitedAt   sql.NullTime
		authorized uuid.NullUUID
		v          models.Visitor
	)
	if err := row.Scan(&visitorID, &v.FullName, &v.DocumentID, &v.EnteredAt, &exitedAt, &authorized); err != nil {
		return nil, postgres.Translate(err)
	}
	v.ID = id.VisitorID(visitorID)
	if exitedAt.Valid {
		t := exitedAt.Time
		v.ExitedAt = &t
	}
	if authorized.Valid {
		r := id.ResidencyID(authorized.UUID)
		v.AuthorizedBy = &r
	}
	return &v, nil
}
