package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"condo/internal/catalog/models"
	"condo/internal/platform/postgres"
	id "condo/pkg/domain"
	"condo/pkg/platform/sentinel"
	txcontext "condo/pkg/platform/tx"
)

// PostgresStore serves every reference table. Table names come from the
// kind whitelist and are quoted before use.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func table(kind models.Kind) (string, error) {
	t, err := kind.Table()
	if err != nil {
		return "", err
	}
	return pq.QuoteIdentifier(t), nil
}

func columns(kind models.Kind) string {
	if kind.HasDefaultAmount() {
		return "id, name, description, default_amount"
	}
	return "id, name, description, NULL::bigint"
}

func (s *PostgresStore) List(ctx context.Context, kind models.Kind) ([]*models.Entry, error) {
	t, err := table(kind)
	if err != nil {
		return nil, err
	}
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s ORDER BY name`, columns(kind), t))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()

	var out []*models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", kind, err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, kind models.Kind, entryID id.CatalogID) (*models.Entry, error) {
	t, err := table(kind)
	if err != nil {
		return nil, err
	}
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, columns(kind), t), uuid.UUID(entryID))
	return scanEntry(row)
}

func (s *PostgresStore) FindByName(ctx context.Context, kind models.Kind, name string) (*models.Entry, error) {
	t, err := table(kind)
	if err != nil {
		return nil, err
	}
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE name = $1`, columns(kind), t), name)
	return scanEntry(row)
}

func (s *PostgresStore) Create(ctx context.Context, kind models.Kind, entry *models.Entry) error {
	t, err := table(kind)
	if err != nil {
		return err
	}
	var query string
	args := []any{uuid.UUID(entry.ID), entry.Name, entry.Description}
	if kind.HasDefaultAmount() {
		query = fmt.Sprintf(`INSERT INTO %s (id, name, description, default_amount) VALUES ($1, $2, $3, $4)`, t)
		args = append(args, nullInt64(entry.DefaultAmount))
	} else {
		query = fmt.Sprintf(`INSERT INTO %s (id, name, description) VALUES ($1, $2, $3)`, t)
	}
	_, err = txcontext.Executor(ctx, s.db).ExecContext(ctx, query, args...)
	return postgres.Translate(err)
}

func (s *PostgresStore) Update(ctx context.Context, kind models.Kind, entry *models.Entry) error {
	t, err := table(kind)
	if err != nil {
		return err
	}
	var query string
	args := []any{uuid.UUID(entry.ID), entry.Name, entry.Description}
	if kind.HasDefaultAmount() {
		query = fmt.Sprintf(`UPDATE %s SET name = $2, description = $3, default_amount = $4 WHERE id = $1`, t)
		args = append(args, nullInt64(entry.DefaultAmount))
	} else {
		query = fmt.Sprintf(`UPDATE %s SET name = $2, description = $3 WHERE id = $1`, t)
	}
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query, args...)
	if err != nil {
		return postgres.Translate(err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) Delete(ctx context.Context, kind models.Kind, entryID id.CatalogID) error {
	t, err := table(kind)
	if err != nil {
		return err
	}
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, t), uuid.UUID(entryID))
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

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var (
		entryID uuid.UUID
		amount  sql.NullInt64
		e       models.Entry
	)
	if err := row.Scan(&entryID, &e.Name, &e.Description, &amount); err != nil {
		return nil, postgres.Translate(err)
	}
	e.ID = id.CatalogID(entryID)
	if amount.Valid {
		v := amount.Int64
		e.DefaultAmount = &v
	}
	return &e, nil
}
