package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"condo/internal/billing/models"
	catalogmodels "condo/internal/catalog/models"
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

const selectFee = `
	SELECT f.id, f.unit_id, f.fee_type_id, f.status_id, f.amount, f.issue_date, f.due_date, f.paid, f.created_at,
	       COALESCE((SELECT SUM(fp.applied_amount) FROM fee_payments fp WHERE fp.fee_id = f.id), 0)
	FROM fees f`

const selectPayment = `SELECT id, payment_type_id, amount, paid_at, reference FROM payments`

func (s *PostgresStore) CreateFee(ctx context.Context, f *models.Fee) error {
	exec := txcontext.Executor(ctx, s.db)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO fees (id, unit_id, fee_type_id, status_id, amount, issue_date, due_date, paid, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.UUID(f.ID), uuid.UUID(f.UnitID), uuid.UUID(f.FeeTypeID), uuid.UUID(f.StatusID),
		f.Amount, f.IssueDate.Time, f.DueDate.Time, f.Paid, f.CreatedAt,
	)
	if err != nil {
		return postgres.Translate(err)
	}
	return s.insertItems(ctx, f)
}

func (s *PostgresStore) insertItems(ctx context.Context, f *models.Fee) error {
	exec := txcontext.Executor(ctx, s.db)
	for _, it := range f.Items {
		_, err := exec.ExecContext(ctx,
			`INSERT INTO fee_items (id, fee_id, description, amount) VALUES ($1, $2, $3, $4)`,
			uuid.UUID(it.ID), uuid.UUID(f.ID), it.Description, it.Amount,
		)
		if err != nil {
			return postgres.Translate(err)
		}
	}
	return nil
}

func (s *PostgresStore) FindFee(ctx context.Context, feeID id.FeeID) (*models.Fee, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, selectFee+` WHERE f.id = $1`, uuid.UUID(feeID))
	f, err := scanFee(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadItems(ctx, []*models.Fee{f}); err != nil {
		return nil, err
	}
	return f, nil
}

// LockFees row-locks the given fees until the surrounding transaction ends.
// Rows are locked in id order so concurrent payments over overlapping fees
// cannot deadlock. Unknown ids are ignored.
func (s *PostgresStore) LockFees(ctx context.Context, feeIDs []id.FeeID) error {
	if len(feeIDs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(feeIDs))
	for _, f := range feeIDs {
		ids = append(ids, f.String())
	}
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx,
		`SELECT id FROM fees WHERE id = ANY($1::uuid[]) ORDER BY id FOR UPDATE`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("lock fees: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("lock fees: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListFees(ctx context.Context, filter models.FeeFilter) ([]*models.Fee, error) {
	var unit uuid.NullUUID
	if filter.UnitID != nil {
		unit = uuid.NullUUID{UUID: uuid.UUID(*filter.UnitID), Valid: true}
	}
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, selectFee+`
		WHERE ($1::uuid IS NULL OR f.unit_id = $1)
		  AND (NOT $2 OR NOT f.paid)
		ORDER BY f.due_date, f.created_at`,
		unit, filter.UnpaidOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("list fees: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Fee, 0)
	for rows.Next() {
		f, err := scanFee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fees: %w", err)
	}
	if err := s.loadItems(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// loadItems fills the items of fees with one query.
func (s *PostgresStore) loadItems(ctx context.Context, fees []*models.Fee) error {
	if len(fees) == 0 {
		return nil
	}
	byID := make(map[id.FeeID]*models.Fee, len(fees))
	ids := make([]string, 0, len(fees))
	for _, f := range fees {
		f.Items = []models.FeeItem{}
		byID[f.ID] = f
		ids = append(ids, f.ID.String())
	}
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, `
		SELECT id, fee_id, description, amount FROM fee_items
		WHERE fee_id = ANY($1::uuid[])
		ORDER BY description, id`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("list fee items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			itemID, feeID uuid.UUID
			it            models.FeeItem
		)
		if err := rows.Scan(&itemID, &feeID, &it.Description, &it.Amount); err != nil {
			return fmt.Errorf("scan fee item: %w", err)
		}
		it.ID = id.FeeItemID(itemID)
		if f, ok := byID[id.FeeID(feeID)]; ok {
			f.Items = append(f.Items, it)
		}
	}
	return rows.Err()
}

// UpdateFee replaces the fee row and its items.
func (s *PostgresStore) UpdateFee(ctx context.Context, f *models.Fee) error {
	exec := txcontext.Executor(ctx, s.db)
	res, err := exec.ExecContext(ctx, `
		UPDATE fees SET unit_id = $2, fee_type_id = $3, status_id = $4, amount = $5,
		       issue_date = $6, due_date = $7, paid = $8
		WHERE id = $1`,
		uuid.UUID(f.ID), uuid.UUID(f.UnitID), uuid.UUID(f.FeeTypeID), uuid.UUID(f.StatusID),
		f.Amount, f.IssueDate.Time, f.DueDate.Time, f.Paid,
	)
	if err != nil {
		return postgres.Translate(err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	if _, err := exec.ExecContext(ctx, `DELETE FROM fee_items WHERE fee_id = $1`, uuid.UUID(f.ID)); err != nil {
		return postgres.Translate(err)
	}
	return s.insertItems(ctx, f)
}

func (s *PostgresStore) DeleteFee(ctx context.Context, feeID id.FeeID) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `DELETE FROM fees WHERE id = $1`, uuid.UUID(feeID))
	if err != nil {
		return postgres.Translate(err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) DeleteFeesByUnit(ctx context.Context, unitID id.UnitID) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `DELETE FROM fees WHERE unit_id = $1`, uuid.UUID(unitID))
	return postgres.Translate(err)
}

func (s *PostgresStore) AppliedTotal(ctx context.Context, feeID id.FeeID) (int64, error) {
	var total int64
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT COALESCE(SUM(applied_amount), 0) FROM fee_payments WHERE fee_id = $1`, uuid.UUID(feeID),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("applied total: %w", err)
	}
	return total, nil
}

func (s *PostgresStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO payments (id, payment_type_id, amount, paid_at, reference)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(p.ID), nullCatalog(p.PaymentTypeID), p.Amount, p.PaidAt, p.Reference,
	)
	if err != nil {
		return postgres.Translate(err)
	}
	return s.insertApplications(ctx, p)
}

func (s *PostgresStore) insertApplications(ctx context.Context, p *models.Payment) error {
	exec := txcontext.Executor(ctx, s.db)
	for _, a := range p.Applications {
		_, err := exec.ExecContext(ctx,
			`INSERT INTO fee_payments (payment_id, fee_id, applied_amount) VALUES ($1, $2, $3)`,
			uuid.UUID(p.ID), uuid.UUID(a.FeeID), a.AppliedAmount,
		)
		if err != nil {
			return postgres.Translate(err)
		}
	}
	return nil
}

func (s *PostgresStore) FindPayment(ctx context.Context, paymentID id.PaymentID) (*models.Payment, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, selectPayment+` WHERE id = $1`, uuid.UUID(paymentID))
	p, err := scanPayment(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadApplications(ctx, []*models.Payment{p}); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PostgresStore) ListPayments(ctx context.Context) ([]*models.Payment, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, selectPayment+` ORDER BY paid_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	if err := s.loadApplications(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) loadApplications(ctx context.Context, payments []*models.Payment) error {
	if len(payments) == 0 {
		return nil
	}
	byID := make(map[id.PaymentID]*models.Payment, len(payments))
	ids := make([]string, 0, len(payments))
	for _, p := range payments {
		p.Applications = []models.Application{}
		byID[p.ID] = p
		ids = append(ids, p.ID.String())
	}
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, `
		SELECT payment_id, fee_id, applied_amount FROM fee_payments
		WHERE payment_id = ANY($1::uuid[])
		ORDER BY fee_id`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			paymentID, feeID uuid.UUID
			a                models.Application
		)
		if err := rows.Scan(&paymentID, &feeID, &a.AppliedAmount); err != nil {
			return fmt.Errorf("scan application: %w", err)
		}
		a.FeeID = id.FeeID(feeID)
		if p, ok := byID[id.PaymentID(paymentID)]; ok {
			p.Applications = append(p.Applications, a)
		}
	}
	return rows.Err()
}

// UpdatePayment replaces the payment row and its applications.
func (s *PostgresStore) UpdatePayment(ctx context.Context, p *models.Payment) error {
	exec := txcontext.Executor(ctx, s.db)
	res, err := exec.ExecContext(ctx, `
		UPDATE payments SET payment_type_id = $2, amount = $3, paid_at = $4, reference = $5
		WHERE id = $1`,
		uuid.UUID(p.ID), nullCatalog(p.PaymentTypeID), p.Amount, p.PaidAt, p.Reference,
	)
	if err != nil {
		return postgres.Translate(err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	if _, err := exec.ExecContext(ctx, `DELETE FROM fee_payments WHERE payment_id = $1`, uuid.UUID(p.ID)); err != nil {
		return postgres.Translate(err)
	}
	return s.insertApplications(ctx, p)
}

func (s *PostgresStore) DeletePayment(ctx context.Context, paymentID id.PaymentID) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, uuid.UUID(paymentID))
	if err != nil {
		return postgres.Translate(err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) FeesUsing(ctx context.Context, kind catalogmodels.Kind, entryID id.CatalogID) (bool, error) {
	var query string
	switch kind {
	case catalogmodels.FeeTypes:
		query = `SELECT EXISTS (SELECT 1 FROM fees WHERE fee_type_id = $1)`
	case catalogmodels.FeeStatuses:
		query = `SELECT EXISTS (SELECT 1 FROM fees WHERE status_id = $1)`
	default:
		return false, nil
	}
	var used bool
	if err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(entryID)).Scan(&used); err != nil {
		return false, fmt.Errorf("fees using %s: %w", kind, err)
	}
	return used, nil
}

func (s *PostgresStore) ClearPaymentType(ctx context.Context, entryID id.CatalogID) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx,
		`UPDATE payments SET payment_type_id = NULL WHERE payment_type_id = $1`, uuid.UUID(entryID))
	return postgres.Translate(err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFee(row rowScanner) (*models.Fee, error) {
	var (
		feeID, unitID, typeID, statusID uuid.UUID
		issue, due                      time.Time
		f                               models.Fee
	)
	err := row.Scan(&feeID, &unitID, &typeID, &statusID, &f.Amount, &issue, &due, &f.Paid, &f.CreatedAt, &f.Applied)
	if err != nil {
		return nil, postgres.Translate(err)
	}
	f.ID = id.FeeID(feeID)
	f.UnitID = id.UnitID(unitID)
	f.FeeTypeID = id.CatalogID(typeID)
	f.StatusID = id.CatalogID(statusID)
	f.IssueDate = models.NewDate(issue)
	f.DueDate = models.NewDate(due)
	return &f, nil
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	var (
		paymentID uuid.UUID
		typeID    uuid.NullUUID
		p         models.Payment
	)
	if err := row.Scan(&paymentID, &typeID, &p.Amount, &p.PaidAt, &p.Reference); err != nil {
		return nil, postgres.Translate(err)
	}
	p.ID = id.PaymentID(paymentID)
	if typeID.Valid {
		v := id.CatalogID(typeID.UUID)
		p.PaymentTypeID = &v
	}
	return &p, nil
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

func nullCatalog(c *id.CatalogID) uuid.NullUUID {
	if c == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*c), Valid: true}
}
