package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"condo/internal/notice/models"
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

const selectNotice = `SELECT id, title, body, published_at, valid_until, author_person_id, active FROM notices`

func (s *PostgresStore) Create(ctx context.Context, n *models.Notice) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO notices (id, title, body, published_at, valid_until, author_person_id, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.UUID(n.ID), n.Title, n.Body, n.PublishedAt, nullTime(n.ValidUntil), nullPerson(n.AuthorPersonID), n.Active,
	)
	return postgres.Translate(err)
}

func (s *PostgresStore) FindByID(ctx context.Context, noticeID id.NoticeID) (*models.Notice, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, selectNotice+` WHERE id = $1`, uuid.UUID(noticeID))
	return scanNotice(row)
}

func (s *PostgresStore) List(ctx context.Context, filter models.Filter) ([]*models.Notice, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, selectNotice+`
		WHERE NOT $1 OR (active AND published_at <= $2 AND (valid_until IS NULL OR valid_until > $2))
		ORDER BY published_at DESC`,
		filter.CurrentOnly, filter.Now,
	)
	if err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Notice, 0)
	for rows.Next() {
		n, err := scanNotice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notices: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, n *models.Notice) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		UPDATE notices SET title = $2, body = $3, published_at = $4, valid_until = $5,
		       author_person_id = $6, active = $7
		WHERE id = $1`,
		uuid.UUID(n.ID), n.Title, n.Body, n.PublishedAt, nullTime(n.ValidUntil), nullPerson(n.AuthorPersonID), n.Active,
	)
	if err != nil {
		return postgres.Translate(err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) Delete(ctx context.Context, noticeID id.NoticeID) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `DELETE FROM notices WHERE id = $1`, uuid.UUID(noticeID))
	if err != nil {
		return postgres.Translate(err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) ClearAuthor(ctx context.Context, personID id.PersonID) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx,
		`UPDATE notices SET author_person_id = NULL WHERE author_person_id = $1`, uuid.UUID(personID))
	return postgres.Translate(err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotice(row rowScanner) (*models.Notice, error) {
	var (
		noticeID   uuid.UUID
		validUntil sql.NullTime
		author     uuid.NullUUID
		n          models.Notice
	)
	if err := row.Scan(&noticeID, &n.Title, &n.Body, &n.PublishedAt, &validUntil, &author, &n.Active); err != nil {
		return nil, postgres.Translate(err)
	}
	n.ID = id.NoticeID(noticeID)
	if validUntil.Valid {
		t := validUntil.Time
		n.ValidUntil = &t
	}
	if author.Valid {
		p := id.PersonID(author.UUID)
		n.AuthorPersonID = &p
	}
	return &n, nil
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

func nullPerson(p *id.PersonID) uuid.NullUUID {
	if p == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*p), Valid: true}
}
