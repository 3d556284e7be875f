package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/casupload/internal/common"
	"github.com/dmitrijs2005/casupload/internal/dbx"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

var ErrDuplicateSession = errors.New("upload session already registered")

type pinger interface {
	PingContext(ctx context.Context) error
}

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, s *Session) error {
	query := `INSERT INTO upload_sessions (upload_id, key, subject, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.db.ExecContext(ctx, query, s.UploadID, s.Key, s.Subject, s.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateSession
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, uploadID string) (*Session, error) {
	query := `SELECT upload_id, key, subject, created_at FROM upload_sessions
		WHERE upload_id = $1`

	s := &Session{}
	err := r.db.QueryRowContext(ctx, query, uploadID).Scan(&s.UploadID, &s.Key, &s.Subject, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrSessionNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, uploadID string) error {
	query := `DELETE FROM upload_sessions WHERE upload_id = $1`

	res, err := r.db.ExecContext(ctx, query, uploadID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrSessionNotFound
	}
	return nil
}

func (r *PostgresRepository) ListStale(ctx context.Context, before time.Time) ([]*Session, error) {
	query := `SELECT upload_id, key, subject, created_at FROM upload_sessions
		WHERE created_at < $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("failed to select sessions: %w", err)
	}
	defer rows.Close()

	var result []*Session
	for rows.Next() {
		s := &Session{}
		if err := rows.Scan(&s.UploadID, &s.Key, &s.Subject, &s.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) IsReady(ctx context.Context) error {
	p, ok := r.db.(pinger)
	if !ok {
		return nil
	}
	return p.PingContext(ctx)
}
