// Package history keeps a local log of completed uploads so that a finished
// upload can be listed and restored later.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/casupload/internal/common"
	"github.com/dmitrijs2005/casupload/internal/dbx"
)

type Record struct {
	Key        string
	Name       string
	Size       int64
	UploadedAt time.Time
}

type Repository interface {
	// Add stores r, replacing an earlier record with the same key.
	Add(ctx context.Context, r Record) error
	// Get returns common.ErrorNotFound for an unknown key.
	Get(ctx context.Context, key string) (*Record, error)
	// List returns the newest records first.
	List(ctx context.Context, limit int) ([]Record, error)
}

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Add(ctx context.Context, rec Record) error {
	query := `INSERT INTO uploads (key, name, size, uploaded_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET name = excluded.name,
			size = excluded.size,
			uploaded_at = excluded.uploaded_at`

	_, err := r.db.ExecContext(ctx, query, rec.Key, rec.Name, rec.Size, rec.UploadedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save upload: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) (*Record, error) {
	query := `SELECT key, name, size, uploaded_at FROM uploads WHERE key = ?`

	var (
		rec Record
		ts  int64
	)
	err := r.db.QueryRowContext(ctx, query, key).Scan(&rec.Key, &rec.Name, &rec.Size, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}
	rec.UploadedAt = time.Unix(ts, 0).UTC()
	return &rec, nil
}

func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT key, name, size, uploaded_at FROM uploads
		ORDER BY uploaded_at DESC, rowid DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("error selecting uploads: %w", err)
	}
	defer rows.Close()

	var result []Record
	for rows.Next() {
		var (
			rec Record
			ts  int64
		)
		if err := rows.Scan(&rec.Key, &rec.Name, &rec.Size, &ts); err != nil {
			return nil, err
		}
		rec.UploadedAt = time.Unix(ts, 0).UTC()
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
