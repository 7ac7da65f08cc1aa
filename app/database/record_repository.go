package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RecordRepository keeps notification records in SQLite.
type RecordRepository struct {
	db *DB
}

func NewRecordRepository(db *DB) *RecordRepository {
	return &RecordRepository{db: db}
}

func (r *RecordRepository) Get(ctx context.Context, id string) (*Record, error) {
	var rec Record
	err := r.db.QueryRowContext(ctx, `
		SELECT id, posted_at, price, url, brief, created_at
		FROM notified_listings
		WHERE id = ?
	`, id).Scan(&rec.ID, &rec.PostedAt, &rec.Price, &rec.URL, &rec.Brief, &rec.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	return &rec, nil
}

// Put stores rec unless a record with the same id already exists.
func (r *RecordRepository) Put(ctx context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notified_listings (id, posted_at, price, url, brief, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, rec.ID, rec.PostedAt, rec.Price, rec.URL, rec.Brief, rec.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to put record: %w", err)
	}

	return nil
}

func (r *RecordRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notified_listings").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get record count: %w", err)
	}
	return count, nil
}

// List returns the most recently stored records first.
func (r *RecordRepository) List(ctx context.Context, limit int) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, posted_at, price, url, brief, created_at
		FROM notified_listings
		ORDER BY created_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.PostedAt, &rec.Price, &rec.URL, &rec.Brief, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan record row: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating record rows: %w", err)
	}

	return records, nil
}

func (r *RecordRepository) Close() error {
	return r.db.Close()
}
