package sqlite

import (
	"fmt"
	"time"

	"overlayserver/internal/dto"
	"overlayserver/internal/models"
)

// FetchRepository implements repository.FetchRepository for SQLite.
type FetchRepository struct {
	db *DB
}

// NewFetchRepository creates a new SQLite fetch repository.
func NewFetchRepository(db *DB) *FetchRepository {
	return &FetchRepository{db: db}
}

// Insert adds a fetch record to the database.
func (r *FetchRepository) Insert(rec *models.FetchRecord) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	result, err := r.db.Conn().Exec(`
		INSERT INTO fetches (tag, url, ok, error, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, rec.Tag, rec.URL, rec.OK, rec.Error, rec.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert fetch: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	rec.ID = id
	return id, nil
}

// GetAll retrieves fetch records, newest first, matching filter.
func (r *FetchRepository) GetAll(filter *dto.RecordFilters) ([]models.FetchRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	if filter == nil {
		filter = dto.NewRecordFilters()
	}

	query := `SELECT id, tag, url, ok, error, created_at FROM fetches WHERE 1=1`
	args := []interface{}{}

	if filter.Tag >= 0 {
		query += " AND tag = ?"
		args = append(args, filter.Tag)
	}
	if !filter.After.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, filter.After)
	}
	if !filter.Before.IsZero() {
		query += " AND created_at <= ?"
		args = append(args, filter.Before)
	}

	query += " ORDER BY created_at DESC, id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query fetches: %w", err)
	}
	defer rows.Close()

	var records []models.FetchRecord
	for rows.Next() {
		var rec models.FetchRecord
		if err := rows.Scan(&rec.ID, &rec.Tag, &rec.URL, &rec.OK, &rec.Error, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fetch: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// GetFailedCount returns how many fetches failed.
func (r *FetchRepository) GetFailedCount() (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM fetches WHERE ok = 0`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count fetches: %w", err)
	}
	return count, nil
}

// DeleteAll removes every fetch record.
func (r *FetchRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM fetches`); err != nil {
		return fmt.Errorf("failed to delete fetches: %w", err)
	}
	return nil
}
