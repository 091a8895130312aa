package sqlite

import (
	"fmt"
	"time"

	"overlayserver/internal/dto"
	"overlayserver/internal/models"
)

const insertBinding = `
	INSERT INTO bindings (anchor_id, camera, tag, title, video_url, width, height, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

// BindingRepository implements repository.BindingRepository for SQLite.
type BindingRepository struct {
	db *DB
}

// NewBindingRepository creates a new SQLite binding repository.
func NewBindingRepository(db *DB) *BindingRepository {
	return &BindingRepository{db: db}
}

// Insert adds a binding record to the database.
func (r *BindingRepository) Insert(rec *models.BindingRecord) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	result, err := r.db.Conn().Exec(insertBinding,
		rec.AnchorID, rec.Camera, rec.Tag, rec.Title, rec.VideoURL, rec.Width, rec.Height, rec.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert binding: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	rec.ID = id
	return id, nil
}

// InsertBatch adds multiple bindings in a single transaction.
func (r *BindingRepository) InsertBatch(records []models.BindingRecord) error {
	if len(records) == 0 {
		return nil
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertBinding)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		createdAt := rec.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		if _, err := stmt.Exec(rec.AnchorID, rec.Camera, rec.Tag, rec.Title, rec.VideoURL, rec.Width, rec.Height, createdAt); err != nil {
			return fmt.Errorf("failed to insert binding: %w", err)
		}
	}

	return tx.Commit()
}

// GetRecent retrieves bindings, newest first, matching filter.
func (r *BindingRepository) GetRecent(filter *dto.RecordFilters) ([]models.BindingRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	if filter == nil {
		filter = dto.NewRecordFilters()
	}

	query := `
		SELECT id, anchor_id, camera, tag, title, video_url, width, height, created_at
		FROM bindings WHERE 1=1
	`
	args := []interface{}{}

	if filter.Camera != "" {
		query += " AND camera = ?"
		args = append(args, filter.Camera)
	}
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
		return nil, fmt.Errorf("failed to query bindings: %w", err)
	}
	defer rows.Close()

	var records []models.BindingRecord
	for rows.Next() {
		var rec models.BindingRecord
		if err := rows.Scan(&rec.ID, &rec.AnchorID, &rec.Camera, &rec.Tag, &rec.Title, &rec.VideoURL, &rec.Width, &rec.Height, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan binding: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// CountByTag returns the number of bindings per tag, most bound first.
func (r *BindingRepository) CountByTag() ([]models.TagCount, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT tag, COUNT(*) AS cnt
		FROM bindings
		GROUP BY tag
		ORDER BY cnt DESC, tag ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count bindings: %w", err)
	}
	defer rows.Close()

	var counts []models.TagCount
	for rows.Next() {
		var c models.TagCount
		if err := rows.Scan(&c.Tag, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan tag count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// GetTotalCount returns the number of bindings recorded.
func (r *BindingRepository) GetTotalCount() (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM bindings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count bindings: %w", err)
	}
	return count, nil
}

// DeleteAll removes every binding record.
func (r *BindingRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM bindings`); err != nil {
		return fmt.Errorf("failed to delete bindings: %w", err)
	}
	return nil
}
