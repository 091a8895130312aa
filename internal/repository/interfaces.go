package repository

import (
	"overlayserver/internal/dto"
	"overlayserver/internal/models"
)

// FetchRepository records every settled thumbnail fetch.
type FetchRepository interface {
	// Create operations
	Insert(rec *models.FetchRecord) (int64, error)

	// Read operations
	GetAll(filter *dto.RecordFilters) ([]models.FetchRecord, error)
	GetFailedCount() (int, error)

	// Delete operations
	DeleteAll() error
}

// BindingRepository records every anchor bound to content.
type BindingRepository interface {
	// Create operations
	Insert(rec *models.BindingRecord) (int64, error)
	InsertBatch(records []models.BindingRecord) error

	// Read operations
	GetRecent(filter *dto.RecordFilters) ([]models.BindingRecord, error)
	CountByTag() ([]models.TagCount, error)
	GetTotalCount() (int, error)

	// Delete operations
	DeleteAll() error
}
