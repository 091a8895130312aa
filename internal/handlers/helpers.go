package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"overlayserver/internal/dto"
	"overlayserver/internal/logger"
)

// Coordinator is what the HTTP surface needs from the overlay manager.
type Coordinator interface {
	HandleCameraImage(image []byte, camera string)
	Reset()
	Clear()
	Status() dto.Status
	Catalog() []dto.CatalogEntry
	Overlays() []dto.OverlayInfo
	Overlay(name string) (dto.OverlayInfo, bool)
}

func writeJSON(w http.ResponseWriter, logger *logger.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response: %v", err)
	}
}

// atoiDefault parses a positive integer, falling back to def.
func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// parseRecordFilters reads camera, tag, after, before, limit and offset from
// the query string. Dates use YYYY-MM-DD.
func parseRecordFilters(r *http.Request) *dto.RecordFilters {
	q := r.URL.Query()
	filter := dto.NewRecordFilters()
	filter.Camera = q.Get("camera")

	if tag, err := strconv.Atoi(q.Get("tag")); err == nil && tag >= 0 {
		filter.Tag = tag
	}
	if t, err := time.Parse("2006-01-02", q.Get("after")); err == nil {
		filter.After = t
	}
	if t, err := time.Parse("2006-01-02", q.Get("before")); err == nil {
		filter.Before = t.Add(24*time.Hour - time.Nanosecond)
	}

	filter.Limit = atoiDefault(q.Get("limit"), 100)
	filter.Offset = atoiDefault(q.Get("offset"), 0)
	return filter
}
