package handlers

import (
	"net/http"

	"overlayserver/internal/logger"
	"overlayserver/internal/models"
	"overlayserver/internal/repository"
)

// GetBindingsHandler serves the binding audit log.
func GetBindingsHandler(repo repository.BindingRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		records, err := repo.GetRecent(parseRecordFilters(r))
		if err != nil {
			logger.Error("Failed to load bindings: %v", err)
			http.Error(w, "Failed to load bindings", http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []models.BindingRecord{}
		}
		writeJSON(w, logger, http.StatusOK, records)
	}
}

// GetBindingStatsHandler serves binding counts per tag.
func GetBindingStatsHandler(repo repository.BindingRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		total, err := repo.GetTotalCount()
		if err != nil {
			logger.Error("Failed to count bindings: %v", err)
			http.Error(w, "Failed to count bindings", http.StatusInternalServerError)
			return
		}
		perTag, err := repo.CountByTag()
		if err != nil {
			logger.Error("Failed to count bindings: %v", err)
			http.Error(w, "Failed to count bindings", http.StatusInternalServerError)
			return
		}
		if perTag == nil {
			perTag = []models.TagCount{}
		}

		writeJSON(w, logger, http.StatusOK, map[string]interface{}{
			"total":   total,
			"per_tag": perTag,
		})
	}
}

// GetFetchesHandler serves the thumbnail fetch audit log.
func GetFetchesHandler(repo repository.FetchRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		records, err := repo.GetAll(parseRecordFilters(r))
		if err != nil {
			logger.Error("Failed to load fetches: %v", err)
			http.Error(w, "Failed to load fetches", http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []models.FetchRecord{}
		}
		writeJSON(w, logger, http.StatusOK, records)
	}
}

// ClearRecordsHandler empties both audit tables.
func ClearRecordsHandler(fetches repository.FetchRepository, bindings repository.BindingRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if err := fetches.DeleteAll(); err != nil {
			logger.Error("Failed to clear fetches: %v", err)
			http.Error(w, "Failed to clear records", http.StatusInternalServerError)
			return
		}
		if err := bindings.DeleteAll(); err != nil {
			logger.Error("Failed to clear bindings: %v", err)
			http.Error(w, "Failed to clear records", http.StatusInternalServerError)
			return
		}

		logger.Info("Audit log cleared")
		w.WriteHeader(http.StatusNoContent)
	}
}
