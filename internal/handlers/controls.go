package handlers

import (
	"net/http"

	"overlayserver/internal/logger"
)

// ResetHandler restarts tracking with the current recognition set.
func ResetHandler(manager Coordinator, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		manager.Reset()
		logger.Info("Reset requested from %s", r.RemoteAddr)
		w.WriteHeader(http.StatusAccepted)
	}
}

// ClearHandler removes every overlay and restarts tracking.
func ClearHandler(manager Coordinator, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		manager.Clear()
		logger.Info("Clear requested from %s", r.RemoteAddr)
		w.WriteHeader(http.StatusAccepted)
	}
}

func StatusHandler(manager Coordinator, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, logger, http.StatusOK, manager.Status())
	}
}

func CatalogHandler(manager Coordinator, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, logger, http.StatusOK, manager.Catalog())
	}
}

// OverlaysHandler lists the render nodes, or returns one with ?name=.
func OverlaysHandler(manager Coordinator, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		name := r.URL.Query().Get("name")
		if name == "" {
			writeJSON(w, logger, http.StatusOK, manager.Overlays())
			return
		}

		overlay, ok := manager.Overlay(name)
		if !ok {
			http.Error(w, "Overlay not found", http.StatusNotFound)
			return
		}
		writeJSON(w, logger, http.StatusOK, overlay)
	}
}
