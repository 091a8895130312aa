package routes

import (
	"net/http"
	"os"
	"path/filepath"

	"overlayserver/internal/config"
	"overlayserver/internal/handlers"
	"overlayserver/internal/logger"
	"overlayserver/internal/middleware"
	"overlayserver/internal/repository"
	"overlayserver/internal/services/websocket"
)

// Dependencies are the services the routes are bound to.
type Dependencies struct {
	Manager  handlers.Coordinator
	Viewers  *websocket.HubService
	Fetches  repository.FetchRepository
	Bindings repository.BindingRepository
}

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		path = "/index"
	}

	filePath := filepath.Join("static", filepath.Clean("/"+path)+".html")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}

// SetupRoutes registers HTTP routes, static file serving and API endpoints,
// and wraps the mux with request logging and the authentication middleware.
func SetupRoutes(deps Dependencies, cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	// Cameras and viewers
	mux.HandleFunc("/camera", handlers.CameraWebsocketHandler(deps.Manager, logger))
	mux.HandleFunc("/api/view", handlers.ViewWebsocketHandler(deps.Viewers, logger))

	// Session controls
	mux.HandleFunc("/api/reset", handlers.ResetHandler(deps.Manager, logger))
	mux.HandleFunc("/api/clear", handlers.ClearHandler(deps.Manager, logger))
	mux.HandleFunc("/api/status", handlers.StatusHandler(deps.Manager, logger))
	mux.HandleFunc("/api/catalog", handlers.CatalogHandler(deps.Manager, logger))
	mux.HandleFunc("/api/overlays", handlers.OverlaysHandler(deps.Manager, logger))

	// Audit log
	mux.HandleFunc("/api/bindings", handlers.GetBindingsHandler(deps.Bindings, logger))
	mux.HandleFunc("/api/bindings/stats", handlers.GetBindingStatsHandler(deps.Bindings, logger))
	mux.HandleFunc("/api/fetches", handlers.GetFetchesHandler(deps.Fetches, logger))
	mux.HandleFunc("/api/records/clear", handlers.ClearRecordsHandler(deps.Fetches, deps.Bindings, logger))

	// Log endpoints
	for _, level := range []string{"info", "warning", "error"} {
		file := level + ".log"
		mux.HandleFunc("/logs/"+level, handlers.LogFileHandler(cfg, file))
		mux.HandleFunc("/logs/"+level+"/clear", handlers.ClearLogsHandler(logger, file))
	}

	// Auth endpoints
	mux.HandleFunc("/auth/login", handlers.LoginHandler(cfg, logger))
	mux.HandleFunc("/auth/logout", handlers.LogoutHandler)

	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Automatic HTML handler mapping for example: /settings -> /static/settings.html
	mux.HandleFunc("/", dynamicHTMLHandler)

	return middleware.RequestLogger(logger.Zap())(middleware.AuthMiddleware(mux))
}
