package handlers

import (
	"crypto/subtle"
	"net/http"

	"overlayserver/internal/config"
	"overlayserver/internal/logger"
)

const authCookie = "authenticated"

func LoginHandler(cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		password := r.FormValue("password")
		if subtle.ConstantTimeCompare([]byte(password), []byte(cfg.Password)) != 1 {
			logger.Warning("Failed login attempt from %s", r.RemoteAddr)
			http.Error(w, "Invalid password", http.StatusUnauthorized)
			return
		}

		setAuthCookie(w, "true", 0)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// LogoutHandler expires the session cookie and sends the operator back to
// the login page.
func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	setAuthCookie(w, "", -1)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func setAuthCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
