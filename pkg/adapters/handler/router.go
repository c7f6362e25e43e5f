package handler

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nitipat21/linkly/pkg/config"
	"github.com/nitipat21/linkly/pkg/ports"
)

// NewRouter creates and configures the main application router.
func NewRouter(cfg *config.Config, links ports.LinkService, users ports.UserService, logger *slog.Logger) http.Handler {
	h := NewLinkHandler(links, cfg.BaseURL, logger)
	ah := NewAuthHandler(cfg, users, logger)
	mw := NewMiddleware(cfg.JWTSecret)

	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /{code}", h.Redirect)

	// Auth
	mux.HandleFunc("POST /api/auth/register", ah.Register)
	mux.HandleFunc("POST /api/auth/login", ah.Login)
	mux.HandleFunc("POST /api/auth/logout", ah.Logout)
	mux.Handle("GET /api/auth/profile", mw.Authenticate(http.HandlerFunc(ah.Profile)))
	mux.HandleFunc("GET /auth/google/login", ah.GoogleLogin)
	mux.HandleFunc("GET /auth/google/callback", ah.GoogleCallback)

	// Links. Creation is open to guests; everything else is owner-facing
	// and requires a session.
	mux.Handle("POST /api/url/create", mw.OptionalAuthenticate(http.HandlerFunc(h.Create)))
	mux.Handle("DELETE /api/url/delete/{code}", mw.Authenticate(http.HandlerFunc(h.Delete)))
	mux.Handle("PATCH /api/url/update/{code}", mw.Authenticate(http.HandlerFunc(h.Update)))
	mux.Handle("GET /api/url/stats/{code}", mw.Authenticate(http.HandlerFunc(h.Stats)))
	mux.Handle("PATCH /api/url/deactivate/{code}", mw.Authenticate(http.HandlerFunc(h.Deactivate)))
	mux.Handle("GET /api/url/user", mw.Authenticate(http.HandlerFunc(h.ListUserLinks)))

	var handler http.Handler = mux
	handler = Metrics(handler)
	handler = Logging(logger)(handler)
	handler = Recovery(logger)(handler)
	return handler
}
