package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"mediasync/internal/http/handlers"
	"mediasync/internal/infra"
	"mediasync/internal/middleware"
)

type RouterOptions struct {
	JWTSecret   string
	CORSOrigins []string
	Logger      *infra.Logger
}

func NewRouter(app *handlers.App, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(infra.LoggerOrDiscard(opts.Logger)),
		middleware.CORS(opts.CORSOrigins),
	)

	r.Get("/v1/healthz", app.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(opts.JWTSecret))
		r.Use(middleware.RequireRole(middleware.RoleAdmin, middleware.RoleModerator))

		r.Post("/admin/regenerate-thumbnails", app.RegenerateThumbnails)

		r.Route("/thumbnail-sync", func(r chi.Router) {
			r.Get("/status", app.SyncStatus)
			r.Get("/download-pending", app.DownloadPending)
			r.Post("/mark-synced", app.MarkSynced)
			r.With(middleware.RequireRole(middleware.RoleAdmin)).Post("/trigger-manual", app.TriggerManual)
		})
	})

	return r
}
