package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// NewRouter wires the page, the JSON API and the websocket stream.
func NewRouter(app *App, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		AccessLog(logger),
	)

	r.Get("/healthz", app.Health)
	r.Get("/", app.Index)

	r.Group(func(r chi.Router) {
		r.Use(app.sessions.Require)

		r.Get("/ws", app.Stream)

		r.Route("/api", func(r chi.Router) {
			r.Get("/state", app.State)
			r.Put("/draft", app.UpdateDraft)
			r.Post("/submissions", app.Submit)
			r.Post("/submissions/retry", app.Retry)
			r.Get("/wallet", app.Wallet)
			r.Get("/link/qr", app.LinkQR)
		})
	})

	return r
}
