package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/analogia-app/engine/pkg/httpserver"
)

// NewRouter mounts the engine's HTTP surface. Readiness checks are optional;
// with none supplied /healthz is a plain liveness probe.
func NewRouter(h *Handler, log *slog.Logger, readiness ...func(context.Context) error) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(api chi.Router) {
		api.Post("/generate", h.Generate)
		api.Get("/usage", h.Usage)
	})
	r.Post("/webhooks/payment", h.PaymentWebhook)
	r.Get("/healthz", httpserver.HealthCheckHandler(context.Background(), log, readiness...))

	return r
}
