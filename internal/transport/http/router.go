package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"insightcli/internal/config"
	"insightcli/internal/websocket"
)

// RouterDeps holds everything the router wires together.
type RouterDeps struct {
	Service ReportService
	Hub     *websocket.Hub
	Config  *config.Config
	Logger  *slog.Logger
}

// NewRouter builds the service router. The websocket route stays outside
// the heavier middleware group so the upgrade is not wrapped.
func NewRouter(deps RouterDeps) chi.Router {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(middleware.RealIP)

	if deps.Hub != nil {
		r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
			if err := websocket.ServeWS(deps.Hub, deps.Config.WebSocket, w, req); err != nil {
				logger.ErrorContext(req.Context(), "websocket upgrade failed",
					slog.String("error", err.Error()))
			}
		})
	}

	r.Handle("/metrics", promhttp.Handler())

	reports := NewReportHandler(deps.Service, deps.Config.Paths.ReportsDir, logger)

	r.Group(func(r chi.Router) {
		r.Use(StructuredLogger(logger))
		r.Use(Recoverer(logger))
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/healthz", handleHealth)

		r.Route("/api", func(r chi.Router) {
			r.Get("/reports", reports.List)
			r.Post("/reports/{id}/run", reports.Run)
			r.Get("/runs", reports.Runs)
			r.Get("/runs/{id}", reports.RunStatus)
		})

		r.Get("/reports/{id}", reports.Document)
	})

	return r
}

// handleHealth answers liveness probes.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
