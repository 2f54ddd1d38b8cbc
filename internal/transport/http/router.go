package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"districtpulse/internal/config"
	"districtpulse/internal/middleware"
	"districtpulse/internal/websocket"
	"districtpulse/pkg/contracts"
)

// NewRouter assembles the full HTTP surface: the district and quality APIs,
// the Prometheus scrape endpoint and the websocket event stream.
func NewRouter(
	service EngineService,
	hub *websocket.Hub,
	metricsHandler http.Handler,
	cfg config.ServerConfig,
	logger *slog.Logger,
) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger).Handler)

	districts := NewDistrictHandler(service, logger)
	quality := NewQualityHandler(service, logger)

	r.Route("/api", func(r chi.Router) {
		r.Mount("/districts", districts.Routes())
		r.Mount("/quality", quality.Routes())
		r.Post("/rebuild", quality.Rebuild)
	})

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}
	if hub != nil {
		r.Get("/ws", hub.ServeWS)
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, map[string]interface{}{
			"status":    "ok",
			"version":   contracts.Version,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	r.Get("/version", func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, contracts.GetVersionInfo())
	})

	return r
}
