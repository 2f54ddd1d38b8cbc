package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "districtpulse/internal/errors"
	"districtpulse/internal/services"
)

// QualityHandler serves the data-quality API and the rebuild trigger.
type QualityHandler struct {
	service EngineService
	logger  *slog.Logger
}

// NewQualityHandler creates a quality handler.
func NewQualityHandler(service EngineService, logger *slog.Logger) *QualityHandler {
	return &QualityHandler{
		service: service,
		logger:  logger.With(slog.String("component", "quality_handler")),
	}
}

// Routes returns the quality routes.
func (h *QualityHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.GetQuality)
	return r
}

// GetQuality handles GET /api/quality
func (h *QualityHandler) GetQuality(w http.ResponseWriter, r *http.Request) {
	metrics := h.service.Quality()
	render.JSON(w, r, map[string]interface{}{
		"quality": metrics,
		"alert":   h.service.ShouldAlert(),
	})
}

// Rebuild handles POST /api/rebuild: pull a fresh snapshot from the row
// source and swap the store. A source failure keeps the previous snapshot
// and answers 503.
func (h *QualityHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.service.RebuildFromSource(r.Context())
	if err != nil {
		if errors.Is(err, services.ErrSourceUnavailable) {
			h.logger.WarnContext(r.Context(), "rebuild rejected, source unavailable",
				slog.String("error", err.Error()))
			apierrors.WriteError(w, apierrors.SourceUnavailableError(err))
			return
		}
		h.logger.ErrorContext(r.Context(), "rebuild failed",
			slog.String("error", err.Error()))
		apierrors.WriteError(w, apierrors.ErrInternalServer)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"success": true,
		"quality": metrics,
		"alert":   h.service.ShouldAlert(),
	})
}
