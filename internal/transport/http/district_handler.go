package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "districtpulse/internal/errors"
	"districtpulse/internal/services"
)

// DistrictHandler serves the engine's district read API.
type DistrictHandler struct {
	service EngineService
	logger  *slog.Logger
}

// NewDistrictHandler creates a district handler.
func NewDistrictHandler(service EngineService, logger *slog.Logger) *DistrictHandler {
	return &DistrictHandler{
		service: service,
		logger:  logger.With(slog.String("component", "district_handler")),
	}
}

// Routes returns the district routes.
func (h *DistrictHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.ListDistricts)
	r.Get("/clusters", h.GetClusters)

	r.Route("/{districtID}", func(r chi.Router) {
		r.Use(h.DistrictCtx)
		r.Get("/", h.GetDistrict)
		r.Get("/display", h.GetDisplayPayload)
		r.Get("/insights", h.GetInsights)
	})

	return r
}

// DistrictCtx validates the district id parameter.
func (h *DistrictHandler) DistrictCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "districtID") == "" {
			apierrors.WriteError(w, apierrors.ErrValidation("districtID", "District id is required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListDistricts handles GET /?state=
func (h *DistrictHandler) ListDistricts(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	districts := h.service.ListDistricts(state)

	render.JSON(w, r, map[string]interface{}{
		"districts": districts,
		"count":     len(districts),
	})
}

// GetDistrict handles GET /{districtID}
func (h *DistrictHandler) GetDistrict(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "districtID")

	entry, err := h.service.District(id)
	if err != nil {
		h.writeServiceError(w, r, id, err)
		return
	}
	render.JSON(w, r, entry)
}

// GetDisplayPayload handles GET /{districtID}/display
func (h *DistrictHandler) GetDisplayPayload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "districtID")

	payload, err := h.service.DisplayPayload(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, id, err)
		return
	}
	render.JSON(w, r, payload)
}

// estimatorResult is the envelope for per-estimator query responses.
// Unavailable results are a normal outcome and answer 200.
type estimatorResult struct {
	Available bool        `json:"available"`
	Reason    string      `json:"reason,omitempty"`
	Result    interface{} `json:"result,omitempty"`
}

// GetInsights handles GET /{districtID}/insights, optionally with
// ?value= for anomaly checks against an ad-hoc figure.
func (h *DistrictHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "districtID")

	entry, err := h.service.District(id)
	if err != nil {
		h.writeServiceError(w, r, id, err)
		return
	}

	anomalyValue := entry.Latest.EmployedCount
	if raw := r.URL.Query().Get("value"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			apierrors.WriteError(w, apierrors.ErrValidation("value", "must be a number"))
			return
		}
		anomalyValue = parsed
	}

	insights := map[string]estimatorResult{
		"trend":    h.estimator(func() (interface{}, error) { return h.service.PredictTrend(id) }),
		"forecast": h.estimator(func() (interface{}, error) { return h.service.Forecast(id) }),
		"category": h.estimator(func() (interface{}, error) { return h.service.Category(id) }),
		"anomaly":  h.estimator(func() (interface{}, error) { return h.service.DetectAnomaly(id, anomalyValue) }),
	}

	render.JSON(w, r, map[string]interface{}{
		"district_id": id,
		"insights":    insights,
	})
}

// GetClusters handles GET /clusters
func (h *DistrictHandler) GetClusters(w http.ResponseWriter, r *http.Request) {
	clusters, err := h.service.Clusters()
	if err != nil {
		render.JSON(w, r, estimatorResult{Available: false, Reason: err.Error()})
		return
	}
	render.JSON(w, r, estimatorResult{Available: true, Result: clusters})
}

// estimator maps an estimator call to the response envelope.
func (h *DistrictHandler) estimator(call func() (interface{}, error)) estimatorResult {
	result, err := call()
	if err != nil {
		return estimatorResult{Available: false, Reason: err.Error()}
	}
	return estimatorResult{Available: true, Result: result}
}

// writeServiceError maps engine sentinel errors to API errors.
func (h *DistrictHandler) writeServiceError(w http.ResponseWriter, r *http.Request, id string, err error) {
	switch {
	case errors.Is(err, services.ErrDistrictNotFound):
		apierrors.WriteError(w, apierrors.NotFoundError("district "+id))
	default:
		h.logger.ErrorContext(r.Context(), "district request failed",
			slog.String("district_id", id),
			slog.String("error", err.Error()))
		apierrors.WriteError(w, apierrors.ErrInternalServer)
	}
}
