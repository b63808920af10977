package analysis

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/serendib/go-location-intel/app/observability/metrics"
	"github.com/serendib/go-location-intel/internal/api"
	"github.com/serendib/go-location-intel/internal/types"
)

type Handler struct {
	service  Service
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// Analyze runs the full location analysis for the coordinate in the
// request body and returns the composite result.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("Analyze").Start(r.Context(), "Analyze", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/analysis"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "Analyze"))
	l.DebugContext(ctx, "Analyze handler invoked")

	var req types.AnalyzeRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.ErrorContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.validate.StructCtx(ctx, req); err != nil {
		l.ErrorContext(ctx, "Request validation failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "latitude must be in [-90, 90] and longitude in [-180, 180]")
		return
	}

	categories, err := parseCategories(req.Categories)
	if err != nil {
		l.ErrorContext(ctx, "Unknown POI category", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	coord := types.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude}
	span.SetAttributes(
		attribute.Float64("coordinate.latitude", coord.Latitude),
		attribute.Float64("coordinate.longitude", coord.Longitude),
	)

	start := time.Now()
	result, err := h.service.Analyze(ctx, coord, req.RadiusKm, categories)
	if err != nil {
		if errors.Is(err, types.ErrInvalidCoordinate) {
			api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid coordinate")
			return
		}
		l.ErrorContext(ctx, "Analysis failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to analyze location")
		return
	}

	m := metrics.Get()
	statusAttr := metric.WithAttributes(attribute.String("status", string(result.Status)))
	m.AnalysisRequestsTotal.Add(ctx, 1, statusAttr)
	m.AnalysisDurationSeconds.Record(ctx, time.Since(start).Seconds(), statusAttr)
	if result.Status == types.StatusPartialComplete {
		m.AnalysisPartialTotal.Add(ctx, 1)
	}
	for subsystem, hit := range map[string]bool{
		"geocode":    result.CacheHits.Geocode,
		"poi":        result.CacheHits.POI,
		"routes":     result.CacheHits.Routes,
		"static_map": result.CacheHits.StaticMap,
	} {
		if hit {
			m.CacheHitsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("subsystem", subsystem)))
		}
	}

	l.InfoContext(ctx, "Analysis complete",
		slog.String("status", string(result.Status)),
		slog.Int("cities", len(result.Cities)),
		slog.Int("routes", len(result.Routes)),
		slog.Float64("cost_units", result.Cost.TotalUnits))
	api.WriteJSONResponse(w, r, http.StatusOK, result)
}

func parseCategories(raw []string) ([]types.POICategory, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]types.POICategory, 0, len(raw))
	for _, s := range raw {
		cat, ok := types.ParseCategory(s)
		if !ok {
			return nil, &UnknownCategoryError{Category: s}
		}
		out = append(out, cat)
	}
	return out, nil
}

// UnknownCategoryError reports a category string outside the closed set.
type UnknownCategoryError struct {
	Category string
}

func (e *UnknownCategoryError) Error() string {
	return "unknown POI category: " + e.Category
}
