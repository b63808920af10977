package spatial

import (
	"log/slog"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/serendib/go-location-intel/internal/api"
	"github.com/serendib/go-location-intel/internal/types"
)

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// NearbyCities lists the cities within radius_km of the query coordinate,
// nearest first.
func (h *Handler) NearbyCities(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("NearbyCities").Start(r.Context(), "NearbyCities", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/cities/nearby"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "NearbyCities"))
	l.DebugContext(ctx, "Nearby cities handler invoked")

	query := r.URL.Query()
	lat, err := strconv.ParseFloat(query.Get("lat"), 64)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "lat must be a number")
		return
	}
	lon, err := strconv.ParseFloat(query.Get("lon"), 64)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "lon must be a number")
		return
	}
	coord := types.Coordinate{Latitude: lat, Longitude: lon}
	if err := coord.Validate(); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "latitude must be in [-90, 90] and longitude in [-180, 180]")
		return
	}

	radiusKm := 50.0
	if raw := query.Get("radius_km"); raw != "" {
		radiusKm, err = strconv.ParseFloat(raw, 64)
		if err != nil || radiusKm <= 0 {
			api.ErrorResponse(w, r, http.StatusBadRequest, "radius_km must be a positive number")
			return
		}
	}

	limit := 5
	if raw := query.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			api.ErrorResponse(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
	}

	cities, err := h.service.NearbyCities(ctx, coord, radiusKm, limit)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query nearby cities", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to query nearby cities")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"cities": cities,
		"count":  len(cities),
	})
}
