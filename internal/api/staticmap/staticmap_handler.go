package staticmap

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

// Image serves the map image for the query coordinate. Direct requests
// carry no analysis budget, so a cache miss always fetches.
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("StaticMapImage").Start(r.Context(), "Image", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/staticmap"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "StaticMapImage"))

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

	result, err := h.service.Image(ctx, coord, nil)
	if err != nil {
		l.ErrorContext(ctx, "Failed to render static map", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadGateway, "Failed to render static map")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=604800")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Data); err != nil {
		l.ErrorContext(ctx, "Failed to write image response", slog.Any("error", err))
	}
}
