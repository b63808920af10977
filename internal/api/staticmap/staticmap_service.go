// Package staticmap serves cached map imagery for analyzed coordinates.
package staticmap

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/serendib/go-location-intel/internal/budget"
	"github.com/serendib/go-location-intel/internal/cache"
	provider "github.com/serendib/go-location-intel/internal/provider/staticmap"
	"github.com/serendib/go-location-intel/internal/types"
)

// Render parameters are fixed so every coordinate maps to one cache entry.
const (
	mapZoom   = 15
	mapWidth  = 640
	mapHeight = 400
)

var _ Service = (*ServiceImpl)(nil)

// Service renders or retrieves the map image for a coordinate.
type Service interface {
	Image(ctx context.Context, coord types.Coordinate, tracker *budget.Tracker) (*ImageResult, error)
}

// ImageResult carries the image bytes plus how they were obtained. A nil
// Data with Skipped set means the budget did not allow a provider call.
type ImageResult struct {
	Data     []byte
	CacheHit bool
	Skipped  bool
}

type ServiceImpl struct {
	logger *slog.Logger
	client provider.Client
	cache  *cache.ResultCache
}

func NewServiceImpl(client provider.Client, resultCache *cache.ResultCache, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		client: client,
		cache:  resultCache,
	}
}

// Image returns the map image for coord, serving from cache when
// possible. A render is optional work: when a tracker is supplied and the
// ceiling cannot cover a provider call, the render is skipped rather than
// fetched.
func (s *ServiceImpl) Image(ctx context.Context, coord types.Coordinate, tracker *budget.Tracker) (*ImageResult, error) {
	ctx, span := otel.Tracer("StaticMap").Start(ctx, "Image", trace.WithAttributes(
		attribute.Int("zoom", mapZoom),
	))
	defer span.End()

	if err := coord.Validate(); err != nil {
		span.SetStatus(codes.Error, "invalid coordinate")
		return nil, err
	}

	key := cache.StaticMapKey(coord, mapZoom, mapWidth, mapHeight)
	if img := s.cache.GetStaticMap(ctx, key); img != nil {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return &ImageResult{Data: img, CacheHit: true}, nil
	}

	if tracker != nil && tracker.WouldExceedOp(budget.OpStaticMap) {
		tracker.MarkSkipped()
		s.logger.InfoContext(ctx, "Skipping static map render, budget exhausted")
		span.AddEvent("render skipped")
		return &ImageResult{Skipped: true}, nil
	}

	img, err := s.client.Fetch(ctx, coord, mapZoom, mapWidth, mapHeight)
	if err != nil {
		s.logger.WarnContext(ctx, "Static map provider failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "static map fetch failed")
		return nil, fmt.Errorf("failed to fetch static map: %w", err)
	}
	if tracker != nil {
		tracker.ChargeOp(budget.OpStaticMap)
	}
	s.cache.SetStaticMap(ctx, key, img)

	span.SetAttributes(attribute.Int("image.bytes", len(img)))
	return &ImageResult{Data: img}, nil
}
