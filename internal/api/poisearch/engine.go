// Package poisearch implements the adaptive multi-category POI search:
// category-batched provider calls, dedup across overlapping batches, and
// radius expansion until enough results accumulate.
package poisearch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/serendib/go-location-intel/internal/budget"
	"github.com/serendib/go-location-intel/internal/cache"
	"github.com/serendib/go-location-intel/internal/provider/places"
	"github.com/serendib/go-location-intel/internal/types"
)

// minResultThreshold is the deduplicated count below which the radius
// expands to the next tier.
const minResultThreshold = 5

// radiusTiersM is the expansion ladder. Search starts at the first tier at
// or above the requested initial radius and climbs until the threshold is
// met or the ladder ends.
var radiusTiersM = []int{2000, 3000, 5000}

var _ Engine = (*ServiceImpl)(nil)

// Engine is the POI search contract the orchestrator depends on.
type Engine interface {
	Search(ctx context.Context, coord types.Coordinate, categories []types.POICategory, initialRadiusM int, tracker *budget.Tracker) (*SearchResult, error)
}

// SearchResult carries the deduplicated POIs plus metadata the aggregate
// result reports.
type SearchResult struct {
	POIs []types.POI
	// CacheHit is true when every batch of the final round was served from
	// cache.
	CacheHit bool
	// RadiusM is the tier the search stopped at.
	RadiusM int
	// Rounds is how many radius tiers were attempted.
	Rounds int
	// Degraded is true when a round failed after results had already
	// accumulated; the list is usable but incomplete.
	Degraded bool
}

type ServiceImpl struct {
	logger *slog.Logger
	client places.Client
	cache  *cache.ResultCache
}

func NewServiceImpl(client places.Client, resultCache *cache.ResultCache, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		client: client,
		cache:  resultCache,
	}
}

// Search runs batched nearby searches at increasing radii until at least
// minResultThreshold distinct POIs are found or the largest tier has been
// tried. The first round is core work; expansion rounds are optional and
// consult the budget tracker. The accumulated set is always returned.
func (s *ServiceImpl) Search(ctx context.Context, coord types.Coordinate, categories []types.POICategory, initialRadiusM int, tracker *budget.Tracker) (*SearchResult, error) {
	ctx, span := otel.Tracer("AdaptivePOISearch").Start(ctx, "Search", trace.WithAttributes(
		attribute.Int("initial_radius_m", initialRadiusM),
		attribute.Int("categories", len(categories)),
	))
	defer span.End()

	if err := coord.Validate(); err != nil {
		span.SetStatus(codes.Error, "invalid coordinate")
		return nil, err
	}
	if len(categories) == 0 {
		categories = types.AllCategories
	}

	batches := partitionCategories(categories, places.MaxCategoriesPerCall)
	deduped := map[string]types.POI{}

	result := &SearchResult{}
	for _, radiusM := range expansionLadder(initialRadiusM) {
		if result.Rounds > 0 {
			// Expansion is optional work: one more round costs one
			// provider call per batch.
			cost := tracker.Estimate(budget.OpPlacesBatch) * float64(len(batches))
			if tracker.WouldExceed(cost) {
				tracker.MarkSkipped()
				s.logger.InfoContext(ctx, "Skipping POI radius expansion, budget exhausted",
					slog.Int("radius_m", radiusM), slog.Int("have", len(deduped)))
				break
			}
		}

		allHit, err := s.runRound(ctx, coord, batches, radiusM, tracker, deduped)
		result.Rounds++
		result.RadiusM = radiusM
		result.CacheHit = allHit
		if err != nil {
			// A failed round degrades to whatever has accumulated; a
			// partial POI list is still a usable analysis section.
			s.logger.WarnContext(ctx, "POI search round failed",
				slog.Int("radius_m", radiusM), slog.Any("error", err))
			span.RecordError(err)
			if len(deduped) == 0 {
				span.SetStatus(codes.Error, "poi search failed")
				return nil, err
			}
			result.Degraded = true
			break
		}
		if len(deduped) >= minResultThreshold {
			break
		}
	}

	result.POIs = sortGrouped(deduped)
	span.SetAttributes(
		attribute.Int("pois.count", len(result.POIs)),
		attribute.Int("final_radius_m", result.RadiusM),
	)
	return result, nil
}

type batchOutcome struct {
	pois     []types.POI
	cacheHit bool
	err      error
}

// runRound fans the category batches out concurrently at one radius and
// merges everything into the dedup map.
func (s *ServiceImpl) runRound(ctx context.Context, coord types.Coordinate, batches [][]types.POICategory, radiusM int, tracker *budget.Tracker, deduped map[string]types.POI) (bool, error) {
	var wg sync.WaitGroup
	outcomes := make([]batchOutcome, len(batches))

	for i, batch := range batches {
		wg.Add(1)
		go func(i int, batch []types.POICategory) {
			defer wg.Done()
			outcomes[i] = s.searchBatch(ctx, coord, radiusM, batch, tracker)
		}(i, batch)
	}
	wg.Wait()

	allHit := true
	var firstErr error
	for _, o := range outcomes {
		if o.err != nil {
			if firstErr == nil {
				firstErr = o.err
			}
			continue
		}
		if !o.cacheHit {
			allHit = false
		}
		for _, p := range o.pois {
			key := p.DedupKey()
			if _, seen := deduped[key]; !seen {
				deduped[key] = p
			}
		}
	}
	if firstErr != nil {
		return allHit, fmt.Errorf("poi batch search failed: %w", firstErr)
	}
	return allHit, nil
}

// searchBatch serves one batch from cache when possible, otherwise calls
// the provider, charges the budget, and writes the batch through.
func (s *ServiceImpl) searchBatch(ctx context.Context, coord types.Coordinate, radiusM int, batch []types.POICategory, tracker *budget.Tracker) batchOutcome {
	key := cache.PlacesKey(coord, radiusM, batch)
	if cached := s.cache.GetPOIBatch(ctx, key); cached != nil {
		return batchOutcome{pois: cached, cacheHit: true}
	}

	pois, err := s.client.SearchNearby(ctx, coord, radiusM, batch)
	if err != nil {
		return batchOutcome{err: err}
	}
	tracker.ChargeOp(budget.OpPlacesBatch)
	s.cache.SetPOIBatch(ctx, key, pois)
	return batchOutcome{pois: pois}
}

// partitionCategories splits the requested categories into provider-sized
// batches, preserving order.
func partitionCategories(categories []types.POICategory, batchSize int) [][]types.POICategory {
	if batchSize <= 0 {
		batchSize = 1
	}
	var batches [][]types.POICategory
	for start := 0; start < len(categories); start += batchSize {
		end := start + batchSize
		if end > len(categories) {
			end = len(categories)
		}
		batches = append(batches, categories[start:end])
	}
	return batches
}

// expansionLadder returns the radius tiers to attempt, starting from the
// first tier at or above the requested radius. A radius beyond the ladder
// is used as a single custom tier.
func expansionLadder(initialRadiusM int) []int {
	if initialRadiusM <= 0 {
		initialRadiusM = radiusTiersM[0]
	}
	for i, tier := range radiusTiersM {
		if initialRadiusM <= tier {
			return radiusTiersM[i:]
		}
	}
	return []int{initialRadiusM}
}

// categoryOrder fixes the display grouping of the final list.
var categoryOrder = func() map[types.POICategory]int {
	order := map[types.POICategory]int{}
	for i, c := range types.AllCategories {
		order[c] = i
	}
	order[types.CategoryOther] = len(types.AllCategories)
	return order
}()

// sortGrouped flattens the dedup map into the deterministic final order:
// grouped by category, ascending distance within each category.
func sortGrouped(deduped map[string]types.POI) []types.POI {
	pois := make([]types.POI, 0, len(deduped))
	for _, p := range deduped {
		pois = append(pois, p)
	}
	sort.Slice(pois, func(i, j int) bool {
		a, b := pois[i], pois[j]
		if categoryOrder[a.Category] != categoryOrder[b.Category] {
			return categoryOrder[a.Category] < categoryOrder[b.Category]
		}
		if a.DistanceMeters != b.DistanceMeters {
			return a.DistanceMeters < b.DistanceMeters
		}
		return a.DedupKey() < b.DedupKey()
	})
	return pois
}
