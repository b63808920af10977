// Package routing wraps the external routing providers. Two tiers exist:
// the primary provider returns full turn-by-turn routes, the legacy
// provider only distance/duration pairs kept alive for when the primary is
// down.
package routing

import (
	"context"

	"github.com/serendib/go-location-intel/internal/types"
)

// Router resolves a single route or fails; it is one tier of the fallback
// chain, not the chain itself.
type Router interface {
	Route(ctx context.Context, origin, destination types.Coordinate, mode types.TravelMode) (*types.Route, error)
}
