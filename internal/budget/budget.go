// Package budget tracks estimated external-provider spend for one analysis
// request. A tracker is created per request and never shared; the
// orchestrator consults it before issuing optional work.
package budget

import (
	"sync"
)

// Operation enumerates the billable external call types.
type Operation string

const (
	OpGeocode      Operation = "geocode"
	OpPlacesBatch  Operation = "places_batch"
	OpRoutePrimary Operation = "route_primary"
	OpRouteLegacy  Operation = "route_legacy"
	OpStaticMap    Operation = "static_map"
)

// Unit costs are relative estimates, not billing-exact figures. They only
// need to rank operations consistently against the ceiling.
var defaultUnitCosts = map[Operation]float64{
	OpGeocode:      1.0,
	OpPlacesBatch:  3.0,
	OpRoutePrimary: 2.0,
	OpRouteLegacy:  1.0,
	OpStaticMap:    0.5,
}

// Tracker accumulates estimated spend against a per-request ceiling. The
// running total is monotonically non-decreasing; Charge never subtracts.
type Tracker struct {
	mu      sync.Mutex
	ceiling float64
	total   float64
	skipped int
	costs   map[Operation]float64
}

// NewTracker creates a request-scoped tracker with the given ceiling in
// cost units. A non-positive ceiling disables budget enforcement.
func NewTracker(ceiling float64) *Tracker {
	return &Tracker{ceiling: ceiling, costs: defaultUnitCosts}
}

// Estimate returns the fixed unit cost of an operation type.
func (t *Tracker) Estimate(op Operation) float64 {
	return t.costs[op]
}

// Charge records spend against the running total.
func (t *Tracker) Charge(cost float64) {
	if cost <= 0 {
		return
	}
	t.mu.Lock()
	t.total += cost
	t.mu.Unlock()
}

// ChargeOp is shorthand for Charge(Estimate(op)).
func (t *Tracker) ChargeOp(op Operation) {
	t.Charge(t.Estimate(op))
}

// Total returns the spend accumulated so far.
func (t *Tracker) Total() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Ceiling returns the configured ceiling.
func (t *Tracker) Ceiling() float64 {
	return t.ceiling
}

// Remaining returns the headroom left under the ceiling, never negative.
func (t *Tracker) Remaining() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ceiling <= 0 {
		return 0
	}
	if r := t.ceiling - t.total; r > 0 {
		return r
	}
	return 0
}

// WouldExceed reports whether charging cost would breach the ceiling.
// Core operations ignore this; only optional work consults it.
func (t *Tracker) WouldExceed(cost float64) bool {
	if t.ceiling <= 0 {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total+cost > t.ceiling
}

// WouldExceedOp is shorthand for WouldExceed(Estimate(op)).
func (t *Tracker) WouldExceedOp(op Operation) bool {
	return t.WouldExceed(t.Estimate(op))
}

// MarkSkipped counts a piece of optional work dropped for budget reasons,
// reported back to the caller in the cost summary.
func (t *Tracker) MarkSkipped() {
	t.mu.Lock()
	t.skipped++
	t.mu.Unlock()
}

// Skipped returns how many optional operations were dropped.
func (t *Tracker) Skipped() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.skipped
}
