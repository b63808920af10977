package budget

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_ChargeAccumulates(t *testing.T) {
	tr := NewTracker(10)

	tr.ChargeOp(OpGeocode)
	tr.ChargeOp(OpPlacesBatch)

	assert.InDelta(t, 4.0, tr.Total(), 1e-9)
	assert.InDelta(t, 6.0, tr.Remaining(), 1e-9)
}

func TestTracker_WouldExceed(t *testing.T) {
	tr := NewTracker(5)
	tr.Charge(4)

	assert.False(t, tr.WouldExceed(1))
	assert.True(t, tr.WouldExceed(1.5))
	assert.True(t, tr.WouldExceedOp(OpRoutePrimary))
	assert.False(t, tr.WouldExceedOp(OpRouteLegacy))
}

func TestTracker_ZeroCeilingDisablesEnforcement(t *testing.T) {
	tr := NewTracker(0)
	tr.Charge(1000)

	assert.False(t, tr.WouldExceed(1000))
}

func TestTracker_NegativeChargeIgnored(t *testing.T) {
	tr := NewTracker(10)
	tr.Charge(3)
	tr.Charge(-2)

	assert.InDelta(t, 3.0, tr.Total(), 1e-9, "total must be monotonic")
}

func TestTracker_ConcurrentCharges(t *testing.T) {
	tr := NewTracker(1000)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Charge(1)
		}()
	}
	wg.Wait()

	assert.InDelta(t, 100.0, tr.Total(), 1e-9)
}

func TestTracker_SkippedCount(t *testing.T) {
	tr := NewTracker(1)
	tr.MarkSkipped()
	tr.MarkSkipped()

	assert.Equal(t, 2, tr.Skipped())
}
