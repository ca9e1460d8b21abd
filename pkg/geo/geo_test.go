package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceZeroAtSamePoint(t *testing.T) {
	assert.Zero(t, Distance(19.4326, -99.1332, 19.4326, -99.1332))
}

func TestDistanceSymmetry(t *testing.T) {
	d1 := Distance(19.4326, -99.1332, 19.4360, -99.1400)
	d2 := Distance(19.4360, -99.1400, 19.4326, -99.1332)
	assert.InDelta(t, d1, d2, 1e-9)
}

func TestDistanceKnownValues(t *testing.T) {
	// Zocalo to Bellas Artes, Mexico City: roughly 1.1 km.
	d := Distance(19.4326, -99.1332, 19.4352, -99.1412)
	assert.InDelta(t, 890, d, 50)

	// ~500 m north of the reference point: one degree of latitude is
	// about 111.32 km, so 0.00449 degrees is close to 500 m.
	d = Distance(19.4326, -99.1332, 19.4326+0.00449, -99.1332)
	assert.InDelta(t, 500, d, 5)
}

func TestDistanceShortRange(t *testing.T) {
	// 7 m threshold territory: 0.00006 degrees latitude is ~6.7 m.
	d := Distance(19.4326, -99.1332, 19.43266, -99.1332)
	assert.Greater(t, d, 5.0)
	assert.Less(t, d, 8.0)
}
