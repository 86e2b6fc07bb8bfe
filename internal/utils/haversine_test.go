package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKm(t *testing.T) {
	delhi := LatLon{28.6431, 77.2197}
	mumbai := LatLon{18.9398, 72.8355}

	assert.Zero(t, DistanceKm(delhi, delhi))
	assert.InDelta(t, 1150, DistanceKm(delhi, mumbai), 15)
	assert.InDelta(t, DistanceKm(delhi, mumbai), DistanceKm(mumbai, delhi), 1e-9)
	assert.InDelta(t, 20015, DistanceKm(LatLon{0, 0}, LatLon{0, 180}), 1)
}
