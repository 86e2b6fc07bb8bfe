package service

import (
	"github.com/railmadad/backend/internal/utils"
)

// Stations farther than this from the reported position are not suggested.
const maxStationKm = 25.0

type Station struct {
	Code string
	Name string
	utils.LatLon
}

var knownStations = []Station{
	{"NDLS", "New Delhi", utils.LatLon{Lat: 28.6431, Lon: 77.2197}},
	{"CSMT", "Mumbai CSMT", utils.LatLon{Lat: 18.9398, Lon: 72.8355}},
	{"MMCT", "Mumbai Central", utils.LatLon{Lat: 18.9696, Lon: 72.8194}},
	{"HWH", "Howrah Jn", utils.LatLon{Lat: 22.5839, Lon: 88.3425}},
	{"MAS", "Chennai Central", utils.LatLon{Lat: 13.0827, Lon: 80.2750}},
	{"SBC", "KSR Bengaluru", utils.LatLon{Lat: 12.9784, Lon: 77.5694}},
	{"SC", "Secunderabad Jn", utils.LatLon{Lat: 17.4337, Lon: 78.5016}},
	{"PUNE", "Pune Jn", utils.LatLon{Lat: 18.5286, Lon: 73.8743}},
	{"ADI", "Ahmedabad Jn", utils.LatLon{Lat: 23.0258, Lon: 72.6012}},
	{"LKO", "Lucknow Charbagh", utils.LatLon{Lat: 26.8317, Lon: 80.9236}},
	{"JP", "Jaipur Jn", utils.LatLon{Lat: 26.9196, Lon: 75.7878}},
	{"PNBE", "Patna Jn", utils.LatLon{Lat: 25.6030, Lon: 85.1371}},
	{"BPL", "Bhopal Jn", utils.LatLon{Lat: 23.2665, Lon: 77.4126}},
	{"CNB", "Kanpur Central", utils.LatLon{Lat: 26.4543, Lon: 80.3512}},
	{"NGP", "Nagpur Jn", utils.LatLon{Lat: 21.1521, Lon: 79.0882}},
}

// NearestStation returns the closest known station within maxStationKm of the point.
func NearestStation(lat, lon float64) (Station, float64, bool) {
	at := utils.LatLon{Lat: lat, Lon: lon}
	best, bestKm := -1, 0.0
	for i, st := range knownStations {
		d := utils.DistanceKm(at, st.LatLon)
		if best == -1 || d < bestKm {
			best, bestKm = i, d
		}
	}
	if best == -1 || bestKm > maxStationKm {
		return Station{}, 0, false
	}
	return knownStations[best], bestKm, true
}
