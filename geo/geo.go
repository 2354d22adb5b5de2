package geo

import (
	"math"

	"github.com/nxtbus/routewatch/transit"
)

// EarthRadiusKM is the mean Earth radius used by the haversine formula.
const EarthRadiusKM = 6371.0

// Point is a geographical coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// HaversineKM returns the great-circle distance between two coordinates
// in kilometers.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKM * c
}

// SegmentProjection is the result of projecting a point onto a segment.
type SegmentProjection struct {
	DistanceKM float64
	Nearest    Point
}

// PointToSegment projects p onto the segment from a to b and returns the
// distance to the nearest point. The projection parameter is clamped to
// [0,1] so the nearest point always lies within the segment, never on its
// extension.
func PointToSegment(p, a, b Point) SegmentProjection {
	ax := p.Lat - a.Lat
	ay := p.Lon - a.Lon
	bx := b.Lat - a.Lat
	by := b.Lon - a.Lon

	dot := ax*bx + ay*by
	lenSq := bx*bx + by*by

	t := -1.0
	if lenSq != 0 {
		t = dot / lenSq
	}

	var nearest Point
	switch {
	case t < 0:
		nearest = a
	case t > 1:
		nearest = b
	default:
		nearest = Point{Lat: a.Lat + t*bx, Lon: a.Lon + t*by}
	}

	return SegmentProjection{
		DistanceKM: HaversineKM(p.Lat, p.Lon, nearest.Lat, nearest.Lon),
		Nearest:    nearest,
	}
}

// Bearing returns the initial bearing from the first coordinate to the
// second, in degrees 0-360.
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := math.Pi / 180
	dLon := (lon2 - lon1) * toRad
	y := math.Sin(dLon) * math.Cos(lat2*toRad)
	x := math.Cos(lat1*toRad)*math.Sin(lat2*toRad) -
		math.Sin(lat1*toRad)*math.Cos(lat2*toRad)*math.Cos(dLon)
	brng := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(brng+360, 360)
}

// passedStopThresholdKM keeps a bus dwelling beside a stop from being
// counted as past it.
const passedStopThresholdKM = 0.15

// HasPassedStop reports whether a bus is beyond a stop relative to the
// route end: closer to the destination than the stop is, and clear of the
// stop itself.
func HasPassedStop(bus, stop, routeEnd Point) bool {
	busToStop := HaversineKM(bus.Lat, bus.Lon, stop.Lat, stop.Lon)
	busToEnd := HaversineKM(bus.Lat, bus.Lon, routeEnd.Lat, routeEnd.Lon)
	stopToEnd := HaversineKM(stop.Lat, stop.Lon, routeEnd.Lat, routeEnd.Lon)
	return busToEnd < stopToEnd && busToStop > passedStopThresholdKM
}

// SpeedBetweenKMH derives speed in km/h from two consecutive samples.
// Returns false when the samples do not describe forward movement in time.
func SpeedBetweenKMH(prev, cur transit.GPSSample) (float64, bool) {
	dt := cur.Timestamp.Sub(prev.Timestamp).Seconds()
	if dt <= 0 {
		return 0, false
	}
	distKM := HaversineKM(prev.Lat, prev.Lon, cur.Lat, cur.Lon)
	return distKM / dt * 3600, true
}

// SampleSpeedKMH resolves the speed for a fix: the device-reported speed
// when present (m/s converted to km/h), otherwise derived from the
// previous sample. Returns false when neither source is available.
func SampleSpeedKMH(cur *transit.GPSSample, prev *transit.GPSSample) (float64, bool) {
	if cur == nil {
		return 0, false
	}
	if cur.SpeedMS != nil {
		return *cur.SpeedMS * 3.6, true
	}
	if prev == nil {
		return 0, false
	}
	return SpeedBetweenKMH(*prev, *cur)
}
