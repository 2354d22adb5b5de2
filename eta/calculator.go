package eta

import (
	"fmt"
	"math"
	"time"

	"github.com/nxtbus/routewatch/geo"
	"github.com/nxtbus/routewatch/transit"
)

// Speed blending weights and realistic city-bus speed bounds in km/h.
const (
	liveSpeedWeight = 0.7
	avgSpeedWeight  = 0.3

	MinSpeedKMH     = 5.0
	MaxCityBusKMH   = 35.0
	DefaultSpeedKMH = 20.0
)

// Estimate is a complete ETA computation for one bus approaching a stop.
type Estimate struct {
	DistanceKM   float64   `json:"distanceKm"`
	AvgSpeedKMH  float64   `json:"avgSpeedKmh"`
	LiveSpeedKMH *float64  `json:"liveSpeedKmh,omitempty"`
	FinalKMH     float64   `json:"finalSpeedKmh"`
	Minutes      int       `json:"etaMinutes"`
	ArrivalTime  time.Time `json:"arrivalTime"`
}

// AverageRouteSpeedKMH derives the typical speed of a route from its
// end-to-end distance and estimated duration, clamped to realistic city
// bus bounds. Falls back to the default when the route has no duration.
func AverageRouteSpeedKMH(route *transit.Route) float64 {
	if route == nil || route.EstimatedDuration <= 0 {
		return DefaultSpeedKMH
	}
	distKM := geo.HaversineKM(route.StartLat, route.StartLon, route.EndLat, route.EndLon)
	hours := float64(route.EstimatedDuration) / 60
	return clampSpeed(distKM / hours)
}

// LiveSpeedKMH computes current speed from two consecutive fixes, capped
// at the realistic maximum. Returns false when unavailable.
func LiveSpeedKMH(prev, cur *transit.GPSSample) (float64, bool) {
	if prev == nil || cur == nil {
		return 0, false
	}
	speed, ok := geo.SpeedBetweenKMH(*prev, *cur)
	if !ok {
		return 0, false
	}
	return math.Min(speed, MaxCityBusKMH), true
}

// BlendedSpeedKMH combines live and average speed 70/30, falling back to
// the clamped average when live speed is missing or implausibly low.
func BlendedSpeedKMH(liveKMH float64, liveOK bool, avgKMH float64) float64 {
	if !liveOK || liveKMH < MinSpeedKMH {
		return clampSpeed(avgKMH)
	}
	return clampSpeed(liveSpeedWeight*liveKMH + avgSpeedWeight*avgKMH)
}

// ComputeStopETA estimates when a bus reaches a stop from its current and
// previous fixes and the route's average speed profile.
func ComputeStopETA(cur, prev *transit.GPSSample, stop geo.Point, route *transit.Route, now time.Time) Estimate {
	distKM := geo.HaversineKM(cur.Lat, cur.Lon, stop.Lat, stop.Lon)
	avg := AverageRouteSpeedKMH(route)
	live, liveOK := LiveSpeedKMH(prev, cur)
	final := BlendedSpeedKMH(live, liveOK, avg)

	safeSpeed := math.Max(final, MinSpeedKMH)
	minutes := int(math.Round(distKM / safeSpeed * 60))

	est := Estimate{
		DistanceKM:  distKM,
		AvgSpeedKMH: avg,
		FinalKMH:    final,
		Minutes:     minutes,
		ArrivalTime: now.Add(time.Duration(minutes) * time.Minute),
	}
	if liveOK {
		est.LiveSpeedKMH = &live
	}
	return est
}

// FormatDistance renders a distance for display: meters below 1 km,
// otherwise kilometers with one decimal.
func FormatDistance(distKM float64) string {
	if distKM < 1 {
		return fmt.Sprintf("%d m", int(math.Round(distKM*1000)))
	}
	return fmt.Sprintf("%.1f km", distKM)
}

func clampSpeed(kmh float64) float64 {
	return math.Min(math.Max(kmh, MinSpeedKMH), MaxCityBusKMH)
}
