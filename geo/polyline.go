package geo

import (
	"math"
	"sort"

	"github.com/nxtbus/routewatch/transit"
)

// Waypoint is one vertex of a route polyline. IsStop marks route-defining
// stops as opposed to arbitrary shape vertices.
type Waypoint struct {
	Point
	Name   string `json:"name"`
	IsStop bool   `json:"isStop"`
}

// BuildRoutePolyline assembles the official route geometry: start point,
// intermediate stops sorted by order ascending, end point. A polyline with
// fewer than 2 waypoints has no matchable geometry and callers must skip
// analysis.
func BuildRoutePolyline(route *transit.Route) []Waypoint {
	if route == nil {
		return nil
	}

	polyline := make([]Waypoint, 0, len(route.Stops)+2)

	if route.StartLat != 0 || route.StartLon != 0 {
		polyline = append(polyline, Waypoint{
			Point:  Point{Lat: route.StartLat, Lon: route.StartLon},
			Name:   route.StartPoint,
			IsStop: true,
		})
	}

	if len(route.Stops) > 0 {
		stops := make([]transit.Stop, len(route.Stops))
		copy(stops, route.Stops)
		sort.SliceStable(stops, func(i, j int) bool { return stops[i].Order < stops[j].Order })
		for _, s := range stops {
			polyline = append(polyline, Waypoint{
				Point:  Point{Lat: s.Lat, Lon: s.Lon},
				Name:   s.Name,
				IsStop: true,
			})
		}
	}

	if route.EndLat != 0 || route.EndLon != 0 {
		polyline = append(polyline, Waypoint{
			Point:  Point{Lat: route.EndLat, Lon: route.EndLon},
			Name:   route.EndPoint,
			IsStop: true,
		})
	}

	return polyline
}

// PolylineLengthKM sums the haversine distances between consecutive
// waypoints.
func PolylineLengthKM(polyline []Waypoint) float64 {
	total := 0.0
	for i := 1; i < len(polyline); i++ {
		total += HaversineKM(polyline[i-1].Lat, polyline[i-1].Lon, polyline[i].Lat, polyline[i].Lon)
	}
	return total
}

// Match is a map-matching result: the snapped position, the deviation
// distance, and the polyline segment the point is nearest to.
type Match struct {
	Snapped      Point
	DistanceKM   float64
	SegmentIndex int
	SegmentStart Waypoint
	SegmentEnd   Waypoint
}

// MatchToPolyline snaps a raw coordinate onto the nearest point of the
// polyline by projecting it on every consecutive segment and keeping the
// global minimum. Ties keep the first-encountered segment. Returns false
// when the polyline has fewer than 2 waypoints.
func MatchToPolyline(p Point, polyline []Waypoint) (Match, bool) {
	if len(polyline) < 2 {
		return Match{Snapped: p}, false
	}

	best := Match{Snapped: p, DistanceKM: math.MaxFloat64}
	for i := 0; i < len(polyline)-1; i++ {
		proj := PointToSegment(p, polyline[i].Point, polyline[i+1].Point)
		if proj.DistanceKM < best.DistanceKM {
			best = Match{
				Snapped:      proj.Nearest,
				DistanceKM:   proj.DistanceKM,
				SegmentIndex: i,
				SegmentStart: polyline[i],
				SegmentEnd:   polyline[i+1],
			}
		}
	}
	return best, true
}

// NearestStop returns the name of the first route-defining stop within
// radiusKM of the coordinate, or false when none is close enough.
func NearestStop(p Point, polyline []Waypoint, radiusKM float64) (string, bool) {
	for _, wp := range polyline {
		if !wp.IsStop {
			continue
		}
		if HaversineKM(p.Lat, p.Lon, wp.Lat, wp.Lon) <= radiusKM {
			return wp.Name, true
		}
	}
	return "", false
}
