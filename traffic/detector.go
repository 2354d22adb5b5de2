package traffic

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nxtbus/routewatch/config"
	"github.com/nxtbus/routewatch/geo"
	"github.com/nxtbus/routewatch/transit"
)

type speedSample struct {
	ts       time.Time
	speedKMH float64
	lat, lon float64
}

// Detector classifies congestion from rolling per-bus speed history.
// Speed history is shared across segments for a bus; alerts are keyed by
// (bus, segment). Construct one per process and call ClearBus when a trip
// ends.
//
// Samples for one bus must arrive in timestamp order; stale samples are
// rejected with a nil result.
type Detector struct {
	mu      sync.RWMutex
	cfg     config.TrafficConfig
	log     zerolog.Logger
	now     func() time.Time
	history map[string][]speedSample
	alerts  map[string]*Alert
	seen    map[string]time.Time
}

// NewDetector creates a traffic detector with the given thresholds.
func NewDetector(cfg config.TrafficConfig, logger zerolog.Logger) *Detector {
	return &Detector{
		cfg:     cfg,
		log:     logger.With().Str("component", "traffic").Logger(),
		now:     time.Now,
		history: map[string][]speedSample{},
		alerts:  map[string]*Alert{},
		seen:    map[string]time.Time{},
	}
}

// ProcessSample runs one GPS fix through congestion detection. Nil results
// mean analysis is not possible yet: missing inputs, no resolvable speed,
// not enough samples in the detection window, or nothing to report.
func (d *Detector) ProcessSample(busID string, cur, prev *transit.GPSSample, route *transit.Route) *Result {
	if cur == nil || route == nil {
		return nil
	}

	polyline := geo.BuildRoutePolyline(route)
	if len(polyline) < 2 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ts := cur.Timestamp
	if ts.IsZero() {
		ts = d.now()
	}
	if last, ok := d.seen[busID]; ok && !ts.After(last) {
		d.log.Debug().Str("busId", busID).Time("timestamp", ts).Msg("rejected out-of-order sample")
		return nil
	}
	d.seen[busID] = ts

	pos := geo.Point{Lat: cur.Lat, Lon: cur.Lon}

	// Dwell at a stop is expected slowness, not congestion.
	if stopName, ok := geo.NearestStop(pos, polyline, d.cfg.StopRadiusM/1000); ok {
		segment := nearestSegment(pos, polyline)
		key := alertKey(busID, segment.id)
		if _, exists := d.alerts[key]; exists {
			delete(d.alerts, key)
			return &Result{Action: ActionClearedAtStop, StopName: stopName}
		}
		return nil
	}

	speed, ok := geo.SampleSpeedKMH(cur, prev)
	if !ok {
		return nil
	}

	hist := append(d.history[busID], speedSample{ts: ts, speedKMH: speed, lat: cur.Lat, lon: cur.Lon})
	cutoff := d.now().Add(-time.Duration(d.cfg.RollingWindowSec) * time.Second)
	for len(hist) > 0 && hist[0].ts.Before(cutoff) {
		hist = hist[1:]
	}
	d.history[busID] = hist

	if len(hist) < d.cfg.MinSamples {
		return nil
	}

	detectionCutoff := d.now().Add(-time.Duration(d.cfg.DetectionSec) * time.Second)
	var sum float64
	var n int
	for _, h := range hist {
		if h.ts.After(detectionCutoff) {
			sum += h.speedKMH
			n++
		}
	}
	if n < d.cfg.MinSamples {
		return nil
	}
	avgSpeed := sum / float64(n)

	segment := nearestSegment(pos, polyline)
	key := alertKey(busID, segment.id)
	severity, congested := d.severity(avgSpeed)

	if congested {
		if alert, exists := d.alerts[key]; exists {
			alert.Severity = severity
			alert.AvgSpeedKMH = roundSpeed(avgSpeed)
			alert.Message = severityMessage(severity, segment.name)
			alert.LastUpdated = d.now()
			alert.Location = pos
			alert.NormalSpeedStart = nil
			cp := *alert
			return &Result{Action: ActionUpdated, Alert: &cp}
		}

		alert := &Alert{
			ID:          uuid.NewString(),
			BusID:       busID,
			RouteID:     route.ID,
			SegmentID:   segment.id,
			SegmentName: segment.name,
			FromStop:    segment.from,
			ToStop:      segment.to,
			Severity:    severity,
			AvgSpeedKMH: roundSpeed(avgSpeed),
			Message:     severityMessage(severity, segment.name),
			DetectedAt:  d.now(),
			LastUpdated: d.now(),
			Location:    pos,
		}
		d.alerts[key] = alert
		d.log.Warn().
			Str("busId", busID).
			Str("segment", segment.id).
			Str("severity", string(severity)).
			Float64("avgSpeedKMH", alert.AvgSpeedKMH).
			Msg("traffic congestion detected")
		cp := *alert
		return &Result{Action: ActionCreated, Alert: &cp}
	}

	if alert, exists := d.alerts[key]; exists {
		if alert.NormalSpeedStart == nil {
			t := d.now()
			alert.NormalSpeedStart = &t
		}
		if d.now().Sub(*alert.NormalSpeedStart) >= time.Duration(d.cfg.ClearSec)*time.Second {
			delete(d.alerts, key)
			d.log.Info().Str("busId", busID).Str("segment", segment.id).Msg("traffic congestion cleared")
			return &Result{Action: ActionCleared, AlertID: alert.ID}
		}
	}

	return nil
}

func (d *Detector) severity(avgSpeedKMH float64) (Severity, bool) {
	switch {
	case avgSpeedKMH <= d.cfg.HighSpeedKMH:
		return SeverityHigh, true
	case avgSpeedKMH <= d.cfg.MediumSpeedKMH:
		return SeverityMedium, true
	case avgSpeedKMH <= d.cfg.LowSpeedKMH:
		return SeverityLow, true
	default:
		return "", false
	}
}

// AllAlerts returns copies of every active traffic alert.
func (d *Detector) AllAlerts() []Alert {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Alert, 0, len(d.alerts))
	for _, a := range d.alerts {
		out = append(out, *a)
	}
	return out
}

// AlertsForBus returns active alerts raised by one bus.
func (d *Detector) AlertsForBus(busID string) []Alert {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []Alert
	for _, a := range d.alerts {
		if a.BusID == busID {
			out = append(out, *a)
		}
	}
	return out
}

// AlertsForRoute returns active alerts on one route.
func (d *Detector) AlertsForRoute(routeID string) []Alert {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []Alert
	for _, a := range d.alerts {
		if a.RouteID == routeID {
			out = append(out, *a)
		}
	}
	return out
}

// AlertsForPassenger returns alerts for any of the buses a passenger is
// tracking or any of the routes they are viewing.
func (d *Detector) AlertsForPassenger(busIDs, routeIDs []string) []Alert {
	d.mu.RLock()
	defer d.mu.RUnlock()
	busSet := map[string]struct{}{}
	for _, id := range busIDs {
		busSet[id] = struct{}{}
	}
	routeSet := map[string]struct{}{}
	for _, id := range routeIDs {
		routeSet[id] = struct{}{}
	}
	var out []Alert
	for _, a := range d.alerts {
		if _, ok := busSet[a.BusID]; ok {
			out = append(out, *a)
			continue
		}
		if _, ok := routeSet[a.RouteID]; ok {
			out = append(out, *a)
		}
	}
	return out
}

// ClearBus releases all state for a bus when its trip ends.
func (d *Detector) ClearBus(busID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, a := range d.alerts {
		if a.BusID == busID {
			delete(d.alerts, key)
		}
	}
	delete(d.history, busID)
	delete(d.seen, busID)
}

type segment struct {
	id   string
	name string
	from geo.Waypoint
	to   geo.Waypoint
}

// nearestSegment identifies the pair of adjacent waypoints the bus lies
// closest to, using the same point-to-segment projection as the map
// matcher.
func nearestSegment(p geo.Point, polyline []geo.Waypoint) segment {
	match, ok := geo.MatchToPolyline(p, polyline)
	if !ok {
		return segment{id: "UNKNOWN", name: "Unknown Segment"}
	}
	from := match.SegmentStart
	to := match.SegmentEnd
	return segment{
		id:   fmt.Sprintf("%s_TO_%s", from.Name, to.Name),
		name: fmt.Sprintf("%s → %s", from.Name, to.Name),
		from: from,
		to:   to,
	}
}

func alertKey(busID, segmentID string) string {
	return busID + "_" + segmentID
}

func severityMessage(severity Severity, segmentName string) string {
	switch severity {
	case SeverityHigh:
		return fmt.Sprintf("Heavy traffic congestion near %s. Expect significant delays.", segmentName)
	case SeverityMedium:
		return fmt.Sprintf("Moderate traffic near %s. Some delays expected.", segmentName)
	case SeverityLow:
		return fmt.Sprintf("Slow moving traffic near %s.", segmentName)
	default:
		return fmt.Sprintf("Traffic detected near %s.", segmentName)
	}
}

func roundSpeed(kmh float64) float64 {
	return math.Round(kmh*10) / 10
}
