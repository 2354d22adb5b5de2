package diversion

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

type deviationSample struct {
	ts       time.Time
	distKM   float64
	lat, lon float64
	speedKMH float64
}

// Detector map-matches raw GPS fixes onto the official route polyline and
// runs the debounced diversion state machine. All state is keyed by bus id
// and owned by the detector; construct one per process and call ClearBus
// when a trip ends.
//
// Samples for one bus must arrive in timestamp order. A sample not newer
// than the bus's previous one is rejected with a nil result.
type Detector struct {
	mu      sync.RWMutex
	cfg     config.DiversionConfig
	log     zerolog.Logger
	now     func() time.Time
	history map[string][]deviationSample
	active  map[string]*Alert
	events  []LogEntry
	seen    map[string]time.Time
}

// NewDetector creates a diversion detector with the given thresholds.
func NewDetector(cfg config.DiversionConfig, logger zerolog.Logger) *Detector {
	return &Detector{
		cfg:     cfg,
		log:     logger.With().Str("component", "diversion").Logger(),
		now:     time.Now,
		history: map[string][]deviationSample{},
		active:  map[string]*Alert{},
		seen:    map[string]time.Time{},
	}
}

// ProcessSample runs one GPS fix through diversion detection. It returns
// nil when analysis is not possible: missing sample or route, a route with
// fewer than 2 waypoints, or an out-of-order sample.
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
	match, _ := geo.MatchToPolyline(pos, polyline)

	// At a designated stop: dwell must never look like a diversion, and
	// reaching a stop is evidence the bus is back on its route.
	if stopName, ok := geo.NearestStop(pos, polyline, d.cfg.StopRadiusM/1000); ok {
		if alert := d.active[busID]; alert != nil {
			d.closeAlert(alert)
			delete(d.active, busID)
			return &Result{Action: ActionClearedAtStop, StopName: stopName, Snapped: match.Snapped}
		}
		return &Result{Action: ActionAtStop, StopName: stopName, Snapped: match.Snapped}
	}

	speed, speedKnown := geo.SampleSpeedKMH(cur, prev)
	if speedKnown && speed < d.cfg.MinSpeedKMH {
		// Idling off-lane (parking, traffic light) is not a diversion.
		return &Result{Action: ActionSlowSpeed, SpeedKMH: speed, Snapped: match.Snapped}
	}

	hist := append(d.history[busID], deviationSample{
		ts:       ts,
		distKM:   match.DistanceKM,
		lat:      cur.Lat,
		lon:      cur.Lon,
		speedKMH: speed,
	})
	cutoff := d.now().Add(-time.Duration(d.cfg.RollingWindowSec) * time.Second)
	for len(hist) > 0 && hist[0].ts.Before(cutoff) {
		hist = hist[1:]
	}
	d.history[busID] = hist

	distM := match.DistanceKM * 1000
	switch {
	case distM <= d.cfg.DriftToleranceM:
		return d.handleOnRoute(busID, match)
	case distM > d.cfg.DeviationThresholdM:
		return d.handleOffRoute(busID, route, cur, match, hist)
	default:
		return &Result{
			Action:     ActionMonitoring,
			DeviationM: roundM(match.DistanceKM),
			Snapped:    match.Snapped,
		}
	}
}

func (d *Detector) handleOnRoute(busID string, match geo.Match) *Result {
	alert := d.active[busID]
	if alert == nil {
		return &Result{Action: ActionOnRoute, Snapped: match.Snapped}
	}

	if alert.ReturnedToRouteAt == nil {
		t := d.now()
		alert.ReturnedToRouteAt = &t
	}
	onRoute := d.now().Sub(*alert.ReturnedToRouteAt)

	if onRoute >= time.Duration(d.cfg.ClearSec)*time.Second {
		d.closeAlert(alert)
		delete(d.active, busID)
		d.log.Info().Str("busId", busID).Str("alertId", alert.ID).Msg("route diversion cleared")
		return &Result{
			Action:  ActionDiversionCleared,
			Message: "Bus has returned to the official route.",
			Snapped: match.Snapped,
		}
	}

	return &Result{
		Action:         ActionReturningToRoute,
		SecondsOnRoute: int(math.Round(onRoute.Seconds())),
		Snapped:        match.Snapped,
	}
}

func (d *Detector) handleOffRoute(busID string, route *transit.Route, cur *transit.GPSSample, match geo.Match, hist []deviationSample) *Result {
	thresholdKM := d.cfg.DeviationThresholdM / 1000
	var persistent []deviationSample
	for _, h := range hist {
		if h.distKM > thresholdKM {
			persistent = append(persistent, h)
		}
	}

	if len(persistent) < d.cfg.MinSamples {
		return &Result{
			Action:     ActionPotentialDiversion,
			DeviationM: roundM(match.DistanceKM),
			Snapped:    match.Snapped,
		}
	}

	persisted := d.now().Sub(persistent[0].ts)
	if persisted < time.Duration(d.cfg.PersistenceSec)*time.Second {
		return &Result{
			Action:       ActionPotentialDiversion,
			DeviationM:   roundM(match.DistanceKM),
			PersistedSec: int(math.Round(persisted.Seconds())),
			RequiredSec:  d.cfg.PersistenceSec,
			Snapped:      match.Snapped,
		}
	}

	if alert := d.active[busID]; alert != nil {
		alert.DeviationM = roundM(match.DistanceKM)
		alert.ActualLocation = geo.Point{Lat: cur.Lat, Lon: cur.Lon}
		alert.LastUpdated = d.now()
		alert.ReturnedToRouteAt = nil
		if entry := d.findEvent(alert.ID); entry != nil && alert.DeviationM > entry.MaxDeviationM {
			entry.MaxDeviationM = alert.DeviationM
		}
		cp := *alert
		return &Result{Action: ActionDiversionOngoing, Alert: &cp, Snapped: match.Snapped}
	}

	now := d.now()
	alert := &Alert{
		ID:              uuid.NewString(),
		BusID:           busID,
		RouteID:         route.ID,
		RouteName:       route.Name,
		DeviationM:      roundM(match.DistanceKM),
		ExpectedSegment: segmentLabel(match),
		ActualLocation:  geo.Point{Lat: cur.Lat, Lon: cur.Lon},
		Snapped:         match.Snapped,
		Message:         "Route diversion detected. Expect delay.",
		DetectedAt:      now,
		StartTime:       now,
		LastUpdated:     now,
	}
	d.active[busID] = alert
	d.openEvent(alert)
	d.log.Warn().
		Str("busId", busID).
		Str("routeId", route.ID).
		Int("deviationM", alert.DeviationM).
		Str("segment", alert.ExpectedSegment).
		Msg("route diversion detected")

	cp := *alert
	return &Result{Action: ActionDiversionDetected, Alert: &cp, Snapped: match.Snapped}
}

func (d *Detector) openEvent(alert *Alert) {
	d.events = append(d.events, LogEntry{
		ID:            alert.ID,
		BusID:         alert.BusID,
		RouteID:       alert.RouteID,
		RouteName:     alert.RouteName,
		StartTime:     alert.StartTime,
		MaxDeviationM: alert.DeviationM,
		Status:        StatusActive,
	})
	if len(d.events) > d.cfg.LogCapacity {
		d.events = d.events[len(d.events)-d.cfg.LogCapacity:]
	}
}

func (d *Detector) closeAlert(alert *Alert) {
	if entry := d.findEvent(alert.ID); entry != nil {
		end := d.now()
		entry.EndTime = &end
		entry.DurationSec = int(math.Round(end.Sub(alert.StartTime).Seconds()))
		entry.Status = StatusResolved
	}
}

func (d *Detector) findEvent(id string) *LogEntry {
	for i := len(d.events) - 1; i >= 0; i-- {
		if d.events[i].ID == id {
			return &d.events[i]
		}
	}
	return nil
}

// AlertForBus returns a copy of the active diversion alert for a bus, or
// nil when the bus is on route.
func (d *Detector) AlertForBus(busID string) *Alert {
	d.mu.RLock()
	defer d.mu.RUnlock()
	alert, ok := d.active[busID]
	if !ok {
		return nil
	}
	cp := *alert
	return &cp
}

// ActiveAlerts returns copies of every active diversion alert.
func (d *Detector) ActiveAlerts() []Alert {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Alert, 0, len(d.active))
	for _, alert := range d.active {
		out = append(out, *alert)
	}
	return out
}

// Log returns the diversion event history, most recent first.
func (d *Detector) Log() []LogEntry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]LogEntry, len(d.events))
	for i, e := range d.events {
		out[len(d.events)-1-i] = e
	}
	return out
}

// ClearBus releases all state for a bus when its trip ends: the active
// alert (closing its log entry), the deviation history, and the ordering
// watermark.
func (d *Detector) ClearBus(busID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if alert, ok := d.active[busID]; ok {
		d.closeAlert(alert)
		delete(d.active, busID)
	}
	delete(d.history, busID)
	delete(d.seen, busID)
}

// SnappedPosition map-matches a raw coordinate for rendering. The snapped
// point is only used within the deviation threshold so a truly off-route
// bus is not drawn glued to the line.
func (d *Detector) SnappedPosition(p geo.Point, route *transit.Route) geo.Point {
	polyline := geo.BuildRoutePolyline(route)
	match, ok := geo.MatchToPolyline(p, polyline)
	if !ok {
		return p
	}
	if match.DistanceKM*1000 <= d.cfg.DeviationThresholdM {
		return match.Snapped
	}
	return p
}

func segmentLabel(match geo.Match) string {
	from := match.SegmentStart.Name
	if from == "" {
		from = "Unknown"
	}
	to := match.SegmentEnd.Name
	if to == "" {
		to = "Unknown"
	}
	return fmt.Sprintf("%s → %s", from, to)
}

func roundM(distKM float64) int {
	return int(math.Round(distKM * 1000))
}
