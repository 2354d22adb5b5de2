package delay

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nxtbus/routewatch/config"
	"github.com/nxtbus/routewatch/geo"
	"github.com/nxtbus/routewatch/transit"
)

// Detector compares actual route progress against schedule-expected
// progress and notifies on significant delays. The only state it keeps is
// the notification dedup map; everything else is pure computation per
// call.
type Detector struct {
	mu       sync.Mutex
	cfg      config.DelayConfig
	log      zerolog.Logger
	now      func() time.Time
	sink     NotificationSink
	notified map[string]time.Time
}

// NewDetector creates a delay detector. The sink receives delay records
// and notifications for HIGH-severity delays, deduplicated per
// (bus, schedule) within the cooldown window.
func NewDetector(cfg config.DelayConfig, sink NotificationSink, logger zerolog.Logger) *Detector {
	return &Detector{
		cfg:      cfg,
		log:      logger.With().Str("component", "delay").Logger(),
		now:      time.Now,
		sink:     sink,
		notified: map[string]time.Time{},
	}
}

// ExpectedProgress interpolates where a trip should be inside its same-day
// HH:MM schedule window. Returns nil when the schedule times do not parse.
func (d *Detector) ExpectedProgress(schedule *transit.Schedule) *Progress {
	if schedule == nil {
		return nil
	}
	now := d.now()
	start, err := atClockTime(now, schedule.StartTime)
	if err != nil {
		return nil
	}
	end, err := atClockTime(now, schedule.EndTime)
	if err != nil {
		return nil
	}

	if now.Before(start) {
		return &Progress{Status: StatusNotStarted, Percent: 0}
	}
	if now.After(end) {
		return &Progress{Status: StatusShouldBeComplete, Percent: 100}
	}

	total := end.Sub(start)
	elapsed := now.Sub(start)
	percent := elapsed.Seconds() / total.Seconds() * 100
	return &Progress{
		Status:       StatusInProgress,
		Percent:      math.Min(percent, 100),
		ElapsedMin:   int(elapsed.Minutes()),
		RemainingMin: int(end.Sub(now).Minutes()),
	}
}

// ActualProgress is the ratio of straight-line distance from the route
// start to the bus, over total route polyline length, as a percentage
// clamped to 100.
func (d *Detector) ActualProgress(trip *transit.Trip, route *transit.Route) float64 {
	if trip == nil || trip.Current == nil || route == nil {
		return 0
	}
	total := geo.PolylineLengthKM(geo.BuildRoutePolyline(route))
	if total == 0 {
		return 0
	}
	fromStart := geo.HaversineKM(route.StartLat, route.StartLon, trip.Current.Lat, trip.Current.Lon)
	return math.Min(fromStart/total*100, 100)
}

// DetectTripDelay estimates the delay for one trip. It returns nil when
// the schedule has not started, when inputs are missing, or when the
// estimate is inside the grace tolerance.
func (d *Detector) DetectTripDelay(trip *transit.Trip, schedule *transit.Schedule, route *transit.Route) *Record {
	if trip == nil || schedule == nil || route == nil {
		return nil
	}

	expected := d.ExpectedProgress(schedule)
	if expected == nil || expected.Status == StatusNotStarted {
		return nil
	}

	actual := d.ActualProgress(trip, route)
	progressDiff := expected.Percent - actual

	duration := route.EstimatedDuration
	if duration <= 0 {
		duration = d.cfg.DefaultDurationMin
	}
	delayMinutes := int(math.Round(progressDiff / 100 * float64(duration)))

	if delayMinutes < d.cfg.ToleranceMin {
		return nil
	}

	severity := SeverityLow
	if delayMinutes >= d.cfg.SignificantMin {
		severity = SeverityHigh
	}
	return &Record{
		TripID:           trip.TripID,
		BusID:            trip.BusID,
		BusNumber:        trip.BusNumber,
		RouteID:          route.ID,
		RouteName:        route.Name,
		ScheduleID:       schedule.ID,
		DelayMinutes:     delayMinutes,
		ExpectedProgress: int(math.Round(expected.Percent)),
		ActualProgress:   int(math.Round(actual)),
		Severity:         severity,
		DetectedAt:       d.now(),
		Reason:           "Schedule deviation detected",
	}
}

// ProcessSample runs delay detection for one trip on a GPS update and
// notifies when the delay is HIGH. Returns the record for HIGH delays,
// nil otherwise.
func (d *Detector) ProcessSample(ctx context.Context, trip *transit.Trip, schedule *transit.Schedule, route *transit.Route) *Record {
	if trip == nil || trip.Current == nil || route == nil {
		return nil
	}
	rec := d.DetectTripDelay(trip, schedule, route)
	if rec == nil || rec.Severity != SeverityHigh {
		return nil
	}
	d.handleDetected(ctx, rec)
	return rec
}

// CheckAll sweeps every live trip, matching it to its active schedule and
// route, and returns every delay found. HIGH delays go through the
// notification path.
func (d *Detector) CheckAll(ctx context.Context, trips []transit.Trip, schedules []transit.Schedule, routes []transit.Route) []Record {
	routeByID := make(map[string]*transit.Route, len(routes))
	for i := range routes {
		routeByID[routes[i].ID] = &routes[i]
	}

	var records []Record
	for i := range trips {
		trip := &trips[i]

		var schedule *transit.Schedule
		for j := range schedules {
			s := &schedules[j]
			if s.BusID == trip.BusID && s.RouteID == trip.RouteID && s.Status == transit.ScheduleStatusActive {
				schedule = s
				break
			}
		}
		if schedule == nil {
			continue
		}
		route, ok := routeByID[trip.RouteID]
		if !ok {
			continue
		}

		rec := d.DetectTripDelay(trip, schedule, route)
		if rec == nil {
			continue
		}
		records = append(records, *rec)
		if rec.Severity == SeverityHigh {
			d.handleDetected(ctx, rec)
		}
	}
	return records
}

// handleDetected runs the dedup gate and, when it passes, fires the sink
// calls. Sink failures are logged and the delay stays unmarked so the next
// detection retries.
func (d *Detector) handleDetected(ctx context.Context, rec *Record) {
	key := rec.BusID + "_" + rec.ScheduleID
	cooldown := time.Duration(d.cfg.NotifyCooldownMin) * time.Minute

	d.mu.Lock()
	if last, ok := d.notified[key]; ok && d.now().Sub(last) < cooldown {
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	if err := d.sink.RecordDelay(ctx, *rec); err != nil {
		d.log.Error().Err(err).Str("busId", rec.BusID).Msg("failed to persist delay record")
		return
	}
	if err := d.sink.Notify(ctx, Notification{
		Type:          "delay",
		Title:         fmt.Sprintf("Bus %s Delayed", rec.BusNumber),
		Message:       fmt.Sprintf("Bus %s on route %q is running approximately %d minutes behind schedule.", rec.BusNumber, rec.RouteName, rec.DelayMinutes),
		TargetRoutes:  []string{rec.RouteID},
		BusID:         rec.BusID,
		DelayMinutes:  rec.DelayMinutes,
		Severity:      rec.Severity,
		AutoGenerated: true,
		SentBy:        "System",
	}); err != nil {
		d.log.Error().Err(err).Str("busId", rec.BusID).Msg("failed to send delay notification")
		return
	}

	d.mu.Lock()
	d.notified[key] = d.now()
	d.mu.Unlock()

	d.log.Info().
		Str("busId", rec.BusID).
		Str("scheduleId", rec.ScheduleID).
		Int("delayMinutes", rec.DelayMinutes).
		Msg("delay notification sent")
}

// ResetNotified clears the dedup map, typically at service day rollover.
func (d *Detector) ResetNotified() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notified = map[string]time.Time{}
}

// atClockTime resolves an HH:MM string onto the date of ref, in ref's
// location.
func atClockTime(ref time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse clock time %q: %w", hhmm, err)
	}
	return time.Date(ref.Year(), ref.Month(), ref.Day(), t.Hour(), t.Minute(), 0, 0, ref.Location()), nil
}
