package tracking

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/nxtbus/routewatch/config"
	"github.com/nxtbus/routewatch/delay"
	"github.com/nxtbus/routewatch/diversion"
	"github.com/nxtbus/routewatch/traffic"
	"github.com/nxtbus/routewatch/transit"
)

// Store is the read side of the route/schedule/trip collaborator the
// tracker pulls reference data from.
type Store interface {
	Routes() []transit.Route
	RouteByID(id string) (transit.Route, bool)
	Schedules() []transit.Schedule
	ScheduleFor(busID, routeID string) (transit.Schedule, bool)
	ActiveTrips() []transit.Trip
}

// Update carries the per-detector outcomes for one processed GPS fix.
// Nil fields mean the detector had nothing to report.
type Update struct {
	Diversion *diversion.Result
	Traffic   *traffic.Result
	Delay     *delay.Record
}

// FleetTracker owns the per-vehicle analysis state for a whole fleet. It
// is the one object external transports feed samples into and dashboards
// query alerts from.
type FleetTracker struct {
	Diversion *diversion.Detector
	Traffic   *traffic.Detector
	Delay     *delay.Detector

	store Store
	log   zerolog.Logger
}

// New builds a tracker from the configured thresholds. The sink receives
// HIGH delay notifications.
func New(cfg config.AppConfig, st Store, sink delay.NotificationSink, logger zerolog.Logger) *FleetTracker {
	return &FleetTracker{
		Diversion: diversion.NewDetector(cfg.Diversion, logger),
		Traffic:   traffic.NewDetector(cfg.Traffic, logger),
		Delay:     delay.NewDetector(cfg.Delay, sink, logger),
		store:     st,
		log:       logger.With().Str("component", "tracking").Logger(),
	}
}

// ProcessTrip routes one trip's newest fix through all three detectors.
// Trips on unknown routes are skipped.
func (t *FleetTracker) ProcessTrip(ctx context.Context, trip transit.Trip) Update {
	var upd Update
	if trip.Current == nil {
		return upd
	}
	route, ok := t.store.RouteByID(trip.RouteID)
	if !ok {
		t.log.Warn().Str("busId", trip.BusID).Str("routeId", trip.RouteID).Msg("trip references unknown route")
		return upd
	}

	upd.Diversion = t.Diversion.ProcessSample(trip.BusID, trip.Current, trip.Previous, &route)
	upd.Traffic = t.Traffic.ProcessSample(trip.BusID, trip.Current, trip.Previous, &route)

	if schedule, ok := t.store.ScheduleFor(trip.BusID, trip.RouteID); ok {
		upd.Delay = t.Delay.ProcessSample(ctx, &trip, &schedule, &route)
	}
	return upd
}

// CheckAllTripsForDelays sweeps every live trip for schedule delays.
func (t *FleetTracker) CheckAllTripsForDelays(ctx context.Context) []delay.Record {
	return t.Delay.CheckAll(ctx, t.store.ActiveTrips(), t.store.Schedules(), t.store.Routes())
}

// OnTripEnd releases all per-vehicle detector state. Callers must invoke
// this when a bus goes off duty; state is not otherwise garbage
// collected.
func (t *FleetTracker) OnTripEnd(busID string) {
	t.Diversion.ClearBus(busID)
	t.Traffic.ClearBus(busID)
	t.log.Info().Str("busId", busID).Msg("trip ended, detector state released")
}
