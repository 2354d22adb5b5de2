package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nxtbus/routewatch/transit"
)

func testSnapshot() Snapshot {
	return Snapshot{
		Routes: []transit.Route{
			{
				ID:         "R1",
				Name:       "Airport Express",
				StartPoint: "Depot",
				StartLat:   0.001, StartLon: 0,
				EndPoint: "Terminus",
				EndLat:   0.021, EndLon: 0,
				Stops: []transit.Stop{
					{Name: "Alpha", Lat: 0.011, Lon: 0, Order: 1},
				},
				EstimatedDuration: 60,
			},
		},
		Schedules: []transit.Schedule{
			{ID: "sch-1", BusID: "bus-1", RouteID: "R1", StartTime: "08:00", EndTime: "09:00", Status: transit.ScheduleStatusActive},
			{ID: "sch-2", BusID: "bus-1", RouteID: "R1", StartTime: "10:00", EndTime: "11:00", Status: "inactive"},
		},
	}
}

func TestLoad(t *testing.T) {
	m, err := Load(testSnapshot())
	if err != nil {
		t.Fatal(err)
	}

	if got := m.Routes(); len(got) != 1 {
		t.Errorf("routes = %d, want 1", len(got))
	}
	if _, ok := m.RouteByID("R1"); !ok {
		t.Error("route R1 missing")
	}
	if _, ok := m.RouteByID("R9"); ok {
		t.Error("unknown route must not resolve")
	}
	if got := m.Schedules(); len(got) != 2 {
		t.Errorf("schedules = %d, want 2", len(got))
	}
}

func TestLoadRejectsInvalidRoute(t *testing.T) {
	snap := testSnapshot()
	snap.Routes[0].ID = ""

	if _, err := Load(snap); err == nil {
		t.Error("route without id must be rejected")
	}
}

func TestLoadFile(t *testing.T) {
	const data = `
routes:
  - id: R1
    name: Airport Express
    startPoint: Depot
    startLat: 0.001
    startLon: 0
    endPoint: Terminus
    endLat: 0.021
    endLon: 0
    estimatedDuration: 60
    stops:
      - name: Alpha
        lat: 0.011
        lon: 0
        order: 1
schedules:
  - id: sch-1
    busId: bus-1
    routeId: R1
    startTime: "08:00"
    endTime: "09:00"
    status: active
`
	path := filepath.Join(t.TempDir(), "store.yml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	route, ok := m.RouteByID("R1")
	if !ok {
		t.Fatal("route R1 missing")
	}
	if len(route.Stops) != 1 || route.Stops[0].Name != "Alpha" {
		t.Errorf("stops = %+v, want the Alpha stop", route.Stops)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("missing file must be an error")
	}
}

func TestScheduleFor(t *testing.T) {
	m, err := Load(testSnapshot())
	if err != nil {
		t.Fatal(err)
	}

	s, ok := m.ScheduleFor("bus-1", "R1")
	if !ok {
		t.Fatal("expected an active schedule")
	}
	if s.ID != "sch-1" {
		t.Errorf("schedule = %s, want sch-1 (the active one)", s.ID)
	}
	if _, ok := m.ScheduleFor("bus-9", "R1"); ok {
		t.Error("unassigned bus must not resolve a schedule")
	}
}

func TestTripLifecycle(t *testing.T) {
	m := NewMemory()
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	err := m.StartTrip(transit.Trip{
		TripID:  "trip-1",
		BusID:   "bus-1",
		RouteID: "R1",
		Current: &transit.GPSSample{Lat: 0.001, Lon: 0, Timestamp: base},
	})
	if err != nil {
		t.Fatal(err)
	}

	got, ok := m.UpdateGPS("bus-1", transit.GPSSample{Lat: 0.002, Lon: 0, Timestamp: base.Add(10 * time.Second)})
	if !ok {
		t.Fatal("expected a live trip")
	}
	if got.Current == nil || got.Current.Lat != 0.002 {
		t.Errorf("current = %+v, want the new fix", got.Current)
	}
	if got.Previous == nil || got.Previous.Lat != 0.001 {
		t.Errorf("previous = %+v, want the shifted fix", got.Previous)
	}

	if _, ok := m.UpdateGPS("bus-9", transit.GPSSample{Lat: 0, Lon: 0}); ok {
		t.Error("update for an unknown bus must report no trip")
	}

	if got := m.ActiveTrips(); len(got) != 1 {
		t.Errorf("active trips = %d, want 1", len(got))
	}

	m.EndTrip("bus-1")
	if _, ok := m.TripForBus("bus-1"); ok {
		t.Error("ended trip must be gone")
	}
}

func TestStartTripValidates(t *testing.T) {
	m := NewMemory()
	if err := m.StartTrip(transit.Trip{TripID: "trip-1"}); err == nil {
		t.Error("trip without bus or route must be rejected")
	}
}

func TestTripCopiesAreIsolated(t *testing.T) {
	m := NewMemory()
	_ = m.StartTrip(transit.Trip{
		TripID:  "trip-1",
		BusID:   "bus-1",
		RouteID: "R1",
		Current: &transit.GPSSample{Lat: 0.001, Lon: 0},
	})

	got, _ := m.TripForBus("bus-1")
	got.Current.Lat = 99

	again, _ := m.TripForBus("bus-1")
	if again.Current.Lat == 99 {
		t.Error("mutating a returned trip must not affect the store")
	}
}
