package store

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/nxtbus/routewatch/transit"
)

// Snapshot is the on-disk shape of the reference data file.
type Snapshot struct {
	Routes    []transit.Route    `yaml:"routes"`
	Schedules []transit.Schedule `yaml:"schedules"`
	Trips     []transit.Trip     `yaml:"trips"`
}

// Memory holds routes, schedules and live trips in memory. Routes and
// schedules are immutable once loaded; trips track the two most recent
// fixes per bus as the feed delivers them.
type Memory struct {
	mu        sync.RWMutex
	routes    map[string]transit.Route
	schedules []transit.Schedule
	trips     map[string]*transit.Trip // keyed by bus id
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{
		routes: map[string]transit.Route{},
		trips:  map[string]*transit.Trip{},
	}
}

// LoadFile reads a yaml reference data file and validates every record at
// the boundary.
func LoadFile(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read store file: %w", err)
	}
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse store file: %w", err)
	}
	return Load(snap)
}

// Load builds a store from an already-decoded snapshot.
func Load(snap Snapshot) (*Memory, error) {
	m := NewMemory()
	for i := range snap.Routes {
		if err := transit.ValidateRoute(&snap.Routes[i]); err != nil {
			return nil, err
		}
		m.routes[snap.Routes[i].ID] = snap.Routes[i]
	}
	for i := range snap.Schedules {
		if err := transit.ValidateSchedule(&snap.Schedules[i]); err != nil {
			return nil, err
		}
	}
	m.schedules = append(m.schedules, snap.Schedules...)
	for i := range snap.Trips {
		if err := transit.ValidateTrip(&snap.Trips[i]); err != nil {
			return nil, err
		}
		trip := snap.Trips[i]
		m.trips[trip.BusID] = &trip
	}
	return m, nil
}

// Routes returns all routes.
func (m *Memory) Routes() []transit.Route {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]transit.Route, 0, len(m.routes))
	for _, r := range m.routes {
		out = append(out, r)
	}
	return out
}

// RouteByID looks up one route.
func (m *Memory) RouteByID(id string) (transit.Route, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.routes[id]
	return r, ok
}

// Schedules returns all schedules.
func (m *Memory) Schedules() []transit.Schedule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]transit.Schedule, len(m.schedules))
	copy(out, m.schedules)
	return out
}

// ScheduleFor finds the active schedule assigning a bus to a route.
func (m *Memory) ScheduleFor(busID, routeID string) (transit.Schedule, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.schedules {
		if s.BusID == busID && s.RouteID == routeID && s.Status == transit.ScheduleStatusActive {
			return s, true
		}
	}
	return transit.Schedule{}, false
}

// ActiveTrips returns a copy of every live trip.
func (m *Memory) ActiveTrips() []transit.Trip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]transit.Trip, 0, len(m.trips))
	for _, t := range m.trips {
		out = append(out, cloneTrip(t))
	}
	return out
}

// TripForBus returns the live trip of one bus.
func (m *Memory) TripForBus(busID string) (transit.Trip, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.trips[busID]
	if !ok {
		return transit.Trip{}, false
	}
	return cloneTrip(t), true
}

// StartTrip registers a live trip for a bus, validating it first.
func (m *Memory) StartTrip(trip transit.Trip) error {
	if err := transit.ValidateTrip(&trip); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.BusID] = &trip
	return nil
}

// UpdateGPS records a new fix for a bus, shifting the current fix into the
// previous slot. Returns the updated trip and false when no trip is live
// for that bus.
func (m *Memory) UpdateGPS(busID string, sample transit.GPSSample) (transit.Trip, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[busID]
	if !ok {
		return transit.Trip{}, false
	}
	t.Previous = t.Current
	s := sample
	t.Current = &s
	return cloneTrip(t), true
}

// EndTrip drops the live trip for a bus.
func (m *Memory) EndTrip(busID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.trips, busID)
}

func cloneTrip(t *transit.Trip) transit.Trip {
	cp := *t
	if t.Current != nil {
		cur := *t.Current
		cp.Current = &cur
	}
	if t.Previous != nil {
		prev := *t.Previous
		cp.Previous = &prev
	}
	return cp
}
