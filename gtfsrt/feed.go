package gtfsrt

import (
	"fmt"
	"sync"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/nxtbus/routewatch/transit"
)

// Fix is one vehicle position extracted from a feed refresh.
type Fix struct {
	VehicleID string
	TripID    string
	RouteID   string
	Sample    transit.GPSSample
}

// Feed fetches a GTFS-RT VehiclePositions feed and extracts per-vehicle
// fixes. Fixes older than the staleness cutoff, and fixes not newer than
// the vehicle's previously seen one, are dropped before they reach any
// detector.
type Feed struct {
	url        string
	client     *Client
	staleAfter time.Duration

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

// NewFeed creates a feed reader. staleAfter <= 0 disables the staleness
// check.
func NewFeed(url string, client *Client, staleAfter time.Duration) *Feed {
	return &Feed{
		url:        url,
		client:     client,
		staleAfter: staleAfter,
		lastSeen:   map[string]time.Time{},
	}
}

// Refresh fetches the feed once and returns the usable fixes.
func (f *Feed) Refresh() ([]Fix, error) {
	raw, err := f.client.Fetch(f.url)
	if err != nil {
		return nil, fmt.Errorf("vehicle positions: %w", err)
	}
	if raw == nil {
		return nil, nil
	}

	var fm gtfsrtpb.FeedMessage
	if err := proto.Unmarshal(raw, &fm); err != nil {
		return nil, fmt.Errorf("decode vehicle positions: %w", err)
	}

	headerTS := time.Now()
	if fm.Header != nil && fm.Header.Timestamp != nil {
		headerTS = time.Unix(int64(*fm.Header.Timestamp), 0)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var fixes []Fix
	for _, e := range fm.Entity {
		v := e.Vehicle
		if v == nil || v.Position == nil || v.Position.Latitude == nil || v.Position.Longitude == nil {
			continue
		}

		var vehicleID string
		if v.Vehicle != nil && v.Vehicle.Id != nil {
			vehicleID = *v.Vehicle.Id
		} else if e.Id != nil {
			vehicleID = *e.Id
		}
		if vehicleID == "" {
			continue
		}

		ts := headerTS
		if v.Timestamp != nil {
			ts = time.Unix(int64(*v.Timestamp), 0)
		}
		if f.staleAfter > 0 && time.Since(ts) > f.staleAfter {
			continue
		}
		if last, ok := f.lastSeen[vehicleID]; ok && !ts.After(last) {
			continue
		}
		f.lastSeen[vehicleID] = ts

		sample := transit.GPSSample{
			Lat:       float64(*v.Position.Latitude),
			Lon:       float64(*v.Position.Longitude),
			Timestamp: ts,
		}
		if v.Position.Speed != nil {
			speed := float64(*v.Position.Speed)
			sample.SpeedMS = &speed
		}

		fix := Fix{VehicleID: vehicleID, Sample: sample}
		if v.Trip != nil {
			if v.Trip.TripId != nil {
				fix.TripID = *v.Trip.TripId
			}
			if v.Trip.RouteId != nil {
				fix.RouteID = *v.Trip.RouteId
			}
		}
		fixes = append(fixes, fix)
	}
	return fixes, nil
}
