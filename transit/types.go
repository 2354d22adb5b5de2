package transit

import (
	"time"
)

// Stop is a named waypoint on a route with an ordering position.
type Stop struct {
	Name  string  `yaml:"name" json:"name" validate:"required"`
	Lat   float64 `yaml:"lat" json:"lat" validate:"gte=-90,lte=90"`
	Lon   float64 `yaml:"lon" json:"lon" validate:"gte=-180,lte=180"`
	Order int     `yaml:"order" json:"order" validate:"gte=0"`
}

// Route is the static reference geometry for a line: an explicit start
// point, ordered intermediate stops, and an explicit end point. Routes are
// owned by the external data store and read-only inside the engine.
type Route struct {
	ID                string  `yaml:"id" json:"id" validate:"required"`
	Name              string  `yaml:"name" json:"name" validate:"required"`
	StartPoint        string  `yaml:"startPoint" json:"startPoint"`
	StartLat          float64 `yaml:"startLat" json:"startLat" validate:"gte=-90,lte=90"`
	StartLon          float64 `yaml:"startLon" json:"startLon" validate:"gte=-180,lte=180"`
	EndPoint          string  `yaml:"endPoint" json:"endPoint"`
	EndLat            float64 `yaml:"endLat" json:"endLat" validate:"gte=-90,lte=90"`
	EndLon            float64 `yaml:"endLon" json:"endLon" validate:"gte=-180,lte=180"`
	Stops             []Stop  `yaml:"stops" json:"stops" validate:"dive"`
	EstimatedDuration int     `yaml:"estimatedDuration" json:"estimatedDuration" validate:"gte=0"` // minutes
	DistanceKM        float64 `yaml:"distanceKM" json:"distanceKM" validate:"gte=0"`
}

// Schedule assigns a bus to a route for a same-day HH:MM time window.
type Schedule struct {
	ID        string   `yaml:"id" json:"id" validate:"required"`
	BusID     string   `yaml:"busId" json:"busId" validate:"required"`
	RouteID   string   `yaml:"routeId" json:"routeId" validate:"required"`
	StartTime string   `yaml:"startTime" json:"startTime" validate:"required"` // HH:MM
	EndTime   string   `yaml:"endTime" json:"endTime" validate:"required"`     // HH:MM
	Days      []string `yaml:"days" json:"days"`
	Status    string   `yaml:"status" json:"status"`
}

// ScheduleStatusActive marks schedules eligible for delay detection.
const ScheduleStatusActive = "active"

// GPSSample is a single fix from a vehicle. SpeedMS, when present, is the
// device-reported ground speed in meters per second and takes precedence
// over speed derived from consecutive samples.
type GPSSample struct {
	Lat       float64   `yaml:"lat" json:"lat" validate:"gte=-90,lte=90"`
	Lon       float64   `yaml:"lon" json:"lon" validate:"gte=-180,lte=180"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	SpeedMS   *float64  `yaml:"speed,omitempty" json:"speed,omitempty"`
}

// Trip is a live run of a bus along a route with its two most recent fixes.
type Trip struct {
	TripID    string     `yaml:"tripId" json:"tripId" validate:"required"`
	BusID     string     `yaml:"busId" json:"busId" validate:"required"`
	BusNumber string     `yaml:"busNumber" json:"busNumber"`
	RouteID   string     `yaml:"routeId" json:"routeId" validate:"required"`
	Current   *GPSSample `yaml:"currentGps" json:"currentGps"`
	Previous  *GPSSample `yaml:"previousGps" json:"previousGps"`
}
