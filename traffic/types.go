package traffic

import (
	"time"

	"github.com/nxtbus/routewatch/geo"
)

// Severity classifies congestion from the average speed over the
// detection window.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Action tags the outcome of processing one GPS sample.
type Action string

const (
	ActionCreated       Action = "CREATED"
	ActionUpdated       Action = "UPDATED"
	ActionCleared       Action = "CLEARED"
	ActionClearedAtStop Action = "CLEARED_AT_STOP"
)

// Alert is an active congestion report, keyed by (bus, segment). Multiple
// alerts can exist at once, one per occupied segment across the fleet.
type Alert struct {
	ID               string       `json:"id"`
	BusID            string       `json:"busId"`
	RouteID          string       `json:"routeId"`
	SegmentID        string       `json:"segmentId"`
	SegmentName      string       `json:"segmentName"`
	FromStop         geo.Waypoint `json:"fromStop"`
	ToStop           geo.Waypoint `json:"toStop"`
	Severity         Severity     `json:"severity"`
	AvgSpeedKMH      float64      `json:"avgSpeed"`
	Message          string       `json:"message"`
	DetectedAt       time.Time    `json:"detectedAt"`
	LastUpdated      time.Time    `json:"lastUpdated"`
	Location         geo.Point    `json:"gps"`
	NormalSpeedStart *time.Time   `json:"normalSpeedStart,omitempty"`
}

// Result reports what the detector decided for one sample.
type Result struct {
	Action   Action `json:"action"`
	StopName string `json:"stopName,omitempty"`
	AlertID  string `json:"alertId,omitempty"`
	Alert    *Alert `json:"alert,omitempty"`
}
