package diversion

import (
	"time"

	"github.com/nxtbus/routewatch/geo"
)

// Action tags the outcome of processing one GPS sample. Callers use these
// to drive UI state; only the DIVERSION_* actions carry an alert.
type Action string

const (
	ActionAtStop             Action = "AT_STOP"
	ActionClearedAtStop      Action = "CLEARED_AT_STOP"
	ActionSlowSpeed          Action = "SLOW_SPEED"
	ActionOnRoute            Action = "ON_ROUTE"
	ActionReturningToRoute   Action = "RETURNING_TO_ROUTE"
	ActionDiversionCleared   Action = "DIVERSION_CLEARED"
	ActionMonitoring         Action = "MONITORING"
	ActionPotentialDiversion Action = "POTENTIAL_DIVERSION"
	ActionDiversionDetected  Action = "DIVERSION_DETECTED"
	ActionDiversionOngoing   Action = "DIVERSION_ONGOING"
)

// Alert is an active route diversion. At most one exists per bus.
type Alert struct {
	ID                string     `json:"id"`
	BusID             string     `json:"busId"`
	RouteID           string     `json:"routeId"`
	RouteName         string     `json:"routeName"`
	DeviationM        int        `json:"deviationDistance"` // meters
	ExpectedSegment   string     `json:"expectedSegment"`
	ActualLocation    geo.Point  `json:"actualLocation"`
	Snapped           geo.Point  `json:"snappedPoint"`
	Message           string     `json:"message"`
	DetectedAt        time.Time  `json:"detectedAt"`
	StartTime         time.Time  `json:"startTime"`
	LastUpdated       time.Time  `json:"lastUpdated"`
	ReturnedToRouteAt *time.Time `json:"returnedToRouteAt,omitempty"`
}

// Status of a diversion log entry.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusResolved Status = "RESOLVED"
)

// LogEntry is one historical diversion event. Entries are append-only and
// the log keeps only the most recent ones.
type LogEntry struct {
	ID            string     `json:"id"`
	BusID         string     `json:"busId"`
	RouteID       string     `json:"routeId"`
	RouteName     string     `json:"routeName"`
	StartTime     time.Time  `json:"startTime"`
	EndTime       *time.Time `json:"endTime,omitempty"`
	DurationSec   int        `json:"duration"`
	MaxDeviationM int        `json:"maxDeviation"`
	Status        Status     `json:"status"`
}

// Result reports what the detector decided for one sample. Fields beyond
// Action are populated where they apply.
type Result struct {
	Action         Action     `json:"action"`
	StopName       string     `json:"stopName,omitempty"`
	SpeedKMH       float64    `json:"speed,omitempty"`
	DeviationM     int        `json:"deviationDistance,omitempty"`
	Snapped        geo.Point  `json:"snappedPoint"`
	SecondsOnRoute int        `json:"secondsOnRoute,omitempty"`
	PersistedSec   int        `json:"persistedSeconds,omitempty"`
	RequiredSec    int        `json:"requiredSeconds,omitempty"`
	Message        string     `json:"message,omitempty"`
	Alert          *Alert     `json:"alert,omitempty"`
}
