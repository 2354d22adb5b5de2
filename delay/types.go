package delay

import (
	"time"
)

// Severity of a detected delay. HIGH delays trigger notifications.
type Severity string

const (
	SeverityLow  Severity = "LOW"
	SeverityHigh Severity = "HIGH"
)

// ProgressStatus describes where a schedule window sits relative to now.
type ProgressStatus string

const (
	StatusNotStarted       ProgressStatus = "not_started"
	StatusInProgress       ProgressStatus = "in_progress"
	StatusShouldBeComplete ProgressStatus = "should_be_complete"
)

// Progress is the expected position of a trip within its schedule window,
// as a 0-100 percent linear interpolation.
type Progress struct {
	Status       ProgressStatus `json:"status"`
	Percent      float64        `json:"progress"`
	ElapsedMin   int            `json:"elapsedMinutes"`
	RemainingMin int            `json:"remainingMinutes"`
}

// Record is one detected schedule delay. It is a computation result, not
// persisted by the detector itself.
type Record struct {
	TripID           string    `json:"tripId"`
	BusID            string    `json:"busId"`
	BusNumber        string    `json:"busNumber"`
	RouteID          string    `json:"routeId"`
	RouteName        string    `json:"routeName"`
	ScheduleID       string    `json:"scheduleId"`
	DelayMinutes     int       `json:"delayMinutes"`
	ExpectedProgress int       `json:"expectedProgress"`
	ActualProgress   int       `json:"actualProgress"`
	Severity         Severity  `json:"severity"`
	DetectedAt       time.Time `json:"detectedAt"`
	Reason           string    `json:"reason"`
}

// Notification is the passenger/admin-facing message emitted for a HIGH
// delay.
type Notification struct {
	Type          string   `json:"type"`
	Title         string   `json:"title"`
	Message       string   `json:"message"`
	TargetRoutes  []string `json:"targetRoutes"`
	BusID         string   `json:"busId"`
	DelayMinutes  int      `json:"delayMinutes"`
	Severity      Severity `json:"severity"`
	AutoGenerated bool     `json:"autoGenerated"`
	SentBy        string   `json:"sentBy"`
}
