package delay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nxtbus/routewatch/config"
	"github.com/nxtbus/routewatch/transit"
)

// The test route spans 0.02 degrees of latitude, about 2.22 km, so a bus
// at latitude 0.006 is 25% of the way along it.
func testRoute() *transit.Route {
	return &transit.Route{
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
	}
}

func testSchedule() *transit.Schedule {
	return &transit.Schedule{
		ID:        "sch-1",
		BusID:     "bus-1",
		RouteID:   "R1",
		StartTime: "08:00",
		EndTime:   "09:00",
		Status:    transit.ScheduleStatusActive,
	}
}

func tripAt(lat float64) *transit.Trip {
	return &transit.Trip{
		TripID:    "trip-1",
		BusID:     "bus-1",
		BusNumber: "KA-01-1234",
		RouteID:   "R1",
		Current:   &transit.GPSSample{Lat: lat, Lon: 0, Timestamp: time.Now()},
	}
}

type fakeSink struct {
	records   []Record
	notes     []Notification
	recordErr error
	notifyErr error
}

func (s *fakeSink) RecordDelay(_ context.Context, rec Record) error {
	if s.recordErr != nil {
		return s.recordErr
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *fakeSink) Notify(_ context.Context, n Notification) error {
	if s.notifyErr != nil {
		return s.notifyErr
	}
	s.notes = append(s.notes, n)
	return nil
}

type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time          { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestDetector(sink NotificationSink) (*Detector, *testClock) {
	clk := &testClock{t: time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)}
	d := NewDetector(config.Default().Delay, sink, zerolog.Nop())
	d.now = clk.now
	return d, clk
}

func TestExpectedProgress(t *testing.T) {
	tests := []struct {
		name        string
		clockHHMM   string
		wantStatus  ProgressStatus
		wantPercent float64
	}{
		{name: "before window", clockHHMM: "07:00", wantStatus: StatusNotStarted, wantPercent: 0},
		{name: "midway", clockHHMM: "08:30", wantStatus: StatusInProgress, wantPercent: 50},
		{name: "quarter in", clockHHMM: "08:15", wantStatus: StatusInProgress, wantPercent: 25},
		{name: "after window", clockHHMM: "09:30", wantStatus: StatusShouldBeComplete, wantPercent: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, clk := newTestDetector(&fakeSink{})
			parsed, err := time.Parse("15:04", tt.clockHHMM)
			if err != nil {
				t.Fatal(err)
			}
			clk.t = time.Date(2025, 6, 1, parsed.Hour(), parsed.Minute(), 0, 0, time.UTC)

			got := d.ExpectedProgress(testSchedule())
			if got == nil {
				t.Fatal("expected a progress value")
			}
			if got.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", got.Status, tt.wantStatus)
			}
			if got.Percent != tt.wantPercent {
				t.Errorf("percent = %v, want %v", got.Percent, tt.wantPercent)
			}
		})
	}
}

func TestExpectedProgressBadTimes(t *testing.T) {
	d, _ := newTestDetector(&fakeSink{})
	sched := testSchedule()
	sched.StartTime = "8am"

	if got := d.ExpectedProgress(sched); got != nil {
		t.Errorf("unparseable schedule time: got %+v, want nil", got)
	}
	if got := d.ExpectedProgress(nil); got != nil {
		t.Errorf("nil schedule: got %+v, want nil", got)
	}
}

func TestExpectedProgressElapsedRemaining(t *testing.T) {
	d, _ := newTestDetector(&fakeSink{})

	got := d.ExpectedProgress(testSchedule())
	if got.ElapsedMin != 30 || got.RemainingMin != 30 {
		t.Errorf("elapsed/remaining = %d/%d, want 30/30", got.ElapsedMin, got.RemainingMin)
	}
}

func TestActualProgress(t *testing.T) {
	d, _ := newTestDetector(&fakeSink{})
	route := testRoute()

	tests := []struct {
		name string
		lat  float64
		want float64
		tol  float64
	}{
		{name: "at start", lat: 0.001, want: 0, tol: 0.01},
		{name: "quarter way", lat: 0.006, want: 25, tol: 0.1},
		{name: "at terminus", lat: 0.021, want: 100, tol: 0.1},
		{name: "past terminus clamps", lat: 0.03, want: 100, tol: 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.ActualProgress(tripAt(tt.lat), route)
			if got < tt.want-tt.tol || got > tt.want+tt.tol {
				t.Errorf("progress = %v, want %v ± %v", got, tt.want, tt.tol)
			}
		})
	}

	if got := d.ActualProgress(nil, route); got != 0 {
		t.Errorf("nil trip: got %v, want 0", got)
	}
}

func TestDetectTripDelay(t *testing.T) {
	tests := []struct {
		name         string
		lat          float64
		wantRecord   bool
		wantMinutes  int
		wantSeverity Severity
	}{
		{
			// Expected 50%, actual 25%: 15 minutes behind on a 60-minute
			// route.
			name: "significant delay", lat: 0.006,
			wantRecord: true, wantMinutes: 15, wantSeverity: SeverityHigh,
		},
		{
			// Expected 50%, actual about 37%: 8 minutes, under the
			// significant threshold.
			name: "minor delay", lat: 0.00833,
			wantRecord: true, wantMinutes: 8, wantSeverity: SeverityLow,
		},
		{
			// Expected 50%, actual 45%: 3 minutes, inside tolerance.
			name: "within tolerance", lat: 0.010,
			wantRecord: false,
		},
		{
			name: "on time", lat: 0.011,
			wantRecord: false,
		},
		{
			name: "ahead of schedule", lat: 0.015,
			wantRecord: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newTestDetector(&fakeSink{})
			rec := d.DetectTripDelay(tripAt(tt.lat), testSchedule(), testRoute())

			if !tt.wantRecord {
				if rec != nil {
					t.Fatalf("record = %+v, want nil", rec)
				}
				return
			}
			if rec == nil {
				t.Fatal("expected a delay record")
			}
			if rec.DelayMinutes != tt.wantMinutes {
				t.Errorf("delay = %d min, want %d", rec.DelayMinutes, tt.wantMinutes)
			}
			if rec.Severity != tt.wantSeverity {
				t.Errorf("severity = %s, want %s", rec.Severity, tt.wantSeverity)
			}
		})
	}
}

func TestDetectTripDelayNotStarted(t *testing.T) {
	d, clk := newTestDetector(&fakeSink{})
	clk.t = time.Date(2025, 6, 1, 7, 0, 0, 0, time.UTC)

	if rec := d.DetectTripDelay(tripAt(0.001), testSchedule(), testRoute()); rec != nil {
		t.Errorf("record = %+v, want nil before schedule start", rec)
	}
}

func TestDetectTripDelayAfterWindow(t *testing.T) {
	d, clk := newTestDetector(&fakeSink{})
	clk.t = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

	rec := d.DetectTripDelay(tripAt(0.006), testSchedule(), testRoute())
	if rec == nil {
		t.Fatal("expected a delay record after the window")
	}
	// Expected 100%, actual 25%: 45 minutes on a 60-minute route.
	if rec.DelayMinutes != 45 || rec.Severity != SeverityHigh {
		t.Errorf("record = %+v, want 45 min HIGH", rec)
	}
}

func TestProcessSampleNotifiesOnlyHigh(t *testing.T) {
	sink := &fakeSink{}
	d, _ := newTestDetector(sink)
	ctx := context.Background()

	if rec := d.ProcessSample(ctx, tripAt(0.00833), testSchedule(), testRoute()); rec != nil {
		t.Errorf("minor delay: record = %+v, want nil", rec)
	}
	if len(sink.notes) != 0 {
		t.Error("minor delay must not notify")
	}

	rec := d.ProcessSample(ctx, tripAt(0.006), testSchedule(), testRoute())
	if rec == nil || rec.Severity != SeverityHigh {
		t.Fatalf("record = %+v, want HIGH", rec)
	}
	if len(sink.records) != 1 || len(sink.notes) != 1 {
		t.Errorf("sink calls = %d records, %d notes; want 1 and 1", len(sink.records), len(sink.notes))
	}
	if sink.notes[0].BusID != "bus-1" || !sink.notes[0].AutoGenerated {
		t.Errorf("notification = %+v, want auto-generated for bus-1", sink.notes[0])
	}
}

func TestNotificationDedup(t *testing.T) {
	sink := &fakeSink{}
	d, clk := newTestDetector(sink)
	ctx := context.Background()

	d.ProcessSample(ctx, tripAt(0.006), testSchedule(), testRoute())
	clk.advance(2 * time.Minute)
	d.ProcessSample(ctx, tripAt(0.006), testSchedule(), testRoute())

	if len(sink.notes) != 1 {
		t.Fatalf("notifications within cooldown = %d, want 1", len(sink.notes))
	}

	clk.advance(4 * time.Minute)
	d.ProcessSample(ctx, tripAt(0.006), testSchedule(), testRoute())

	if len(sink.notes) != 2 {
		t.Errorf("notifications after cooldown = %d, want 2", len(sink.notes))
	}
}

func TestSinkFailureRetries(t *testing.T) {
	sink := &fakeSink{recordErr: errors.New("backend down")}
	d, _ := newTestDetector(sink)
	ctx := context.Background()

	d.ProcessSample(ctx, tripAt(0.006), testSchedule(), testRoute())
	if len(sink.notes) != 0 {
		t.Fatal("failed persistence must not notify")
	}

	// The failure must not consume the cooldown slot.
	sink.recordErr = nil
	d.ProcessSample(ctx, tripAt(0.006), testSchedule(), testRoute())
	if len(sink.records) != 1 || len(sink.notes) != 1 {
		t.Errorf("sink calls after retry = %d records, %d notes; want 1 and 1", len(sink.records), len(sink.notes))
	}
}

func TestResetNotified(t *testing.T) {
	sink := &fakeSink{}
	d, _ := newTestDetector(sink)
	ctx := context.Background()

	d.ProcessSample(ctx, tripAt(0.006), testSchedule(), testRoute())
	d.ResetNotified()
	d.ProcessSample(ctx, tripAt(0.006), testSchedule(), testRoute())

	if len(sink.notes) != 2 {
		t.Errorf("notifications after reset = %d, want 2", len(sink.notes))
	}
}

func TestCheckAll(t *testing.T) {
	sink := &fakeSink{}
	d, _ := newTestDetector(sink)

	routes := []transit.Route{*testRoute()}
	schedules := []transit.Schedule{
		*testSchedule(),
		{ID: "sch-2", BusID: "bus-2", RouteID: "R1", StartTime: "08:00", EndTime: "09:00", Status: transit.ScheduleStatusActive},
		{ID: "sch-3", BusID: "bus-3", RouteID: "R1", StartTime: "08:00", EndTime: "09:00", Status: "inactive"},
	}
	trips := []transit.Trip{
		*tripAt(0.006), // bus-1, 15 minutes behind
		{TripID: "trip-2", BusID: "bus-2", RouteID: "R1", Current: &transit.GPSSample{Lat: 0.011, Lon: 0}}, // on time
		{TripID: "trip-3", BusID: "bus-3", RouteID: "R1", Current: &transit.GPSSample{Lat: 0.006, Lon: 0}}, // inactive schedule
		{TripID: "trip-4", BusID: "bus-4", RouteID: "R9", Current: &transit.GPSSample{Lat: 0.006, Lon: 0}}, // no schedule
	}

	records := d.CheckAll(context.Background(), trips, schedules, routes)
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].BusID != "bus-1" || records[0].DelayMinutes != 15 {
		t.Errorf("record = %+v, want bus-1 at 15 min", records[0])
	}
	if len(sink.notes) != 1 {
		t.Errorf("notifications = %d, want 1", len(sink.notes))
	}
}
