package delay

import (
	"context"

	"github.com/rs/zerolog"
)

// NotificationSink is the persistence port for confirmed delays. The
// detector treats calls as fire-and-forget: errors are logged by the
// caller and never abort detection or corrupt in-memory state.
// Implementations may write asynchronously.
type NotificationSink interface {
	RecordDelay(ctx context.Context, rec Record) error
	Notify(ctx context.Context, n Notification) error
}

// LogSink is a NotificationSink that only logs. Useful where no
// persistence backend is wired, and as the default for the cmd binary.
type LogSink struct {
	Log zerolog.Logger
}

// RecordDelay implements NotificationSink.
func (s LogSink) RecordDelay(_ context.Context, rec Record) error {
	s.Log.Info().
		Str("busId", rec.BusID).
		Str("routeId", rec.RouteID).
		Int("delayMinutes", rec.DelayMinutes).
		Str("severity", string(rec.Severity)).
		Msg("delay recorded")
	return nil
}

// Notify implements NotificationSink.
func (s LogSink) Notify(_ context.Context, n Notification) error {
	s.Log.Info().
		Str("busId", n.BusID).
		Str("title", n.Title).
		Msg(n.Message)
	return nil
}
