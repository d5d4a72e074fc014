package eventsink

import (
	"context"
	"log/slog"

	"github.com/fibonsai/exchange-simulator/internal/event"
)

// LogSink writes events to the structured logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink constructs a logging sink.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

// Send writes the event at info level, or error level for ERROR events.
func (s *LogSink) Send(ctx context.Context, e event.Event) error {
	if s == nil || s.logger == nil {
		return nil
	}
	level := slog.LevelInfo
	if e.Kind == event.KindError {
		level = slog.LevelError
	}
	s.logger.Log(ctx, level, "wallet event",
		slog.String("type", string(e.Kind)),
		slog.String("trace_id", e.TraceID),
		slog.String("event", e.Payload),
		slog.String("error", e.ErrorMessage()),
	)
	return nil
}
