// Package eventsink forwards wallet events from a bus subscription to
// downstream consumers: the structured log, Redis pub/sub and NATS.
package eventsink

import (
	"context"
	"log/slog"

	"github.com/fibonsai/exchange-simulator/internal/event"
)

// Sink delivers a single event to a downstream system.
type Sink interface {
	Name() string
	Send(ctx context.Context, e event.Event) error
}

// Forward drains sub into every sink until the subscription ends or ctx is
// done. Sink failures are logged and never stop the loop.
func Forward(ctx context.Context, sub *event.Subscription, logger *slog.Logger, sinks ...Sink) error {
	if logger == nil {
		logger = slog.Default()
	}
	defer sub.Cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-sub.Events():
			if !ok {
				return nil
			}
			for _, sink := range sinks {
				if err := sink.Send(ctx, e); err != nil {
					logger.WarnContext(ctx, "event sink failed",
						slog.String("sink", sink.Name()),
						slog.String("trace_id", e.TraceID),
						slog.Any("error", err),
					)
				}
			}
		}
	}
}
