package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind classifies an event.
type Kind string

const (
	KindInfo  Kind = "INFO"
	KindError Kind = "ERROR"
)

// Event is an immutable notification about a wallet lifecycle step or transaction attempt.
type Event struct {
	Kind    Kind
	Payload string
	TraceID string
	Err     error
	At      time.Time
}

// Info builds an INFO event. An empty traceID is replaced with a fresh one.
func Info(payload, traceID string) Event {
	return newEvent(KindInfo, payload, traceID, nil)
}

// Error builds an ERROR event carrying cause.
func Error(payload, traceID string, cause error) Event {
	return newEvent(KindError, payload, traceID, cause)
}

func newEvent(kind Kind, payload, traceID string, cause error) Event {
	if traceID == "" {
		traceID = uuid.NewString()
	}
	return Event{
		Kind:    kind,
		Payload: payload,
		TraceID: traceID,
		Err:     cause,
		At:      time.Now().UTC(),
	}
}

// ErrorMessage returns the cause text or an empty string.
func (e Event) ErrorMessage() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e Event) String() string {
	return fmt.Sprintf(`{ "event": %q, "type": %q, "trace_id": %q, "error": %q }`,
		e.Payload, e.Kind, e.TraceID, e.ErrorMessage())
}

type wireEvent struct {
	Kind    Kind      `json:"type"`
	Payload string    `json:"event"`
	TraceID string    `json:"trace_id"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

// MarshalJSON encodes the event for external consumers.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEvent{
		Kind:    e.Kind,
		Payload: e.Payload,
		TraceID: e.TraceID,
		Error:   e.ErrorMessage(),
		At:      e.At,
	})
}
