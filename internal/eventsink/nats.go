package eventsink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/fibonsai/exchange-simulator/internal/event"
)

// DefaultNATSSubject is the subject prefix used when none is configured.
// Events go to <prefix>.info or <prefix>.error.
const DefaultNATSSubject = "exsim.wallet.events"

// Publisher is the subset of *nats.Conn used by NATSPublisher.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher republishes events as JSON on NATS.
type NATSPublisher struct {
	conn    Publisher
	subject string
}

// NewNATSPublisher constructs a publisher on top of an existing connection.
func NewNATSPublisher(conn Publisher, subject string) *NATSPublisher {
	if subject == "" {
		subject = DefaultNATSSubject
	}
	return &NATSPublisher{conn: conn, subject: subject}
}

// ConnectNATS dials url with reconnects enabled.
func ConnectNATS(url string, logger *slog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("exsim"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", slog.Any("error", err))
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return nc, nil
}

func (p *NATSPublisher) Name() string { return "nats" }

// Subject returns the subject e is published on.
func (p *NATSPublisher) Subject(e event.Event) string {
	return p.subject + "." + strings.ToLower(string(e.Kind))
}

// Send publishes e.
func (p *NATSPublisher) Send(_ context.Context, e event.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := p.Subject(e)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}
