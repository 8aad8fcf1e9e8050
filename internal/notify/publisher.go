package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// MatchEvent is the payload emitted when a match is created, carrying enough
// for the external notification/messaging system to react.
type MatchEvent struct {
	EventID    string `json:"event_id"`
	MatchID    uint64 `json:"match_id"`
	FounderID  uint64 `json:"founder_id"`
	InvestorID uint64 `json:"investor_id"`
	CreatedAt  int64  `json:"created_at_unix"`
}

// Publisher delivers match events to whatever is listening. Delivery
// guarantees are the bus's problem, not the engine's.
type Publisher interface {
	PublishMatch(ctx context.Context, ev MatchEvent) error
	Close()
}

// NATSPublisher publishes match events as JSON on a single subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("venture-match"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return &NATSPublisher{conn: conn, subject: subject}, nil
}

func (p *NATSPublisher) PublishMatch(_ context.Context, ev MatchEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal match event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish match event: %w", err)
	}
	return nil
}

func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Drain() //nolint:errcheck
	}
}

// NopPublisher is used when no bus is configured.
type NopPublisher struct{}

func (NopPublisher) PublishMatch(context.Context, MatchEvent) error { return nil }
func (NopPublisher) Close()                                         {}
