package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/togrefusjon/togrefusjon/internal/core/domain"
)

// Subjects published by the core. Claim generation and notification services
// consume these.
const (
	SubjectDelayPrefix    = "rail.delay."   // rail.delay.<status>
	SubjectJourneyCreated = "rail.claim.journey_created"
	SubjectClaimEvaluated = "rail.claim.evaluated"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and ensures the streams exist.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	streams := []nats.StreamConfig{
		{
			Name:      "TRAIN_DELAYS",
			Subjects:  []string{"rail.delay.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "CLAIMS",
			Subjects:  []string{"rail.claim.>"},
			Retention: nats.WorkQueuePolicy,
			MaxAge:    7 * 24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist — try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// DelayEvent is the wire shape of a delay-check event.
type DelayEvent struct {
	JourneyInstanceID string             `json:"journey_instance_id"`
	NaturalKey        string             `json:"natural_key"`
	Operator          string             `json:"operator"`
	TrainNumber       string             `json:"train_number"`
	ServiceDate       string             `json:"service_date"`
	Result            domain.DelayResult `json:"result"`
}

// PublishDelayResult emits one delay check, subject-keyed by status so
// consumers can subscribe to e.g. rail.delay.CANCELLED only.
func (p *Publisher) PublishDelayResult(ctx context.Context, journey *domain.JourneyInstance, result *domain.DelayResult) error {
	data, err := json.Marshal(DelayEvent{
		JourneyInstanceID: journey.ID,
		NaturalKey:        journey.NaturalKey,
		Operator:          journey.Operator,
		TrainNumber:       journey.TrainNumber,
		ServiceDate:       journey.ServiceDate,
		Result:            *result,
	})
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectDelayPrefix+string(result.Status), data)
	return err
}

// PublishJourneyCreated emits a new journey-instance registration.
func (p *Publisher) PublishJourneyCreated(ctx context.Context, journey *domain.JourneyInstance) error {
	data, err := json.Marshal(journey)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectJourneyCreated, data)
	return err
}

// PublishClaimEvaluated emits a completed rule evaluation for a ticket.
func (p *Publisher) PublishClaimEvaluated(ctx context.Context, ticketID string, outcome []byte) error {
	payload, err := json.Marshal(struct {
		TicketID string          `json:"ticket_id"`
		Outcome  json.RawMessage `json:"outcome"`
	}{TicketID: ticketID, Outcome: outcome})
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectClaimEvaluated, payload)
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
