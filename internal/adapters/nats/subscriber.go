package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// ClaimEvent is the wire shape of a completed evaluation.
type ClaimEvent struct {
	TicketID string          `json:"ticket_id"`
	Outcome  json.RawMessage `json:"outcome"`
}

// Subscriber consumes the rail event streams with durable JetStream
// consumers.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
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
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeDelayEvents consumes every delay check published by the core.
func (s *Subscriber) SubscribeDelayEvents(ctx context.Context, durable string, handler func(ctx context.Context, event *DelayEvent) error) error {
	sub, err := s.js.Subscribe("rail.delay.>", func(msg *nats.Msg) {
		var event DelayEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			_ = msg.Nak()
			return
		}
		if err := handler(ctx, &event); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(durable),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// SubscribeClaimEvaluated consumes completed evaluations.
func (s *Subscriber) SubscribeClaimEvaluated(ctx context.Context, durable string, handler func(ctx context.Context, event *ClaimEvent) error) error {
	sub, err := s.js.Subscribe(SubjectClaimEvaluated, func(msg *nats.Msg) {
		var event ClaimEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			_ = msg.Nak()
			return
		}
		if err := handler(ctx, &event); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(durable),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
