package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"leadflow_backend/platform/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Envelope is the wire format for events relayed to the message broker.
type Envelope struct {
	Name       string          `json:"name"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

func encodeEnvelope(event Event) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", event.EventName(), err)
	}
	return json.Marshal(Envelope{
		Name:       event.EventName(),
		OccurredAt: event.OccurredAt(),
		Payload:    payload,
	})
}

type amqpPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPRelay forwards domain events to a RabbitMQ topic exchange so that
// processes outside the API can react to them. The routing key is the event name.
type AMQPRelay struct {
	conn     *amqp.Connection
	ch       amqpPublisher
	exchange string
	mu       sync.Mutex
	log      *logger.Logger
}

// DialAMQPRelay connects to the broker and declares a durable topic exchange.
func DialAMQPRelay(url, exchange string, log *logger.Logger) (*AMQPRelay, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &AMQPRelay{conn: conn, ch: ch, exchange: exchange, log: log}, nil
}

// Handle implements Handler.
func (r *AMQPRelay) Handle(ctx context.Context, event Event) error {
	body, err := encodeEnvelope(event)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.ch.PublishWithContext(ctx, r.exchange, event.EventName(), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt(),
		Type:         event.EventName(),
		Body:         body,
	})
}

// Attach subscribes the relay to the given event names.
func (r *AMQPRelay) Attach(bus Bus, eventNames ...string) {
	SubscribeAll(bus, r, eventNames...)
	r.log.Info("amqp relay attached", "exchange", r.exchange, "events", len(eventNames))
}

// Close releases the broker connection.
func (r *AMQPRelay) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}
