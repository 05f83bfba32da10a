package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"leadflow_backend/platform/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

type pingEvent struct {
	BaseEvent
	Value string `json:"value"`
}

func (pingEvent) EventName() string { return "test.ping" }

func TestPublishRunsEveryHandler(t *testing.T) {
	bus := NewInMemoryBus(logger.New("test"))

	var calls atomic.Int32
	for i := 0; i < 3; i++ {
		bus.Subscribe("test.ping", HandlerFunc(func(ctx context.Context, event Event) error {
			calls.Add(1)
			return errors.New("ignored")
		}))
	}

	bus.Publish(context.Background(), pingEvent{BaseEvent: NewBaseEvent()})
	bus.Wait()

	if calls.Load() != 3 {
		t.Fatalf("expected 3 handler calls, got %d", calls.Load())
	}
}

func TestPublishSurvivesCancelledContext(t *testing.T) {
	bus := NewInMemoryBus(logger.New("test"))

	var sawCancel atomic.Bool
	bus.Subscribe("test.ping", HandlerFunc(func(ctx context.Context, event Event) error {
		sawCancel.Store(ctx.Err() != nil)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(ctx, pingEvent{BaseEvent: NewBaseEvent()})
	bus.Wait()

	if sawCancel.Load() {
		t.Fatal("handler context should not inherit caller cancellation")
	}
}

func TestPublishSyncReturnsHandlerError(t *testing.T) {
	bus := NewInMemoryBus(logger.New("test"))
	want := errors.New("boom")

	bus.Subscribe("test.ping", HandlerFunc(func(ctx context.Context, event Event) error { return nil }))
	bus.Subscribe("test.ping", HandlerFunc(func(ctx context.Context, event Event) error { return want }))

	if err := bus.PublishSync(context.Background(), pingEvent{BaseEvent: NewBaseEvent()}); !errors.Is(err, want) {
		t.Fatalf("PublishSync error = %v, want %v", err, want)
	}
}

func TestPublishSyncNoHandlers(t *testing.T) {
	bus := NewInMemoryBus(logger.New("test"))
	if err := bus.PublishSync(context.Background(), pingEvent{BaseEvent: NewBaseEvent()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
	msgs []amqp.Publishing
}

func (p *recordingPublisher) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.msgs = append(p.msgs, msg)
	return nil
}

func TestAMQPRelayPublishesEnvelope(t *testing.T) {
	pub := &recordingPublisher{}
	relay := &AMQPRelay{ch: pub, exchange: "leadflow.events", log: logger.New("test")}

	event := pingEvent{BaseEvent: NewBaseEvent(), Value: "hello"}
	if err := relay.Handle(context.Background(), event); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(pub.keys) != 1 || pub.keys[0] != "test.ping" {
		t.Fatalf("routing keys = %v", pub.keys)
	}

	var env Envelope
	if err := json.Unmarshal(pub.msgs[0].Body, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Name != "test.ping" {
		t.Errorf("envelope name = %q", env.Name)
	}

	var payload pingEvent
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Value != "hello" || payload.ID != event.ID {
		t.Errorf("payload = %+v", payload)
	}
	if pub.msgs[0].DeliveryMode != amqp.Persistent {
		t.Error("expected persistent delivery")
	}
}
