package mq

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestTypedHandler(t *testing.T) {
	type scenePayload struct {
		SceneID string  `json:"scene_id"`
		Cloud   float64 `json:"cloud"`
	}

	var got scenePayload
	handler := TypedHandler(func(ctx context.Context, p scenePayload) error {
		got = p
		return nil
	})

	delivery := &Delivery{Message: Message{
		ID:      "m1",
		Type:    MessageTypeEventInbound,
		Payload: map[string]any{"scene_id": "S2A", "cloud": 12.5},
	}}
	if err := handler(context.Background(), delivery); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if got.SceneID != "S2A" || got.Cloud != 12.5 {
		t.Errorf("payload not decoded: %+v", got)
	}

	// payload, который не приводится к типу — ошибка обработки
	bad := &Delivery{Message: Message{
		ID:      "m2",
		Type:    MessageTypeEventInbound,
		Payload: map[string]any{"cloud": "not-a-number"},
	}}
	if err := handler(context.Background(), bad); err == nil {
		t.Error("expected error for mismatched payload")
	}
}

func TestTypedHandlerPropagatesError(t *testing.T) {
	sentinel := errors.New("boom")
	handler := TypedHandler(func(ctx context.Context, p map[string]any) error {
		return sentinel
	})

	delivery := &Delivery{Message: Message{Payload: map[string]any{"k": "v"}}}
	if err := handler(context.Background(), delivery); !errors.Is(err, sentinel) {
		t.Errorf("expected wrapped handler error, got %v", err)
	}
}

func TestDeliveryAttempts(t *testing.T) {
	tests := []struct {
		name string
		raw  amqp.Delivery
		want int
	}{
		{"first delivery", amqp.Delivery{}, 1},
		{"redelivered", amqp.Delivery{Redelivered: true}, 2},
		{
			"requeued via x-death",
			amqp.Delivery{Headers: amqp.Table{
				"x-death": []any{amqp.Table{"count": int64(3)}},
			}},
			4,
		},
		{
			"x-death and redelivery",
			amqp.Delivery{
				Redelivered: true,
				Headers: amqp.Table{
					"x-death": []any{
						amqp.Table{"count": int64(2)},
						amqp.Table{"count": int64(1)},
					},
				},
			},
			5,
		},
		{
			"malformed x-death ignored",
			amqp.Delivery{Headers: amqp.Table{"x-death": "garbage"}},
			1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deliveryAttempts(tt.raw); got != tt.want {
				t.Errorf("deliveryAttempts() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestConsumerDefaults(t *testing.T) {
	c := NewConsumer(nil, nil, ConsumerConfig{Queue: QueueEventsInbound})

	if c.prefetch != 1 {
		t.Errorf("prefetch = %d, want 1", c.prefetch)
	}
	if c.maxDeliveries != defaultMaxDeliveries {
		t.Errorf("maxDeliveries = %d, want %d", c.maxDeliveries, defaultMaxDeliveries)
	}
}
