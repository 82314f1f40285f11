package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Orbita/internal/telemetry"
)

// Handler — функция обработки сообщения. Ненулевая ошибка означает,
// что сообщение будет возвращено в очередь или отправлено в DLQ.
type Handler func(ctx context.Context, msg *Delivery) error

// Delivery — доставленное сообщение.
type Delivery struct {
	// Message — распарсенное сообщение.
	Message Message

	// Raw — сырое AMQP сообщение.
	Raw amqp.Delivery
}

// Ack подтверждает успешную обработку сообщения.
func (d *Delivery) Ack() error {
	return d.Raw.Ack(false)
}

// Nack отклоняет сообщение.
// requeue=true — вернуть в очередь, false — отправить в DLQ.
func (d *Delivery) Nack(requeue bool) error {
	return d.Raw.Nack(false, requeue)
}

// Исходы обработки сообщений для метрики QueueMessages.
const (
	outcomeOK        = "ok"
	outcomeMalformed = "malformed"
	outcomeRequeued  = "requeued"
	outcomeDropped   = "dropped"
)

// defaultMaxDeliveries — сколько раз сообщение доставляется, прежде
// чем уйти в DLQ вместо очередного requeue.
const defaultMaxDeliveries = 5

// Consumer потребляет сообщения из очереди RabbitMQ. Ошибка
// обработчика возвращает сообщение в очередь; после MaxDeliveries
// доставок сообщение уходит в DLQ, чтобы битый payload не крутился
// в очереди вечно.
type Consumer struct {
	conn          *Connection
	logger        *slog.Logger
	queue         Queue
	handler       Handler
	prefetch      int
	maxDeliveries int

	cancelFunc context.CancelFunc
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	// Queue — очередь для потребления.
	Queue Queue

	// Handler — обработчик сообщений.
	Handler Handler

	// Prefetch — сколько сообщений брокер выдаёт без подтверждения.
	// 0 — одно.
	Prefetch int

	// MaxDeliveries — лимит доставок одного сообщения, после которого
	// оно уходит в DLQ. 0 — пять.
	MaxDeliveries int
}

// NewConsumer создаёт Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	maxDeliveries := cfg.MaxDeliveries
	if maxDeliveries <= 0 {
		maxDeliveries = defaultMaxDeliveries
	}

	return &Consumer{
		conn:          conn,
		logger:        logger,
		queue:         cfg.Queue,
		handler:       cfg.Handler,
		prefetch:      prefetch,
		maxDeliveries: maxDeliveries,
	}
}

// Start запускает потребление. Блокирует до отмены контекста.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel

	// Подписка оформляется один раз: каждый вызов ReconnectNotify
	// регистрирует отдельный канал
	reconnected := c.conn.ReconnectNotify()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		deliveries, err := c.setupConsume()
		if err != nil {
			c.logger.Error("failed to setup consume", "queue", c.queue, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-reconnected:
				c.logger.Info("reconnected, restarting consumer", "queue", c.queue)
				continue
			}
		}

		c.logger.Info("consumer started", "queue", c.queue)

		if err := c.processDeliveries(ctx, deliveries); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("deliveries channel closed, waiting for reconnect", "queue", c.queue)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-reconnected:
				continue
			}
		}
	}
}

// setupConsume настраивает канал и начинает потребление.
func (c *Consumer) setupConsume() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, ErrNoChannel
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		string(c.queue), // queue
		"",              // consumer tag (auto-generated)
		false,           // auto-ack (ack вручную)
		false,           // exclusive
		false,           // no-local
		false,           // no-wait
		nil,             // args
	)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}

	return deliveries, nil
}

// processDeliveries обрабатывает сообщения из канала доставки.
func (c *Consumer) processDeliveries(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case raw, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("deliveries channel closed")
			}

			c.handleDelivery(ctx, raw)
		}
	}
}

// handleDelivery обрабатывает одно сообщение и решает его судьбу:
// ack, requeue или DLQ.
func (c *Consumer) handleDelivery(ctx context.Context, raw amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		c.logger.Error("malformed message",
			"queue", c.queue,
			"error", err,
			"body", string(raw.Body),
		)
		telemetry.QueueMessages.WithLabelValues(string(c.queue), outcomeMalformed).Inc()
		raw.Nack(false, false)
		return
	}

	delivery := &Delivery{Message: msg, Raw: raw}

	c.logger.Debug("received message",
		"queue", c.queue,
		"message_id", msg.ID,
		"type", msg.Type,
	)

	err := c.handler(ctx, delivery)
	if err == nil {
		telemetry.QueueMessages.WithLabelValues(string(c.queue), outcomeOK).Inc()
		raw.Ack(false)
		return
	}

	attempts := deliveryAttempts(raw)
	if attempts >= c.maxDeliveries {
		c.logger.Error("handler failed, message dropped to DLQ",
			"queue", c.queue,
			"message_id", msg.ID,
			"type", msg.Type,
			"attempts", attempts,
			"error", err,
		)
		telemetry.QueueMessages.WithLabelValues(string(c.queue), outcomeDropped).Inc()
		raw.Nack(false, false)
		return
	}

	c.logger.Warn("handler failed, message requeued",
		"queue", c.queue,
		"message_id", msg.ID,
		"type", msg.Type,
		"attempts", attempts,
		"error", err,
	)
	telemetry.QueueMessages.WithLabelValues(string(c.queue), outcomeRequeued).Inc()
	raw.Nack(false, true)
}

// deliveryAttempts считает, в который раз брокер доставил сообщение.
// Счётчик requeue берётся из заголовка x-death; первая доставка — 1.
func deliveryAttempts(raw amqp.Delivery) int {
	attempts := 1
	if raw.Redelivered {
		attempts++
	}

	deaths, ok := raw.Headers["x-death"].([]any)
	if !ok {
		return attempts
	}
	for _, d := range deaths {
		entry, ok := d.(amqp.Table)
		if !ok {
			continue
		}
		if count, ok := entry["count"].(int64); ok {
			attempts += int(count)
		}
	}
	return attempts
}

// Stop останавливает consumer.
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
}

// TypedHandler оборачивает обработчик конкретного типа payload в
// Handler. Сообщение с payload, который не приводится к T, считается
// ошибкой обработки.
func TypedHandler[T any](fn func(ctx context.Context, payload T) error) Handler {
	return func(ctx context.Context, msg *Delivery) error {
		payload, err := ParsePayload[T](&msg.Message)
		if err != nil {
			return fmt.Errorf("parse %s payload: %w", msg.Message.Type, err)
		}
		return fn(ctx, payload)
	}
}

// ParsePayload парсит payload сообщения в указанный тип.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T

	// Payload после Unmarshal сообщения — map, поэтому через повторный
	// marshal
	payloadBytes, err := json.Marshal(msg.Payload)
	if err != nil {
		return result, fmt.Errorf("marshal payload: %w", err)
	}

	if err := json.Unmarshal(payloadBytes, &result); err != nil {
		return result, fmt.Errorf("unmarshal payload: %w", err)
	}

	return result, nil
}
