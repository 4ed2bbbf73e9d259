package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrSubscriptionLost — подписка не восстановилась после нескольких
// попыток подряд. Для вызывающего кода это фатальная ошибка: процесс
// должен завершиться, а не работать молча отключённым от событий.
var ErrSubscriptionLost = errors.New("subscription lost")

const (
	defaultMaxSetupFailures = 5
	defaultReconnectWait    = 5 * time.Second
)

// Handler — функция обработки сообщения.
// Возвращает error, если обработка не удалась (сообщение будет nack).
type Handler func(ctx context.Context, msg *Delivery) error

// Delivery — доставленное сообщение с методами ack/nack.
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

// Consumer потребляет сообщения из очереди RabbitMQ.
type Consumer struct {
	conn             *Connection
	logger           *slog.Logger
	queue            string
	handler          Handler
	prefetch         int
	maxSetupFailures int
	reconnectWait    time.Duration

	cancelFunc context.CancelFunc
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	// Queue — имя очереди.
	Queue string

	// Handler — обработчик сообщений.
	Handler Handler

	// Prefetch — количество сообщений для предварительной загрузки.
	Prefetch int

	// MaxSetupFailures — количество неудачных попыток подписки подряд,
	// после которого Start возвращает ErrSubscriptionLost (default: 5).
	MaxSetupFailures int

	// ReconnectWait — максимум ожидания переподключения между
	// попытками подписки (default: 5s). Соединение может не
	// восстановиться никогда — ожидание не должно быть бесконечным,
	// иначе фатальный порог не сработает.
	ReconnectWait time.Duration
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	maxSetupFailures := cfg.MaxSetupFailures
	if maxSetupFailures <= 0 {
		maxSetupFailures = defaultMaxSetupFailures
	}

	reconnectWait := cfg.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = defaultReconnectWait
	}

	return &Consumer{
		conn:             conn,
		logger:           logger,
		queue:            cfg.Queue,
		handler:          cfg.Handler,
		prefetch:         prefetch,
		maxSetupFailures: maxSetupFailures,
		reconnectWait:    reconnectWait,
	}
}

// Start запускает потребление сообщений.
//
// Блокирует до отмены контекста или фатальной ошибки транспорта
// (ErrSubscriptionLost после maxSetupFailures подряд неудачных подписок).
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel

	return c.consume(ctx)
}

// consume — основной цикл потребления.
func (c *Consumer) consume(ctx context.Context) error {
	setupFailures := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		deliveries, err := c.setupConsume()
		if err != nil {
			setupFailures++
			c.logger.Error("failed to setup consume",
				"queue", c.queue,
				"failures", setupFailures,
				"error", err,
			)

			if setupFailures >= c.maxSetupFailures {
				return fmt.Errorf("%w: queue %s after %d attempts", ErrSubscriptionLost, c.queue, setupFailures)
			}

			if err := c.waitReconnect(ctx); err != nil {
				return err
			}
			continue
		}

		setupFailures = 0
		c.logger.Info("consumer started", "queue", c.queue)

		if err := c.processDeliveries(ctx, deliveries); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("deliveries channel closed, reconnecting", "queue", c.queue)
			if err := c.waitReconnect(ctx); err != nil {
				return err
			}
		}
	}
}

// waitReconnect ждёт уведомления о переподключении, но не дольше
// reconnectWait: брокер может не вернуться никогда, а каждая следующая
// неудачная подписка приближает фатальный порог ErrSubscriptionLost.
func (c *Consumer) waitReconnect(ctx context.Context) error {
	timer := time.NewTimer(c.reconnectWait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.conn.ReconnectNotify():
		c.logger.Info("reconnected, restarting consumer", "queue", c.queue)
	case <-timer.C:
	}
	return nil
}

// setupConsume настраивает канал и начинает потребление.
func (c *Consumer) setupConsume() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, fmt.Errorf("no channel available")
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		c.queue, // queue
		"",      // consumer tag (auto-generated)
		false,   // auto-ack (мы ack вручную)
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}

	return deliveries, nil
}

// processDeliveries обрабатывает сообщения из канала.
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

// handleDelivery обрабатывает одно сообщение.
func (c *Consumer) handleDelivery(ctx context.Context, raw amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		c.logger.Error("failed to unmarshal message",
			"queue", c.queue,
			"error", err,
			"body", string(raw.Body),
		)
		// Некорректное сообщение — отправляем в DLQ
		raw.Nack(false, false)
		return
	}

	delivery := &Delivery{
		Message: msg,
		Raw:     raw,
	}

	c.logger.Debug("received message",
		"queue", c.queue,
		"message_id", msg.ID,
		"type", msg.Type,
	)

	if err := c.handler(ctx, delivery); err != nil {
		c.logger.Error("handler failed",
			"queue", c.queue,
			"message_id", msg.ID,
			"type", msg.Type,
			"error", err,
		)
		// Ошибка обработки — возвращаем в очередь для retry
		raw.Nack(false, true)
		return
	}

	raw.Ack(false)
}

// Stop останавливает consumer.
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
}

// ParsePayload парсит payload сообщения в указанный тип.
func ParsePayload[T any](msg *Message) (T, error) {
	var payload T

	raw, err := json.Marshal(msg.Payload)
	if err != nil {
		return payload, fmt.Errorf("marshal payload: %w", err)
	}

	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, fmt.Errorf("unmarshal payload: %w", err)
	}

	return payload, nil
}
