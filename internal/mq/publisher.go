package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shaiso/Showrunner/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeShowingRequested MessageType = "showing.requested"
	MessageTypeShowingProcessed MessageType = "showing.processed"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// ShowingRequestedPayload — payload события о новой заявке на показ.
// Поля совпадают с domain.ShowingRequest.
type ShowingRequestedPayload struct {
	ID            string    `json:"id"`
	PropertyID    string    `json:"property_id"`
	UserID        string    `json:"user_id,omitempty"`
	Status        string    `json:"status"`
	ScheduledDate string    `json:"scheduled_date,omitempty"`
	ScheduledTime string    `json:"scheduled_time,omitempty"`
	GroupName     string    `json:"group_name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Request конвертирует payload в доменную заявку.
func (p ShowingRequestedPayload) Request() domain.ShowingRequest {
	return domain.ShowingRequest{
		ID:            p.ID,
		PropertyID:    p.PropertyID,
		UserID:        p.UserID,
		Status:        p.Status,
		ScheduledDate: p.ScheduledDate,
		ScheduledTime: p.ScheduledTime,
		GroupName:     p.GroupName,
		CreatedAt:     p.CreatedAt,
	}
}

// ShowingProcessedPayload — payload события об обработанной заявке.
type ShowingProcessedPayload struct {
	RequestID     string               `json:"request_id"`
	PropertyID    string               `json:"property_id"`
	BookingStatus domain.BookingStatus `json:"booking_status"`
	BookingID     string               `json:"booking_id,omitempty"`
	Error         string               `json:"error,omitempty"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,              // mandatory
			false,              // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishShowingRequested публикует событие о новой заявке на показ.
// Потребитель: оркестратор.
func (p *Publisher) PublishShowingRequested(ctx context.Context, payload ShowingRequestedPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeShowingRequested,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeShowings, RoutingKeyRequested, msg)
}

// PublishShowingProcessed публикует событие об обработанной заявке.
// Потребитель: dashboard.
func (p *Publisher) PublishShowingProcessed(ctx context.Context, payload ShowingProcessedPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeShowingProcessed,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeShowings, RoutingKeyProcessed, msg)
}
