package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaiso/Showrunner/internal/mq"
)

// handleShowingRequested обрабатывает событие showing.requested:
// парсит payload и принимает заявку в очередь.
//
// Некорректный payload логируется и подтверждается (nil): повтор такого
// сообщения бессмыслен, consumer сам отправляет в DLQ только нечитаемый
// JSON. Ошибка admission (например, БД недоступна) возвращается как
// error — сообщение вернётся в очередь.
func (o *Orchestrator) handleShowingRequested(ctx context.Context, msg *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.ShowingRequestedPayload](&msg.Message)
	if err != nil {
		o.logger.Error("invalid showing.requested payload",
			"message_id", msg.Message.ID,
			"error", err,
		)
		return nil
	}

	req := payload.Request()
	if err := o.Admit(ctx, req); err != nil {
		if errors.Is(err, ErrInvalidRequest) {
			o.logger.Error("dropping malformed showing.requested",
				"message_id", msg.Message.ID,
				"error", err,
			)
			return nil
		}
		return fmt.Errorf("handle showing.requested: %w", err)
	}
	return nil
}
