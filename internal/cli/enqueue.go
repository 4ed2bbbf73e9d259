package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/Showrunner/internal/config"
	"github.com/shaiso/Showrunner/internal/mq"
	"github.com/shaiso/Showrunner/internal/telemetry"
)

// NewEnqueueCmd создаёт команду enqueue — публикацию события
// showing.requested. Ручная постановка заявки для отладки: в
// нормальной работе события публикует dashboard.
func NewEnqueueCmd() *cobra.Command {
	var requestID string
	var date string
	var timeSlot string
	var group string

	cmd := &cobra.Command{
		Use:   "enqueue PROPERTY_ID",
		Short: "Publish a showing.requested event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnqueue(args[0], requestID, date, timeSlot, group)
		},
	}

	cmd.Flags().StringVar(&requestID, "request-id", "", "Request ID (generated if empty)")
	cmd.Flags().StringVar(&date, "date", "", "Preferred date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&timeSlot, "time", "", "Preferred time (HH:MM)")
	cmd.Flags().StringVar(&group, "group", "", "Group name")

	return cmd
}

func runEnqueue(propertyID, requestID, date, timeSlot, group string) error {
	logger := telemetry.SetupLogger()

	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	mqURL := cfg.RabbitURL
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	conn, err := mq.NewConnection(mqURL, logger)
	if err != nil {
		return fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	defer conn.Close()

	if err := mq.SetupTopology(conn); err != nil {
		return fmt.Errorf("setup topology: %w", err)
	}

	if requestID == "" {
		requestID = uuid.New().String()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	publisher := mq.NewPublisher(conn, logger)
	payload := mq.ShowingRequestedPayload{
		ID:            requestID,
		PropertyID:    propertyID,
		Status:        "pending",
		ScheduledDate: date,
		ScheduledTime: timeSlot,
		GroupName:     group,
		CreatedAt:     time.Now(),
	}
	if err := publisher.PublishShowingRequested(ctx, payload); err != nil {
		return fmt.Errorf("publish showing.requested: %w", err)
	}

	logger.Info("showing.requested published",
		"request_id", requestID,
		"property_id", propertyID,
	)
	return nil
}
