package mq

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

// deadConnection возвращает Connection без канала и без шансов на
// переподключение — брокер "умер навсегда".
func deadConnection() *Connection {
	return &Connection{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		closedCh:    make(chan struct{}),
		reconnectCh: make(chan struct{}, 1),
	}
}

func TestConsumer_SubscriptionLostAfterThreshold(t *testing.T) {
	c := NewConsumer(deadConnection(), slog.New(slog.NewTextHandler(io.Discard, nil)), ConsumerConfig{
		Queue:            string(QueueShowingsRequested),
		Handler:          func(_ context.Context, _ *Delivery) error { return nil },
		MaxSetupFailures: 3,
		ReconnectWait:    10 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := c.Start(ctx)

	// Ожидание переподключения ограничено: после порога неудачных
	// подписок consumer сдаётся, а не висит отключённым молча
	if !errors.Is(err, ErrSubscriptionLost) {
		t.Fatalf("expected ErrSubscriptionLost, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("consumer should give up promptly, took %v", elapsed)
	}
}

func TestConsumer_ReconnectDoesNotResetDeadChannel(t *testing.T) {
	conn := deadConnection()
	c := NewConsumer(conn, slog.New(slog.NewTextHandler(io.Discard, nil)), ConsumerConfig{
		Queue:            string(QueueShowingsRequested),
		Handler:          func(_ context.Context, _ *Delivery) error { return nil },
		MaxSetupFailures: 2,
		ReconnectWait:    50 * time.Millisecond,
	})

	// Уведомление о переподключении без живого канала не спасает:
	// следующая подписка тоже провалится и порог сработает
	conn.reconnectCh <- struct{}{}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := c.Start(ctx); !errors.Is(err, ErrSubscriptionLost) {
		t.Fatalf("expected ErrSubscriptionLost, got %v", err)
	}
}

func TestConsumer_StopCancelsStart(t *testing.T) {
	c := NewConsumer(deadConnection(), slog.New(slog.NewTextHandler(io.Discard, nil)), ConsumerConfig{
		Queue:            string(QueueShowingsRequested),
		Handler:          func(_ context.Context, _ *Delivery) error { return nil },
		MaxSetupFailures: 100,
		ReconnectWait:    time.Minute,
	})

	done := make(chan error, 1)
	go func() {
		done <- c.Start(context.Background())
	}()

	time.Sleep(20 * time.Millisecond)
	c.Stop()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}
}
