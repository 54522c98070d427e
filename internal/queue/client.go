package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/invory/notification-service/internal/queue/handlers"
	"github.com/invory/notification-service/internal/usecase"
)

// Client wraps asynq.Client for enqueuing tasks
type Client struct {
	client *asynq.Client
}

// NewClient creates a new queue client
func NewClient(redisAddr string, redisPassword string) *Client {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisAddr,
		Password: redisPassword,
	})

	return &Client{
		client: client,
	}
}

// Close closes the client connection
func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueStockAlert queues one product quantity change for the worker.
func (c *Client) EnqueueStockAlert(ctx context.Context, alert usecase.StockAlert) error {
	payload, err := json.Marshal(handlers.StockAlertPayload{
		UserID: alert.UserID,
		Product: handlers.ProductPayload{
			ID:        alert.Product.ID,
			Name:      alert.Product.Name,
			Quantity:  alert.Product.Quantity,
			Threshold: alert.Product.Threshold,
		},
	})
	if err != nil {
		return fmt.Errorf("marshal stock alert payload: %w", err)
	}

	task := asynq.NewTask(handlers.TypeStockAlert, payload)

	info, err := c.client.EnqueueContext(ctx, task, asynq.Queue("critical"))
	if err != nil {
		return fmt.Errorf("enqueue stock alert: %w", err)
	}

	slog.InfoContext(ctx, "enqueued task",
		slog.String("id", info.ID),
		slog.String("queue", info.Queue),
		slog.String("type", info.Type),
	)
	return nil
}
