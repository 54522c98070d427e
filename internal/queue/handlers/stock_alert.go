package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/invory/notification-service/internal/usecase"
)

// HandleStockAlert processes one product quantity change: compose, fan out,
// prune. Registry failures bubble up so asynq retries the task.
func (h *Handlers) HandleStockAlert(ctx context.Context, task *asynq.Task) error {
	var p StockAlertPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal stock alert payload: %v: %w", err, asynq.SkipRetry)
	}

	res, err := h.usecase.NotifyProductQuantityChange(ctx, p.UserID, usecase.Product{
		ID:        p.Product.ID,
		Name:      p.Product.Name,
		Quantity:  p.Product.Quantity,
		Threshold: p.Product.Threshold,
	})
	if err != nil {
		return err
	}

	h.logger.InfoContext(ctx, "stock alert processed",
		slog.String("user_id", p.UserID),
		slog.String("product_id", p.Product.ID),
		slog.Int("success", res.Success),
		slog.Int("failure", res.Failure),
		slog.Int("invalid", len(res.InvalidTokens)),
	)
	return nil
}
