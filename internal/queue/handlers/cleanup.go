package handlers

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// HandleCleanupPushTokens runs the periodic prune of tokens that have been
// deactivated and unused past the TTL.
func (h *Handlers) HandleCleanupPushTokens(ctx context.Context, _ *asynq.Task) error {
	n, err := h.usecase.CleanupInactivePushTokens(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "push token cleanup failed",
			slog.String("err", err.Error()))
		return err
	}

	h.logger.InfoContext(ctx, "push token cleanup completed",
		slog.Int64("deleted", n))
	return nil
}
