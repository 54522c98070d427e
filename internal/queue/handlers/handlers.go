package handlers

import (
	"log/slog"

	"github.com/invory/notification-service/internal/usecase"
)

// Task type names, shared by the enqueue side and the worker mux.
const (
	TypeStockAlert        = "notification:stock_alert"
	TypeCleanupPushTokens = "cleanup:push_tokens"
)

type Handlers struct {
	usecase usecase.Usecase
	logger  *slog.Logger
}

func NewHandlers(uc usecase.Usecase, logger *slog.Logger) *Handlers {
	return &Handlers{
		usecase: uc,
		logger:  logger.With("component", "queue"),
	}
}

// StockAlertPayload is the task body for TypeStockAlert.
type StockAlertPayload struct {
	UserID  string         `json:"user_id"`
	Product ProductPayload `json:"product"`
}

type ProductPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Threshold int    `json:"threshold"`
}
