package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// Stock event types, carried in the notification data for the client.
const (
	EventTypeLowStock   = "low_stock"
	EventTypeOutOfStock = "out_of_stock"
)

type Product struct {
	ID        string
	Name      string
	Quantity  int
	Threshold int
}

// StockAlert is one product quantity change for one user, as received from
// the inventory application.
type StockAlert struct {
	UserID  string
	Product Product
}

// ComposeOutOfStockNotification builds the payload for a product that ran
// out completely.
func ComposeOutOfStockNotification(p Product, now time.Time) NotificationPayload {
	return NotificationPayload{
		Title: "Out of Stock!",
		Body:  fmt.Sprintf("%s is out of stock!", p.Name),
		Data:  stockData(EventTypeOutOfStock, p, now),
	}
}

// ComposeLowStockNotification builds the payload for a product at or below
// its configured threshold.
func ComposeLowStockNotification(p Product, now time.Time) NotificationPayload {
	return NotificationPayload{
		Title: "Low Stock Warning",
		Body:  fmt.Sprintf("%s has reached its minimum threshold (%d/%d)", p.Name, p.Quantity, p.Threshold),
		Data:  stockData(EventTypeLowStock, p, now),
	}
}

// ComposeStockNotification selects the notification shape for the product's
// current quantity. The second return value is false when the quantity is
// above the threshold and no notification should be sent.
func ComposeStockNotification(p Product, now time.Time) (NotificationPayload, bool) {
	switch {
	case p.Quantity <= 0:
		return ComposeOutOfStockNotification(p, now), true
	case p.Quantity <= p.Threshold:
		return ComposeLowStockNotification(p, now), true
	}
	return NotificationPayload{}, false
}

// Data keys are kept as the receiving clients expect them.
func stockData(eventType string, p Product, now time.Time) map[string]string {
	return map[string]string{
		"type":        eventType,
		"productId":   p.ID,
		"productName": p.Name,
		"quantity":    strconv.Itoa(p.Quantity),
		"threshold":   strconv.Itoa(p.Threshold),
		"timestamp":   now.UTC().Format(time.RFC3339),
	}
}

// QueueStockAlert hands the alert to the background queue, or processes it
// inline when no queue is configured.
func (u Usecase) QueueStockAlert(ctx context.Context, alert StockAlert) error {
	if u.queue == nil {
		_, err := u.NotifyProductQuantityChange(ctx, alert.UserID, alert.Product)
		return err
	}
	return u.queue.EnqueueStockAlert(ctx, alert)
}

// NotifyProductQuantityChange composes and dispatches the stock alert for a
// quantity change. Nothing is sent above the threshold, and repeated alerts
// for the same user/product/event within the cooldown window are suppressed.
func (u Usecase) NotifyProductQuantityChange(ctx context.Context, userID string, p Product) (BatchResult, error) {
	n, ok := ComposeStockNotification(p, time.Now())
	if !ok {
		slog.Debug("product quantity change needs no notification",
			slog.String("product_id", p.ID),
			slog.Int("quantity", p.Quantity),
			slog.Int("threshold", p.Threshold),
		)
		return BatchResult{}, nil
	}

	if u.limiter != nil {
		key := fmt.Sprintf("stock-alert:%s:%s:%s", userID, p.ID, n.Data["type"])
		allowed, err := u.limiter.Allow(ctx, key, u.alertCooldown)
		if err != nil {
			// Fail open: a broken limiter must not swallow alerts.
			slog.Warn("stock alert cooldown check failed", slog.String("err", err.Error()))
		} else if !allowed {
			slog.Info("stock alert suppressed by cooldown",
				slog.String("user_id", userID),
				slog.String("product_id", p.ID),
			)
			return BatchResult{}, nil
		}
	}

	res, err := u.SendToUser(ctx, userID, n)
	if err != nil {
		return BatchResult{}, fmt.Errorf("send stock alert: %w", err)
	}

	slog.Info("stock alert sent",
		slog.String("user_id", userID),
		slog.String("product_id", p.ID),
		slog.String("type", n.Data["type"]),
		slog.Int("success", res.Success),
		slog.Int("failure", res.Failure),
	)
	return res, nil
}
