package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/invory/notification-service/internal/usecase"
)

type fakeSender struct {
	calls atomic.Int32
}

func (s *fakeSender) Send(ctx context.Context, token string, n usecase.NotificationPayload) usecase.DeliveryOutcome {
	s.calls.Add(1)
	return usecase.DeliveryOutcome{Token: token, State: usecase.Delivered, MessageID: "msg-1"}
}

func (s *fakeSender) VerifyCredentials(ctx context.Context) error { return nil }

type fakeRepo struct {
	active  []usecase.PushToken
	deleted int64
}

func (r *fakeRepo) Health() map[string]string { return nil }
func (r *fakeRepo) Close() error              { return nil }

func (r *fakeRepo) SavePushToken(ctx context.Context, userID, token, platform string, metadata map[string]any) error {
	return nil
}

func (r *fakeRepo) ListPushTokens(ctx context.Context, opt usecase.ListPushTokensOption) ([]usecase.PushToken, int, error) {
	return nil, 0, nil
}

func (r *fakeRepo) ListActivePushTokens(ctx context.Context, userID string) ([]usecase.PushToken, error) {
	return r.active, nil
}

func (r *fakeRepo) DeactivatePushTokens(ctx context.Context, tokens []string) error { return nil }
func (r *fakeRepo) MarkPushTokensUsed(ctx context.Context, tokens []string) error   { return nil }
func (r *fakeRepo) DeletePushToken(ctx context.Context, userID string, id uuid.UUID) error {
	return nil
}

func (r *fakeRepo) DeleteInactivePushTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.deleted, nil
}

func newTestHandlers(repo *fakeRepo, sender *fakeSender) *Handlers {
	uc := usecase.New(repo, nil, sender, nil, nil, nil)
	return NewHandlers(uc, slog.Default())
}

func TestHandleStockAlert(t *testing.T) {
	t.Parallel()

	t.Run("dispatches the alert", func(t *testing.T) {
		t.Parallel()
		repo := &fakeRepo{active: []usecase.PushToken{{Token: "tok-1"}, {Token: "tok-2"}}}
		sender := &fakeSender{}
		h := newTestHandlers(repo, sender)

		payload, err := json.Marshal(StockAlertPayload{
			UserID:  "user-1",
			Product: ProductPayload{ID: "p1", Name: "Coffee", Quantity: 0, Threshold: 10},
		})
		require.NoError(t, err)

		err = h.HandleStockAlert(t.Context(), asynq.NewTask(TypeStockAlert, payload))
		require.NoError(t, err)
		require.Equal(t, int32(2), sender.calls.Load())
	})

	t.Run("malformed payload is not retried", func(t *testing.T) {
		t.Parallel()
		h := newTestHandlers(&fakeRepo{}, &fakeSender{})

		err := h.HandleStockAlert(t.Context(), asynq.NewTask(TypeStockAlert, []byte("{not json")))
		require.ErrorIs(t, err, asynq.SkipRetry)
	})
}

func TestHandleCleanupPushTokens(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{deleted: 7}
	h := newTestHandlers(repo, &fakeSender{})

	err := h.HandleCleanupPushTokens(t.Context(), asynq.NewTask(TypeCleanupPushTokens, nil))
	require.NoError(t, err)
}
