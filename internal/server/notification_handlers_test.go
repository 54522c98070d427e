package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/invory/notification-service/internal/config"
	"github.com/invory/notification-service/internal/usecase"
)

type fakeService struct {
	outcome usecase.DeliveryOutcome
	batch   usecase.BatchResult
	userErr error

	alerts  []usecase.StockAlert
	uid     string
	listOpt usecase.ListPushTokensOption
}

func (f *fakeService) Health() map[string]string { return map[string]string{"database": "up"} }
func (f *fakeService) Close() error              { return nil }

func (f *fakeService) VerifyGateway(ctx context.Context) error { return nil }

func (f *fakeService) VerifyIDToken(ctx context.Context, token string) (string, error) {
	if f.uid == "" {
		return "", errors.New("invalid token")
	}
	return f.uid, nil
}

func (f *fakeService) SendToToken(ctx context.Context, token string, n usecase.NotificationPayload) usecase.DeliveryOutcome {
	return f.outcome
}

func (f *fakeService) SendToUser(ctx context.Context, userID string, n usecase.NotificationPayload) (usecase.BatchResult, error) {
	return f.batch, f.userErr
}

func (f *fakeService) SendToMany(ctx context.Context, tokens []string, n usecase.NotificationPayload) usecase.BatchResult {
	return f.batch
}

func (f *fakeService) QueueStockAlert(ctx context.Context, alert usecase.StockAlert) error {
	f.alerts = append(f.alerts, alert)
	return nil
}

func (f *fakeService) SavePushToken(ctx context.Context, token, platform string, metadata map[string]any) error {
	return nil
}

func (f *fakeService) ListPushTokens(ctx context.Context, opt usecase.ListPushTokensOption) ([]usecase.PushToken, int, error) {
	f.listOpt = opt
	return nil, 0, nil
}

func (f *fakeService) DeletePushToken(ctx context.Context, id uuid.UUID) error { return nil }

func newTestServer(svc Service) *Server {
	return &Server{
		server:    svc,
		validator: validator.New(),
		logger:    slog.Default(),
	}
}

func post(t *testing.T, handler echo.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	return rec
}

func TestSendToTokenHandler(t *testing.T) {
	t.Parallel()

	body := `{"token":"tok-1","title":"Low Stock Warning","body":"Coffee has reached its minimum threshold (3/10)"}`

	t.Run("delivered", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(&fakeService{outcome: usecase.DeliveryOutcome{
			Token: "tok-1", State: usecase.Delivered, MessageID: "projects/p/messages/1",
		}})

		rec := post(t, s.SendToToken, body)
		require.Equal(t, 200, rec.Code)
		require.Contains(t, rec.Body.String(), "projects/p/messages/1")
	})

	t.Run("rejected token maps to 400", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(&fakeService{outcome: usecase.DeliveryOutcome{
			Token: "tok-1", State: usecase.Rejected, Err: errors.New("token not registered"),
		}})

		rec := post(t, s.SendToToken, body)
		require.Equal(t, 400, rec.Code)
		require.Contains(t, rec.Body.String(), "token rejected")
	})

	t.Run("transient failure maps to 502", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(&fakeService{outcome: usecase.DeliveryOutcome{
			Token: "tok-1", State: usecase.Failed, Err: errors.New("gave up after 3 attempts"),
		}})

		rec := post(t, s.SendToToken, body)
		require.Equal(t, 502, rec.Code)
	})

	t.Run("missing fields fail validation", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(&fakeService{})

		rec := post(t, s.SendToToken, `{"token":"tok-1"}`)
		require.Equal(t, 422, rec.Code)
	})
}

func TestSendToManyHandler(t *testing.T) {
	t.Parallel()

	t.Run("returns the batch result", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(&fakeService{batch: usecase.BatchResult{
			Success:       2,
			InvalidTokens: []string{"tok-3"},
			Errors:        []usecase.SendError{{Token: "tok-3", Reason: "token not registered"}},
		}})

		rec := post(t, s.SendToMany, `{"tokens":["tok-1","tok-2","tok-3"],"title":"t","body":"b"}`)
		require.Equal(t, 200, rec.Code)
		require.JSONEq(t, `{
			"data": {
				"success": 2,
				"failure": 0,
				"invalid_tokens": ["tok-3"],
				"errors": [{"token": "tok-3", "reason": "token not registered"}]
			}
		}`, rec.Body.String())
	})

	t.Run("rejects an empty token list", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(&fakeService{})

		rec := post(t, s.SendToMany, `{"tokens":[],"title":"t","body":"b"}`)
		require.Equal(t, 422, rec.Code)
	})
}

func TestQueueStockAlertHandler(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	s := newTestServer(svc)

	rec := post(t, s.QueueStockAlert, `{
		"user_id": "user-1",
		"product": {"id": "p1", "name": "Coffee", "quantity": 2, "threshold": 10}
	}`)

	require.Equal(t, 202, rec.Code)
	require.Equal(t, []usecase.StockAlert{{
		UserID:  "user-1",
		Product: usecase.Product{ID: "p1", Name: "Coffee", Quantity: 2, Threshold: 10},
	}}, svc.alerts)
}

func TestAPIKeyMiddleware(t *testing.T) {
	apiKey = "secret"
	defer func() { apiKey = "" }()

	s := newTestServer(&fakeService{})
	next := func(c echo.Context) error { return c.NoContent(200) }

	e := echo.New()

	t.Run("valid key passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set(config.HEADER_KEY_X_API_KEY, "secret")
		rec := httptest.NewRecorder()
		require.NoError(t, s.APIKeyMiddleware(next)(e.NewContext(req, rec)))
		require.Equal(t, 200, rec.Code)
	})

	t.Run("wrong key is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set(config.HEADER_KEY_X_API_KEY, "guess")
		rec := httptest.NewRecorder()
		require.NoError(t, s.APIKeyMiddleware(next)(e.NewContext(req, rec)))
		require.Equal(t, 401, rec.Code)
	})

	t.Run("missing key is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		rec := httptest.NewRecorder()
		require.NoError(t, s.APIKeyMiddleware(next)(e.NewContext(req, rec)))
		require.Equal(t, 401, rec.Code)
	})
}

func TestAuthMiddleware(t *testing.T) {
	clientID = "internal-client"
	defer func() { clientID = "" }()

	e := echo.New()

	capture := func(uid *string) echo.HandlerFunc {
		return func(c echo.Context) error {
			*uid, _ = c.Request().Context().Value(config.CTX_KEY_USER_ID).(string)
			return c.NoContent(200)
		}
	}

	t.Run("internal client passes the uid through", func(t *testing.T) {
		s := newTestServer(&fakeService{})
		var uid string

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set(config.HEADER_KEY_X_CLIENT_ID, "internal-client")
		req.Header.Set(config.HEADER_KEY_X_UID, "firebase-uid-1")
		rec := httptest.NewRecorder()

		require.NoError(t, s.AuthMiddleware(capture(&uid))(e.NewContext(req, rec)))
		require.Equal(t, 200, rec.Code)
		require.Equal(t, "firebase-uid-1", uid)
	})

	t.Run("bearer token is verified", func(t *testing.T) {
		s := newTestServer(&fakeService{uid: "firebase-uid-2"})
		var uid string

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer id-token")
		rec := httptest.NewRecorder()

		require.NoError(t, s.AuthMiddleware(capture(&uid))(e.NewContext(req, rec)))
		require.Equal(t, 200, rec.Code)
		require.Equal(t, "firebase-uid-2", uid)
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		s := newTestServer(&fakeService{})
		var uid string

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer bad-token")
		rec := httptest.NewRecorder()

		require.NoError(t, s.AuthMiddleware(capture(&uid))(e.NewContext(req, rec)))
		require.Equal(t, 401, rec.Code)
		require.Empty(t, uid)
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		s := newTestServer(&fakeService{})
		var uid string

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		rec := httptest.NewRecorder()

		require.NoError(t, s.AuthMiddleware(capture(&uid))(e.NewContext(req, rec)))
		require.Equal(t, 401, rec.Code)
	})
}
