package fcm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/invory/notification-service/internal/usecase"
)

func testPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *fakeFetcher) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	f := &fakeFetcher{}
	f.set(Credential{AccessToken: "bearer-1", ExpiresAt: time.Now().Add(time.Hour)}, nil)

	c := NewClient("test-project", NewCredentialManager(f, time.Minute),
		WithBaseURL(srv.URL),
		WithRetryPolicy(testPolicy()),
	)
	return c, f
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func gatewayError(code int, status, msg string) map[string]any {
	return map[string]any{"error": map[string]any{
		"code":    code,
		"status":  status,
		"message": msg,
	}}
}

func TestClient_Send(t *testing.T) {
	t.Parallel()

	n := usecase.NotificationPayload{
		Title: "Low Stock Warning",
		Body:  "Coffee has reached its minimum threshold (3/10)",
		Data:  map[string]string{"type": "low_stock"},
	}

	t.Run("delivered", func(t *testing.T) {
		t.Parallel()
		var requests atomic.Int32
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			require.Equal(t, "/projects/test-project/messages:send", r.URL.Path)
			require.Equal(t, "Bearer bearer-1", r.Header.Get("Authorization"))

			var req sendRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Equal(t, "device-1", req.Message.Token)
			require.Equal(t, "high", req.Message.Android.Priority)

			writeJSON(w, 200, map[string]string{"name": "projects/test-project/messages/42"})
		})

		o := c.Send(t.Context(), "device-1", n)
		require.Equal(t, usecase.Delivered, o.State)
		require.Equal(t, "projects/test-project/messages/42", o.MessageID)
		require.NoError(t, o.Err)
		require.Equal(t, int32(1), requests.Load())
	})

	t.Run("invalid message is rejected without retry", func(t *testing.T) {
		t.Parallel()
		var requests atomic.Int32
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			writeJSON(w, 400, gatewayError(400, "INVALID_ARGUMENT", "invalid token format"))
		})

		o := c.Send(t.Context(), "bad-token", n)
		require.Equal(t, usecase.Rejected, o.State)
		var ve *ValidationError
		require.ErrorAs(t, o.Err, &ve)
		require.Equal(t, int32(1), requests.Load(), "permanent rejection must not be retried")
	})

	t.Run("unregistered token is rejected without retry", func(t *testing.T) {
		t.Parallel()
		var requests atomic.Int32
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			writeJSON(w, 404, gatewayError(404, "NOT_FOUND", "requested entity was not found"))
		})

		o := c.Send(t.Context(), "stale-token", n)
		require.Equal(t, usecase.Rejected, o.State)
		var ne *NotFoundError
		require.ErrorAs(t, o.Err, &ne)
		require.Equal(t, int32(1), requests.Load())
	})

	t.Run("rate limit recovers on retry", func(t *testing.T) {
		t.Parallel()
		var requests atomic.Int32
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if requests.Add(1) == 1 {
				writeJSON(w, 429, gatewayError(429, "RESOURCE_EXHAUSTED", "quota exceeded"))
				return
			}
			writeJSON(w, 200, map[string]string{"name": "projects/test-project/messages/43"})
		})

		o := c.Send(t.Context(), "device-1", n)
		require.Equal(t, usecase.Delivered, o.State)
		require.Equal(t, int32(2), requests.Load())
	})

	t.Run("expired credential is refreshed and resent", func(t *testing.T) {
		t.Parallel()
		var requests atomic.Int32
		var c *Client
		var f *fakeFetcher
		c, f = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if requests.Add(1) == 1 {
				// Swap the fetcher's answer so the forced refresh is visible.
				f.set(Credential{AccessToken: "bearer-2", ExpiresAt: time.Now().Add(time.Hour)}, nil)
				writeJSON(w, 401, gatewayError(401, "UNAUTHENTICATED", "auth error from APNS or Web Push Service"))
				return
			}
			require.Equal(t, "Bearer bearer-2", r.Header.Get("Authorization"))
			writeJSON(w, 200, map[string]string{"name": "projects/test-project/messages/44"})
		})

		o := c.Send(t.Context(), "device-1", n)
		require.Equal(t, usecase.Delivered, o.State)
		require.Equal(t, int32(2), requests.Load())
		require.Equal(t, int32(2), f.calls.Load(), "401 must force exactly one extra fetch")
	})

	t.Run("server errors exhaust the budget", func(t *testing.T) {
		t.Parallel()
		var requests atomic.Int32
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			writeJSON(w, 500, gatewayError(500, "INTERNAL", "internal error"))
		})

		o := c.Send(t.Context(), "device-1", n)
		require.Equal(t, usecase.Failed, o.State)
		require.Equal(t, int32(3), requests.Load())

		var ee *ExhaustedRetriesError
		require.ErrorAs(t, o.Err, &ee)
		require.Equal(t, 3, ee.Attempts)
		var ge *GatewayError
		require.ErrorAs(t, o.Err, &ge)
	})

	t.Run("body error code wins over http status", func(t *testing.T) {
		t.Parallel()
		var requests atomic.Int32
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			// Some proxies rewrite the status line but forward the body.
			writeJSON(w, 500, gatewayError(404, "NOT_FOUND", "requested entity was not found"))
		})

		o := c.Send(t.Context(), "stale-token", n)
		require.Equal(t, usecase.Rejected, o.State)
		require.Equal(t, int32(1), requests.Load())
	})

	t.Run("transport failure is transient", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		f := &fakeFetcher{}
		f.set(Credential{AccessToken: "bearer-1", ExpiresAt: time.Now().Add(time.Hour)}, nil)
		c := NewClient("test-project", NewCredentialManager(f, time.Minute),
			WithBaseURL(srv.URL),
			WithRetryPolicy(testPolicy()),
		)

		o := c.Send(t.Context(), "device-1", n)
		require.Equal(t, usecase.Failed, o.State)
		var ne *NetworkError
		require.ErrorAs(t, o.Err, &ne)
	})

	t.Run("credential failure aborts before any request", func(t *testing.T) {
		t.Parallel()
		var requests atomic.Int32
		c, f := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
		})
		f.set(Credential{}, errors.New("idp down"))

		o := c.Send(t.Context(), "device-1", n)
		require.Equal(t, usecase.Failed, o.State)
		var ae *AuthError
		require.ErrorAs(t, o.Err, &ae)
		require.Equal(t, int32(0), requests.Load())
	})
}

func TestClient_VerifyCredentials(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{}
	f.set(Credential{AccessToken: "bearer-1", ExpiresAt: time.Now().Add(time.Hour)}, nil)
	c := NewClient("test-project", NewCredentialManager(f, time.Minute))

	require.NoError(t, c.VerifyCredentials(context.Background()))

	f2 := &fakeFetcher{}
	f2.set(Credential{}, errors.New("bad key"))
	c2 := NewClient("test-project", NewCredentialManager(f2, time.Minute))

	var ae *AuthError
	require.ErrorAs(t, c2.VerifyCredentials(context.Background()), &ae)
}
