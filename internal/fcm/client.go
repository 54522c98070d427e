// Package fcm is the dispatch core: it owns the gateway credential and
// delivers notifications through the FCM HTTP v1 send endpoint with
// classified retry.
package fcm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/invory/notification-service/internal/usecase"
)

const defaultSendTimeout = 10 * time.Second

type Client struct {
	projectID string
	creds     *CredentialManager
	http      *http.Client
	baseURL   string
	policy    RetryPolicy
	logger    *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithBaseURL overrides the gateway base URL, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.policy = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l.With("component", "fcm") }
}

func NewClient(projectID string, creds *CredentialManager, opts ...Option) *Client {
	c := &Client{
		projectID: projectID,
		creds:     creds,
		http:      &http.Client{Timeout: defaultSendTimeout},
		baseURL:   defaultBaseURL,
		policy:    DefaultRetryPolicy(),
		logger:    slog.Default().With("component", "fcm"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// VerifyCredentials confirms a valid bearer credential can be obtained.
func (c *Client) VerifyCredentials(ctx context.Context) error {
	_, err := c.creds.Token(ctx)
	return err
}

// Send delivers one notification to one device token and classifies the
// result. Attempts for one token are strictly sequential; backoff waits are
// ctx-aware so concurrent sends make independent progress.
func (c *Client) Send(ctx context.Context, token string, n usecase.NotificationPayload) usecase.DeliveryOutcome {
	var messageID string

	err := c.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		cred, err := c.creds.Token(ctx)
		if err != nil {
			// Terminal for this send; the process stays up.
			return err
		}

		id, err := c.post(ctx, cred, token, n)
		if err != nil {
			var ue *UnauthorizedError
			if errors.As(err, &ue) {
				// Drop the shared credential; the next attempt's Token call
				// performs the refresh.
				c.creds.Invalidate()
				c.logger.Warn("gateway rejected credential, forcing refresh",
					slog.Int("attempt", attempt))
			}
			return err
		}

		messageID = id
		return nil
	})

	return c.outcome(token, messageID, err)
}

func (c *Client) post(ctx context.Context, cred Credential, token string, n usecase.NotificationPayload) (string, error) {
	body, err := json.Marshal(newSendRequest(token, n))
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/projects/%s/messages:send", c.baseURL, c.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &NetworkError{Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var sr sendResponse
		if err := json.Unmarshal(b, &sr); err != nil {
			return "", &NetworkError{Err: fmt.Errorf("decode response: %w", err)}
		}
		return sr.Name, nil
	}

	// Classification falls back to the HTTP status when the body carries no
	// error object.
	var sr sendResponse
	_ = json.Unmarshal(b, &sr)
	return "", classify(resp.StatusCode, sr.Error)
}

func (c *Client) outcome(token, messageID string, err error) usecase.DeliveryOutcome {
	switch {
	case err == nil:
		c.logger.Debug("notification delivered",
			slog.String("message_id", messageID))
		return usecase.DeliveryOutcome{
			Token:     token,
			State:     usecase.Delivered,
			MessageID: messageID,
		}
	case Permanent(err):
		return usecase.DeliveryOutcome{Token: token, State: usecase.Rejected, Err: err}
	default:
		return usecase.DeliveryOutcome{Token: token, State: usecase.Failed, Err: err}
	}
}
