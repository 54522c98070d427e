package usecase

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/invory/notification-service/internal/config"
)

const (
	defaultFanoutLimit   = 32
	defaultAlertCooldown = time.Hour
)

// Repository is the recipient registry: active device-token lookups per user
// and deactivation writes. The dispatch core treats it as key-value
// operations and does not care how they are persisted.
type Repository interface {
	Health() map[string]string
	Close() error

	SavePushToken(ctx context.Context, userID, token, platform string, metadata map[string]any) error
	ListPushTokens(ctx context.Context, opt ListPushTokensOption) ([]PushToken, int, error)
	ListActivePushTokens(ctx context.Context, userID string) ([]PushToken, error)
	DeactivatePushTokens(ctx context.Context, tokens []string) error
	MarkPushTokensUsed(ctx context.Context, tokens []string) error
	DeletePushToken(ctx context.Context, userID string, id uuid.UUID) error
	DeleteInactivePushTokens(ctx context.Context, cutoff time.Time) (int64, error)
}

// PushSender delivers one notification to one device token, with retry and
// classification handled inside the implementation.
type PushSender interface {
	Send(ctx context.Context, token string, n NotificationPayload) DeliveryOutcome
	VerifyCredentials(ctx context.Context) error
}

// AuthProvider verifies end-user ID tokens for the API layer.
type AuthProvider interface {
	VerifyIDToken(ctx context.Context, idToken string) (string, error)
}

// AlertLimiter suppresses repeated alerts for the same key within a window.
type AlertLimiter interface {
	Allow(ctx context.Context, key string, window time.Duration) (bool, error)
}

type EmailProvider interface {
	SendEmail(ctx context.Context, email Email) error
}

// TaskEnqueuer hands work off to the background queue.
type TaskEnqueuer interface {
	EnqueueStockAlert(ctx context.Context, alert StockAlert) error
}

type Email struct {
	From    string
	To      []string
	Subject string
	Body    string
}

type Usecase struct {
	repo    Repository
	auth    AuthProvider
	sender  PushSender
	limiter AlertLimiter
	mailer  EmailProvider
	queue   TaskEnqueuer

	fanoutLimit   int
	alertCooldown time.Duration
	alertMailFrom string
	alertMailTo   []string
}

type Option func(*Usecase)

// WithFanoutLimit bounds how many sends of one batch run concurrently.
// Zero or negative means unbounded.
func WithFanoutLimit(n int) Option {
	return func(u *Usecase) { u.fanoutLimit = n }
}

func WithAlertCooldown(d time.Duration) Option {
	return func(u *Usecase) {
		if d > 0 {
			u.alertCooldown = d
		}
	}
}

// WithAlertEmail sets the addresses for the ops digest mail.
func WithAlertEmail(from string, to []string) Option {
	return func(u *Usecase) {
		u.alertMailFrom = from
		u.alertMailTo = to
	}
}

// FromEnv builds options from the process environment.
func FromEnv() []Option {
	var opts []Option
	if v := os.Getenv(config.ENV_KEY_FANOUT_LIMIT); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts = append(opts, WithFanoutLimit(n))
		}
	}
	if v := os.Getenv(config.ENV_KEY_STOCK_ALERT_COOLDOWN); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			opts = append(opts, WithAlertCooldown(d))
		}
	}
	if from := os.Getenv(config.ENV_KEY_ALERT_EMAIL_FROM); from != "" {
		to := strings.Split(os.Getenv(config.ENV_KEY_ALERT_EMAIL_TO), ",")
		opts = append(opts, WithAlertEmail(from, to))
	}
	return opts
}

// New wires the usecase. auth, limiter, mailer and queue may be nil when the
// running binary does not need them.
func New(
	repo Repository,
	auth AuthProvider,
	sender PushSender,
	limiter AlertLimiter,
	mailer EmailProvider,
	queue TaskEnqueuer,
	opts ...Option,
) Usecase {
	u := Usecase{
		repo:          repo,
		auth:          auth,
		sender:        sender,
		limiter:       limiter,
		mailer:        mailer,
		queue:         queue,
		fanoutLimit:   defaultFanoutLimit,
		alertCooldown: defaultAlertCooldown,
	}
	for _, opt := range opts {
		opt(&u)
	}
	return u
}

func (u Usecase) Health() map[string]string {
	return u.repo.Health()
}

func (u Usecase) Close() error {
	return u.repo.Close()
}

// VerifyGateway confirms the service can authenticate to the messaging
// gateway by obtaining a valid credential.
func (u Usecase) VerifyGateway(ctx context.Context) error {
	return u.sender.VerifyCredentials(ctx)
}

// VerifyIDToken is used by the API auth middleware.
func (u Usecase) VerifyIDToken(ctx context.Context, token string) (string, error) {
	if u.auth == nil {
		return "", fmt.Errorf("auth provider not configured")
	}
	return u.auth.VerifyIDToken(ctx, token)
}
