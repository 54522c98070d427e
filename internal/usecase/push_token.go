package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/invory/notification-service/internal/config"
)

// Tokens deactivated longer than this without being used are deleted by the
// nightly cleanup.
const inactiveTokenTTL = 30 * 24 * time.Hour

type PushToken struct {
	ID        uuid.UUID
	UserID    string
	Token     string
	Platform  string
	Active    bool
	Metadata  map[string]any
	LastUsed  time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ListPushTokensOption struct {
	Skip       int
	Limit      int
	UserID     string
	Platforms  []string
	ActiveOnly bool
}

func (u Usecase) SavePushToken(ctx context.Context, token, platform string, metadata map[string]any) error {
	userID, ok := ctx.Value(config.CTX_KEY_USER_ID).(string)
	if !ok || userID == "" {
		return fmt.Errorf("user id not found in context")
	}
	return u.repo.SavePushToken(ctx, userID, token, platform, metadata)
}

func (u Usecase) ListPushTokens(ctx context.Context, opt ListPushTokensOption) ([]PushToken, int, error) {
	userID, ok := ctx.Value(config.CTX_KEY_USER_ID).(string)
	if !ok || userID == "" {
		return nil, 0, fmt.Errorf("user id not found in context")
	}
	opt.UserID = userID
	return u.repo.ListPushTokens(ctx, opt)
}

// DeletePushToken removes one of the calling user's tokens. The registry
// write is scoped to the context UID so a token id belonging to someone else
// is never touched.
func (u Usecase) DeletePushToken(ctx context.Context, id uuid.UUID) error {
	userID, ok := ctx.Value(config.CTX_KEY_USER_ID).(string)
	if !ok || userID == "" {
		return fmt.Errorf("user id not found in context")
	}
	return u.repo.DeletePushToken(ctx, userID, id)
}

// CleanupInactivePushTokens deletes tokens that have been inactive past the
// TTL and mails the ops digest when configured.
func (u Usecase) CleanupInactivePushTokens(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-inactiveTokenTTL)
	n, err := u.repo.DeleteInactivePushTokens(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete inactive push tokens: %w", err)
	}

	if n > 0 && u.mailer != nil && u.alertMailFrom != "" && len(u.alertMailTo) > 0 {
		digest := Email{
			From:    u.alertMailFrom,
			To:      u.alertMailTo,
			Subject: "Push token cleanup",
			Body: fmt.Sprintf(
				"Deleted %d push tokens inactive since %s.\n",
				n, cutoff.UTC().Format(time.RFC3339),
			),
		}
		if err := u.mailer.SendEmail(ctx, digest); err != nil {
			slog.Warn("send cleanup digest", slog.String("err", err.Error()))
		}
	}

	return n, nil
}
