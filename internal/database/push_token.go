package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"

	"github.com/invory/notification-service/internal/usecase"
)

type PushToken struct {
	ID        uuid.UUID         `gorm:"column:id;primaryKey;type:uuid;default:uuid_generate_v4()"`
	UserID    string            `gorm:"column:user_id;type:varchar(128);uniqueIndex:idx_user_token"`
	Token     string            `gorm:"column:token;type:text;uniqueIndex:idx_user_token"`
	Platform  string            `gorm:"column:platform;type:varchar(32)"`
	Active    bool              `gorm:"column:active;default:true"`
	Metadata  datatypes.JSONMap `gorm:"column:metadata;type:jsonb"`
	LastUsed  time.Time         `gorm:"column:last_used;autoUpdateTime"`
	CreatedAt time.Time         `gorm:"column:created_at"`
	UpdatedAt time.Time         `gorm:"column:updated_at"`
}

func (PushToken) TableName() string {
	return "push_tokens"
}

// SavePushToken upserts on (user_id, token); re-registering a deactivated
// token reactivates it.
func (s *service) SavePushToken(
	ctx context.Context,
	userID, token, platform string,
	metadata map[string]any) error {
	pt := PushToken{
		UserID:   userID,
		Token:    token,
		Platform: platform,
		Active:   true,
		Metadata: datatypes.JSONMap(metadata),
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"platform", "active", "metadata", "last_used", "updated_at"}),
	}).Create(&pt).Error
}

func (s *service) ListActivePushTokens(ctx context.Context, userID string) ([]usecase.PushToken, error) {
	var tokens []PushToken
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Order("last_used DESC").
		Find(&tokens).Error; err != nil {
		return nil, err
	}

	utokens := make([]usecase.PushToken, 0, len(tokens))
	for _, t := range tokens {
		utokens = append(utokens, t.ConvertToUsecase())
	}
	return utokens, nil
}

func (s *service) ListPushTokens(ctx context.Context, opt usecase.ListPushTokensOption) ([]usecase.PushToken, int, error) {
	var (
		tokens  []PushToken
		utokens []usecase.PushToken
		count   int64
	)

	db := s.db.Model([]PushToken{}).WithContext(ctx)
	if opt.UserID != "" {
		db = db.Where("user_id = ?", opt.UserID)
	}
	if len(opt.Platforms) > 0 {
		db = db.Where("platform IN ?", opt.Platforms)
	}
	if opt.ActiveOnly {
		db = db.Where("active = ?", true)
	}

	if err := db.Count(&count).Error; err != nil {
		return nil, 0, err
	}
	if opt.Limit > 0 {
		db = db.Limit(opt.Limit)
	}
	if opt.Skip > 0 {
		db = db.Offset(opt.Skip)
	}

	if err := db.Find(&tokens).Error; err != nil {
		return nil, 0, err
	}

	for _, t := range tokens {
		utokens = append(utokens, t.ConvertToUsecase())
	}
	return utokens, int(count), nil
}

func (s *service) DeactivatePushTokens(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&PushToken{}).
		Where("token IN ?", tokens).
		Update("active", false).Error
}

func (s *service) MarkPushTokensUsed(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&PushToken{}).
		Where("token IN ?", tokens).
		Update("last_used", time.Now()).Error
}

func (s *service) DeletePushToken(ctx context.Context, userID string, id uuid.UUID) error {
	return s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&PushToken{}).Error
}

// DeleteInactivePushTokens removes deactivated tokens unused since cutoff
// and reports how many were deleted.
func (s *service) DeleteInactivePushTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("active = ? AND last_used < ?", false, cutoff).
		Delete(&PushToken{})
	return res.RowsAffected, res.Error
}

// Convert core model to Usecase
func (t PushToken) ConvertToUsecase() usecase.PushToken {
	return usecase.PushToken{
		ID:        t.ID,
		UserID:    t.UserID,
		Token:     t.Token,
		Platform:  t.Platform,
		Active:    t.Active,
		Metadata:  map[string]any(t.Metadata),
		LastUsed:  t.LastUsed,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}
