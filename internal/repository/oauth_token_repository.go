package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"staffqa/internal/model"
)

type OAuthTokenRepository struct {
	db *gorm.DB
}

func NewOAuthTokenRepository(db *gorm.DB) *OAuthTokenRepository {
	return &OAuthTokenRepository{db: db}
}

// Upsert stores the token for (user, browser session, provider), replacing any
// earlier credential for the same triple.
func (r *OAuthTokenRepository) Upsert(ctx context.Context, token *model.OAuthToken) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "browser_session_key"}, {Name: "provider"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token", "refresh_token", "token_type", "expiry", "updated_at",
		}),
	}).Create(token).Error
	if err != nil {
		return fmt.Errorf("upsert oauth token failed: %w", err)
	}
	return nil
}

func (r *OAuthTokenRepository) GetBySession(ctx context.Context, userID uint, sessionKey, provider string) (*model.OAuthToken, error) {
	var token model.OAuthToken
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND browser_session_key = ? AND provider = ?", userID, sessionKey, provider).
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query oauth token failed: %w", err)
	}
	return &token, nil
}

func (r *OAuthTokenRepository) DeleteBySession(ctx context.Context, userID uint, sessionKey string) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND browser_session_key = ?", userID, sessionKey).
		Delete(&model.OAuthToken{}).Error
	if err != nil {
		return fmt.Errorf("delete oauth token failed: %w", err)
	}
	return nil
}
