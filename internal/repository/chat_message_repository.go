package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"staffqa/internal/model"
)

type ChatMessageRepository struct {
	db *gorm.DB
}

func NewChatMessageRepository(db *gorm.DB) *ChatMessageRepository {
	return &ChatMessageRepository{db: db}
}

// RecordTurn stores the answered question and bumps its analytics counter in
// one transaction.
func (r *ChatMessageRepository) RecordTurn(ctx context.Context, message *model.ChatMessage, normalized string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return fmt.Errorf("create chat message failed: %w", err)
		}
		stat := &model.QuestionAnalytics{
			QuestionText:       message.Message,
			NormalizedQuestion: normalized,
			Count:              1,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "normalized_question"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"count":      gorm.Expr("question_analytics.count + 1"),
				"updated_at": time.Now(),
			}),
		}).Create(stat).Error
		if err != nil {
			return fmt.Errorf("upsert question analytics failed: %w", err)
		}
		return nil
	})
}

// ListRecentByUser returns the user's latest turns in chronological order.
func (r *ChatMessageRepository) ListRecentByUser(ctx context.Context, userID uint, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var messages []model.ChatMessage
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list chat messages failed: %w", err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *ChatMessageRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.ChatMessage{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count chat messages failed: %w", err)
	}
	return n, nil
}

func (r *ChatMessageRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.ChatMessage{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count user chat messages failed: %w", err)
	}
	return n, nil
}

// CountDistinctUsers is the number of users who asked at least once.
func (r *ChatMessageRepository) CountDistinctUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.ChatMessage{}).Distinct("user_id").Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count active users failed: %w", err)
	}
	return n, nil
}
