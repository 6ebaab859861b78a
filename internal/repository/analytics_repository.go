package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"staffqa/internal/model"
)

// RecentQuestion is one asked question with the asker's email.
type RecentQuestion struct {
	ID        uint      `json:"id"`
	Message   string    `json:"message"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// UserQuestionCount is a per-user usage row.
type UserQuestionCount struct {
	UserID        uint   `json:"user_id"`
	Email         string `json:"email"`
	QuestionCount int64  `json:"question_count"`
}

type AnalyticsRepository struct {
	db *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

func (r *AnalyticsRepository) TopQuestions(ctx context.Context, limit int) ([]model.QuestionAnalytics, error) {
	var rows []model.QuestionAnalytics
	err := r.db.WithContext(ctx).
		Order("count DESC, updated_at DESC, id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query top questions failed: %w", err)
	}
	return rows, nil
}

func (r *AnalyticsRepository) RecentQuestions(ctx context.Context, limit int) ([]RecentQuestion, error) {
	var rows []RecentQuestion
	err := r.db.WithContext(ctx).
		Table("chat_messages").
		Select("chat_messages.id, chat_messages.message, chat_messages.created_at, users.email").
		Joins("JOIN users ON users.id = chat_messages.user_id").
		Order("chat_messages.created_at DESC, chat_messages.id DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query recent questions failed: %w", err)
	}
	return rows, nil
}

// UserQuestionCounts covers every user, including those who never asked.
func (r *AnalyticsRepository) UserQuestionCounts(ctx context.Context) ([]UserQuestionCount, error) {
	var rows []UserQuestionCount
	err := r.db.WithContext(ctx).
		Table("users").
		Select("users.id AS user_id, users.email AS email, COUNT(chat_messages.id) AS question_count").
		Joins("LEFT JOIN chat_messages ON chat_messages.user_id = users.id").
		Group("users.id, users.email").
		Order("question_count DESC, users.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query user question counts failed: %w", err)
	}
	return rows, nil
}
