package app

import (
	"context"

	"staffqa/internal/model"
	"staffqa/internal/repository"
)

const (
	topQuestionsLimit    = 10
	recentQuestionsLimit = 20
)

type AnalyticsSummary struct {
	TotalQuestions  int64                          `json:"total_questions"`
	ActiveUsers     int64                          `json:"active_users"`
	TotalDocuments  int64                          `json:"total_documents"`
	TopQuestions    []model.QuestionAnalytics      `json:"top_questions"`
	RecentQuestions []repository.RecentQuestion    `json:"recent_questions"`
	UserStats       []repository.UserQuestionCount `json:"user_stats"`
}

type AnalyticsService struct {
	analyticsRepo *repository.AnalyticsRepository
	messageRepo   *repository.ChatMessageRepository
	docRepo       *repository.DocumentRepository
}

func NewAnalyticsService(
	analyticsRepo *repository.AnalyticsRepository,
	messageRepo *repository.ChatMessageRepository,
	docRepo *repository.DocumentRepository,
) *AnalyticsService {
	return &AnalyticsService{
		analyticsRepo: analyticsRepo,
		messageRepo:   messageRepo,
		docRepo:       docRepo,
	}
}

func (s *AnalyticsService) Summary(ctx context.Context, actor *model.User) (*AnalyticsSummary, error) {
	if err := Require(actor, model.RoleAdmin); err != nil {
		return nil, err
	}

	var (
		summary AnalyticsSummary
		err     error
	)
	if summary.TotalQuestions, err = s.messageRepo.Count(ctx); err != nil {
		return nil, err
	}
	if summary.ActiveUsers, err = s.messageRepo.CountDistinctUsers(ctx); err != nil {
		return nil, err
	}
	if summary.TotalDocuments, err = s.docRepo.Count(ctx); err != nil {
		return nil, err
	}
	if summary.TopQuestions, err = s.analyticsRepo.TopQuestions(ctx, topQuestionsLimit); err != nil {
		return nil, err
	}
	if summary.RecentQuestions, err = s.analyticsRepo.RecentQuestions(ctx, recentQuestionsLimit); err != nil {
		return nil, err
	}
	if summary.UserStats, err = s.analyticsRepo.UserQuestionCounts(ctx); err != nil {
		return nil, err
	}
	return &summary, nil
}
