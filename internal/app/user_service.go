package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"staffqa/internal/model"
	"staffqa/internal/repository"
)

type UserSummary struct {
	User          model.User
	QuestionCount int64
	// PrimaryAdmin users are configured by email and cannot be demoted.
	PrimaryAdmin bool
}

type Profile struct {
	User          *model.User
	QuestionCount int64
}

type UserService struct {
	userRepo      *repository.UserRepository
	messageRepo   *repository.ChatMessageRepository
	analyticsRepo *repository.AnalyticsRepository
	admins        adminEmails
	logger        *zap.Logger
}

func NewUserService(
	userRepo *repository.UserRepository,
	messageRepo *repository.ChatMessageRepository,
	analyticsRepo *repository.AnalyticsRepository,
	primaryAdmins []string,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		userRepo:      userRepo,
		messageRepo:   messageRepo,
		analyticsRepo: analyticsRepo,
		admins:        newAdminEmails(primaryAdmins),
		logger:        logger,
	}
}

func (s *UserService) ListUsers(ctx context.Context, actor *model.User) ([]UserSummary, error) {
	if err := Require(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.analyticsRepo.UserQuestionCounts(ctx)
	if err != nil {
		return nil, err
	}
	byUser := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byUser[c.UserID] = c.QuestionCount
	}

	out := make([]UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, UserSummary{
			User:          u,
			QuestionCount: byUser[u.ID],
			PrimaryAdmin:  s.admins.contains(u.Email),
		})
	}
	return out, nil
}

// ToggleAdmin flips a user between employee and admin. Admins cannot change
// their own role or that of a primary admin.
func (s *UserService) ToggleAdmin(ctx context.Context, actor *model.User, userID uint) (*model.User, error) {
	if err := Require(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	if userID == actor.ID {
		return nil, fmt.Errorf("%w: cannot change your own role", ErrInvalidInput)
	}
	target, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrNotFound
	}
	if s.admins.contains(target.Email) {
		return nil, fmt.Errorf("%w: primary admin role cannot be changed", ErrInvalidInput)
	}

	next := model.RoleAdmin
	if target.Role.IsAdmin() {
		next = model.RoleEmployee
	}
	if err := s.userRepo.UpdateRole(ctx, target.ID, next); err != nil {
		return nil, err
	}
	target.Role = next
	s.logger.Info("user role changed",
		zap.Uint("user_id", target.ID),
		zap.Uint("actor_id", actor.ID),
		zap.String("role", string(next)),
	)
	return target, nil
}

func (s *UserService) Profile(ctx context.Context, user *model.User) (*Profile, error) {
	if err := Require(user, model.RoleEmployee); err != nil {
		return nil, err
	}
	count, err := s.messageRepo.CountByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &Profile{User: user, QuestionCount: count}, nil
}
