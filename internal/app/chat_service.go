package app

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"staffqa/internal/ai"
	"staffqa/internal/events"
	"staffqa/internal/metrics"
	"staffqa/internal/model"
	"staffqa/internal/repository"
)

const (
	DefaultHistoryLimit   = 50
	maxNormalizedQuestion = 500
)

type Completer interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
}

type HistoryCache interface {
	GetHistory(ctx context.Context, userID uint) ([]model.ChatMessage, bool, error)
	SetHistory(ctx context.Context, userID uint, messages []model.ChatMessage) error
	DeleteHistory(ctx context.Context, userID uint) error
}

type ChatOptions struct {
	// HistoryMessages is how many earlier turns go into each prompt.
	HistoryMessages  int
	PerDocumentChars int
	ContextBudget    int
}

type ChatService struct {
	docRepo      *repository.DocumentRepository
	messageRepo  *repository.ChatMessageRepository
	llm          Completer
	historyCache HistoryCache
	publisher    EventPublisher
	metrics      *metrics.Metrics
	logger       *zap.Logger
	opts         ChatOptions
}

type AskResult struct {
	Answer    string `json:"answer"`
	MessageID uint   `json:"message_id"`
}

func NewChatService(
	docRepo *repository.DocumentRepository,
	messageRepo *repository.ChatMessageRepository,
	llm Completer,
	historyCache HistoryCache,
	publisher EventPublisher,
	m *metrics.Metrics,
	logger *zap.Logger,
	opts ChatOptions,
) *ChatService {
	if opts.HistoryMessages < 0 {
		opts.HistoryMessages = 0
	}
	if opts.HistoryMessages > DefaultHistoryLimit {
		opts.HistoryMessages = DefaultHistoryLimit
	}
	return &ChatService{
		docRepo:      docRepo,
		messageRepo:  messageRepo,
		llm:          llm,
		historyCache: historyCache,
		publisher:    publisher,
		metrics:      m,
		logger:       logger,
		opts:         opts,
	}
}

// Ask answers one question from the uploaded documents. A failed generation
// leaves no trace in the database.
func (s *ChatService) Ask(ctx context.Context, user *model.User, question string) (*AskResult, error) {
	if err := Require(user, model.RoleEmployee); err != nil {
		return nil, err
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", ErrInvalidInput)
	}

	docs, err := s.docRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	history, err := s.recentTurns(ctx, user.ID, s.opts.HistoryMessages)
	if err != nil {
		return nil, err
	}

	documentContext := ai.BuildContext(contextDocuments(docs), s.opts.PerDocumentChars, s.opts.ContextBudget)
	prompt := ai.BuildMessages(documentContext, toTurns(history), question)

	start := time.Now()
	answer, err := s.llm.Complete(ctx, prompt)
	s.metrics.GenerationLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.GenerationFailures.Inc()
		s.logger.Error("generate answer failed",
			zap.Uint("user_id", user.ID),
			zap.Int("documents", len(docs)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	message := &model.ChatMessage{
		UserID:   user.ID,
		Message:  question,
		Response: answer,
	}
	if err := s.messageRepo.RecordTurn(ctx, message, NormalizeQuestion(question)); err != nil {
		return nil, err
	}
	s.metrics.ChatTurns.Inc()

	if s.historyCache != nil {
		if err := s.historyCache.DeleteHistory(ctx, user.ID); err != nil {
			s.logger.Warn("invalidate history cache failed", zap.Uint("user_id", user.ID), zap.Error(err))
		}
	}
	publishEvent(ctx, s.publisher, s.logger, events.New(events.TypeChatAnswered, user.ID, map[string]any{
		"message_id": message.ID,
		"documents":  len(docs),
	}))
	return &AskResult{Answer: answer, MessageID: message.ID}, nil
}

// History returns the user's most recent turns, oldest first.
func (s *ChatService) History(ctx context.Context, user *model.User, limit int) ([]model.ChatMessage, error) {
	if err := Require(user, model.RoleEmployee); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return s.recentTurns(ctx, user.ID, limit)
}

// recentTurns serves from the cache, which always holds the last
// DefaultHistoryLimit turns, and fills it on a miss.
func (s *ChatService) recentTurns(ctx context.Context, userID uint, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 {
		return nil, nil
	}
	if limit > DefaultHistoryLimit {
		return s.messageRepo.ListRecentByUser(ctx, userID, limit)
	}

	if s.historyCache != nil {
		cached, hit, err := s.historyCache.GetHistory(ctx, userID)
		if err != nil {
			s.logger.Warn("read history cache failed", zap.Uint("user_id", userID), zap.Error(err))
		} else if hit {
			return lastMessages(cached, limit), nil
		}
	}

	messages, err := s.messageRepo.ListRecentByUser(ctx, userID, DefaultHistoryLimit)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if err := s.historyCache.SetHistory(ctx, userID, messages); err != nil {
			s.logger.Warn("fill history cache failed", zap.Uint("user_id", userID), zap.Error(err))
		}
	}
	return lastMessages(messages, limit), nil
}

// NormalizeQuestion is the analytics key of a question: lowercased, inner
// whitespace collapsed, trimmed and capped at 500 runes.
func NormalizeQuestion(question string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(question)), " ")
	if utf8.RuneCountInString(normalized) > maxNormalizedQuestion {
		normalized = strings.TrimSpace(string([]rune(normalized)[:maxNormalizedQuestion]))
	}
	return normalized
}

func lastMessages(messages []model.ChatMessage, limit int) []model.ChatMessage {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[len(messages)-limit:]
}

func contextDocuments(docs []model.Document) []ai.ContextDocument {
	out := make([]ai.ContextDocument, 0, len(docs))
	for _, doc := range docs {
		out = append(out, ai.ContextDocument{Name: doc.OriginalFilename, Content: doc.Content})
	}
	return out
}

func toTurns(messages []model.ChatMessage) []ai.Turn {
	turns := make([]ai.Turn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, ai.Turn{Question: m.Message, Answer: m.Response})
	}
	return turns
}
