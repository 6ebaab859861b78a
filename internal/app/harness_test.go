package app

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"staffqa/internal/ai"
	"staffqa/internal/cache"
	"staffqa/internal/events"
	"staffqa/internal/metrics"
	"staffqa/internal/model"
	"staffqa/internal/repository"
	"staffqa/internal/storage"
)

type fakeCompleter struct {
	mu      sync.Mutex
	answer  string
	err     error
	prompts [][]ai.ChatMessage
}

func (f *fakeCompleter) Complete(_ context.Context, messages []ai.ChatMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, messages)
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeCompleter) lastPrompt() []ai.ChatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return nil
	}
	return f.prompts[len(f.prompts)-1]
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type harness struct {
	db        *gorm.DB
	redis     *miniredis.Miniredis
	userRepo  *repository.UserRepository
	tokenRepo *repository.OAuthTokenRepository
	docRepo   *repository.DocumentRepository
	msgRepo   *repository.ChatMessageRepository
	sessions  *cache.SessionStore
	uploadDir string
	llm       *fakeCompleter
	events    *recordingPublisher

	auth      *AuthService
	docs      *DocumentService
	chat      *ChatService
	analytics *AnalyticsService
	users     *UserService
}

type harnessOption func(*AuthOptions)

func withOAuth(o OAuthOptions) harnessOption {
	return func(a *AuthOptions) { a.OAuth = o }
}

const testAdminEmail = "hr@example.com"

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(model.All()...))

	mr := miniredis.RunT(t)
	rdb := redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	uploadDir := filepath.Join(t.TempDir(), "uploads")
	store, err := storage.NewLocalStore(uploadDir)
	require.NoError(t, err)

	h := &harness{
		db:        db,
		redis:     mr,
		userRepo:  repository.NewUserRepository(db),
		tokenRepo: repository.NewOAuthTokenRepository(db),
		docRepo:   repository.NewDocumentRepository(db),
		msgRepo:   repository.NewChatMessageRepository(db),
		sessions:  cache.NewSessionStore(rdb),
		uploadDir: uploadDir,
		llm:       &fakeCompleter{answer: "Answer."},
		events:    &recordingPublisher{},
	}
	analyticsRepo := repository.NewAnalyticsRepository(db)
	logger := zap.NewNop()
	m := metrics.NewNop()

	authOpts := AuthOptions{
		SessionSecret: "test-secret",
		SessionTTL:    time.Hour,
		AdminEmails:   []string{testAdminEmail},
		PasswordLogin: true,
	}
	for _, opt := range opts {
		opt(&authOpts)
	}

	h.auth = NewAuthService(h.userRepo, h.tokenRepo, h.sessions, authOpts, logger)
	h.docs = NewDocumentService(h.docRepo, store, 1<<20, h.events, m, logger)
	h.chat = NewChatService(h.docRepo, h.msgRepo, h.llm, cache.NewHistoryCache(rdb, time.Minute), h.events, m, logger, ChatOptions{
		HistoryMessages:  10,
		PerDocumentChars: 8000,
		ContextBudget:    24000,
	})
	h.analytics = NewAnalyticsService(analyticsRepo, h.msgRepo, h.docRepo)
	h.users = NewUserService(h.userRepo, h.msgRepo, analyticsRepo, authOpts.AdminEmails, logger)
	return h
}

func (h *harness) register(t *testing.T, email string) *model.User {
	t.Helper()
	res, err := h.auth.Register(context.Background(), RegisterInput{Email: email, Password: "password123", Confirm: "password123"})
	require.NoError(t, err)
	return res.User
}

func (h *harness) admin(t *testing.T) *model.User {
	t.Helper()
	return h.register(t, testAdminEmail)
}

func (h *harness) countMessages(t *testing.T) int64 {
	t.Helper()
	n, err := h.msgRepo.Count(context.Background())
	require.NoError(t, err)
	return n
}

func systemPrompt(messages []ai.ChatMessage) string {
	for _, m := range messages {
		if m.Role == ai.RoleSystem {
			return m.Content
		}
	}
	return ""
}

var errProvider = errors.New("provider unavailable")

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
