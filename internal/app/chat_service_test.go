package app

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffqa/internal/ai"
	"staffqa/internal/events"
	"staffqa/internal/model"
	"staffqa/internal/pkg/textextract/texttest"
)

func TestAskEndToEnd(t *testing.T) {
	h := newHarness(t)
	admin := h.admin(t)
	employee := h.register(t, "ann@example.com")
	ctx := context.Background()

	_, err := h.docs.Upload(ctx, admin, upload("policy.pdf", texttest.PDF("Vacation is 20 days/year")))
	require.NoError(t, err)

	h.llm.answer = "According to policy.pdf you get 20 days of vacation per year."
	res, err := h.chat.Ask(ctx, employee, "How many vacation days do I get?")
	require.NoError(t, err)
	assert.Contains(t, res.Answer, "20 days")
	assert.NotZero(t, res.MessageID)

	prompt := h.llm.lastPrompt()
	system := systemPrompt(prompt)
	assert.True(t, containsAll(system, "--- Document: policy.pdf ---", "Vacation is 20 days/year"))
	assert.Equal(t, ai.ChatMessage{Role: ai.RoleUser, Content: "How many vacation days do I get?"}, prompt[len(prompt)-1])

	assert.Equal(t, int64(1), h.countMessages(t))
	history, err := h.chat.History(ctx, employee, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, res.MessageID, history[0].ID)
	assert.Contains(t, h.events.types(), events.TypeChatAnswered)
}

func TestAskWithoutDocumentsUsesNotice(t *testing.T) {
	h := newHarness(t)
	employee := h.register(t, "ann@example.com")

	_, err := h.chat.Ask(context.Background(), employee, "Anything?")
	require.NoError(t, err)
	assert.Contains(t, systemPrompt(h.llm.lastPrompt()), "No training documents have been uploaded yet")
}

func TestAskGenerationFailurePersistsNothing(t *testing.T) {
	h := newHarness(t)
	employee := h.register(t, "ann@example.com")
	h.llm.err = errProvider

	_, err := h.chat.Ask(context.Background(), employee, "How many vacation days do I get?")
	require.ErrorIs(t, err, ErrGeneration)
	assert.Zero(t, h.countMessages(t))

	var stats int64
	require.NoError(t, h.db.Model(&model.QuestionAnalytics{}).Count(&stats).Error)
	assert.Zero(t, stats)
	assert.Empty(t, h.events.types())
}

func TestAskRejectsBlankQuestion(t *testing.T) {
	h := newHarness(t)
	employee := h.register(t, "ann@example.com")

	_, err := h.chat.Ask(context.Background(), employee, "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, h.llm.prompts)
}

func TestAskRequiresUser(t *testing.T) {
	h := newHarness(t)
	_, err := h.chat.Ask(context.Background(), nil, "hello")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Zero(t, h.countMessages(t))
}

func TestAskIncludesRecentHistory(t *testing.T) {
	h := newHarness(t)
	employee := h.register(t, "ann@example.com")
	other := h.register(t, "bob@example.com")
	ctx := context.Background()

	h.llm.answer = "First answer."
	_, err := h.chat.Ask(ctx, employee, "First question?")
	require.NoError(t, err)
	_, err = h.chat.Ask(ctx, other, "Bob's question?")
	require.NoError(t, err)

	h.llm.answer = "Second answer."
	_, err = h.chat.Ask(ctx, employee, "Second question?")
	require.NoError(t, err)

	prompt := h.llm.lastPrompt()
	require.Len(t, prompt, 4)
	assert.Equal(t, ai.ChatMessage{Role: ai.RoleUser, Content: "First question?"}, prompt[1])
	assert.Equal(t, ai.ChatMessage{Role: ai.RoleAssistant, Content: "First answer."}, prompt[2])
	for _, m := range prompt {
		assert.NotContains(t, m.Content, "Bob's question?")
	}
}

func TestAskHistoryIsBounded(t *testing.T) {
	h := newHarness(t)
	employee := h.register(t, "ann@example.com")
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := h.chat.Ask(ctx, employee, "Question "+strings.Repeat("x", i+1))
		require.NoError(t, err)
	}
	prompt := h.llm.lastPrompt()
	assert.Len(t, prompt, 1+2*10+1)
}

func TestAskCountsNormalizedQuestions(t *testing.T) {
	h := newHarness(t)
	admin := h.admin(t)
	employee := h.register(t, "ann@example.com")
	ctx := context.Background()

	for _, q := range []string{"How many vacation days?", "  how many   VACATION days?  ", "Dress code?"} {
		_, err := h.chat.Ask(ctx, employee, q)
		require.NoError(t, err)
	}

	summary, err := h.analytics.Summary(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.TotalQuestions)
	assert.Equal(t, int64(1), summary.ActiveUsers)
	require.Len(t, summary.TopQuestions, 2)
	assert.Equal(t, "how many vacation days?", summary.TopQuestions[0].NormalizedQuestion)
	assert.Equal(t, int64(2), summary.TopQuestions[0].Count)
	require.Len(t, summary.RecentQuestions, 3)
	assert.Equal(t, "Dress code?", summary.RecentQuestions[0].Message)
	assert.Equal(t, "ann@example.com", summary.RecentQuestions[0].Email)
}

func TestNormalizeQuestion(t *testing.T) {
	assert.Equal(t, "how many vacation days?", NormalizeQuestion("  How   many\tvacation\n DAYS? "))
	assert.Equal(t, "", NormalizeQuestion("   "))

	long := NormalizeQuestion(strings.Repeat("é", 600))
	assert.Equal(t, 500, len([]rune(long)))
}
