package ai

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildContextIncludesDocuments(t *testing.T) {
	ctx := BuildContext([]ContextDocument{
		{Name: "policy.pdf", Content: "Vacation is 20 days/year"},
		{Name: "empty.txt", Content: "   "},
		{Name: "handbook.docx", Content: "Core hours are 10-4"},
	}, 0, 0)

	assert.Contains(t, ctx, "--- Document: policy.pdf ---\nVacation is 20 days/year")
	assert.Contains(t, ctx, "--- Document: handbook.docx ---\nCore hours are 10-4")
	assert.NotContains(t, ctx, "empty.txt")
	assert.Less(t, strings.Index(ctx, "policy.pdf"), strings.Index(ctx, "handbook.docx"))
}

func TestBuildContextPerDocumentLimit(t *testing.T) {
	ctx := BuildContext([]ContextDocument{{Name: "long.txt", Content: strings.Repeat("a", 50)}}, 10, 1000)
	assert.Contains(t, ctx, strings.Repeat("a", 10)+"\n")
	assert.NotContains(t, ctx, strings.Repeat("a", 11))
}

func TestBuildContextBudgetDropsOlderDocuments(t *testing.T) {
	docs := []ContextDocument{
		{Name: "new.txt", Content: strings.Repeat("n", 40)},
		{Name: "mid.txt", Content: strings.Repeat("m", 40)},
		{Name: "old.txt", Content: strings.Repeat("o", 40)},
	}
	ctx := BuildContext(docs, 100, 100)

	assert.LessOrEqual(t, utf8.RuneCountInString(ctx), 100+2*2)
	assert.Contains(t, ctx, strings.Repeat("n", 40))
	assert.Contains(t, ctx, "mid.txt")
	assert.NotContains(t, ctx, strings.Repeat("m", 40))
	assert.NotContains(t, ctx, "old.txt")
}

func TestBuildContextCountsRunes(t *testing.T) {
	ctx := BuildContext([]ContextDocument{{Name: "ja.txt", Content: "休暇は年間二十日です"}}, 3, 1000)
	assert.Contains(t, ctx, "休暇は\n")
	assert.True(t, utf8.ValidString(ctx))
}

func TestBuildMessages(t *testing.T) {
	msgs := BuildMessages("\n--- Document: policy.pdf ---\nVacation is 20 days/year\n",
		[]Turn{{Question: "Hi", Answer: "Hello!"}, {Question: "Unanswered"}},
		"How many vacation days do I get?")

	require.Len(t, msgs, 5)
	assert.Equal(t, RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Vacation is 20 days/year")
	assert.Contains(t, msgs[0].Content, "cite which document")
	assert.Equal(t, ChatMessage{Role: RoleUser, Content: "Hi"}, msgs[1])
	assert.Equal(t, ChatMessage{Role: RoleAssistant, Content: "Hello!"}, msgs[2])
	assert.Equal(t, ChatMessage{Role: RoleUser, Content: "Unanswered"}, msgs[3])
	assert.Equal(t, ChatMessage{Role: RoleUser, Content: "How many vacation days do I get?"}, msgs[4])
}

func TestBuildMessagesWithoutDocuments(t *testing.T) {
	msgs := BuildMessages("", nil, "Anything?")
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Content, "No training documents have been uploaded yet")
}
