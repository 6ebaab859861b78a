package ai

import (
	"strings"
)

const (
	DefaultPerDocumentChars = 8000
	DefaultContextBudget    = 24000
)

const assistantInstructions = `You are a helpful employee training assistant for a company.
Your role is to answer questions about company policies, procedures, and training materials.
Be professional, helpful, and accurate in your responses.
If you don't know the answer or if the information isn't in the provided documents,
say so honestly and suggest the employee contact HR or their manager for more information.
`

const withDocuments = `
Here are the company training documents you can reference:

%CONTEXT%

Use the information from these documents to answer employee questions accurately.
Always cite which document your information comes from when possible.`

const withoutDocuments = `
Note: No training documents have been uploaded yet.
Please let the employee know that training documents need to be uploaded by an administrator
before you can provide specific company information.`

// ContextDocument is the part of a stored document that goes into a prompt.
type ContextDocument struct {
	Name    string
	Content string
}

// Turn is one earlier question and its answer.
type Turn struct {
	Question string
	Answer   string
}

// BuildContext concatenates documents in the order given. Each document is cut
// to perDocument runes and the whole block never exceeds budget runes: the
// document that crosses the budget is truncated and the rest are dropped, so
// callers pass the documents they care most about first.
func BuildContext(docs []ContextDocument, perDocument, budget int) string {
	if perDocument <= 0 {
		perDocument = DefaultPerDocumentChars
	}
	if budget <= 0 {
		budget = DefaultContextBudget
	}

	var b strings.Builder
	remaining := budget
	for _, doc := range docs {
		content := strings.TrimSpace(doc.Content)
		if content == "" {
			continue
		}
		header := "\n--- Document: " + doc.Name + " ---\n"
		headerLen := len([]rune(header))
		if remaining <= headerLen {
			break
		}
		remaining -= headerLen

		body := truncateRunes(content, perDocument)
		body = truncateRunes(body, remaining)
		remaining -= len([]rune(body))

		b.WriteString(header)
		b.WriteString(body)
		b.WriteString("\n")
		if remaining <= 0 {
			break
		}
	}
	return b.String()
}

// BuildMessages assembles the system prompt, prior turns and the question.
func BuildMessages(documentContext string, history []Turn, question string) []ChatMessage {
	system := assistantInstructions
	if strings.TrimSpace(documentContext) != "" {
		system += strings.Replace(withDocuments, "%CONTEXT%", documentContext, 1)
	} else {
		system += withoutDocuments
	}

	messages := make([]ChatMessage, 0, 2+2*len(history))
	messages = append(messages, ChatMessage{Role: RoleSystem, Content: system})
	for _, turn := range history {
		messages = append(messages, ChatMessage{Role: RoleUser, Content: turn.Question})
		if turn.Answer != "" {
			messages = append(messages, ChatMessage{Role: RoleAssistant, Content: turn.Answer})
		}
	}
	messages = append(messages, ChatMessage{Role: RoleUser, Content: question})
	return messages
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
