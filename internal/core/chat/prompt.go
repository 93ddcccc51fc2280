package chat

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/docqa/server/internal/core"
	"github.com/docqa/server/internal/models"
)

const knowledgeSystemPrompt = `You are a document question-answering assistant. Answer using only the retrieved document content below. If the documents contain nothing relevant to the question, reply that you do not know the answer instead of guessing.

Document content:
%s`

const generalSystemPrompt = `You are a helpful assistant. Answer the user's questions clearly and concisely.`

var (
	tokenizerOnce sync.Once
	tokenizer     *tiktoken.Tiktoken
)

func encoder() *tiktoken.Tiktoken {
	tokenizerOnce.Do(func() {
		tokenizer, _ = tiktoken.GetEncoding("cl100k_base")
	})
	return tokenizer
}

// clipToTokens cuts text down to at most budget tokens. With no usable
// tokenizer the text passes through unchanged.
func clipToTokens(text string, budget int) string {
	enc := encoder()
	if enc == nil || budget <= 0 {
		return text
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= budget {
		return text
	}
	return enc.Decode(tokens[:budget])
}

// buildMessages assembles the model conversation: a system prompt (with
// retrieved context when present), prior turns oldest first, then the
// current question.
func buildMessages(question string, history []models.ChatHistory, retrieved []core.ScoredChunk, contextBudget int) []core.Message {
	system := generalSystemPrompt
	if len(retrieved) > 0 {
		var parts []string
		for _, sc := range retrieved {
			parts = append(parts, sc.Text)
		}
		context := clipToTokens(strings.Join(parts, "\n---\n"), contextBudget)
		system = fmt.Sprintf(knowledgeSystemPrompt, context)
	}

	messages := []core.Message{{Role: "system", Content: system}}
	for _, h := range history {
		if h.Role != "user" && h.Role != "assistant" {
			continue
		}
		messages = append(messages, core.Message{Role: h.Role, Content: h.Content})
	}
	return append(messages, core.Message{Role: "user", Content: question})
}
