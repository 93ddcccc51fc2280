package llm

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/docqa/server/internal/core"
)

type GeminiLLM struct {
	client    *genai.Client
	modelName string
}

var _ core.LLMProvider = (*GeminiLLM)(nil)

func NewGeminiLLM(ctx context.Context, apiKey, modelName string) (*GeminiLLM, error) {
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &GeminiLLM{client: cl, modelName: modelName}, nil
}

func (g *GeminiLLM) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// StreamChat maps the message list onto a gemini chat session: the system
// message becomes the system instruction, prior turns become history, and the
// last user message is sent streaming.
func (g *GeminiLLM) StreamChat(ctx context.Context, messages []core.Message) (<-chan core.StreamToken, error) {
	m := g.client.GenerativeModel(g.modelName)

	var history []*genai.Content
	var last string
	for i, msg := range messages {
		switch msg.Role {
		case "system":
			m.SystemInstruction = &genai.Content{
				Parts: []genai.Part{genai.Text(msg.Content)},
			}
		case "assistant":
			history = append(history, &genai.Content{
				Role:  "model",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		default:
			if i == len(messages)-1 {
				last = msg.Content
				continue
			}
			history = append(history, &genai.Content{
				Role:  "user",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		}
	}

	cs := m.StartChat()
	cs.History = history
	iter := cs.SendMessageStream(ctx, genai.Text(last))

	ch := make(chan core.StreamToken, 100)
	go func() {
		defer close(ch)
		for {
			resp, err := iter.Next()
			if err == iterator.Done {
				ch <- core.StreamToken{Done: true}
				return
			}
			if err != nil {
				ch <- core.StreamToken{Err: err}
				return
			}
			if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
				continue
			}
			var b strings.Builder
			for _, p := range resp.Candidates[0].Content.Parts {
				if t, ok := p.(genai.Text); ok {
					b.WriteString(string(t))
				}
			}
			if b.Len() > 0 {
				select {
				case ch <- core.StreamToken{Content: b.String()}:
				case <-ctx.Done():
					ch <- core.StreamToken{Err: ctx.Err()}
					return
				}
			}
		}
	}()
	return ch, nil
}
