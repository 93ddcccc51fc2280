// Package llm provides the chat and embedding model providers. Two families
// are supported: any OpenAI-compatible HTTP endpoint (DashScope, Ollama's
// compat mode, vLLM) and Google Gemini. The active provider is resolved at
// request time from the model_config table.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/docqa/server/internal/core"
)

// OpenAILLM streams chat completions from an OpenAI-compatible endpoint.
type OpenAILLM struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

var _ core.LLMProvider = (*OpenAILLM)(nil)

func NewOpenAILLM(baseURL, apiKey, model string) *OpenAILLM {
	return &OpenAILLM{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client: &http.Client{
			Timeout: 5 * time.Minute, // streaming responses can run long
		},
	}
}

func (o *OpenAILLM) Model() string { return o.model }

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// StreamChat opens a server-sent-event completion stream and forwards each
// content delta as a token. The channel closes after the final token.
func (o *OpenAILLM) StreamChat(ctx context.Context, messages []core.Message) (<-chan core.StreamToken, error) {
	reqBody := chatCompletionRequest{
		Model:  o.model,
		Stream: true,
	}
	for _, m := range messages {
		reqBody.Messages = append(reqBody.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling chat endpoint: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("chat endpoint returned status %d", resp.StatusCode)
	}

	ch := make(chan core.StreamToken, 100)

	go func() {
		defer close(ch)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				ch <- core.StreamToken{Err: ctx.Err()}
				return
			default:
			}

			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "[DONE]" {
				ch <- core.StreamToken{Done: true}
				return
			}

			var chunk chatCompletionChunk
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				continue // skip malformed lines
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			if delta := chunk.Choices[0].Delta.Content; delta != "" {
				ch <- core.StreamToken{Content: delta}
			}
			if fr := chunk.Choices[0].FinishReason; fr != nil && *fr != "" {
				ch <- core.StreamToken{Done: true}
				return
			}
		}

		if err := scanner.Err(); err != nil {
			ch <- core.StreamToken{Err: err}
			return
		}
		ch <- core.StreamToken{Done: true}
	}()

	return ch, nil
}
