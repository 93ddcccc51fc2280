package core

import "context"

// Message is one prompt message sent to a chat model.
type Message struct {
	Role    string // "system", "user" or "assistant"
	Content string
}

// StreamToken is one increment of a streaming chat completion. A token with
// Err set terminates the stream; Done marks a normal end.
type StreamToken struct {
	Content string
	Done    bool
	Err     error
}

type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

type LLMProvider interface {
	// StreamChat starts a streaming completion. The returned channel is
	// closed after the final token; cancelling ctx aborts the stream.
	StreamChat(ctx context.Context, messages []Message) (<-chan StreamToken, error)
}
