package llm

import "context"

// Message is one turn in a chat-completions conversation. Content is either
// a plain string or a []ContentPart for multimodal user turns.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ContentPart is one block inside a multimodal user message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

func SystemMessage(text string) Message {
	return Message{Role: "system", Content: text}
}

func AssistantMessage(text string) Message {
	return Message{Role: "assistant", Content: text}
}

func UserMessage(parts []ContentPart) Message {
	return Message{Role: "user", Content: parts}
}

func UserText(text string) Message {
	return Message{Role: "user", Content: text}
}

// ChatRequest is the model endpoint payload. Decoding parameters are fixed
// by the caller for reproducibility.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Seed        int       `json:"seed"`
	Temperature float32   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// Usage is the model's token accounting block.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the unwrapped first completion plus usage metadata.
type ChatResponse struct {
	Content string
	Usage   Usage
}

// ChatCompleter is the model endpoint capability the extractor depends on.
type ChatCompleter interface {
	Complete(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// TokenCounter counts cl100k_base tokens; used for the schema token budget.
type TokenCounter interface {
	Count(text string) (int, error)
}
