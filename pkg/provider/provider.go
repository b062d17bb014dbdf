package provider

import "context"

// Message is a single chat turn sent to a model provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CallOptions configures a single provider call.
type CallOptions struct {
	Model       string         `json:"model,omitempty"`
	Temperature float64        `json:"temperature,omitempty"`
	MaxTokens   int            `json:"max_tokens,omitempty"`
	Params      map[string]any `json:"params,omitempty"`
}

// Usage captures normalized token usage.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Choice is one completion alternative in a chat-style response.
type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

// Response is the normalized provider response. Providers populate either
// Choices or one of the flat Content/Result fields.
type Response struct {
	Choices      []Choice `json:"choices,omitempty"`
	Content      string   `json:"content,omitempty"`
	Result       string   `json:"result,omitempty"`
	Usage        *Usage   `json:"usage,omitempty"`
	FinishReason string   `json:"finish_reason,omitempty"`
}

// Text extracts the response text, trying choices[0].message.content first,
// then the flat content and result fields. ok is false when the response
// carries no usable text at all.
func (r *Response) Text() (text string, ok bool) {
	if r == nil {
		return "", false
	}
	if len(r.Choices) > 0 && r.Choices[0].Message.Content != "" {
		return r.Choices[0].Message.Content, true
	}
	if r.Content != "" {
		return r.Content, true
	}
	if r.Result != "" {
		return r.Result, true
	}
	return "", false
}

// Provider defines the interface for LLM backends.
type Provider interface {
	// Complete sends a chat message list and returns the raw response.
	Complete(ctx context.Context, messages []Message, opts CallOptions) (*Response, error)

	// ProviderName returns the provider identifier.
	ProviderName() string

	// Models returns the list of supported models.
	Models() []string
}
