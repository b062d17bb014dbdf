package provider

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGoogleModel = "gemini-2.0-pro"

// GoogleProvider implements the Provider interface for Gemini models.
type GoogleProvider struct {
	client *genai.Client
}

// NewGoogleProvider creates a new Google Gemini provider.
func NewGoogleProvider(apiKey string) (*GoogleProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google API key is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}

	return &GoogleProvider{client: client}, nil
}

// ProviderName returns the provider identifier.
func (p *GoogleProvider) ProviderName() string {
	return "google"
}

// Models returns the list of supported Gemini models.
func (p *GoogleProvider) Models() []string {
	return []string{
		"gemini-2.0-pro",
	}
}

// Complete sends a message list to Gemini and normalizes the response.
// Gemini has no separate chat-message API surface here, so the message
// list is flattened into a single prompt with role prefixes.
func (p *GoogleProvider) Complete(ctx context.Context, messages []Message, opts CallOptions) (*Response, error) {
	model := opts.Model
	if model == "" {
		model = defaultGoogleModel
	}

	var sb strings.Builder
	for _, m := range messages {
		if m.Role == "system" {
			sb.WriteString(m.Content)
			sb.WriteString("\n\n")
			continue
		}
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, genai.Text(sb.String()), nil)
	if err != nil {
		return nil, fmt.Errorf("google API error: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("google returned no candidates")
	}

	var content string
	if resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				content += part.Text
			}
		}
	}

	return &Response{
		Choices: []Choice{{
			Message: Message{Role: "assistant", Content: content},
		}},
	}, nil
}
