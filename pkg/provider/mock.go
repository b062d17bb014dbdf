package provider

import (
	"context"
	"sync"
)

// MockReply is one scripted step for the mock provider.
type MockReply struct {
	Response *Response
	Err      error
}

// MockProvider returns scripted responses for local runs and tests.
// Replies are consumed in order; once the script is exhausted the default
// content is returned for every further call.
type MockProvider struct {
	mu             sync.Mutex
	script         []MockReply
	defaultContent string

	Calls   int
	Prompts []string
}

// NewMockProvider creates a mock provider with a default response.
func NewMockProvider(defaultContent string) *MockProvider {
	return &MockProvider{defaultContent: defaultContent}
}

// Enqueue appends a plain-content reply to the script.
func (p *MockProvider) Enqueue(content string) *MockProvider {
	return p.EnqueueResponse(TextResponse(content))
}

// EnqueueError appends an error reply to the script.
func (p *MockProvider) EnqueueError(err error) *MockProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.script = append(p.script, MockReply{Err: err})
	return p
}

// EnqueueResponse appends a raw response to the script.
func (p *MockProvider) EnqueueResponse(resp *Response) *MockProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.script = append(p.script, MockReply{Response: resp})
	return p
}

// ProviderName returns the provider identifier.
func (p *MockProvider) ProviderName() string {
	return "mock"
}

// Models returns the list of supported mock models.
func (p *MockProvider) Models() []string {
	return []string{"mock-1"}
}

// Complete returns the next scripted reply.
func (p *MockProvider) Complete(_ context.Context, messages []Message, _ CallOptions) (*Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Calls++
	if len(messages) > 0 {
		p.Prompts = append(p.Prompts, messages[len(messages)-1].Content)
	}

	if len(p.script) > 0 {
		reply := p.script[0]
		p.script = p.script[1:]
		if reply.Err != nil {
			return nil, reply.Err
		}
		return reply.Response, nil
	}

	return TextResponse(p.defaultContent), nil
}

// TextResponse wraps plain content in a normalized chat response.
func TextResponse(content string) *Response {
	return &Response{
		Choices: []Choice{{
			Message:      Message{Role: "assistant", Content: content},
			FinishReason: "stop",
		}},
	}
}
