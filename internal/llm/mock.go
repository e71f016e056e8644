package llm

import (
	"context"
	"fmt"
)

// MockProvider is a deterministic Provider for tests and local dev, with no
// network calls. Reply, if set, is returned verbatim; otherwise the last
// user message's content is echoed back.
type MockProvider struct {
	Reply string
	Err   error
}

func (m *MockProvider) Chat(ctx context.Context, msgs []Message, model string) (Response, error) {
	return m.ChatWithImages(ctx, msgs, nil, model)
}

func (m *MockProvider) ChatWithImages(ctx context.Context, msgs []Message, images []ImageAttachment, model string) (Response, error) {
	if m.Err != nil {
		return Response{}, m.Err
	}
	if m.Reply != "" {
		return Response{Message: Message{Role: "assistant", Content: m.Reply}}, nil
	}
	var last string
	for _, msg := range msgs {
		if msg.Role != "system" {
			last = msg.Content
		}
	}
	content := fmt.Sprintf("echo: %s", last)
	if len(images) > 0 {
		content += fmt.Sprintf(" (with %d image(s))", len(images))
	}
	return Response{Message: Message{Role: "assistant", Content: content}}, nil
}
