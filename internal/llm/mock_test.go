package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMockProviderEchoesLastUserMessage(t *testing.T) {
	p := &MockProvider{}
	resp, err := p.Chat(context.Background(), []Message{
		{Role: "system", Content: "be helpful"},
		{Role: "user", Content: "what is in the chart?"},
	}, "")
	require.NoError(t, err)
	require.Equal(t, "echo: what is in the chart?", resp.Message.Content)
}

func TestMockProviderReportsImageCount(t *testing.T) {
	p := &MockProvider{}
	resp, err := p.ChatWithImages(context.Background(), []Message{{Role: "user", Content: "describe"}},
		[]ImageAttachment{{MimeType: "image/png", Base64Data: "abc"}}, "")
	require.NoError(t, err)
	require.Contains(t, resp.Message.Content, "1 image")
}

func TestMockProviderUsesFixedReply(t *testing.T) {
	p := &MockProvider{Reply: "fixed answer"}
	resp, err := p.Chat(context.Background(), []Message{{Role: "user", Content: "anything"}}, "")
	require.NoError(t, err)
	require.Equal(t, "fixed answer", resp.Message.Content)
}
