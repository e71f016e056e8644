// Package anthropic adapts llm.Provider to the Anthropic Messages API.
package anthropic

import (
	"context"
	"net/http"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/TuckerTucker/tkr-docusearch/internal/llm"
)

const defaultMaxTokens int64 = 1024

// Client wraps the official Anthropic SDK behind llm.Provider.
type Client struct {
	sdk       anthropic.Client
	model     string
	maxTokens int64
}

// New builds a Client. apiKey and defaultModel come from config; defaultModel
// is used whenever a call passes an empty model string.
func New(apiKey, defaultModel string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(apiKey)),
		option.WithHTTPClient(httpClient),
	}
	model := strings.TrimSpace(defaultModel)
	if model == "" {
		model = string(anthropic.ModelClaude3_7SonnetLatest)
	}
	return &Client{sdk: anthropic.NewClient(opts...), model: model, maxTokens: defaultMaxTokens}
}

func (c *Client) pickModel(model string) string {
	if strings.TrimSpace(model) != "" {
		return model
	}
	return c.model
}

func (c *Client) Chat(ctx context.Context, msgs []llm.Message, model string) (llm.Response, error) {
	return c.chat(ctx, msgs, nil, model)
}

func (c *Client) ChatWithImages(ctx context.Context, msgs []llm.Message, images []llm.ImageAttachment, model string) (llm.Response, error) {
	return c.chat(ctx, msgs, images, model)
}

func (c *Client) chat(ctx context.Context, msgs []llm.Message, images []llm.ImageAttachment, model string) (llm.Response, error) {
	sys, converted := adaptMessages(msgs, images)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.pickModel(model)),
		Messages:  converted,
		System:    sys,
		MaxTokens: c.maxTokens,
	}

	resp, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		return llm.Response{}, err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}

	return llm.Response{
		Message: llm.Message{Role: "assistant", Content: text.String()},
		Usage: llm.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
		},
	}, nil
}

// adaptMessages converts llm.Message turns into Anthropic's system +
// message-list shape, attaching images to the final user turn's content
// blocks when present.
func adaptMessages(msgs []llm.Message, images []llm.ImageAttachment) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var system []anthropic.TextBlockParam
	out := make([]anthropic.MessageParam, 0, len(msgs))
	lastUser := -1

	for _, m := range msgs {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		switch role {
		case "system":
			if strings.TrimSpace(m.Content) != "" {
				system = append(system, anthropic.TextBlockParam{Text: m.Content})
			}
		case "assistant":
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
			lastUser = len(out) - 1
		}
	}

	if len(images) > 0 && lastUser >= 0 {
		blocks := append([]anthropic.ContentBlockParamUnion{}, out[lastUser].Content...)
		for _, img := range images {
			if strings.TrimSpace(img.MimeType) == "" || strings.TrimSpace(img.Base64Data) == "" {
				continue
			}
			blocks = append(blocks, anthropic.NewImageBlock(anthropic.Base64ImageSourceParam{
				Data:      img.Base64Data,
				MediaType: anthropic.Base64ImageSourceMediaType(img.MimeType),
			}))
		}
		out[lastUser].Content = blocks
	}

	return system, out
}
