// Package openai adapts llm.Provider to the OpenAI chat completions API.
package openai

import (
	"context"
	"net/http"
	"strings"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/TuckerTucker/tkr-docusearch/internal/llm"
)

// Client wraps the official OpenAI SDK behind llm.Provider.
type Client struct {
	sdk     sdk.Client
	model   string
	baseURL string
}

// New builds a Client. baseURL is optional (set for self-hosted/compatible
// endpoints); an empty value uses the SDK's default.
func New(apiKey, baseURL, defaultModel string, httpClient *http.Client) *Client {
	opts := []option.RequestOption{option.WithAPIKey(strings.TrimSpace(apiKey))}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(baseURL, "/")))
	}
	return &Client{sdk: sdk.NewClient(opts...), model: defaultModel, baseURL: baseURL}
}

func (c *Client) pickModel(model string) string {
	if strings.TrimSpace(model) != "" {
		return model
	}
	return c.model
}

func (c *Client) Chat(ctx context.Context, msgs []llm.Message, model string) (llm.Response, error) {
	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(c.pickModel(model)),
		Messages: adaptMessages(msgs),
	}
	return c.complete(ctx, params)
}

func (c *Client) ChatWithImages(ctx context.Context, msgs []llm.Message, images []llm.ImageAttachment, model string) (llm.Response, error) {
	adapted := adaptMessages(msgs)
	attachImages(adapted, images)
	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(c.pickModel(model)),
		Messages: adapted,
	}
	return c.complete(ctx, params)
}

func (c *Client) complete(ctx context.Context, params sdk.ChatCompletionNewParams) (llm.Response, error) {
	comp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return llm.Response{}, err
	}
	if len(comp.Choices) == 0 {
		return llm.Response{}, nil
	}
	msg := comp.Choices[0].Message
	return llm.Response{
		Message: llm.Message{Role: "assistant", Content: msg.Content},
		Usage: llm.Usage{
			PromptTokens:     int(comp.Usage.PromptTokens),
			CompletionTokens: int(comp.Usage.CompletionTokens),
		},
	}, nil
}

func adaptMessages(msgs []llm.Message) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch strings.ToLower(strings.TrimSpace(m.Role)) {
		case "system":
			out = append(out, sdk.SystemMessage(m.Content))
		case "assistant":
			out = append(out, sdk.AssistantMessage(m.Content))
		default:
			out = append(out, sdk.UserMessage(m.Content))
		}
	}
	return out
}

// attachImages replaces the final user message's content with a
// text-plus-image-parts array, in place.
func attachImages(msgs []sdk.ChatCompletionMessageParamUnion, images []llm.ImageAttachment) {
	if len(images) == 0 {
		return
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].OfUser == nil {
			continue
		}
		userMsg := msgs[i].OfUser
		var parts []sdk.ChatCompletionContentPartUnionParam
		if userMsg.Content.OfString.Valid() && userMsg.Content.OfString.Value != "" {
			parts = append(parts, sdk.ChatCompletionContentPartUnionParam{
				OfText: &sdk.ChatCompletionContentPartTextParam{Text: userMsg.Content.OfString.Value},
			})
		}
		for _, img := range images {
			if strings.TrimSpace(img.MimeType) == "" || strings.TrimSpace(img.Base64Data) == "" {
				continue
			}
			dataURL := "data:" + img.MimeType + ";base64," + img.Base64Data
			parts = append(parts, sdk.ChatCompletionContentPartUnionParam{
				OfImageURL: &sdk.ChatCompletionContentPartImageParam{
					ImageURL: sdk.ChatCompletionContentPartImageImageURLParam{URL: dataURL},
				},
			})
		}
		msgs[i] = sdk.ChatCompletionMessageParamUnion{
			OfUser: &sdk.ChatCompletionUserMessageParam{
				Content: sdk.ChatCompletionUserMessageParamContentUnion{OfArrayOfContentParts: parts},
			},
		}
		return
	}
}
