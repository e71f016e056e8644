// Package llm is the foundation-model abstraction the research orchestrator
// and the context builder's optional local preprocessing call through. It
// is deliberately narrower than a general agent runtime: one request, one
// response, optionally carrying image attachments for vision-capable
// research answers — no tool calling, no streaming, no multi-turn state.
package llm

import "context"

// Message is one turn in a chat-completion request.
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// ImageAttachment is a single inline image to attach to the last user
// message of a vision-enabled request. Base64Data excludes the data: URL
// prefix; MimeType must be a valid image MIME type.
type ImageAttachment struct {
	MimeType   string
	Base64Data string
}

// Usage reports token accounting for a completed request, when the
// provider exposes it.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Response is a completed chat-completion call.
type Response struct {
	Message Message
	Usage   Usage
}

// Provider is the contract every foundation-model adapter satisfies.
type Provider interface {
	// Chat sends a text-only completion request.
	Chat(ctx context.Context, msgs []Message, model string) (Response, error)
	// ChatWithImages sends a completion request with images attached to the
	// final user message, for vision-enabled research answers.
	ChatWithImages(ctx context.Context, msgs []Message, images []ImageAttachment, model string) (Response, error)
}
