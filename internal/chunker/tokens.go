package chunker

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts tokens for a chunk of text, matching whatever
// tokenizer the embedding model uses (spec 4.3: "token count uses the same
// tokenizer as the embedding model; if unavailable, words × 1.3").
type TokenCounter interface {
	Count(text string) int
}

// TikTokenCounter counts tokens with the same BPE scheme OpenAI models use,
// a reasonable proxy for the embedding model's tokenizer.
type TikTokenCounter struct {
	tke *tiktoken.Tiktoken
}

// NewTikTokenCounter builds a TikTokenCounter for the given encoding (e.g.
// "cl100k_base"). Returns an error if the encoding can't be loaded, in which
// case callers should fall back to HeuristicCounter.
func NewTikTokenCounter(encoding string) (*TikTokenCounter, error) {
	tke, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return &TikTokenCounter{tke: tke}, nil
}

func (c *TikTokenCounter) Count(text string) int {
	return len(c.tke.Encode(text, nil, nil))
}

// HeuristicCounter estimates token count as words * 1.3, used when no
// tokenizer is available.
type HeuristicCounter struct{}

func (HeuristicCounter) Count(text string) int {
	words := len(strings.Fields(text))
	return int(float64(words)*1.3 + 0.5)
}

// NewDefaultCounter returns a TikTokenCounter if cl100k_base can be loaded,
// otherwise a HeuristicCounter.
func NewDefaultCounter() TokenCounter {
	if c, err := NewTikTokenCounter("cl100k_base"); err == nil {
		return c
	}
	return HeuristicCounter{}
}
