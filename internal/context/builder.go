// Package context assembles ranked retrieval hits into the numbered,
// citable context block sent to the foundation LLM, within a token budget,
// with an optional local-LLM compression pass before the final prompt is
// built.
package context

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/TuckerTucker/tkr-docusearch/internal/retrieve"
)

const (
	maxPreviewChars   = 1000
	charsPerTokenEst  = 4
	noTextFallback    = "(no extracted text available for this page)"
)

// Config controls one Build call.
type Config struct {
	NumSources    int
	VisionEnabled bool
	MaxImages     int
	ImageBaseURL  string
	TokenBudget   int // 0 disables budgeting
	Preprocess    PreprocessConfig
}

// SourceRef identifies one numbered block in the built context, for
// citation binding once the LLM responds.
type SourceRef struct {
	Index    int // 1-based, matches the literal [N] marker
	DocID    string
	Filename string
	Page     int
	IsVisual bool
}

// Result is the assembled context ready to hand to the research orchestrator.
type Result struct {
	Text             string
	Sources          []SourceRef
	ImageURLs        []string
	ContextTruncated bool
	Preprocessed     *PreprocessStats
}

// Build formats hits into numbered citation blocks, accumulates them within
// the configured token budget, and collects image URLs for vision mode. It
// never reorders hits to make them fit; on overflow it truncates only the
// last block it was able to include.
func Build(hits []retrieve.Hit, cfg Config) Result {
	if cfg.NumSources <= 0 {
		cfg.NumSources = 10
	}
	if len(hits) > cfg.NumSources {
		hits = hits[:cfg.NumSources]
	}

	var blocks []string
	var sources []SourceRef
	budget := cfg.TokenBudget
	used := 0
	truncated := false

	for i, h := range hits {
		n := i + 1
		text := sourceText(h)
		text = truncateAtSentence(text, maxPreviewChars)
		block := formatBlock(n, h, text)

		if budget > 0 {
			cost := estimateTokens(block)
			if used+cost > budget {
				remaining := budget - used
				if remaining <= 0 {
					truncated = true
					break
				}
				allowedChars := remaining * charsPerTokenEst
				trimmedText := truncateAtSentence(text, allowedChars)
				block = formatBlock(n, h, trimmedText)
				blocks = append(blocks, block)
				sources = append(sources, sourceRef(n, h))
				truncated = true
				break
			}
			used += cost
		}

		blocks = append(blocks, block)
		sources = append(sources, sourceRef(n, h))
	}

	res := Result{
		Text:             strings.Join(blocks, "\n\n"),
		Sources:          sources,
		ContextTruncated: truncated,
	}
	if cfg.VisionEnabled {
		res.ImageURLs = collectImageURLs(hits, cfg)
	}
	return res
}

func sourceRef(n int, h retrieve.Hit) SourceRef {
	return SourceRef{Index: n, DocID: h.DocID, Filename: h.Filename, Page: h.Page, IsVisual: h.IsVisual}
}

func formatBlock(n int, h retrieve.Hit, text string) string {
	kind := "Text Match"
	if h.IsVisual {
		kind = "Visual Match"
	}
	return fmt.Sprintf("[%d] [%s] %s, Page %d\n%s", n, kind, h.Filename, h.Page, text)
}

// sourceText picks the hit's preview text: a text-chunk preview for text
// hits, the page's rendered-page text (OCR/caption) for visual hits,
// falling back to a fixed placeholder when neither is available.
func sourceText(h retrieve.Hit) string {
	if h.IsVisual {
		if pc := strings.TrimSpace(h.Metadata["page_context"]); pc != "" {
			return pc
		}
		if tp := strings.TrimSpace(h.Metadata["text_preview"]); tp != "" {
			return tp
		}
		return noTextFallback
	}
	if tp := strings.TrimSpace(h.Metadata["text_preview"]); tp != "" {
		return tp
	}
	return noTextFallback
}

// truncateAtSentence cuts s to n runes. When the last sentence-ending
// punctuation in that cut lies beyond byte offset n/2, the cut backs up to
// it; otherwise the n-rune cut is kept and "…" is appended, so the result
// can be n+1 runes long.
func truncateAtSentence(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	cut := string(r[:n])
	best := -1
	for _, sep := range []string{". ", "! ", "? ", ".\n"} {
		if idx := strings.LastIndex(cut, sep); idx > best {
			best = idx + len(sep) - 1
		}
	}
	if best > n/2 {
		return strings.TrimSpace(cut[:best+1])
	}
	return strings.TrimSpace(cut) + "…"
}

func estimateTokens(s string) int {
	n := len([]rune(s)) / charsPerTokenEst
	if n == 0 {
		n = 1
	}
	return n
}

// collectImageURLs builds absolute, publicly-reachable page image URLs for
// the top MaxImages visual hits, in rank order. A blank or loopback base
// never produces a URL, since those can't be dereferenced by a remote LLM
// provider.
func collectImageURLs(hits []retrieve.Hit, cfg Config) []string {
	base := strings.TrimSuffix(strings.TrimSpace(cfg.ImageBaseURL), "/")
	if base == "" || isLoopback(base) {
		return nil
	}
	max := cfg.MaxImages
	if max <= 0 {
		max = 10
	}

	var urls []string
	for _, h := range hits {
		if !h.IsVisual {
			continue
		}
		if len(urls) >= max {
			break
		}
		urls = append(urls, fmt.Sprintf("%s/images/%s/page%s.png", base, h.DocID, zeroPad(h.Page, 3)))
	}
	return urls
}

func isLoopback(base string) bool {
	lower := strings.ToLower(base)
	for _, host := range []string{"127.0.0.1", "localhost", "::1", "0.0.0.0"} {
		if strings.Contains(lower, host) {
			return true
		}
	}
	return false
}

func zeroPad(n, width int) string {
	s := strconv.Itoa(n)
	for len(s) < width {
		s = "0" + s
	}
	return s
}
