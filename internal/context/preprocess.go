package context

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/TuckerTucker/tkr-docusearch/internal/llm"
	"github.com/TuckerTucker/tkr-docusearch/internal/retrieve"
)

// Preprocessing strategies the local LLM pass accepts.
const (
	StrategyExtractFacts = "extract_facts"
	StrategyCompress     = "compress"
)

// PreprocessConfig wires an optional local-LLM pass over the assembled
// context text. Provider nil or Enabled false is a no-op.
type PreprocessConfig struct {
	Enabled  bool
	Strategy string // extract_facts | compress
	Provider llm.Provider
	Model    string
}

// PreprocessStats reports what the local pass did, for the research
// orchestrator's response metadata.
type PreprocessStats struct {
	Strategy    string
	InputChars  int
	OutputChars int
	// MarkersDropped counts [N] citation markers present in the input that
	// did not survive preprocessing, despite the instruction to preserve them.
	MarkersDropped int
}

var citationMarkerRe = regexp.MustCompile(`\[(\d+)\]`)

// Assemble builds the context block via Build, then runs it through the
// configured local-LLM preprocessing pass, if enabled.
func Assemble(ctx context.Context, hits []retrieve.Hit, cfg Config) (Result, error) {
	res := Build(hits, cfg)
	if !cfg.Preprocess.Enabled || cfg.Preprocess.Provider == nil || res.Text == "" {
		return res, nil
	}

	out, stats, err := preprocess(ctx, res.Text, cfg.Preprocess)
	if err != nil {
		return res, fmt.Errorf("context: preprocess: %w", err)
	}
	res.Text = out
	res.Preprocessed = stats
	return res, nil
}

func preprocess(ctx context.Context, text string, cfg PreprocessConfig) (string, *PreprocessStats, error) {
	strategy := cfg.Strategy
	if strategy == "" {
		strategy = StrategyCompress
	}

	task := "Compress the following context to its most load-bearing sentences, preserving meaning."
	if strategy == StrategyExtractFacts {
		task = "Extract the discrete facts relevant to answering a question from the following context, one per line."
	}

	msgs := []llm.Message{
		{Role: "system", Content: "You condense retrieved document context for a citation-based question answering system. " +
			"Every `[N]` citation marker in the input must appear verbatim, unchanged, in your output — never renumber, " +
			"merge, or drop one. Do not add commentary outside the condensed context."},
		{Role: "user", Content: task + "\n\n" + text},
	}

	resp, err := cfg.Provider.Chat(ctx, msgs, cfg.Model)
	if err != nil {
		return text, nil, err
	}
	out := strings.TrimSpace(resp.Message.Content)
	if out == "" {
		out = text
	}

	stats := &PreprocessStats{
		Strategy:       strategy,
		InputChars:     len(text),
		OutputChars:    len(out),
		MarkersDropped: countDroppedMarkers(text, out),
	}
	return out, stats, nil
}

func countDroppedMarkers(in, out string) int {
	present := make(map[string]bool)
	for _, m := range citationMarkerRe.FindAllStringSubmatch(out, -1) {
		present[m[1]] = true
	}
	dropped := 0
	seen := make(map[string]bool)
	for _, m := range citationMarkerRe.FindAllStringSubmatch(in, -1) {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		if !present[m[1]] {
			dropped++
		}
	}
	return dropped
}
