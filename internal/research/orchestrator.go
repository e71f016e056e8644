// Package research implements the research orchestrator: validate a
// question, run two-stage retrieval, assemble a citable context block, call
// the foundation LLM, and parse its citation markers back into structured
// references.
package research

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/TuckerTucker/tkr-docusearch/internal/apperrors"
	rcontext "github.com/TuckerTucker/tkr-docusearch/internal/context"
	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
	"github.com/TuckerTucker/tkr-docusearch/internal/llm"
	"github.com/TuckerTucker/tkr-docusearch/internal/retrieve"
	"github.com/TuckerTucker/tkr-docusearch/internal/vectorstore"
)

const (
	minQueryLen = 3
	maxQueryLen = 500

	refusalAnswer = "I don't have any relevant documents to answer this question."
)

const systemPrompt = `You are a research assistant answering questions strictly from the
numbered context blocks provided below the question. Every factual claim in your answer
must carry a citation to the block(s) it came from, using the literal form "[N]" where N
is the block's number. Never fabricate a citation number that wasn't given to you. If the
context doesn't contain enough information to answer, say so plainly instead of guessing.`

// ImageFetcher turns one of the context builder's page image URLs into an
// inline attachment bytes+mime payload for a vision-capable LLM call.
type ImageFetcher func(ctx context.Context, url string) (llm.ImageAttachment, error)

// Config is the orchestrator's fixed, per-deployment behavior.
type Config struct {
	Model         string
	Temperature   float64 // documented constraint only: spec caps this at 0.3; the narrowed llm.Provider contract has no per-call knob for it, so concrete providers must be constructed with this already baked in.
	MaxTokens     int
	NumSources    int
	VisionEnabled bool
	MaxImages     int
	ImageBaseURL  string
	TokenBudget   int
	Preprocess    rcontext.PreprocessConfig
}

// AskOptions overrides per-request retrieval parameters.
type AskOptions struct {
	NumSources int
	Mode       retrieve.Mode
	Filters    vectorstore.Filters
}

// Orchestrator answers questions grounded in the document corpus.
type Orchestrator struct {
	engine     *retrieve.Engine
	provider   llm.Provider
	cfg        Config
	fetchImage ImageFetcher

	log     Logger
	metrics Metrics
	clock   Clock
}

func New(engine *retrieve.Engine, provider llm.Provider, cfg Config, opts ...Option) *Orchestrator {
	if cfg.NumSources <= 0 {
		cfg.NumSources = 10
	}
	if cfg.MaxImages <= 0 {
		cfg.MaxImages = 10
	}
	o := &Orchestrator{
		engine:   engine,
		provider: provider,
		cfg:      cfg,
		log:      NoopLogger{},
		metrics:  NoopMetrics{},
		clock:    SystemClock{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Ask runs the full research flow for one question.
func (o *Orchestrator) Ask(ctx context.Context, query string, opts AskOptions) (docmodel.ResearchResult, error) {
	totalStart := o.clock.Now()

	q := strings.TrimSpace(query)
	qLen := utf8.RuneCountInString(q)
	if qLen < minQueryLen || qLen > maxQueryLen {
		return docmodel.ResearchResult{}, apperrors.Validation(
			fmt.Sprintf("query must be %d-%d characters, got %d", minQueryLen, maxQueryLen, qLen), nil)
	}

	numSources := opts.NumSources
	if numSources <= 0 {
		numSources = o.cfg.NumSources
	}

	searchStart := o.clock.Now()
	hits, err := o.engine.Search(ctx, q, retrieve.Options{
		Mode:       opts.Mode,
		NumSources: numSources,
		Filters:    opts.Filters,
	})
	if err != nil {
		return docmodel.ResearchResult{}, fmt.Errorf("research: search: %w", err)
	}
	searchMS := o.clock.Now().Sub(searchStart)
	o.metrics.ObserveHistogram("research_stage_ms", float64(searchMS.Milliseconds()), map[string]string{"stage": "search"})

	if len(hits) == 0 {
		totalMS := o.clock.Now().Sub(totalStart)
		o.metrics.IncCounter("research_refusals_total", nil)
		return docmodel.ResearchResult{
			AnswerMarkdown: refusalAnswer,
			References:     nil,
			Metadata: map[string]any{
				"search_latency_ms": searchMS.Milliseconds(),
				"llm_latency_ms":    int64(0),
				"total_latency_ms":  totalMS.Milliseconds(),
				"tokens":            0,
				"cost_est":          0.0,
				"vision_enabled":    o.cfg.VisionEnabled,
				"images_sent":       0,
			},
		}, nil
	}

	ctxResult, err := rcontext.Assemble(ctx, hits, rcontext.Config{
		NumSources:    numSources,
		VisionEnabled: o.cfg.VisionEnabled,
		MaxImages:     o.cfg.MaxImages,
		ImageBaseURL:  o.cfg.ImageBaseURL,
		TokenBudget:   o.cfg.TokenBudget,
		Preprocess:    o.cfg.Preprocess,
	})
	if err != nil {
		return docmodel.ResearchResult{}, fmt.Errorf("research: context: %w", err)
	}

	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: ctxResult.Text + "\n\nQuestion: " + q},
	}

	llmStart := o.clock.Now()
	var resp llm.Response
	imagesSent := 0
	if o.cfg.VisionEnabled && len(ctxResult.ImageURLs) > 0 && o.fetchImage != nil {
		attachments := o.fetchAttachments(ctx, ctxResult.ImageURLs)
		imagesSent = len(attachments)
		resp, err = o.provider.ChatWithImages(ctx, messages, attachments, o.cfg.Model)
	} else {
		resp, err = o.provider.Chat(ctx, messages, o.cfg.Model)
	}
	if err != nil {
		return docmodel.ResearchResult{}, fmt.Errorf("research: llm call: %w", err)
	}
	llmMS := o.clock.Now().Sub(llmStart)
	o.metrics.ObserveHistogram("research_stage_ms", float64(llmMS.Milliseconds()), map[string]string{"stage": "llm"})

	answer, refs, dropped := applyCitations(resp.Message.Content, ctxResult.Sources, o.log)
	if dropped > 0 {
		o.metrics.IncCounter("research_citations_dropped_total", map[string]string{"count": fmt.Sprintf("%d", dropped)})
	}

	totalMS := o.clock.Now().Sub(totalStart)
	o.metrics.ObserveHistogram("research_stage_ms", float64(totalMS.Milliseconds()), map[string]string{"stage": "total"})

	totalTokens := resp.Usage.PromptTokens + resp.Usage.CompletionTokens
	metadata := map[string]any{
		"search_latency_ms": searchMS.Milliseconds(),
		"llm_latency_ms":    llmMS.Milliseconds(),
		"total_latency_ms":  totalMS.Milliseconds(),
		"tokens":            totalTokens,
		"cost_est":          estimateCost(o.cfg.Model, resp.Usage),
		"vision_enabled":    o.cfg.VisionEnabled,
		"images_sent":       imagesSent,
		"context_truncated": ctxResult.ContextTruncated,
	}
	if ctxResult.Preprocessed != nil {
		metadata["preprocessing_strategy"] = ctxResult.Preprocessed.Strategy
		metadata["preprocessing_input_chars"] = ctxResult.Preprocessed.InputChars
		metadata["preprocessing_output_chars"] = ctxResult.Preprocessed.OutputChars
	}

	return docmodel.ResearchResult{
		AnswerMarkdown: answer,
		References:     refs,
		Metadata:       metadata,
	}, nil
}

func (o *Orchestrator) fetchAttachments(ctx context.Context, urls []string) []llm.ImageAttachment {
	out := make([]llm.ImageAttachment, 0, len(urls))
	for _, u := range urls {
		att, err := o.fetchImage(ctx, u)
		if err != nil {
			o.log.Error("image fetch failed, skipping", map[string]any{"url": u, "error": err.Error()})
			continue
		}
		out = append(out, att)
	}
	return out
}

// modelRatesPer1K is a rough cost table (USD per 1,000 tokens, input/output)
// used only to populate the wire contract's cost_est field; unlisted models
// fall back to a conservative default rate.
var modelRatesPer1K = map[string][2]float64{
	"claude-3-7-sonnet-latest": {0.003, 0.015},
	"gpt-4o":                   {0.0025, 0.01},
	"gpt-4o-mini":              {0.00015, 0.0006},
}

const defaultInRate, defaultOutRate = 0.003, 0.015

func estimateCost(model string, usage llm.Usage) float64 {
	inRate, outRate := defaultInRate, defaultOutRate
	if rates, ok := modelRatesPer1K[model]; ok {
		inRate, outRate = rates[0], rates[1]
	}
	return float64(usage.PromptTokens)/1000*inRate + float64(usage.CompletionTokens)/1000*outRate
}
