// Package chunker implements the smart chunker: splitting a parsed
// document's page text into token-bounded, context-annotated TextChunks.
package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
)

// Config controls chunk boundaries; defaults mirror spec section 6.
type Config struct {
	Strategy        string // "hybrid" | "legacy"
	MaxChunkTokens  int
	MinChunkTokens  int
	MergePeerChunks bool
	Counter         TokenCounter
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		Strategy:        "hybrid",
		MaxChunkTokens:  512,
		MinChunkTokens:  100,
		MergePeerChunks: true,
		Counter:         NewDefaultCounter(),
	}
}

// Chunker splits a parsed document into TextChunks.
type Chunker interface {
	Chunk(doc docmodel.ParsedDocument, ds docmodel.DocumentStructure) ([]docmodel.TextChunk, error)
}

// New selects hybrid or legacy by cfg.Strategy.
func New(cfg Config) Chunker {
	if cfg.Counter == nil {
		cfg.Counter = NewDefaultCounter()
	}
	if cfg.Strategy == "legacy" {
		return &LegacyChunker{cfg: cfg}
	}
	return &HybridChunker{cfg: cfg}
}

var headingLineRe = regexp.MustCompile(`(?m)^(#{1,4})\s+(.+)$`)
var captionRefRe = regexp.MustCompile(`(?i)(figure|table)\s*(\d+)`)

// HybridChunker walks page text in reading order, starting a new chunk on a
// heading, a page break (once the running chunk meets MinChunkTokens), or on
// exceeding MaxChunkTokens; a near-full chunk may absorb a tiny trailing
// fragment instead of emitting a sub-minimum chunk ("merge peers").
type HybridChunker struct {
	cfg Config
}

func (h *HybridChunker) Chunk(doc docmodel.ParsedDocument, ds docmodel.DocumentStructure) ([]docmodel.TextChunk, error) {
	if len(doc.Pages) == 0 {
		// Non-paged formats (already-chunked audio) pass through untouched;
		// AttachAudioContext is responsible for their context.
		return doc.Chunks, nil
	}

	var out []docmodel.TextChunk
	stack := newPathStack()
	nextID := 0

	var buf strings.Builder
	var bufPage int
	var parents []string
	flush := func(force bool) {
		text := strings.TrimSpace(buf.String())
		if text == "" {
			buf.Reset()
			return
		}
		tokens := h.cfg.Counter.Count(text)
		if !force && tokens < h.cfg.MinChunkTokens && len(out) > 0 && h.cfg.MergePeerChunks {
			maxAbsorb := int(float64(h.cfg.MaxChunkTokens) * 1.5)
			prev := &out[len(out)-1]
			merged := prev.Text + "\n" + text
			if h.cfg.Counter.Count(merged) <= maxAbsorb {
				prev.Text = merged
				prev.TokenCount = h.cfg.Counter.Count(merged)
				buf.Reset()
				return
			}
		}
		out = append(out, docmodel.TextChunk{
			ChunkID:    nextID,
			Text:       text,
			PageNumber: bufPage,
			TokenCount: tokens,
			Context: docmodel.ChunkContext{
				SectionPath:     strings.Join(parents, " > "),
				ParentHeadings:  append([]string(nil), parents...),
				ElementTypes:    elementTypesFor(text),
				RelatedElements: relatedElementsFor(text, ds, bufPage),
			},
		})
		nextID++
		buf.Reset()
	}

	for _, page := range doc.Pages {
		lines := strings.Split(page.Text, "\n")
		if buf.Len() > 0 && h.cfg.Counter.Count(buf.String()) >= h.cfg.MinChunkTokens {
			flush(false)
		}
		bufPage = page.PageNumber

		for _, line := range lines {
			if m := headingLineRe.FindStringSubmatch(line); m != nil {
				if buf.Len() > 0 {
					flush(false)
					bufPage = page.PageNumber
				}
				level := headingLevelForMarker(len(m[1]))
				parents = stack.pushParents(level, strings.TrimSpace(m[2]))
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
				buf.WriteString(line)
				continue
			}

			parts := []string{line}
			if h.cfg.Counter.Count(line) > h.cfg.MaxChunkTokens {
				parts = strings.Fields(line)
			}
			for i, part := range parts {
				if buf.Len() > 0 {
					if i == 0 {
						buf.WriteString("\n")
					} else {
						buf.WriteString(" ")
					}
				}
				buf.WriteString(part)

				if h.cfg.Counter.Count(buf.String()) > h.cfg.MaxChunkTokens {
					flush(true)
					bufPage = page.PageNumber
				}
			}
		}
	}
	flush(true)

	chunks, err := appendAudioChunks(out, doc.Chunks)
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

func appendAudioChunks(textChunks, audioChunks []docmodel.TextChunk) ([]docmodel.TextChunk, error) {
	if len(audioChunks) == 0 {
		return textChunks, nil
	}
	return append(textChunks, audioChunks...), nil
}

func elementTypesFor(text string) []string {
	var types []string
	if headingLineRe.MatchString(text) {
		types = append(types, "heading")
	}
	if captionRefRe.MatchString(text) {
		types = append(types, "reference")
	}
	return types
}

func relatedElementsFor(text string, ds docmodel.DocumentStructure, pageNum int) []string {
	matches := captionRefRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	var pics, tables []docmodel.PictureInfo
	var tbls []docmodel.TableInfo
	for _, p := range ds.Pages {
		if p.PageNum != pageNum {
			continue
		}
		pics = append(pics, p.Pictures...)
		tbls = append(tbls, p.Tables...)
	}
	_ = tables

	var out []string
	for i, m := range matches {
		kind := strings.ToLower(m[1])
		switch kind {
		case "figure":
			if i < len(pics) {
				out = append(out, pics[i].PictureID)
			}
		case "table":
			if i < len(tbls) {
				out = append(out, tbls[i].TableID)
			}
		}
	}
	return out
}

func headingLevelForMarker(hashes int) docmodel.HeadingLevel {
	switch hashes {
	case 1:
		return docmodel.LevelTitle
	case 2:
		return docmodel.LevelSection
	case 3:
		return docmodel.LevelSubsection
	default:
		return docmodel.LevelParagraph
	}
}

// pathStack mirrors the structure extractor's heading stack so the chunker's
// section_path/parent_headings match what Extract computed.
type pathStack struct {
	entries []struct {
		level docmodel.HeadingLevel
		text  string
	}
}

func newPathStack() *pathStack { return &pathStack{} }

func (s *pathStack) pushParents(level docmodel.HeadingLevel, text string) []string {
	for len(s.entries) > 0 && s.entries[len(s.entries)-1].level.Rank() >= level.Rank() {
		s.entries = s.entries[:len(s.entries)-1]
	}
	s.entries = append(s.entries, struct {
		level docmodel.HeadingLevel
		text  string
	}{level, text})

	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.text
	}
	return out
}

// ErrEmptyDocument is not returned by HybridChunker or LegacyChunker: given a
// document with no pages, both return its own Chunks (possibly none) and a
// nil error.
var ErrEmptyDocument = fmt.Errorf("chunker: document has no pages or chunks to split")
