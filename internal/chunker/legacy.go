package chunker

import (
	"strings"

	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
)

// LegacyChunker splits concatenated page text by word count with overlap.
// Used as a fallback when the hybrid chunker fails.
type LegacyChunker struct {
	cfg Config
}

func (l *LegacyChunker) Chunk(doc docmodel.ParsedDocument, ds docmodel.DocumentStructure) ([]docmodel.TextChunk, error) {
	if len(doc.Pages) == 0 {
		return doc.Chunks, nil
	}

	overlapWords := l.cfg.MinChunkTokens / 4
	if overlapWords < 0 {
		overlapWords = 0
	}
	targetWords := int(float64(l.cfg.MaxChunkTokens) / 1.3)
	if targetWords < 1 {
		targetWords = 1
	}

	var out []docmodel.TextChunk
	nextID := 0
	for _, page := range doc.Pages {
		words := strings.Fields(page.Text)
		if len(words) == 0 {
			continue
		}
		start := 0
		for start < len(words) {
			end := start + targetWords
			if end > len(words) {
				end = len(words)
			}
			text := strings.Join(words[start:end], " ")
			out = append(out, docmodel.TextChunk{
				ChunkID:    nextID,
				Text:       text,
				PageNumber: page.PageNumber,
				TokenCount: l.cfg.Counter.Count(text),
				Context: docmodel.ChunkContext{},
			})
			nextID++
			if end == len(words) {
				break
			}
			next := end - overlapWords
			if next <= start {
				next = end
			}
			start = next
		}
	}
	return append(out, doc.Chunks...), nil
}
