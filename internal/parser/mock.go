package parser

import (
	"context"
	"fmt"

	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
)

// MockParser produces a deterministic ParsedDocument without touching the
// filesystem, for processor/chunker tests that don't want real file I/O.
type MockParser struct {
	NumPages    int
	WordsPerPage int
	Err         error
}

func (m *MockParser) Parse(ctx context.Context, path string) (docmodel.ParsedDocument, error) {
	if m.Err != nil {
		return docmodel.ParsedDocument{}, m.Err
	}
	n := m.NumPages
	if n <= 0 {
		n = 1
	}
	words := m.WordsPerPage
	if words <= 0 {
		words = 50
	}

	pages := make([]docmodel.Page, n)
	for i := range pages {
		var text string
		for w := 0; w < words; w++ {
			text += fmt.Sprintf("word%d ", w)
		}
		pages[i] = docmodel.Page{PageNumber: i + 1, Text: text}
	}
	return docmodel.ParsedDocument{FileType: "mock", Pages: pages}, nil
}
