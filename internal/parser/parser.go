// Package parser implements the external parser contract: turning a source
// file on disk into a docmodel.ParsedDocument. The parsing library itself is
// an out-of-scope collaborator per the system's purpose statement; this
// package is the narrow boundary the rest of the pipeline depends on.
package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
)

// Parser turns one source file into a ParsedDocument. Implementations must
// not mutate path; DocID/Filename are filled in by the caller, not the parser.
type Parser interface {
	Parse(ctx context.Context, path string) (docmodel.ParsedDocument, error)
}

// Registry dispatches to a Parser by lowercased file extension.
type Registry struct {
	byExt map[string]Parser
}

// NewRegistry builds a registry wired with the real adapters for every
// accepted format (spec section 6): PDF, DOCX, PPTX, MP3, WAV.
func NewRegistry() *Registry {
	office := &OfficeParser{}
	audio := &AudioParser{}
	return &Registry{byExt: map[string]Parser{
		".pdf":  &PDFParser{},
		".docx": office,
		".pptx": office,
		".mp3":  audio,
		".wav":  audio,
	}}
}

// Register overrides or adds a parser for an extension (lowercase, with dot).
func (r *Registry) Register(ext string, p Parser) {
	r.byExt[strings.ToLower(ext)] = p
}

// Parse detects the format from the file extension and dispatches.
func (r *Registry) Parse(ctx context.Context, path string) (docmodel.ParsedDocument, error) {
	ext := strings.ToLower(filepath.Ext(path))
	p, ok := r.byExt[ext]
	if !ok {
		return docmodel.ParsedDocument{}, fmt.Errorf("parser: unsupported file type %q", ext)
	}
	return p.Parse(ctx, path)
}
