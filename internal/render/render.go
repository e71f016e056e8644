// Package render rasterizes each page of a parsed document to an image —
// the step the rest of the pipeline embeds visually and persists to object
// storage. PDF pages get a real MuPDF render via go-fitz; formats with no
// native page layout (DOCX/PPTX) get a synthesized page image built from
// their extracted text, since no layout-rasterizer for those formats exists
// anywhere in the stack (see DESIGN.md).
package render

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
)

// PageRenderer rasterizes one source file into one image per page. dpi and
// scale come from config.RenderConfig (PAGE_RENDER_DPI / IMAGES_SCALE).
type PageRenderer interface {
	RenderPages(ctx context.Context, path string, doc docmodel.ParsedDocument, dpi int, scale float64) ([]docmodel.RenderedPage, error)
}

// Registry dispatches to a PageRenderer by lowercased file extension,
// mirroring parser.Registry.
type Registry struct {
	byExt map[string]PageRenderer
}

// NewRegistry wires the real renderers for every format that produces
// visual pages: PDF (true raster) and DOCX/PPTX (synthesized canvas).
// Audio formats have no registered renderer, which is not an error —
// RenderPages just returns nothing for them.
func NewRegistry() *Registry {
	canvas := &CanvasRenderer{}
	return &Registry{byExt: map[string]PageRenderer{
		".pdf":  &PDFRenderer{},
		".docx": canvas,
		".pptx": canvas,
	}}
}

// Register overrides or adds a renderer for an extension (lowercase, with dot).
func (r *Registry) Register(ext string, pr PageRenderer) {
	r.byExt[strings.ToLower(ext)] = pr
}

// RenderPages detects the format from path's extension and dispatches. An
// unregistered extension returns no pages rather than an error — the
// processor's render stage treats that the same as a document with no
// visual pages at all.
func (r *Registry) RenderPages(ctx context.Context, path string, doc docmodel.ParsedDocument, dpi int, scale float64) ([]docmodel.RenderedPage, error) {
	ext := strings.ToLower(filepath.Ext(path))
	pr, ok := r.byExt[ext]
	if !ok {
		return nil, nil
	}
	return pr.RenderPages(ctx, path, doc, dpi, scale)
}
