package parser

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
)

// PDFParser extracts per-page plain text from a PDF. It does not rasterize
// pages to images itself — that is internal/render.PDFRenderer's job, run
// as its own processor stage against the same file after parsing.
type PDFParser struct{}

func (p *PDFParser) Parse(ctx context.Context, path string) (docmodel.ParsedDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return docmodel.ParsedDocument{}, fmt.Errorf("pdf: open: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return docmodel.ParsedDocument{}, fmt.Errorf("pdf: stat: %w", err)
	}

	reader, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return docmodel.ParsedDocument{}, fmt.Errorf("pdf: new reader: %w", err)
	}

	numPages := reader.NumPage()
	pages := make([]docmodel.Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return docmodel.ParsedDocument{}, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, docmodel.Page{PageNumber: i})
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Per-page extraction failures degrade to an empty page rather
			// than failing the whole document.
			pages = append(pages, docmodel.Page{PageNumber: i})
			continue
		}
		pages = append(pages, docmodel.Page{
			PageNumber: i,
			Text:       strings.TrimSpace(text),
		})
	}

	return docmodel.ParsedDocument{
		FileType: "pdf",
		Pages:    pages,
	}, nil
}
