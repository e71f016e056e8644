package parser

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
)

// OfficeParser extracts text from the OOXML body of DOCX/PPTX packages.
// Word documents are a single "page" (one TextChunk-bearing page); slide
// decks emit one page per slide. Neither format has a native page raster
// embedded in the package; internal/render.CanvasRenderer synthesizes a
// page image from this parser's extracted text as the processor's render
// stage, rather than leaving Page.ImagePath empty.
type OfficeParser struct{}

var (
	wordParagraphBreak = regexp.MustCompile(`</w:p>`)
	wordTextRun         = regexp.MustCompile(`<w:t[^>]*>(.*?)</w:t>`)
	slideTextRun        = regexp.MustCompile(`<a:t>(.*?)</a:t>`)
)

func (p *OfficeParser) Parse(ctx context.Context, path string) (docmodel.ParsedDocument, error) {
	ext := strings.ToLower(filepath.Ext(path))
	zr, err := zip.OpenReader(path)
	if err != nil {
		return docmodel.ParsedDocument{}, fmt.Errorf("office: open zip: %w", err)
	}
	defer zr.Close()

	switch ext {
	case ".docx":
		return p.parseDocx(ctx, &zr.Reader)
	case ".pptx":
		return p.parsePptx(ctx, &zr.Reader)
	default:
		return docmodel.ParsedDocument{}, fmt.Errorf("office: unsupported extension %q", ext)
	}
}

func (p *OfficeParser) parseDocx(ctx context.Context, zr *zip.Reader) (docmodel.ParsedDocument, error) {
	raw, err := readZipEntry(zr, "word/document.xml")
	if err != nil {
		return docmodel.ParsedDocument{}, fmt.Errorf("office: docx: %w", err)
	}

	var html strings.Builder
	for _, para := range wordParagraphBreak.Split(raw, -1) {
		runs := wordTextRun.FindAllStringSubmatch(para, -1)
		if len(runs) == 0 {
			continue
		}
		html.WriteString("<p>")
		for _, r := range runs {
			html.WriteString(r[1])
		}
		html.WriteString("</p>\n")
	}

	md, err := htmltomarkdown.ConvertString(html.String())
	if err != nil {
		return docmodel.ParsedDocument{}, fmt.Errorf("office: docx: html-to-markdown: %w", err)
	}

	return docmodel.ParsedDocument{
		FileType: "docx",
		Pages: []docmodel.Page{
			{PageNumber: 1, Text: strings.TrimSpace(md)},
		},
	}, nil
}

func (p *OfficeParser) parsePptx(ctx context.Context, zr *zip.Reader) (docmodel.ParsedDocument, error) {
	var slideNames []string
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			slideNames = append(slideNames, f.Name)
		}
	}
	sort.Strings(slideNames)
	if len(slideNames) == 0 {
		return docmodel.ParsedDocument{}, fmt.Errorf("office: pptx: no slides found")
	}

	pages := make([]docmodel.Page, 0, len(slideNames))
	for i, name := range slideNames {
		if err := ctx.Err(); err != nil {
			return docmodel.ParsedDocument{}, err
		}
		raw, err := readZipEntry(zr, name)
		if err != nil {
			pages = append(pages, docmodel.Page{PageNumber: i + 1})
			continue
		}
		runs := slideTextRun.FindAllStringSubmatch(raw, -1)
		var html strings.Builder
		for _, r := range runs {
			html.WriteString("<p>")
			html.WriteString(r[1])
			html.WriteString("</p>\n")
		}
		md, err := htmltomarkdown.ConvertString(html.String())
		if err != nil {
			pages = append(pages, docmodel.Page{PageNumber: i + 1})
			continue
		}
		pages = append(pages, docmodel.Page{
			PageNumber: i + 1,
			Text:       strings.TrimSpace(md),
		})
	}

	return docmodel.ParsedDocument{
		FileType: "pptx",
		Pages:    pages,
	}, nil
}

func readZipEntry(zr *zip.Reader, name string) (string, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return "", fmt.Errorf("entry %q not found", name)
}
