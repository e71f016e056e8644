package render

import (
	"bytes"
	"context"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"

	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
)

// PDFRenderer rasterizes PDF pages with MuPDF via go-fitz, the same engine
// embedded directly rather than shelled out to a system binary — a page
// comes back as an image.Image with no subprocess or temp file involved.
type PDFRenderer struct{}

func (p *PDFRenderer) RenderPages(ctx context.Context, path string, doc docmodel.ParsedDocument, dpi int, scale float64) (out []docmodel.RenderedPage, err error) {
	if dpi <= 0 {
		dpi = 150
	}
	if scale <= 0 {
		scale = 1
	}

	f, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("render: open pdf: %w", err)
	}
	defer f.Close()

	// go-fitz wraps MuPDF, which can panic on malformed pages rather than
	// returning an error; degrade to whatever pages rendered cleanly.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render: pdf: panic: %v", r)
		}
	}()

	out = make([]docmodel.RenderedPage, 0, len(doc.Pages))
	for _, pg := range doc.Pages {
		if cerr := ctx.Err(); cerr != nil {
			return out, cerr
		}
		idx := pg.PageNumber - 1
		if idx < 0 || idx >= f.NumPage() {
			continue
		}
		img, rerr := f.ImageDPI(idx, float64(dpi)*scale)
		if rerr != nil {
			continue
		}
		var buf bytes.Buffer
		if werr := png.Encode(&buf, img); werr != nil {
			continue
		}
		b := img.Bounds()
		out = append(out, docmodel.RenderedPage{
			PageNumber:  pg.PageNumber,
			Data:        buf.Bytes(),
			ContentType: "image/png",
			WidthPx:     b.Dx(),
			HeightPx:    b.Dy(),
		})
	}
	return out, nil
}
