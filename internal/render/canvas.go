package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
)

// CanvasRenderer synthesizes a page image from extracted text, for formats
// with no native page layout (DOCX, PPTX). It is not a faithful layout
// render — no rasterizer for those formats exists in the stack — but it
// gives every page real image bytes to embed visually and serve back,
// instead of leaving the visual modality permanently empty.
type CanvasRenderer struct{}

const (
	canvasBaseWidthPx  = 850
	canvasBaseHeightPx = 1100
	canvasMarginPx     = 40
	canvasLineHeightPx = 16
	canvasCharWidthPx  = 7 // advance width of basicfont.Face7x13
)

func (c *CanvasRenderer) RenderPages(ctx context.Context, path string, doc docmodel.ParsedDocument, dpi int, scale float64) ([]docmodel.RenderedPage, error) {
	if scale <= 0 {
		scale = 1
	}
	w := int(float64(canvasBaseWidthPx) * scale)
	h := int(float64(canvasBaseHeightPx) * scale)

	out := make([]docmodel.RenderedPage, 0, len(doc.Pages))
	for _, pg := range doc.Pages {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		img := renderTextCanvas(pg.Text, w, h)
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			continue
		}
		out = append(out, docmodel.RenderedPage{
			PageNumber:  pg.PageNumber,
			Data:        buf.Bytes(),
			ContentType: "image/png",
			WidthPx:     w,
			HeightPx:    h,
		})
	}
	return out, nil
}

func renderTextCanvas(text string, w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
	}

	y := canvasMarginPx + canvasLineHeightPx
	for _, line := range wrapLines(text, w-2*canvasMarginPx) {
		if y > h-canvasMarginPx {
			break
		}
		d.Dot = fixed.P(canvasMarginPx, y)
		d.DrawString(line)
		y += canvasLineHeightPx
	}
	return img
}

// wrapLines greedily wraps text on whitespace to fit maxWidthPx at the
// fixed 7x13 font's per-character advance.
func wrapLines(text string, maxWidthPx int) []string {
	charsPerLine := maxWidthPx / canvasCharWidthPx
	if charsPerLine < 1 {
		charsPerLine = 1
	}

	var lines []string
	var cur strings.Builder
	for _, word := range strings.Fields(text) {
		if cur.Len()+1+len(word) > charsPerLine && cur.Len() > 0 {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(word)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}
