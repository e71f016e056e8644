// Package processor drives a single document through the full ingestion
// pipeline: parse, extract structure, chunk, embed, and store — reporting
// status and progress to the status fabric at every stage, and degrading
// gracefully rather than failing the whole document whenever a later stage
// can proceed without an earlier one's full output.
package processor

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/TuckerTucker/tkr-docusearch/internal/chunker"
	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
	"github.com/TuckerTucker/tkr-docusearch/internal/embedding"
	"github.com/TuckerTucker/tkr-docusearch/internal/objectstore"
	"github.com/TuckerTucker/tkr-docusearch/internal/parser"
	"github.com/TuckerTucker/tkr-docusearch/internal/structure"
	"github.com/TuckerTucker/tkr-docusearch/internal/vectorstore"
)

const timeLayout = time.RFC3339

// ImageLoader fetches the rendered page image bytes a parser left on disk
// (or in object storage), given a ParsedDocument page's ImagePath.
type ImageLoader func(ctx context.Context, imagePath string) ([]byte, error)

// Renderer rasterizes every page of a parsed document to an image, so
// stageRender has real bytes to persist and stageEmbedVisual has real
// bytes to embed. A nil Renderer (the zero value) means this Processor
// never populates Page.ImagePath, degrading every document to text-only.
type Renderer interface {
	RenderPages(ctx context.Context, path string, doc docmodel.ParsedDocument, dpi int, scale float64) ([]docmodel.RenderedPage, error)
}

// Result summarizes one completed (or degraded) Process call. Doc/Structure/
// Chunks are carried through so a caller can register the document in a
// catalog (page/chunk listing, GET /documents) without re-parsing it.
type Result struct {
	DocID           string
	VisualEmbedded  int
	VisualSkipped   int
	TextEmbedded    int
	StructureFailed bool
	ChunkerFallback bool

	Doc       docmodel.ParsedDocument
	Structure docmodel.DocumentStructure
	Chunks    []docmodel.TextChunk
}

// Processor wires the parser registry, structure extractor, chunker,
// embedding coordinator, and vector store into the stage pipeline spec'd
// for document ingestion.
type Processor struct {
	parsers     *parser.Registry
	chunkerCfg  chunker.Config
	coordinator *embedding.Coordinator
	store       vectorstore.Store
	status      StatusSink
	loadImage   ImageLoader

	renderer    Renderer
	images      objectstore.ObjectStore
	renderDPI   int
	renderScale float64

	log     Logger
	metrics Metrics
	clock   Clock
}

// New builds a Processor. loadImage may be nil only if the documents this
// instance handles are guaranteed text-only (no visual pages to embed).
func New(
	parsers *parser.Registry,
	chunkerCfg chunker.Config,
	coordinator *embedding.Coordinator,
	store vectorstore.Store,
	status StatusSink,
	loadImage ImageLoader,
	opts ...Option,
) *Processor {
	p := &Processor{
		parsers:     parsers,
		chunkerCfg:  chunkerCfg,
		coordinator: coordinator,
		store:       store,
		status:      status,
		loadImage:   loadImage,
		log:         NoopLogger{},
		metrics:     NoopMetrics{},
		clock:       SystemClock{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs the full pipeline for one document at path, reporting
// status transitions to the configured StatusSink as it goes. A returned
// error means the document was marked failed; partial progress up to the
// failing stage is not rolled back.
func (p *Processor) Process(ctx context.Context, docID, filename, path string) (Result, error) {
	res := Result{DocID: docID}
	totalStart := p.clock.Now()

	if err := p.status.Advance(docID, docmodel.StatusParsing, 0.0, "parsing"); err != nil {
		return res, p.fail(docID, "parse", err)
	}

	doc, err := p.stageParse(ctx, docID, path)
	if err != nil {
		return res, p.fail(docID, "parse", err)
	}
	doc.DocID = docID
	doc.Filename = filename
	p.stageRender(ctx, docID, path, &doc)
	res.Doc = doc

	ds, structureFailed := p.stageStructure(docID, doc)
	res.StructureFailed = structureFailed
	res.Structure = ds

	chunks, fellBack, err := p.stageChunk(docID, doc, ds)
	if err != nil {
		return res, p.fail(docID, "chunk", err)
	}
	res.ChunkerFallback = fellBack
	res.Chunks = chunks

	visualMVs, visualSkipped, err := p.stageEmbedVisual(ctx, docID, doc.Pages)
	if err != nil {
		return res, p.fail(docID, "embed_visual", err)
	}
	res.VisualSkipped = visualSkipped
	res.VisualEmbedded = len(visualMVs) - visualSkipped

	textMVs, err := p.stageEmbedText(ctx, docID, chunks)
	if err != nil {
		return res, p.fail(docID, "embed_text", err)
	}
	res.TextEmbedded = len(textMVs)

	if err := p.stageStore(ctx, docID, doc, chunks, visualMVs, textMVs); err != nil {
		return res, p.fail(docID, "store", err)
	}

	p.status.RecordEmbeddings(docID, res.VisualEmbedded, res.TextEmbedded)
	if err := p.status.Advance(docID, docmodel.StatusCompleted, 1.0, "completed"); err != nil {
		return res, p.fail(docID, "complete", err)
	}

	p.observeStage(docID, "total", totalStart)
	return res, nil
}

func (p *Processor) stageParse(ctx context.Context, docID string, path string) (docmodel.ParsedDocument, error) {
	t0 := p.clock.Now()
	doc, err := p.parsers.Parse(ctx, path)
	p.observeStage(docID, "parse", t0)
	return doc, err
}

// stageRender rasterizes every page and persists it to object storage at
// its canonical PageImageKey, then points doc.Pages[i].ImagePath at that
// key so stageEmbedVisual (via the configured ImageLoader) and GET
// /images/{docID}/{filename} both resolve it. A nil Renderer, a format
// with no registered renderer, or a rendering failure all degrade the
// same way: ImagePath stays empty and visual embedding skips the page,
// exactly like the pre-existing text-only degrade path.
func (p *Processor) stageRender(ctx context.Context, docID, path string, doc *docmodel.ParsedDocument) {
	if p.renderer == nil || len(doc.Pages) == 0 {
		return
	}
	t0 := p.clock.Now()
	defer p.observeStage(docID, "render", t0)

	rendered, err := p.renderer.RenderPages(ctx, path, *doc, p.renderDPI, p.renderScale)
	if err != nil {
		p.log.Error("page rendering failed, continuing without page images", map[string]any{"doc_id": docID, "error": err.Error()})
	}
	if len(rendered) == 0 || p.images == nil {
		return
	}

	byPage := make(map[int]docmodel.RenderedPage, len(rendered))
	for _, rp := range rendered {
		byPage[rp.PageNumber] = rp
	}

	for i := range doc.Pages {
		rp, ok := byPage[doc.Pages[i].PageNumber]
		if !ok {
			continue
		}
		key := objectstore.PageImageKey(docID, rp.PageNumber)
		if _, err := p.images.Put(ctx, key, bytes.NewReader(rp.Data), objectstore.PutOptions{ContentType: rp.ContentType}); err != nil {
			p.log.Error("page image store failed", map[string]any{"doc_id": docID, "page": rp.PageNumber, "error": err.Error()})
			continue
		}
		doc.Pages[i].ImagePath = key
		doc.Pages[i].WidthPx = rp.WidthPx
		doc.Pages[i].HeightPx = rp.HeightPx
	}
}

// stageStructure extracts document structure on a best-effort basis: a
// failure here degrades to an empty DocumentStructure rather than failing
// the document, since downstream chunking and retrieval both tolerate it.
func (p *Processor) stageStructure(docID string, doc docmodel.ParsedDocument) (docmodel.DocumentStructure, bool) {
	t0 := p.clock.Now()
	defer p.observeStage(docID, "structure", t0)

	ds, failed := safeExtractStructure(doc)
	if failed {
		p.log.Error("structure extraction failed, continuing with empty structure", map[string]any{"doc_id": docID})
	}
	return ds, failed
}

// safeExtractStructure recovers from a panicking extractor (malformed page
// text can confuse the heading-stack heuristics) and reports it as a
// degrade-to-empty rather than a document failure.
func safeExtractStructure(doc docmodel.ParsedDocument) (ds docmodel.DocumentStructure, failed bool) {
	defer func() {
		if r := recover(); r != nil {
			ds = docmodel.DocumentStructure{}
			failed = true
		}
	}()
	return structure.Extract(doc, structure.Options{}), false
}

// stageChunk chunks the document with the configured chunker, falling back
// to the legacy fixed-window chunker if the hybrid chunker errors. This
// stays within the "parsing" status — chunking has no status of its own in
// the lifecycle state machine.
func (p *Processor) stageChunk(docID string, doc docmodel.ParsedDocument, ds docmodel.DocumentStructure) ([]docmodel.TextChunk, bool, error) {
	t0 := p.clock.Now()
	defer p.observeStage(docID, "chunk", t0)

	c := chunker.New(p.chunkerCfg)
	chunks, err := c.Chunk(doc, ds)
	if err == nil {
		return chunks, false, nil
	}

	p.log.Error("hybrid chunker failed, falling back to legacy chunker", map[string]any{"doc_id": docID, "error": err.Error()})
	legacy := &chunker.LegacyChunker{}
	chunks, err = legacy.Chunk(doc, ds)
	if err != nil {
		return nil, true, fmt.Errorf("processor: legacy chunker fallback failed: %w", err)
	}
	return chunks, true, nil
}

// stageEmbedVisual embeds page images in the coordinator's configured
// batches. A failed batch is retried page-by-page so a single bad page
// cannot sink the rest of the document; a page that still fails alone is
// skipped and counted. Wholesale failure (every page skipped, at least one
// page existed) degrades the document to text-only rather than failing it.
func (p *Processor) stageEmbedVisual(ctx context.Context, docID string, pages []docmodel.Page) ([]docmodel.MultiVector, int, error) {
	t0 := p.clock.Now()
	defer p.observeStage(docID, "embed_visual", t0)

	if len(pages) == 0 || p.loadImage == nil {
		return nil, 0, nil
	}
	if err := p.status.Advance(docID, docmodel.StatusEmbeddingVisual, 0.1, "embedding_visual"); err != nil {
		return nil, 0, err
	}

	images := make([][]byte, len(pages))
	loaded := make([]bool, len(pages))
	for i, pg := range pages {
		b, err := p.loadImage(ctx, pg.ImagePath)
		if err != nil {
			p.log.Error("page image load failed, skipping page", map[string]any{"doc_id": docID, "page": pg.PageNumber})
			continue
		}
		images[i] = b
		loaded[i] = true
	}

	loadedImages := make([][]byte, 0, len(images))
	for i, ok := range loaded {
		if ok {
			loadedImages = append(loadedImages, images[i])
		}
	}

	progress := func(done, total int) {
		frac := 0.1 + 0.4*float64(done)/float64(total)
		_ = p.status.Advance(docID, docmodel.StatusEmbeddingVisual, frac, "embedding_visual")
	}

	mvs, err := p.coordinator.EmbedPages(ctx, loadedImages, progress)
	if err == nil {
		out := make([]docmodel.MultiVector, len(pages))
		skipped := len(pages) - len(loadedImages)
		j := 0
		for i, ok := range loaded {
			if ok {
				out[i] = mvs[j]
				j++
			}
		}
		return out, skipped, nil
	}

	p.log.Error("visual embedding batch failed, retrying pages individually", map[string]any{"doc_id": docID, "error": err.Error()})
	out := make([]docmodel.MultiVector, len(pages))
	skipped := 0
	for i, ok := range loaded {
		if !ok {
			skipped++
			continue
		}
		one, err := p.coordinator.EmbedPages(ctx, images[i:i+1], nil)
		if err != nil || len(one) == 0 {
			skipped++
			continue
		}
		out[i] = one[0]
	}
	if skipped == len(pages) {
		p.log.Error("all pages failed visual embedding, degrading to text-only", map[string]any{"doc_id": docID})
	}
	return out, skipped, nil
}

func (p *Processor) stageEmbedText(ctx context.Context, docID string, chunks []docmodel.TextChunk) ([]docmodel.MultiVector, error) {
	t0 := p.clock.Now()
	defer p.observeStage(docID, "embed_text", t0)

	if err := p.status.Advance(docID, docmodel.StatusEmbeddingText, 0.5, "embedding_text"); err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	progress := func(done, total int) {
		frac := 0.5 + 0.3*float64(done)/float64(total)
		_ = p.status.Advance(docID, docmodel.StatusEmbeddingText, frac, "embedding_text")
	}
	return p.coordinator.EmbedChunks(ctx, texts, progress)
}

// stageStore writes every page and chunk record to the vector store. A
// single record's store failure is retried once before failing the whole
// document, per the fault-isolation contract for this stage.
func (p *Processor) stageStore(
	ctx context.Context,
	docID string,
	doc docmodel.ParsedDocument,
	chunks []docmodel.TextChunk,
	visualMVs, textMVs []docmodel.MultiVector,
) error {
	t0 := p.clock.Now()
	defer p.observeStage(docID, "store", t0)

	if err := p.status.Advance(docID, docmodel.StatusStoring, 0.8, "storing"); err != nil {
		return err
	}

	total := len(visualMVs) + len(textMVs)
	done := 0
	reportProgress := func() {
		done++
		if total == 0 {
			return
		}
		frac := 0.8 + 0.2*float64(done)/float64(total)
		_ = p.status.Advance(docID, docmodel.StatusStoring, frac, "storing")
	}

	stamp := t0.Format(timeLayout)

	for i, mv := range visualMVs {
		if mv.Len() == 0 {
			reportProgress()
			continue
		}
		page := doc.Pages[i]
		meta := vectorstore.VisualMeta{
			DocID:       docID,
			Filename:    doc.Filename,
			Page:        page.PageNumber,
			PageContext: preview(page.Text, 1000),
			Timestamp:   stamp,
		}
		if err := p.storeWithRetry(func() error {
			_, err := p.store.AddVisual(ctx, docID, page.PageNumber, mv, meta)
			return err
		}); err != nil {
			return fmt.Errorf("processor: store visual page %d: %w", page.PageNumber, err)
		}
		reportProgress()
	}

	for i, mv := range textMVs {
		c := chunks[i]
		meta := vectorstore.TextMeta{
			DocID:       docID,
			Filename:    doc.Filename,
			Page:        c.PageNumber,
			ChunkID:     c.ChunkID,
			TextPreview: preview(c.Text, docmodel.TextPreviewMaxChars),
			WordCount:   len(strings.Fields(c.Text)),
			Timestamp:   stamp,
		}
		if err := p.storeWithRetry(func() error {
			_, err := p.store.AddText(ctx, docID, c.ChunkID, mv, meta)
			return err
		}); err != nil {
			return fmt.Errorf("processor: store text chunk %d: %w", c.ChunkID, err)
		}
		reportProgress()
	}

	return nil
}

func (p *Processor) storeWithRetry(write func() error) error {
	if err := write(); err != nil {
		p.log.Error("store write failed, retrying once", map[string]any{"error": err.Error()})
		return write()
	}
	return nil
}

func (p *Processor) fail(docID, stage string, cause error) error {
	p.log.Error("processing failed", map[string]any{"doc_id": docID, "stage": stage, "error": cause.Error()})
	_ = p.status.Fail(docID, cause)
	return fmt.Errorf("processor: stage %s: %w", stage, cause)
}

func (p *Processor) observeStage(docID, stage string, since time.Time) {
	ms := float64(p.clock.Now().Sub(since).Milliseconds())
	p.metrics.ObserveHistogram("ingestion_stage_ms", ms, map[string]string{"stage": stage, "doc_id": docID})
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
