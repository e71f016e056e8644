package processor

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TuckerTucker/tkr-docusearch/internal/chunker"
	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
	"github.com/TuckerTucker/tkr-docusearch/internal/embedding"
	"github.com/TuckerTucker/tkr-docusearch/internal/objectstore"
	"github.com/TuckerTucker/tkr-docusearch/internal/parser"
	"github.com/TuckerTucker/tkr-docusearch/internal/statusfabric"
	"github.com/TuckerTucker/tkr-docusearch/internal/vectorstore"
)

// fakeRenderer returns one deterministic RenderedPage per doc page, so
// stageRender has something real to persist without touching a rasterizer.
type fakeRenderer struct {
	err error
}

func (f *fakeRenderer) RenderPages(ctx context.Context, path string, doc docmodel.ParsedDocument, dpi int, scale float64) ([]docmodel.RenderedPage, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]docmodel.RenderedPage, len(doc.Pages))
	for i, pg := range doc.Pages {
		out[i] = docmodel.RenderedPage{
			PageNumber:  pg.PageNumber,
			Data:        []byte("rendered-bytes"),
			ContentType: "image/png",
			WidthPx:     100,
			HeightPx:    150,
		}
	}
	return out, nil
}

func newTestProcessor(t *testing.T, p *parser.Registry, loadImage ImageLoader) (*Processor, *statusfabric.Manager, vectorstore.Store) {
	t.Helper()
	hub := statusfabric.NewHub()
	mgr := statusfabric.NewManager(hub)
	store := vectorstore.NewMemoryStore()
	model := embedding.New(embedding.Config{Variant: embedding.VariantMock})
	coord := embedding.NewCoordinator(model, embedding.BatchConfig{VisualBatchSize: 2, TextBatchSize: 2})
	proc := New(p, chunker.DefaultConfig(), coord, store, mgr, loadImage)
	return proc, mgr, store
}

func registryWith(t *testing.T, mp *parser.MockParser) *parser.Registry {
	t.Helper()
	r := parser.NewRegistry()
	r.Register(".mock", mp)
	return r
}

func fakeLoader(err error) ImageLoader {
	return func(ctx context.Context, path string) ([]byte, error) {
		if err != nil {
			return nil, err
		}
		return []byte("fake-image-bytes"), nil
	}
}

func TestProcessCompletesTextOnlyDocument(t *testing.T) {
	mp := &parser.MockParser{NumPages: 0, WordsPerPage: 200}
	mp.Err = nil
	r := registryWith(t, mp)
	proc, mgr, store := newTestProcessor(t, r, nil)

	mgr.Register("doc1", "a.mock")
	res, err := proc.Process(context.Background(), "doc1", "a.mock", "a.mock")
	require.NoError(t, err)
	require.Equal(t, "doc1", res.DocID)

	got, ok := mgr.Get("doc1")
	require.True(t, ok)
	require.Equal(t, "completed", string(got.Status))
	require.Equal(t, 1.0, got.Progress)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, stats.VisualCount)
	require.Greater(t, stats.TextCount, 0)
}

func TestProcessEmbedsVisualAndTextForPagedDocument(t *testing.T) {
	mp := &parser.MockParser{NumPages: 3, WordsPerPage: 200}
	r := registryWith(t, mp)
	proc, mgr, store := newTestProcessor(t, r, fakeLoader(nil))

	mgr.Register("doc2", "b.mock")
	res, err := proc.Process(context.Background(), "doc2", "b.mock", "b.mock")
	require.NoError(t, err)
	require.Equal(t, 3, res.VisualEmbedded)
	require.Equal(t, 0, res.VisualSkipped)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, stats.VisualCount)
}

func TestProcessDegradesToTextOnlyWhenImageLoadFails(t *testing.T) {
	mp := &parser.MockParser{NumPages: 2, WordsPerPage: 200}
	r := registryWith(t, mp)
	proc, mgr, _ := newTestProcessor(t, r, fakeLoader(errors.New("disk full")))

	mgr.Register("doc3", "c.mock")
	res, err := proc.Process(context.Background(), "doc3", "c.mock", "c.mock")
	require.NoError(t, err)
	require.Equal(t, 0, res.VisualEmbedded)
	require.Equal(t, 2, res.VisualSkipped)

	got, ok := mgr.Get("doc3")
	require.True(t, ok)
	require.Equal(t, "completed", string(got.Status))
}

func TestProcessFailsDocumentOnParseError(t *testing.T) {
	mp := &parser.MockParser{Err: errors.New("corrupt file")}
	r := registryWith(t, mp)
	proc, mgr, _ := newTestProcessor(t, r, nil)

	mgr.Register("doc4", "d.mock")
	_, err := proc.Process(context.Background(), "doc4", "d.mock", "d.mock")
	require.Error(t, err)

	got, ok := mgr.Get("doc4")
	require.True(t, ok)
	require.Equal(t, "failed", string(got.Status))
}

func TestProcessWithLegacyChunkerStrategy(t *testing.T) {
	mp := &parser.MockParser{NumPages: 1, WordsPerPage: 300}
	r := registryWith(t, mp)
	cfg := chunker.DefaultConfig()
	cfg.Strategy = "legacy"
	hub := statusfabric.NewHub()
	mgr := statusfabric.NewManager(hub)
	store := vectorstore.NewMemoryStore()
	model := embedding.New(embedding.Config{Variant: embedding.VariantMock})
	coord := embedding.NewCoordinator(model, embedding.BatchConfig{})
	proc := New(r, cfg, coord, store, mgr, nil)

	mgr.Register("doc5", "e.mock")
	res, err := proc.Process(context.Background(), "doc5", "e.mock", "e.mock")
	require.NoError(t, err)
	require.False(t, res.ChunkerFallback)
	require.Greater(t, res.TextEmbedded, 0)
}

func TestProcessRendersPagesAndEmbedsVisualWhenRendererConfigured(t *testing.T) {
	mp := &parser.MockParser{NumPages: 2, WordsPerPage: 200}
	r := registryWith(t, mp)
	hub := statusfabric.NewHub()
	mgr := statusfabric.NewManager(hub)
	store := vectorstore.NewMemoryStore()
	images := objectstore.NewMemoryStore()
	model := embedding.New(embedding.Config{Variant: embedding.VariantMock})
	coord := embedding.NewCoordinator(model, embedding.BatchConfig{VisualBatchSize: 2, TextBatchSize: 2})

	loadImage := func(ctx context.Context, imagePath string) ([]byte, error) {
		rc, _, err := images.Get(ctx, imagePath)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}

	proc := New(r, chunker.DefaultConfig(), coord, store, mgr, loadImage,
		WithPageRenderer(&fakeRenderer{}, images, 150, 1))

	mgr.Register("doc6", "f.mock")
	res, err := proc.Process(context.Background(), "doc6", "f.mock", "f.mock")
	require.NoError(t, err)
	require.Equal(t, 2, res.VisualEmbedded)
	require.Equal(t, 0, res.VisualSkipped)

	for _, pg := range res.Doc.Pages {
		require.Equal(t, objectstore.PageImageKey("doc6", pg.PageNumber), pg.ImagePath)
		require.Equal(t, 100, pg.WidthPx)
		require.Equal(t, 150, pg.HeightPx)

		rc, _, err := images.Get(context.Background(), pg.ImagePath)
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		require.Equal(t, "rendered-bytes", string(data))
	}
}

func TestProcessDegradesWhenRendererFails(t *testing.T) {
	mp := &parser.MockParser{NumPages: 2, WordsPerPage: 200}
	r := registryWith(t, mp)
	hub := statusfabric.NewHub()
	mgr := statusfabric.NewManager(hub)
	store := vectorstore.NewMemoryStore()
	images := objectstore.NewMemoryStore()
	model := embedding.New(embedding.Config{Variant: embedding.VariantMock})
	coord := embedding.NewCoordinator(model, embedding.BatchConfig{})

	// Mirrors the real loadImage's behavior against an empty ImagePath: an
	// unrendered page has nothing to read, so the load fails.
	loadImage := func(ctx context.Context, imagePath string) ([]byte, error) {
		if imagePath == "" {
			return nil, errors.New("no image path")
		}
		return []byte("fake-image-bytes"), nil
	}

	proc := New(r, chunker.DefaultConfig(), coord, store, mgr, loadImage,
		WithPageRenderer(&fakeRenderer{err: errors.New("mupdf: broken page")}, images, 150, 1))

	mgr.Register("doc7", "g.mock")
	res, err := proc.Process(context.Background(), "doc7", "g.mock", "g.mock")
	require.NoError(t, err)
	require.Equal(t, 0, res.VisualEmbedded)
	require.Equal(t, 2, res.VisualSkipped)
	for _, pg := range res.Doc.Pages {
		require.Empty(t, pg.ImagePath)
	}
}
