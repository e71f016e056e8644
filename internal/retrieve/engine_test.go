package retrieve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
	"github.com/TuckerTucker/tkr-docusearch/internal/embedding"
	"github.com/TuckerTucker/tkr-docusearch/internal/vectorstore"
)

func rowsOf(dim int, vals ...float32) docmodel.MultiVector {
	row := make([]float32, dim)
	copy(row, vals)
	return docmodel.MultiVector{Vectors: [][]float32{row}}
}

func newTestEngine(t *testing.T) (*Engine, vectorstore.Store) {
	t.Helper()
	store := vectorstore.NewMemoryStore()
	model := embedding.New(embedding.Config{Variant: embedding.VariantMock})
	coord := embedding.NewCoordinator(model, embedding.BatchConfig{})
	return New(store, coord), store
}

func TestSearchReturnsEmptyOnEmptyStore(t *testing.T) {
	e, _ := newTestEngine(t)
	hits, err := e.Search(context.Background(), "hello world", Options{NumSources: 5})
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestSearchRespectsNumSources(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		mv := rowsOf(768, float32(i))
		_, err := store.AddText(ctx, "doc1", i, mv, vectorstore.TextMeta{DocID: "doc1", Filename: "a.pdf", Page: i})
		require.NoError(t, err)
	}
	hits, err := e.Search(ctx, "some query text", Options{Mode: ModeText, NumSources: 2})
	require.NoError(t, err)
	require.Len(t, hits, 2)
}

func TestSearchAppliesFilters(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()
	mv := rowsOf(768, 1)
	_, err := store.AddText(ctx, "doc1", 0, mv, vectorstore.TextMeta{DocID: "doc1", Filename: "a.pdf", Page: 1})
	require.NoError(t, err)
	_, err = store.AddText(ctx, "doc2", 0, mv, vectorstore.TextMeta{DocID: "doc2", Filename: "b.pdf", Page: 1})
	require.NoError(t, err)

	hits, err := e.Search(ctx, "query", Options{Mode: ModeText, NumSources: 10, Filters: vectorstore.Filters{"doc_id": "doc1"}})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "doc1", hits[0].DocID)
}

func TestFuseDedupesByDocAndPageKeepingHigherScore(t *testing.T) {
	visual := []Hit{{DocID: "doc1", Page: 3, Score: 0.4}}
	text := []Hit{{DocID: "doc1", Page: 3, Score: 0.7}}
	fused := fuse(visual, text)
	require.Len(t, fused, 1)
	require.Equal(t, 0.7, fused[0].Score)
}

func TestSortHitsTieBreaksByFilenameThenPageThenDocID(t *testing.T) {
	hits := []Hit{
		{DocID: "zdoc", Filename: "longname.pdf", Page: 1, Score: 0.5},
		{DocID: "adoc", Filename: "short.pdf", Page: 1, Score: 0.5},
	}
	sortHits(hits)
	require.Equal(t, "adoc", hits[0].DocID)
}

func TestSearchTextModeSelfMatchScoreIsUnscaled(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()
	coord := embedding.NewCoordinator(embedding.New(embedding.Config{Variant: embedding.VariantMock}), embedding.BatchConfig{})

	text := "the quick brown fox jumps over the lazy dog"
	mvs, err := coord.EmbedChunks(ctx, []string{text}, nil)
	require.NoError(t, err)
	_, err = store.AddText(ctx, "doc1", 0, mvs[0], vectorstore.TextMeta{DocID: "doc1", Filename: "a.pdf", Page: 1})
	require.NoError(t, err)

	hits, err := e.Search(ctx, text, Options{Mode: ModeText, NumSources: 10})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.InDelta(t, 1.0, hits[0].Score, 1e-5)
}

func TestSearchVisualModeSelfMatchScoreIsUnscaled(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()
	coord := embedding.NewCoordinator(embedding.New(embedding.Config{Variant: embedding.VariantMock}), embedding.BatchConfig{})

	img := []byte("fake page image bytes")
	mvs, err := coord.EmbedPages(ctx, [][]byte{img}, nil)
	require.NoError(t, err)
	_, err = store.AddVisual(ctx, "doc1", 1, mvs[0], vectorstore.VisualMeta{DocID: "doc1", Filename: "a.pdf", Page: 1})
	require.NoError(t, err)

	hits, err := e.Search(ctx, string(img), Options{Mode: ModeVisual, NumSources: 10})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.InDelta(t, 1.0, hits[0].Score, 1e-5)
}

func TestSearchHybridCombinesBothModesWithDefaultWeights(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()
	mv := rowsOf(768, 1)
	_, err := store.AddVisual(ctx, "doc1", 1, mv, vectorstore.VisualMeta{DocID: "doc1", Filename: "a.pdf", Page: 1})
	require.NoError(t, err)
	_, err = store.AddText(ctx, "doc1", 0, mv, vectorstore.TextMeta{DocID: "doc1", Filename: "a.pdf", Page: 1})
	require.NoError(t, err)

	hits, err := e.Search(ctx, "query", Options{Mode: ModeHybrid, NumSources: 10})
	require.NoError(t, err)
	require.Len(t, hits, 1) // same (doc_id, page) from both modalities dedupes to one
}
