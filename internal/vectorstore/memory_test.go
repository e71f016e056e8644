package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
)

func mv(cls float32) docmodel.MultiVector {
	row := make([]float32, 768)
	row[0] = cls
	row2 := make([]float32, 768)
	row2[1] = 1
	return docmodel.MultiVector{Vectors: [][]float32{row, row2}}
}

func TestMemoryStoreAddAndSearchVisual(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	id, err := s.AddVisual(ctx, "doc1", 1, mv(1), VisualMeta{Filename: "a.pdf"})
	require.NoError(t, err)
	require.Equal(t, "doc1-page001", id)

	hits, err := s.Search(ctx, CollectionVisual, mv(1).CLS(), 5, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "doc1-page001", hits[0].ID)
	require.InDelta(t, 1.0, hits[0].Score, 1e-9)
	require.Equal(t, "doc1", hits[0].Metadata["doc_id"])
	require.NotContains(t, hits[0].Metadata, "full_embeddings")
}

func TestMemoryStoreGetFullRoundTrips(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	original := mv(1)
	id, err := s.AddVisual(ctx, "doc1", 1, original, VisualMeta{Filename: "a.pdf"})
	require.NoError(t, err)

	got, err := s.GetFull(ctx, CollectionVisual, id)
	require.NoError(t, err)
	require.Equal(t, original, got)
}

func TestMemoryStoreGetFullNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.GetFull(context.Background(), CollectionVisual, "missing")
	require.Error(t, err)
}

func TestMemoryStoreDeleteCascades(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, err := s.AddVisual(ctx, "doc1", 1, mv(1), VisualMeta{Filename: "a.pdf"})
	require.NoError(t, err)
	_, err = s.AddText(ctx, "doc1", 0, mv(1), TextMeta{Filename: "a.pdf", TextPreview: "hello"})
	require.NoError(t, err)
	_, err = s.AddVisual(ctx, "doc2", 1, mv(1), VisualMeta{Filename: "b.pdf"})
	require.NoError(t, err)

	visualCount, textCount, err := s.Delete(ctx, "doc1")
	require.NoError(t, err)
	require.Equal(t, 1, visualCount)
	require.Equal(t, 1, textCount)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.VisualCount)
	require.Equal(t, 0, stats.TextCount)
	require.Equal(t, 1, stats.DistinctDocs)
}

func TestMemoryStoreSearchAppliesFilters(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, err := s.AddVisual(ctx, "doc1", 1, mv(1), VisualMeta{Filename: "a.pdf"})
	require.NoError(t, err)
	_, err = s.AddVisual(ctx, "doc2", 1, mv(1), VisualMeta{Filename: "b.pdf"})
	require.NoError(t, err)

	hits, err := s.Search(ctx, CollectionVisual, mv(1).CLS(), 10, Filters{"doc_id": "doc2"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "doc2-page001", hits[0].ID)
}

func TestMemoryStoreRejectsBadDimension(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	bad := docmodel.MultiVector{Vectors: [][]float32{make([]float32, 10)}}
	_, err := s.AddVisual(ctx, "doc1", 1, bad, VisualMeta{})
	require.Error(t, err)
}
