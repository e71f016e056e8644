package docregistry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }

func TestPutAndGetRoundTrips(t *testing.T) {
	r := New()
	pages := []docmodel.Page{{PageNumber: 1}, {PageNumber: 2}}
	chunks := []docmodel.TextChunk{{ChunkID: 0}, {ChunkID: 1}, {ChunkID: 2}}

	r.Put("doc1", "report.pdf", "pdf", pages, chunks, docmodel.DocumentStructure{})

	rec, ok := r.Get("doc1")
	require.True(t, ok)
	assert.Equal(t, "report.pdf", rec.Filename)
	assert.Equal(t, 2, rec.PageCount())
	assert.Len(t, rec.Chunks, 3)
}

func TestGetMissingReturnsFalse(t *testing.T) {
	r := New()
	_, ok := r.Get("nonexistent")
	assert.False(t, ok)
}

func TestPutPreservesOriginalDateAddedOnReprocess(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	r := NewWithClock(clock)

	r.Put("doc1", "a.pdf", "pdf", nil, nil, docmodel.DocumentStructure{})
	first, _ := r.Get("doc1")

	clock.t = time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	r.Put("doc1", "a.pdf", "pdf", nil, nil, docmodel.DocumentStructure{})
	second, _ := r.Get("doc1")

	assert.Equal(t, first.DateAdded, second.DateAdded)
}

func TestDeleteRemovesRecord(t *testing.T) {
	r := New()
	r.Put("doc1", "a.pdf", "pdf", nil, nil, docmodel.DocumentStructure{})
	r.Delete("doc1")
	_, ok := r.Get("doc1")
	assert.False(t, ok)
}

func TestListFiltersBySearch(t *testing.T) {
	r := New()
	r.Put("doc1", "quarterly-report.pdf", "pdf", nil, nil, docmodel.DocumentStructure{})
	r.Put("doc2", "meeting-notes.docx", "docx", nil, nil, docmodel.DocumentStructure{})

	result := r.List(ListOptions{Search: "report"})
	require.Len(t, result.Records, 1)
	assert.Equal(t, "doc1", result.Records[0].DocID)
	assert.Equal(t, 1, result.Total)
}

func TestListSortsByFilename(t *testing.T) {
	r := New()
	r.Put("doc1", "zebra.pdf", "pdf", nil, nil, docmodel.DocumentStructure{})
	r.Put("doc2", "alpha.pdf", "pdf", nil, nil, docmodel.DocumentStructure{})

	result := r.List(ListOptions{SortBy: SortFilename})
	require.Len(t, result.Records, 2)
	assert.Equal(t, "alpha.pdf", result.Records[0].Filename)
	assert.Equal(t, "zebra.pdf", result.Records[1].Filename)
}

func TestListSortsByPageCountDescending(t *testing.T) {
	r := New()
	r.Put("doc1", "short.pdf", "pdf", []docmodel.Page{{PageNumber: 1}}, nil, docmodel.DocumentStructure{})
	r.Put("doc2", "long.pdf", "pdf", []docmodel.Page{{PageNumber: 1}, {PageNumber: 2}, {PageNumber: 3}}, nil, docmodel.DocumentStructure{})

	result := r.List(ListOptions{SortBy: SortPageCount})
	require.Len(t, result.Records, 2)
	assert.Equal(t, "doc2", result.Records[0].DocID)
}

func TestListPaginates(t *testing.T) {
	r := New()
	for i := 0; i < 5; i++ {
		r.Put(string(rune('a'+i)), string(rune('a'+i))+".pdf", "pdf", nil, nil, docmodel.DocumentStructure{})
	}

	result := r.List(ListOptions{Limit: 2, Offset: 0, SortBy: SortFilename})
	require.Len(t, result.Records, 2)
	assert.Equal(t, 5, result.Total)

	result2 := r.List(ListOptions{Limit: 2, Offset: 4, SortBy: SortFilename})
	require.Len(t, result2.Records, 1)
}

func TestListOffsetPastEndReturnsEmpty(t *testing.T) {
	r := New()
	r.Put("doc1", "a.pdf", "pdf", nil, nil, docmodel.DocumentStructure{})

	result := r.List(ListOptions{Limit: 10, Offset: 100})
	assert.Empty(t, result.Records)
	assert.Equal(t, 1, result.Total)
}
