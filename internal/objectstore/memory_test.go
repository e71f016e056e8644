package objectstore

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorePutAndGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	content := []byte("fake png bytes")
	etag, err := store.Put(ctx, PageImageKey("doc1", 3), bytes.NewReader(content), PutOptions{
		ContentType: "image/png",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, etag)

	reader, attrs, err := store.Get(ctx, PageImageKey("doc1", 3))
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, content, data)
	assert.Equal(t, "doc1/page003.png", attrs.Key)
	assert.Equal(t, int64(len(content)), attrs.Size)
	assert.Equal(t, "image/png", attrs.ContentType)
}

func TestMemoryStoreGetNotFound(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	_, _, err := store.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Put(ctx, "doc1/page001.png", bytes.NewReader([]byte("data")), PutOptions{})
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, "doc1/page001.png"))

	_, _, err = store.Get(ctx, "doc1/page001.png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreListByDocumentPrefix(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	keys := []string{
		PageImageKey("doc1", 1), PageThumbKey("doc1", 1),
		PageImageKey("doc1", 2), PageThumbKey("doc1", 2),
		PageImageKey("doc2", 1),
	}
	for _, k := range keys {
		_, err := store.Put(ctx, k, bytes.NewReader([]byte("x")), PutOptions{})
		require.NoError(t, err)
	}

	all, err := store.List(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all.Objects, 5)

	doc1Only, err := store.List(ctx, ListOptions{Prefix: "doc1/"})
	require.NoError(t, err)
	assert.Len(t, doc1Only.Objects, 4)

	byDoc, err := store.List(ctx, ListOptions{Delimiter: "/"})
	require.NoError(t, err)
	assert.Empty(t, byDoc.Objects)
	assert.Contains(t, byDoc.CommonPrefixes, "doc1/")
	assert.Contains(t, byDoc.CommonPrefixes, "doc2/")
}

func TestMemoryStoreHead(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	content := []byte("jpeg thumb bytes")
	_, err := store.Put(ctx, PageThumbKey("doc1", 1), bytes.NewReader(content), PutOptions{
		ContentType: "image/jpeg",
	})
	require.NoError(t, err)

	attrs, err := store.Head(ctx, PageThumbKey("doc1", 1))
	require.NoError(t, err)
	assert.Equal(t, "doc1/page001_thumb.jpg", attrs.Key)
	assert.Equal(t, int64(len(content)), attrs.Size)

	_, err = store.Head(ctx, "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreCopy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	content := []byte("cover art")
	_, err := store.Put(ctx, PageImageKey("doc1", 1), bytes.NewReader(content), PutOptions{})
	require.NoError(t, err)

	require.NoError(t, store.Copy(ctx, PageImageKey("doc1", 1), CoverKey("doc1")))

	reader, _, err := store.Get(ctx, CoverKey("doc1"))
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, content, data)

	err = store.Copy(ctx, "nonexistent", "dest")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreExists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	exists, err := store.Exists(ctx, "doc1/page001.png")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.Put(ctx, "doc1/page001.png", bytes.NewReader([]byte("data")), PutOptions{})
	require.NoError(t, err)

	exists, err = store.Exists(ctx, "doc1/page001.png")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestPageKeyHelpersFormatThreeDigitPageNumbers(t *testing.T) {
	assert.Equal(t, "doc1/page003.png", PageImageKey("doc1", 3))
	assert.Equal(t, "doc1/page042_thumb.jpg", PageThumbKey("doc1", 42))
	assert.Equal(t, "doc1/cover.jpg", CoverKey("doc1"))
}
