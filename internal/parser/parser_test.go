package parser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryDispatchesByExtension(t *testing.T) {
	r := NewRegistry()
	probe := &MockParser{NumPages: 1}
	r.Register(".pdf", probe)

	doc, err := r.Parse(context.Background(), "report.pdf")
	require.NoError(t, err)
	require.Equal(t, "mock", doc.FileType)
}

func TestRegistryUnsupportedExtension(t *testing.T) {
	r := NewRegistry()
	_, err := r.Parse(context.Background(), "archive.zip")
	require.Error(t, err)
}

func TestMockParserDeterministic(t *testing.T) {
	m := &MockParser{NumPages: 3, WordsPerPage: 10}
	doc, err := m.Parse(context.Background(), "x")
	require.NoError(t, err)
	require.Len(t, doc.Pages, 3)
	for i, p := range doc.Pages {
		require.Equal(t, i+1, p.PageNumber)
		require.NotEmpty(t, p.Text)
	}
}

func TestMockParserPropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	m := &MockParser{Err: wantErr}
	_, err := m.Parse(context.Background(), "x")
	require.ErrorIs(t, err, wantErr)
}
