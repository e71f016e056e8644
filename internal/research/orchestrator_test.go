package research

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
	"github.com/TuckerTucker/tkr-docusearch/internal/embedding"
	"github.com/TuckerTucker/tkr-docusearch/internal/llm"
	"github.com/TuckerTucker/tkr-docusearch/internal/retrieve"
	"github.com/TuckerTucker/tkr-docusearch/internal/vectorstore"
)

func rowsOf(dim int, vals ...float32) docmodel.MultiVector {
	row := make([]float32, dim)
	copy(row, vals)
	return docmodel.MultiVector{Vectors: [][]float32{row}}
}

func newTestOrchestrator(t *testing.T, provider llm.Provider) (*Orchestrator, vectorstore.Store) {
	t.Helper()
	store := vectorstore.NewMemoryStore()
	model := embedding.New(embedding.Config{Variant: embedding.VariantMock})
	coord := embedding.NewCoordinator(model, embedding.BatchConfig{})
	engine := retrieve.New(store, coord)
	o := New(engine, provider, Config{Model: "test-model", NumSources: 5})
	return o, store
}

func TestAskRejectsTooShortQuery(t *testing.T) {
	o, _ := newTestOrchestrator(t, &llm.MockProvider{})
	_, err := o.Ask(context.Background(), "hi", AskOptions{})
	require.Error(t, err)
}

func TestAskRejectsTooLongQuery(t *testing.T) {
	o, _ := newTestOrchestrator(t, &llm.MockProvider{})
	long := make([]byte, 501)
	for i := range long {
		long[i] = 'a'
	}
	_, err := o.Ask(context.Background(), string(long), AskOptions{})
	require.Error(t, err)
}

func TestAskReturnsRefusalWhenNoHits(t *testing.T) {
	o, _ := newTestOrchestrator(t, &llm.MockProvider{})
	res, err := o.Ask(context.Background(), "what is the revenue trend?", AskOptions{})
	require.NoError(t, err)
	require.Equal(t, refusalAnswer, res.AnswerMarkdown)
	require.Empty(t, res.References)
	require.Equal(t, 0, res.Metadata["images_sent"])
}

func TestAskBindsCitationsToSources(t *testing.T) {
	ctx := context.Background()
	provider := &llm.MockProvider{Reply: "Revenue grew [1] and the chart confirms it [[2]]."}
	o, store := newTestOrchestrator(t, provider)

	mv := rowsOf(768, 1)
	_, err := store.AddText(ctx, "doc1", 0, mv, vectorstore.TextMeta{DocID: "doc1", Filename: "report.pdf", Page: 5, TextPreview: "Revenue grew 12%."})
	require.NoError(t, err)
	_, err = store.AddVisual(ctx, "doc1", 6, mv, vectorstore.VisualMeta{DocID: "doc1", Filename: "report.pdf", Page: 6, PageContext: "bar chart"})
	require.NoError(t, err)

	res, err := o.Ask(ctx, "what does the report say about revenue?", AskOptions{Mode: retrieve.ModeHybrid})
	require.NoError(t, err)
	require.Contains(t, res.AnswerMarkdown, "[1]")
	require.Contains(t, res.AnswerMarkdown, "[2]")
	require.Len(t, res.References, 2)
	require.Equal(t, 1, res.References[0].CitationNumber)
	require.Equal(t, 2, res.References[1].CitationNumber)
}

func TestAskDropsUnknownCitationNumbers(t *testing.T) {
	ctx := context.Background()
	provider := &llm.MockProvider{Reply: "This claim cites a source that does not exist [9]."}
	o, store := newTestOrchestrator(t, provider)

	mv := rowsOf(768, 1)
	_, err := store.AddText(ctx, "doc1", 0, mv, vectorstore.TextMeta{DocID: "doc1", Filename: "a.pdf", Page: 1, TextPreview: "some text"})
	require.NoError(t, err)

	res, err := o.Ask(ctx, "a reasonable question about the document", AskOptions{Mode: retrieve.ModeText})
	require.NoError(t, err)
	require.NotContains(t, res.AnswerMarkdown, "[9]")
	require.Empty(t, res.References)
}

func TestAskReportsUsageAndLatencyMetadata(t *testing.T) {
	ctx := context.Background()
	provider := &llm.MockProvider{Reply: "answer [1]"}
	o, store := newTestOrchestrator(t, provider)
	mv := rowsOf(768, 1)
	_, err := store.AddText(ctx, "doc1", 0, mv, vectorstore.TextMeta{DocID: "doc1", Filename: "a.pdf", Page: 1, TextPreview: "some text"})
	require.NoError(t, err)

	res, err := o.Ask(ctx, "a reasonable question about the document", AskOptions{Mode: retrieve.ModeText})
	require.NoError(t, err)
	require.Contains(t, res.Metadata, "search_latency_ms")
	require.Contains(t, res.Metadata, "llm_latency_ms")
	require.Contains(t, res.Metadata, "total_latency_ms")
	require.Contains(t, res.Metadata, "cost_est")
}
