package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
)

func TestMockModelDeterministic(t *testing.T) {
	m := newMockModel("")
	a, err := m.EmbedQuery(context.Background(), "the quick brown fox")
	require.NoError(t, err)
	b, err := m.EmbedQuery(context.Background(), "the quick brown fox")
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestMockModelDiffersByInput(t *testing.T) {
	m := newMockModel("")
	a, err := m.EmbedQuery(context.Background(), "alpha beta gamma")
	require.NoError(t, err)
	b, err := m.EmbedQuery(context.Background(), "totally different content here")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestMaxSimSelfSimilarityIsOne(t *testing.T) {
	m := newMockModel("")
	mv, err := m.EmbedQuery(context.Background(), "section on revenue recognition")
	require.NoError(t, err)
	score, err := MaxSim(mv, mv)
	require.NoError(t, err)
	require.InDelta(t, 1.0, score, 1e-9)
}

func TestMaxSimRangeIsUnitInterval(t *testing.T) {
	m := newMockModel("")
	q, err := m.EmbedQuery(context.Background(), "query about pricing")
	require.NoError(t, err)
	d, err := m.EmbedQuery(context.Background(), "completely unrelated passage about whales")
	require.NoError(t, err)
	score, err := MaxSim(q, d)
	require.NoError(t, err)
	require.GreaterOrEqual(t, score, 0.0)
	require.LessOrEqual(t, score, 1.0)
}

func TestMaxSimRejectsDimensionMismatch(t *testing.T) {
	good := docmodel.MultiVector{Vectors: [][]float32{make([]float32, Dim)}}
	bad := docmodel.MultiVector{Vectors: [][]float32{make([]float32, Dim-1)}}
	_, err := MaxSim(good, bad)
	require.Error(t, err)
}

func TestQuantizedModelPreservesShape(t *testing.T) {
	inner := newMockModel("")
	q := &quantizedModel{inner: inner}
	mv, err := q.EmbedQuery(context.Background(), "quantize me please")
	require.NoError(t, err)
	raw, err := inner.EmbedQuery(context.Background(), "quantize me please")
	require.NoError(t, err)
	require.Equal(t, len(raw.Vectors), len(mv.Vectors))
	require.Equal(t, len(raw.Vectors[0]), len(mv.Vectors[0]))
	require.Equal(t, "int8", q.Info().Precision)
}

func TestQuantizedModelReducesDistinctValues(t *testing.T) {
	row := make([]float32, Dim)
	for i := range row {
		row[i] = float32(i%7) / 3.0
	}
	out := quantizeRow(row)
	distinct := map[float32]bool{}
	for _, v := range out {
		distinct[v] = true
	}
	require.LessOrEqual(t, len(distinct), quantSteps*2+1)
}

func TestNewDispatchesByVariant(t *testing.T) {
	mock := New(Config{Variant: VariantMock})
	require.Equal(t, "mock", mock.Info().Variant)

	real := New(Config{Variant: VariantReal, BaseURL: "http://localhost:9"})
	require.Equal(t, "real", real.Info().Variant)

	quant := New(Config{Variant: VariantQuantized, BaseURL: "http://localhost:9"})
	require.Equal(t, "quantized", quant.Info().Variant)
}

func TestCoordinatorBatchesChunks(t *testing.T) {
	m := newMockModel("")
	c := NewCoordinator(m, BatchConfig{TextBatchSize: 2})
	texts := []string{"one", "two", "three", "four", "five"}
	var progressCalls []int
	out, err := c.EmbedChunks(context.Background(), texts, func(done, total int) {
		progressCalls = append(progressCalls, done)
	})
	require.NoError(t, err)
	require.Len(t, out, 5)
	require.Equal(t, []int{2, 4, 5}, progressCalls)
}

func TestCoordinatorEmbedPagesEmpty(t *testing.T) {
	m := newMockModel("")
	c := NewCoordinator(m, BatchConfig{})
	out, err := c.EmbedPages(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Nil(t, out)
}
