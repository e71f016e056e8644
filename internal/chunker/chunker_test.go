package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
)

func cfg() Config {
	c := DefaultConfig()
	c.MaxChunkTokens = 50
	c.MinChunkTokens = 10
	return c
}

func words(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteString("word ")
	}
	return strings.TrimSpace(sb.String())
}

func TestHybridChunkerRespectsTokenBounds(t *testing.T) {
	doc := docmodel.ParsedDocument{Pages: []docmodel.Page{
		{PageNumber: 1, Text: words(200)},
	}}
	c := New(cfg())
	chunks, err := c.Chunk(doc, docmodel.DocumentStructure{})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		require.LessOrEqual(t, ch.TokenCount, int(float64(cfg().MaxChunkTokens)*1.5))
	}
}

func TestHybridChunkerStartsNewChunkOnHeading(t *testing.T) {
	doc := docmodel.ParsedDocument{Pages: []docmodel.Page{
		{PageNumber: 1, Text: "# Intro\n" + words(30) + "\n## Methods\n" + words(30)},
	}}
	c := New(cfg())
	chunks, err := c.Chunk(doc, docmodel.DocumentStructure{})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)
	require.Contains(t, chunks[0].Context.SectionPath, "Intro")
}

func TestHybridChunkerIdempotent(t *testing.T) {
	doc := docmodel.ParsedDocument{Pages: []docmodel.Page{
		{PageNumber: 1, Text: "# Intro\n" + words(60) + "\n## Methods\n" + words(60)},
	}}
	c := New(cfg())
	first, err := c.Chunk(doc, docmodel.DocumentStructure{})
	require.NoError(t, err)
	second, err := c.Chunk(doc, docmodel.DocumentStructure{})
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestLegacyChunkerOverlap(t *testing.T) {
	doc := docmodel.ParsedDocument{Pages: []docmodel.Page{
		{PageNumber: 1, Text: words(100)},
	}}
	c := New(Config{Strategy: "legacy", MaxChunkTokens: 50, MinChunkTokens: 10, Counter: HeuristicCounter{}})
	chunks, err := c.Chunk(doc, docmodel.DocumentStructure{})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	// 38-word windows stepping by 36 (2 words of overlap): [0,38) [36,74) [72,100).
	require.Len(t, chunks, 3)
	require.Equal(t, 28, len(strings.Fields(chunks[2].Text)))
}

func TestAttachAudioContextSetsFilename(t *testing.T) {
	s0, e0 := 0.0, 1.0
	s1, e1 := 1.0, 2.0
	chunks := []docmodel.TextChunk{
		{ChunkID: 0, StartTime: &s0, EndTime: &e0},
		{ChunkID: 1, StartTime: &s1, EndTime: &e1},
	}
	out, err := AttachAudioContext(chunks, "meeting.wav")
	require.NoError(t, err)
	for _, c := range out {
		require.Equal(t, "meeting.wav", c.Context.SectionPath)
	}
}

func TestAttachAudioContextRejectsNonMonotonic(t *testing.T) {
	s0, e0 := 5.0, 6.0
	s1, e1 := 1.0, 2.0
	chunks := []docmodel.TextChunk{
		{ChunkID: 0, StartTime: &s0, EndTime: &e0},
		{ChunkID: 1, StartTime: &s1, EndTime: &e1},
	}
	_, err := AttachAudioContext(chunks, "meeting.wav")
	require.ErrorIs(t, err, ErrNonMonotonicAudio)
}

func TestHeuristicCounterApproximatesWordsTimes1Point3(t *testing.T) {
	c := HeuristicCounter{}
	got := c.Count(words(100))
	require.InDelta(t, 130, got, 5)
}
