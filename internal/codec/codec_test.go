package codec

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func randomVectors(l, d int, seed int64) [][]float32 {
	r := rand.New(rand.NewSource(seed))
	out := make([][]float32, l)
	for i := range out {
		row := make([]float32, d)
		for j := range row {
			row[j] = r.Float32()*2 - 1
		}
		out[i] = row
	}
	return out
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	vectors := randomVectors(64, 768, 1)

	blob, err := Compress(vectors)
	require.NoError(t, err)
	require.NotEmpty(t, blob)

	got, err := Decompress(blob, 64, 768)
	require.NoError(t, err)
	require.Equal(t, vectors, got)
}

func TestCompressIsPrintable(t *testing.T) {
	vectors := randomVectors(20, 128, 2)
	blob, err := Compress(vectors)
	require.NoError(t, err)
	for _, r := range blob {
		require.True(t, r >= 0x21 && r <= 0x7E, "non-printable rune %q in blob", r)
	}
}

func TestDecompressRejectsWrongShape(t *testing.T) {
	vectors := randomVectors(10, 16, 3)
	blob, err := Compress(vectors)
	require.NoError(t, err)

	_, err = Decompress(blob, 10, 32)
	require.Error(t, err)
}

func TestDecompressRejectsInvalidShape(t *testing.T) {
	_, err := Decompress("anything", 0, 16)
	require.Error(t, err)
}

func TestCompressSmallVectorsAreSmallerThanNaiveEncoding(t *testing.T) {
	// Structured (low-entropy) vectors compress well; this exercises the
	// DEFLATE stage rather than asserting a specific ratio on random data.
	l, d := 100, 768
	vectors := make([][]float32, l)
	for i := range vectors {
		row := make([]float32, d)
		for j := range row {
			row[j] = 0.5
		}
		vectors[i] = row
	}
	blob, err := Compress(vectors)
	require.NoError(t, err)
	require.Less(t, len(blob), l*d*4)
}
