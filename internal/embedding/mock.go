package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
)

// mockModel deterministically derives multi-vectors from input content by
// hashing character 3-grams into fixed-size buckets, then L2-normalizing
// each row. No network calls, no randomness — same input always produces
// the same output, which is what makes it useful in tests and local dev.
type mockModel struct {
	name string
}

func newMockModel(name string) *mockModel {
	if name == "" {
		name = "mock-colbert"
	}
	return &mockModel{name: name}
}

func (m *mockModel) EmbedTexts(ctx context.Context, texts []string) ([]docmodel.MultiVector, error) {
	out := make([]docmodel.MultiVector, len(texts))
	for i, t := range texts {
		out[i] = embedDeterministic(t, rowsForText(t))
	}
	return out, nil
}

func (m *mockModel) EmbedImages(ctx context.Context, images [][]byte) ([]docmodel.MultiVector, error) {
	out := make([]docmodel.MultiVector, len(images))
	for i, img := range images {
		out[i] = embedDeterministic(string(img), 32)
	}
	return out, nil
}

func (m *mockModel) EmbedQuery(ctx context.Context, text string) (docmodel.MultiVector, error) {
	return embedDeterministic(text, rowsForText(text)), nil
}

func (m *mockModel) ScoreMultiVector(query, doc docmodel.MultiVector) (float64, error) {
	return MaxSim(query, doc)
}

func (m *mockModel) Info() Info {
	return Info{Name: m.name, Dim: Dim, Precision: "fp32", Variant: string(VariantMock)}
}

// rowsForText derives a stable row count from the input's word count so
// short and long texts don't all produce identically shaped vectors, while
// staying bounded.
func rowsForText(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 1
	}
	if words > 64 {
		return 64
	}
	return words
}

func embedDeterministic(text string, rows int) docmodel.MultiVector {
	if rows < 1 {
		rows = 1
	}
	vectors := make([][]float32, rows)
	for r := 0; r < rows; r++ {
		vectors[r] = hashRow(text, r)
	}
	return docmodel.MultiVector{Vectors: vectors}
}

// hashRow hashes every 3-gram of text (perturbed by the row seed) into one
// of Dim buckets, accumulating sign-adjusted counts, then L2-normalizes.
func hashRow(text string, seed int) []float32 {
	vec := make([]float64, Dim)
	runes := []rune(text)
	if len(runes) < 3 {
		runes = append(runes, []rune("   ")...)
	}
	for i := 0; i+3 <= len(runes); i++ {
		gram := string(runes[i : i+3])
		h := fnv.New64a()
		h.Write([]byte(gram))
		h.Write([]byte{byte(seed), byte(seed >> 8)})
		sum := h.Sum64()
		idx := int(sum % uint64(Dim))
		if (sum>>32)%2 == 0 {
			vec[idx] += 1
		} else {
			vec[idx] -= 1
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, Dim)
	if norm > 0 {
		n := math.Sqrt(norm)
		for i, v := range vec {
			out[i] = float32(v / n)
		}
	} else {
		out[0] = 1
	}
	return out
}
