package embedding

import (
	"math"

	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
)

// MaxSim computes the late-interaction score between a query and a document
// multi-vector: L2-normalize both, compute the similarity matrix Q·Dᵀ, sum
// each query row's max over document rows, then normalize by Lq so the
// result lands in [0, 1].
func MaxSim(query, doc docmodel.MultiVector) (float64, error) {
	if err := query.Validate(Dim); err != nil {
		return 0, err
	}
	if err := doc.Validate(Dim); err != nil {
		return 0, err
	}

	q := normalizeRows(query.Vectors)
	d := normalizeRows(doc.Vectors)

	var total float64
	for _, qRow := range q {
		best := math.Inf(-1)
		for _, dRow := range d {
			s := dot(qRow, dRow)
			if s > best {
				best = s
			}
		}
		total += best
	}
	score := total / float64(len(q))
	// Cosine similarities land in [-1, 1]; MaxSim normalized by Lq is a sum
	// of per-row maxima, so rescale the [-1, 1] range to [0, 1].
	score = (score + 1) / 2
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, nil
}

func normalizeRows(rows [][]float32) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		var sumSq float64
		r := make([]float64, len(row))
		for j, v := range row {
			r[j] = float64(v)
			sumSq += r[j] * r[j]
		}
		if sumSq > 0 {
			norm := math.Sqrt(sumSq)
			for j := range r {
				r[j] /= norm
			}
		}
		out[i] = r
	}
	return out
}

func dot(a, b []float64) float64 {
	var s float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		s += a[i] * b[i]
	}
	return s
}
