package embedding

import (
	"context"
	"math"

	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
)

// quantizedModel wraps another Model and simulates int8 quantization on its
// outputs: each row is rescaled to its own max-abs value, rounded to
// 1/127 steps, and rescaled back. This keeps MaxSim scoring meaningful
// (direction is preserved, only magnitude precision is lost) while giving
// callers something that approximates the memory/bandwidth profile of a
// genuinely quantized model.
type quantizedModel struct {
	inner Model
}

func (q *quantizedModel) EmbedImages(ctx context.Context, images [][]byte) ([]docmodel.MultiVector, error) {
	mv, err := q.inner.EmbedImages(ctx, images)
	if err != nil {
		return nil, err
	}
	return quantizeAll(mv), nil
}

func (q *quantizedModel) EmbedTexts(ctx context.Context, texts []string) ([]docmodel.MultiVector, error) {
	mv, err := q.inner.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}
	return quantizeAll(mv), nil
}

func (q *quantizedModel) EmbedQuery(ctx context.Context, text string) (docmodel.MultiVector, error) {
	mv, err := q.inner.EmbedQuery(ctx, text)
	if err != nil {
		return docmodel.MultiVector{}, err
	}
	return quantize(mv), nil
}

func (q *quantizedModel) ScoreMultiVector(query, doc docmodel.MultiVector) (float64, error) {
	return MaxSim(query, doc)
}

func (q *quantizedModel) Info() Info {
	info := q.inner.Info()
	info.Precision = "int8"
	info.Variant = string(VariantQuantized)
	return info
}

func quantizeAll(in []docmodel.MultiVector) []docmodel.MultiVector {
	out := make([]docmodel.MultiVector, len(in))
	for i, mv := range in {
		out[i] = quantize(mv)
	}
	return out
}

const quantSteps = 127

func quantize(mv docmodel.MultiVector) docmodel.MultiVector {
	out := make([][]float32, len(mv.Vectors))
	for i, row := range mv.Vectors {
		out[i] = quantizeRow(row)
	}
	return docmodel.MultiVector{Vectors: out}
}

func quantizeRow(row []float32) []float32 {
	var maxAbs float32
	for _, v := range row {
		a := v
		if a < 0 {
			a = -a
		}
		if a > maxAbs {
			maxAbs = a
		}
	}
	out := make([]float32, len(row))
	if maxAbs == 0 {
		return out
	}
	scale := maxAbs / quantSteps
	for i, v := range row {
		step := math.Round(float64(v / scale))
		out[i] = float32(step) * scale
	}
	return out
}
