// Package embedding implements the model wrapper capability set (spec
// section 9's design note: explicit {embed_images, embed_texts, embed_query,
// score_multi_vector, info} rather than runtime attribute probing) with a
// tagged-variant implementation selector, plus the embedding coordinator
// that batches calls with progress callbacks.
package embedding

import (
	"context"

	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
)

// Dim is the fixed multi-vector dimensionality the rest of the pipeline
// assumes (spec section 3: D=768).
const Dim = 768

// Info describes a model's identity and operating mode.
type Info struct {
	Name      string
	Dim       int
	Precision string // "fp16" | "int8"; the mock variant reports "fp32"
	Variant   string // "real" | "mock" | "quantized"
}

// Model is the capability set every embedding backend must implement.
// Callers type-switch on none of this; every variant below satisfies the
// same interface, selected once at construction time.
type Model interface {
	EmbedImages(ctx context.Context, images [][]byte) ([]docmodel.MultiVector, error)
	EmbedTexts(ctx context.Context, texts []string) ([]docmodel.MultiVector, error)
	EmbedQuery(ctx context.Context, text string) (docmodel.MultiVector, error)
	ScoreMultiVector(query, doc docmodel.MultiVector) (float64, error)
	Info() Info
}

// Variant selects which Model implementation New constructs.
type Variant string

const (
	VariantReal      Variant = "real"
	VariantMock      Variant = "mock"
	VariantQuantized Variant = "quantized"
)

// Config configures model construction.
type Config struct {
	Variant   Variant
	BaseURL   string
	Model     string
	APIKey    string
	APIHeader string
	Precision string
}

// New builds the Model for the given variant, the single tagged-variant
// selection point the rest of the pipeline depends on.
func New(cfg Config) Model {
	switch cfg.Variant {
	case VariantQuantized:
		return &quantizedModel{inner: newHTTPModel(cfg)}
	case VariantMock:
		return newMockModel(cfg.Model)
	default:
		return newHTTPModel(cfg)
	}
}
