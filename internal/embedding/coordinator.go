package embedding

import (
	"context"
	"fmt"

	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
)

// Progress reports batch completion during a coordinated embed run, so
// callers (the status fabric, in practice) can surface incremental progress
// instead of waiting on the whole document.
type Progress func(done, total int)

// BatchConfig controls how the coordinator slices work into model calls.
// Visual and text batch sizes are independent because image payloads are
// typically far larger per item than chunk text.
type BatchConfig struct {
	VisualBatchSize int
	TextBatchSize   int
}

// Coordinator batches visual and text embedding calls against a Model,
// reporting progress as each batch completes. The processor calls this
// instead of driving the Model directly, so batch sizing lives in one place
// rather than being re-decided at every call site.
type Coordinator struct {
	model Model
	cfg   BatchConfig
}

func NewCoordinator(model Model, cfg BatchConfig) *Coordinator {
	if cfg.VisualBatchSize < 1 {
		cfg.VisualBatchSize = 4
	}
	if cfg.TextBatchSize < 1 {
		cfg.TextBatchSize = 8
	}
	return &Coordinator{model: model, cfg: cfg}
}

// EmbedPages embeds page images in batches, returning one MultiVector per
// page in input order.
func (c *Coordinator) EmbedPages(ctx context.Context, images [][]byte, onProgress Progress) ([]docmodel.MultiVector, error) {
	return batch(ctx, images, c.cfg.VisualBatchSize, onProgress, c.model.EmbedImages)
}

// EmbedChunks embeds chunk text in batches, returning one MultiVector per
// chunk in input order.
func (c *Coordinator) EmbedChunks(ctx context.Context, texts []string, onProgress Progress) ([]docmodel.MultiVector, error) {
	return batch(ctx, texts, c.cfg.TextBatchSize, onProgress, c.model.EmbedTexts)
}

func (c *Coordinator) EmbedQuery(ctx context.Context, text string) (docmodel.MultiVector, error) {
	return c.model.EmbedQuery(ctx, text)
}

func (c *Coordinator) Model() Model {
	return c.model
}

func batch[T any](
	ctx context.Context,
	items []T,
	size int,
	onProgress Progress,
	call func(context.Context, []T) ([]docmodel.MultiVector, error),
) ([]docmodel.MultiVector, error) {
	if len(items) == 0 {
		return nil, nil
	}
	out := make([]docmodel.MultiVector, 0, len(items))
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		part, err := call(ctx, items[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding: batch [%d:%d]: %w", start, end, err)
		}
		out = append(out, part...)
		if onProgress != nil {
			onProgress(end, len(items))
		}
	}
	return out, nil
}
