// Package retrieve implements the two-stage retrieval engine: ANN
// candidate search keyed on the query's CLS token, followed by MaxSim
// late-interaction re-ranking over each candidate's full multi-vector
// sequence, then hybrid fusion and stable tie-break ordering.
package retrieve

import (
	"context"
	"fmt"
	"sort"

	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
	"github.com/TuckerTucker/tkr-docusearch/internal/embedding"
	"github.com/TuckerTucker/tkr-docusearch/internal/vectorstore"
)

// Mode selects which collection(s) a search draws candidates from.
type Mode string

const (
	ModeVisual Mode = "visual"
	ModeText   Mode = "text"
	ModeHybrid Mode = "hybrid"
)

const (
	stage1K  = 100 // ANN candidates pulled per collection
	rerankN  = 20  // top-N of each ANN list carried into MaxSim re-ranking
)

// Options configures one Search call.
type Options struct {
	Mode         Mode
	NumSources   int
	Filters      vectorstore.Filters
	VisualWeight float64 // hybrid fusion weight, default 0.5
	TextWeight   float64 // hybrid fusion weight, default 0.5
}

// Hit is one final, re-ranked, fused retrieval result.
type Hit struct {
	ID         string
	DocID      string
	Filename   string
	Page       int
	IsVisual   bool
	Score      float64
	Metadata   map[string]string
}

// Engine runs Search over a vectorstore.Store using an embedding.Coordinator
// to embed the query and score candidates via late-interaction MaxSim.
type Engine struct {
	store       vectorstore.Store
	coordinator *embedding.Coordinator
}

func New(store vectorstore.Store, coordinator *embedding.Coordinator) *Engine {
	return &Engine{store: store, coordinator: coordinator}
}

// Search runs the full two-stage pipeline and returns up to
// opts.NumSources fused, re-ranked hits. An empty result is a normal
// outcome, not an error.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]Hit, error) {
	if opts.NumSources <= 0 {
		opts.NumSources = 10
	}
	if opts.Mode == "" {
		opts.Mode = ModeHybrid
	}

	queryMV, err := e.coordinator.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieve: embed query: %w", err)
	}
	queryCLS := queryMV.CLS()

	var visualHits, textHits []Hit
	if opts.Mode == ModeVisual || opts.Mode == ModeHybrid {
		visualHits, err = e.searchCollection(ctx, vectorstore.CollectionVisual, queryCLS, queryMV, opts.Filters)
		if err != nil {
			return nil, fmt.Errorf("retrieve: visual stage: %w", err)
		}
	}
	if opts.Mode == ModeText || opts.Mode == ModeHybrid {
		textHits, err = e.searchCollection(ctx, vectorstore.CollectionText, queryCLS, queryMV, opts.Filters)
		if err != nil {
			return nil, fmt.Errorf("retrieve: text stage: %w", err)
		}
	}

	// Fusion weights only make sense when both modalities are in play — a
	// pure ModeVisual/ModeText search must pass its MaxSim score through
	// unscaled so a self-match still lands at ~1.0.
	if opts.Mode == ModeHybrid {
		vw, tw := opts.VisualWeight, opts.TextWeight
		if vw == 0 && tw == 0 {
			vw, tw = 0.5, 0.5
		}
		for i := range visualHits {
			visualHits[i].Score *= vw
		}
		for i := range textHits {
			textHits[i].Score *= tw
		}
	}

	fused := fuse(visualHits, textHits)
	sortHits(fused)

	if len(fused) > opts.NumSources {
		fused = fused[:opts.NumSources]
	}
	return fused, nil
}

// searchCollection runs stage 1 (ANN candidates) then stage 2 (MaxSim
// re-rank over the top rerankN) for a single collection.
func (e *Engine) searchCollection(
	ctx context.Context,
	collection vectorstore.Collection,
	queryCLS []float32,
	queryMV docmodel.MultiVector,
	filters vectorstore.Filters,
) ([]Hit, error) {
	candidates, err := e.store.Search(ctx, collection, queryCLS, stage1K, filters)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	n := rerankN
	if n > len(candidates) {
		n = len(candidates)
	}
	top := candidates[:n]

	hits := make([]Hit, 0, len(top))
	for _, c := range top {
		full, err := e.store.GetFull(ctx, collection, c.ID)
		if err != nil {
			// A single missing/corrupt record degrades to its stage-1 ANN
			// score rather than dropping the candidate outright.
			hits = append(hits, toHit(c, c.Score, collection))
			continue
		}
		score, err := embedding.MaxSim(queryMV, full)
		if err != nil {
			hits = append(hits, toHit(c, c.Score, collection))
			continue
		}
		hits = append(hits, toHit(c, score, collection))
	}

	sortHits(hits)
	return hits, nil
}

func toHit(c vectorstore.SearchHit, score float64, collection vectorstore.Collection) Hit {
	page := 0
	if p, ok := c.Metadata["page"]; ok {
		fmt.Sscanf(p, "%d", &page)
	}
	return Hit{
		ID:       c.ID,
		DocID:    c.Metadata["doc_id"],
		Filename: c.Metadata["filename"],
		Page:     page,
		IsVisual: collection == vectorstore.CollectionVisual,
		Score:    score,
		Metadata: c.Metadata,
	}
}

// fuse merges visual and text hit lists, deduping by (doc_id, page) and
// keeping the higher score when both modalities hit the same page.
func fuse(visual, text []Hit) []Hit {
	byKey := make(map[string]Hit, len(visual)+len(text))
	order := make([]string, 0, len(visual)+len(text))
	add := func(h Hit) {
		key := fmt.Sprintf("%s|%d", h.DocID, h.Page)
		if existing, ok := byKey[key]; !ok || h.Score > existing.Score {
			if !ok {
				order = append(order, key)
			}
			byKey[key] = h
		}
	}
	for _, h := range visual {
		add(h)
	}
	for _, h := range text {
		add(h)
	}
	out := make([]Hit, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	return out
}

// sortHits orders by score descending; ties break by shorter filename,
// then lower page, then lexicographic doc_id, for stable deterministic
// output across repeated runs against the same store.
func sortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if len(a.Filename) != len(b.Filename) {
			return len(a.Filename) < len(b.Filename)
		}
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		return a.DocID < b.DocID
	})
}
