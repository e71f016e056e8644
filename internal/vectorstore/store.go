// Package vectorstore implements the two-collection (visual + text) vector
// store adapter: ANN search keyed on the CLS token, full multi-vector
// sequences carried as compressed metadata, and cascade delete across both
// collections.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/TuckerTucker/tkr-docusearch/internal/apperrors"
	"github.com/TuckerTucker/tkr-docusearch/internal/codec"
	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
)

// Collection names the two ANN collections this store always maintains.
type Collection string

const (
	CollectionVisual Collection = "visual"
	CollectionText   Collection = "text"
)

// VisualMeta is the payload stored alongside a visual collection record.
type VisualMeta struct {
	DocID               string
	Filename            string
	Page                int
	BBox                *docmodel.BBox
	StructureCompressed string
	PageContext         string
	Timestamp           string
	SourcePath          string
}

// TextMeta is the payload stored alongside a text collection record.
type TextMeta struct {
	DocID            string
	Filename         string
	Page             int
	ChunkID          int
	TextPreview      string
	WordCount        int
	ContextCompressed string
	Timestamp        string
	SourcePath       string
}

// SearchHit is a stage-1 ANN result: id, cosine score in [0,1], and metadata
// excluding the full (compressed) embedding sequence.
type SearchHit struct {
	ID       string
	Score    float64
	Metadata map[string]string
}

// Filters are exact-match predicates applied over stored metadata.
type Filters map[string]string

// Stats reports collection sizes, per spec §4.5.
type Stats struct {
	VisualCount     int
	TextCount       int
	DistinctDocs    int
	ApproxStorageMB float64
}

// Store is the vector store adapter contract. Both the Qdrant-backed and
// in-memory implementations below satisfy it identically.
type Store interface {
	AddVisual(ctx context.Context, docID string, page int, mv docmodel.MultiVector, meta VisualMeta) (string, error)
	AddText(ctx context.Context, docID string, chunkID int, mv docmodel.MultiVector, meta TextMeta) (string, error)
	Search(ctx context.Context, collection Collection, queryCLS []float32, k int, filters Filters) ([]SearchHit, error)
	GetFull(ctx context.Context, collection Collection, id string) (docmodel.MultiVector, error)
	Delete(ctx context.Context, docID string) (visualCount, textCount int, err error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

func visualID(docID string, page int) string {
	return fmt.Sprintf("%s-page%03d", docID, page)
}

func textID(docID string, chunkID int) string {
	return fmt.Sprintf("%s-chunk%04d", docID, chunkID)
}

// validateMultiVector enforces spec §3's MultiVector invariant before
// anything is written. The 2MB-compressed-record budget from §4.1/§4.5 is
// checked afterwards, by codec.Compress inside compressFull.
func validateMultiVector(mv docmodel.MultiVector) error {
	if err := mv.Validate(768); err != nil {
		return apperrors.Validation("embedding validation", err)
	}
	return nil
}

func compressFull(mv docmodel.MultiVector) (string, int, int, error) {
	blob, err := codec.Compress(mv.Vectors)
	if err != nil {
		return "", 0, 0, apperrors.Integrity("compress embedding", err)
	}
	return blob, mv.Len(), mv.Dim(), nil
}
