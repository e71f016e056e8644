package vectorstore

import (
	"context"
	"math"
	"sort"
	"strconv"
	"sync"

	"github.com/TuckerTucker/tkr-docusearch/internal/apperrors"
	"github.com/TuckerTucker/tkr-docusearch/internal/codec"
	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
)

type memoryRecord struct {
	cls        []float32
	metadata   map[string]string
	compressed string
	seqLen     int
	dim        int
	docID      string
}

// memoryStore is a cosine-similarity brute-force in-memory Store, used in
// tests and local dev without a running Qdrant instance.
type memoryStore struct {
	mu     sync.RWMutex
	visual map[string]memoryRecord
	text   map[string]memoryRecord
}

func NewMemoryStore() Store {
	return &memoryStore{
		visual: make(map[string]memoryRecord),
		text:   make(map[string]memoryRecord),
	}
}

func (s *memoryStore) AddVisual(ctx context.Context, docID string, page int, mv docmodel.MultiVector, meta VisualMeta) (string, error) {
	if err := validateMultiVector(mv); err != nil {
		return "", err
	}
	blob, seqLen, dim, err := compressFull(mv)
	if err != nil {
		return "", err
	}
	id := visualID(docID, page)
	md := map[string]string{
		"doc_id":   docID,
		"filename": meta.Filename,
		"page":     strconv.Itoa(page),
		"type":     "visual",
	}
	if meta.StructureCompressed != "" {
		md["structure_compressed"] = meta.StructureCompressed
	}
	if meta.PageContext != "" {
		md["page_context"] = meta.PageContext
	}
	if meta.Timestamp != "" {
		md["timestamp"] = meta.Timestamp
	}
	if meta.SourcePath != "" {
		md["source_path"] = meta.SourcePath
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.visual[id] = memoryRecord{
		cls:        append([]float32{}, mv.CLS()...),
		metadata:   md,
		compressed: blob,
		seqLen:     seqLen,
		dim:        dim,
		docID:      docID,
	}
	return id, nil
}

func (s *memoryStore) AddText(ctx context.Context, docID string, chunkID int, mv docmodel.MultiVector, meta TextMeta) (string, error) {
	if err := validateMultiVector(mv); err != nil {
		return "", err
	}
	blob, seqLen, dim, err := compressFull(mv)
	if err != nil {
		return "", err
	}
	id := textID(docID, chunkID)
	md := map[string]string{
		"doc_id":    docID,
		"filename":  meta.Filename,
		"page":      strconv.Itoa(meta.Page),
		"chunk_id":  strconv.Itoa(chunkID),
		"type":      "text",
		"text_preview": preview(meta.TextPreview, docmodel.TextPreviewMaxChars),
		"word_count": strconv.Itoa(meta.WordCount),
	}
	if meta.ContextCompressed != "" {
		md["context_compressed"] = meta.ContextCompressed
	}
	if meta.Timestamp != "" {
		md["timestamp"] = meta.Timestamp
	}
	if meta.SourcePath != "" {
		md["source_path"] = meta.SourcePath
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.text[id] = memoryRecord{
		cls:        append([]float32{}, mv.CLS()...),
		metadata:   md,
		compressed: blob,
		seqLen:     seqLen,
		dim:        dim,
		docID:      docID,
	}
	return id, nil
}

func (s *memoryStore) Search(ctx context.Context, collection Collection, queryCLS []float32, k int, filters Filters) ([]SearchHit, error) {
	if k <= 0 {
		k = 10
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.visual
	if collection == CollectionText {
		records = s.text
	}
	qnorm := l2norm(queryCLS)
	hits := make([]SearchHit, 0, len(records))
	for id, rec := range records {
		if !matchesFilters(rec.metadata, filters) {
			continue
		}
		score := cosineToUnit(queryCLS, rec.cls, qnorm)
		hits = append(hits, SearchHit{ID: id, Score: score, Metadata: copyMD(rec.metadata)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (s *memoryStore) GetFull(ctx context.Context, collection Collection, id string) (docmodel.MultiVector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.visual
	if collection == CollectionText {
		records = s.text
	}
	rec, ok := records[id]
	if !ok {
		return docmodel.MultiVector{}, apperrors.New(apperrors.CodeDocumentNotFound, apperrors.ClassValidation, "record not found: "+id, apperrors.ErrNotFound)
	}
	vectors, err := codec.Decompress(rec.compressed, rec.seqLen, rec.dim)
	if err != nil {
		return docmodel.MultiVector{}, apperrors.Integrity("decompress embedding", err)
	}
	return docmodel.MultiVector{Vectors: vectors}, nil
}

func (s *memoryStore) Delete(ctx context.Context, docID string) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	visualCount := deleteByDocID(s.visual, docID)
	textCount := deleteByDocID(s.text, docID)
	return visualCount, textCount, nil
}

func (s *memoryStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := map[string]bool{}
	var approxBytes int
	for _, r := range s.visual {
		docs[r.docID] = true
		approxBytes += len(r.compressed)
	}
	for _, r := range s.text {
		docs[r.docID] = true
		approxBytes += len(r.compressed)
	}
	return Stats{
		VisualCount:     len(s.visual),
		TextCount:       len(s.text),
		DistinctDocs:    len(docs),
		ApproxStorageMB: float64(approxBytes) / (1024 * 1024),
	}, nil
}

func (s *memoryStore) Close() error { return nil }

func deleteByDocID(records map[string]memoryRecord, docID string) int {
	count := 0
	for id, r := range records {
		if r.docID == docID {
			delete(records, id)
			count++
		}
	}
	return count
}

func matchesFilters(md map[string]string, f Filters) bool {
	for k, v := range f {
		if md[k] != v {
			return false
		}
	}
	return true
}

func copyMD(md map[string]string) map[string]string {
	out := make(map[string]string, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func l2norm(a []float32) float64 {
	var s float64
	for _, v := range a {
		s += float64(v) * float64(v)
	}
	return math.Sqrt(s)
}

// cosineToUnit computes cosine similarity and rescales [-1,1] to [0,1], per
// the §4.5 stage-1 score contract.
func cosineToUnit(a, b []float32, anorm float64) float64 {
	if anorm == 0 {
		anorm = l2norm(a)
	}
	bnorm := l2norm(b)
	if anorm == 0 || bnorm == 0 {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	cos := dot / (anorm * bnorm)
	score := (cos + 1) / 2
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}
