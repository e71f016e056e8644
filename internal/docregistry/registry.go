// Package docregistry holds the completed-document catalog: the record
// GET /documents and GET /documents/{doc_id} serve from, independent of the
// vector store's embedding records. It is populated once a document
// finishes processing and removed on delete, in step with the vector
// store's own cascade delete.
package docregistry

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
)

// Record is one catalog entry: everything GET /documents/{doc_id} returns,
// plus the fields the list endpoint sorts and filters on.
type Record struct {
	DocID     string
	Filename  string
	FileType  string
	DateAdded time.Time
	Pages     []docmodel.Page
	Chunks    []docmodel.TextChunk
	Structure docmodel.DocumentStructure
}

// PageCount is the number of visual pages (0 for audio-only documents).
func (r Record) PageCount() int { return len(r.Pages) }

// SortField selects the GET /documents ordering key.
type SortField string

const (
	SortDateAdded SortField = "date_added"
	SortFilename  SortField = "filename"
	SortPageCount SortField = "page_count"
)

// ListOptions configures a List call.
type ListOptions struct {
	Limit  int
	Offset int
	Search string // case-insensitive filename substring match
	SortBy SortField
}

// ListResult is the paginated response for GET /documents.
type ListResult struct {
	Records []Record
	Total   int
}

// Registry is an in-memory, mutex-guarded document catalog. It holds no
// state the vector store or object store already owns canonically — it
// exists purely to answer catalog queries without re-reading every chunk's
// embedding metadata.
type Registry struct {
	mu      sync.RWMutex
	records map[string]Record
	clock   Clock
}

// Clock abstracts time for deterministic DateAdded stamping in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func New() *Registry {
	return &Registry{records: make(map[string]Record), clock: SystemClock{}}
}

// NewWithClock is New with an injected Clock, for deterministic tests.
func NewWithClock(clock Clock) *Registry {
	r := New()
	r.clock = clock
	return r
}

// Put inserts or replaces a document's catalog entry. DateAdded is preserved
// across a reprocess of the same doc_id (a re-upload doesn't reset a
// document's original arrival time).
func (r *Registry) Put(docID, filename, fileType string, pages []docmodel.Page, chunks []docmodel.TextChunk, ds docmodel.DocumentStructure) Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	addedAt := r.clock.Now().UTC()
	if existing, ok := r.records[docID]; ok {
		addedAt = existing.DateAdded
	}

	rec := Record{
		DocID:     docID,
		Filename:  filename,
		FileType:  fileType,
		DateAdded: addedAt,
		Pages:     pages,
		Chunks:    chunks,
		Structure: ds,
	}
	r.records[docID] = rec
	return rec
}

// Get returns one document's catalog entry.
func (r *Registry) Get(docID string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[docID]
	return rec, ok
}

// Delete removes a document's catalog entry. Not an error if absent — the
// caller may be cleaning up after a vector-store delete that already
// completed.
func (r *Registry) Delete(docID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, docID)
}

// List returns a filtered, sorted, paginated view of the catalog.
func (r *Registry) List(opts ListOptions) ListResult {
	r.mu.RLock()
	all := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		all = append(all, rec)
	}
	r.mu.RUnlock()

	if q := strings.ToLower(strings.TrimSpace(opts.Search)); q != "" {
		filtered := all[:0:0]
		for _, rec := range all {
			if strings.Contains(strings.ToLower(rec.Filename), q) {
				filtered = append(filtered, rec)
			}
		}
		all = filtered
	}

	sortBy := opts.SortBy
	if sortBy == "" {
		sortBy = SortDateAdded
	}
	sort.Slice(all, func(i, j int) bool {
		switch sortBy {
		case SortFilename:
			if all[i].Filename != all[j].Filename {
				return all[i].Filename < all[j].Filename
			}
		case SortPageCount:
			if all[i].PageCount() != all[j].PageCount() {
				return all[i].PageCount() > all[j].PageCount()
			}
		default:
			if !all[i].DateAdded.Equal(all[j].DateAdded) {
				return all[i].DateAdded.After(all[j].DateAdded)
			}
		}
		return all[i].DocID < all[j].DocID
	})

	total := len(all)
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return ListResult{Records: nil, Total: total}
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return ListResult{Records: all[offset:end], Total: total}
}
