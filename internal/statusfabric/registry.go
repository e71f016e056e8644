package statusfabric

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// UploadIntent is the request body for intent registration, posted before
// the file's bytes arrive.
type UploadIntent struct {
	Filename     string
	ExpectedSize int64
	// ContentHash, when known up front, lets the registry compute the final
	// doc_id immediately instead of a provisional one.
	ContentHash string
}

// RegisterResult is returned from Register.
type RegisterResult struct {
	DocID       string
	IsDuplicate bool
	ExistingDoc string
}

type uploadRecord struct {
	docID       string
	contentHash string
}

// Registry tracks upload intents and their resulting doc_ids so duplicate
// uploads (same content hash) can be detected before reprocessing work is
// wasted.
type Registry struct {
	mu       sync.Mutex
	byHash   map[string]uploadRecord
	maxQueue int
	active   int
	clock    Clock
}

func NewRegistry(maxQueue int) *Registry {
	if maxQueue < 1 {
		maxQueue = 16
	}
	return &Registry{byHash: make(map[string]uploadRecord), maxQueue: maxQueue, clock: SystemClock{}}
}

// NewRegistryWithClock is NewRegistry with an injected Clock, for
// deterministic provisional-hash tests.
func NewRegistryWithClock(maxQueue int, clock Clock) *Registry {
	r := NewRegistry(maxQueue)
	r.clock = clock
	return r
}

// Register computes a doc_id for the intent: deterministic from the content
// hash when known, otherwise a provisional one salted with filename+size+
// registration time, so two different uploads sharing a name never collide
// before their real hash is known. Once the caller learns the true content
// hash (after bytes land), a second Register call with ContentHash set
// reclassifies the upload as a duplicate if one already exists.
func (r *Registry) Register(intent UploadIntent) RegisterResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	hash := intent.ContentHash
	if hash == "" {
		hash = provisionalHash(intent.Filename, intent.ExpectedSize, r.clock.Now().UnixNano())
	}

	if existing, ok := r.byHash[hash]; ok {
		return RegisterResult{DocID: existing.docID, IsDuplicate: true, ExistingDoc: existing.docID}
	}

	docID := uuid.NewSHA1(uuid.NameSpaceOID, []byte(hash)).String()
	r.byHash[hash] = uploadRecord{docID: docID, contentHash: hash}
	return RegisterResult{DocID: docID, IsDuplicate: false}
}

// TryAcquireSlot reserves one active-processing slot, returning false (and
// reserving nothing) if the queue is already at MAX_QUEUE capacity — the
// caller should respond 429.
func (r *Registry) TryAcquireSlot() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active >= r.maxQueue {
		return false
	}
	r.active++
	return true
}

// ReleaseSlot frees a processing slot acquired by TryAcquireSlot.
func (r *Registry) ReleaseSlot() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active > 0 {
		r.active--
	}
}

// ShadowDocID derives a staging identity distinct from docID. No processor
// or vectorstore code calls it: nothing writes records under this id or
// swaps them into place of docID's records.
func ShadowDocID(docID string) string {
	return docID + "-shadow"
}

func provisionalHash(filename string, size int64, salt int64) string {
	h := sha1.New()
	fmt.Fprintf(h, "%s:%d:%d", filename, size, salt)
	return hex.EncodeToString(h.Sum(nil))
}
