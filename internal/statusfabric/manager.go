// Package statusfabric implements the document lifecycle status manager, its
// WebSocket broadcast hub, and the cross-client upload registration that
// lets a second client's optimistic placeholder reconcile with the real
// processing record once it completes.
package statusfabric

import (
	"fmt"
	"sync"
	"time"

	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
)

// Message is the envelope broadcast on the hub. Which of the fields below
// are populated depends on Type.
type Message struct {
	Type      string    `json:"type"`
	DocID     string    `json:"doc_id,omitempty"`
	Status    string    `json:"status,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	Progress  float64   `json:"progress,omitempty"`
	Filename  string    `json:"filename,omitempty"`
	Level     string    `json:"level,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Manager owns the per-document ProcessingStatus records: transitions,
// progress monotonicity, the staleness timeout watch, and broadcast to the
// Hub. It does not itself know about the processor's internals — the
// processor calls Advance/Fail as it moves through its pipeline.
type Manager struct {
	mu      sync.RWMutex
	records map[string]docmodel.ProcessingStatus
	hub     *Hub
	clock   Clock
	logger  Logger
	timeout time.Duration
}

func NewManager(hub *Hub, opts ...Option) *Manager {
	m := &Manager{
		records: make(map[string]docmodel.ProcessingStatus),
		hub:     hub,
		clock:   SystemClock{},
		logger:  NoopLogger{},
		timeout: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register creates a queued status record for a newly uploaded document and
// broadcasts upload_registered so other connected clients can render an
// optimistic placeholder.
func (m *Manager) Register(docID, filename string) docmodel.ProcessingStatus {
	now := m.clock.Now()
	status := docmodel.ProcessingStatus{
		DocID:     docID,
		Filename:  filename,
		Status:    docmodel.StatusQueued,
		Progress:  0,
		Stage:     "queued",
		StartedAt: now,
		UpdatedAt: now,
	}
	m.mu.Lock()
	m.records[docID] = status
	m.mu.Unlock()

	m.broadcast(Message{Type: "upload_registered", DocID: docID, Filename: filename, Timestamp: now})
	return status
}

// Reprocess resets a document to queued, but only if it isn't already
// actively processing — re-processing a completed or failed doc is allowed,
// re-processing one mid-pipeline is not.
func (m *Manager) Reprocess(docID string) error {
	m.mu.Lock()
	rec, ok := m.records[docID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("statusfabric: unknown doc %s", docID)
	}
	if rec.Status != docmodel.StatusCompleted && rec.Status != docmodel.StatusFailed {
		m.mu.Unlock()
		return fmt.Errorf("statusfabric: doc %s is already active (%s)", docID, rec.Status)
	}
	now := m.clock.Now()
	rec.Status = docmodel.StatusQueued
	rec.Progress = 0
	rec.Stage = "queued"
	rec.StartedAt = now
	rec.UpdatedAt = now
	rec.Error = ""
	m.records[docID] = rec
	m.mu.Unlock()

	m.broadcastUpdate(rec)
	return nil
}

// Advance moves a document to next, bumping progress (never lowering it)
// and replacing the stage label. Returns an error if the transition is
// illegal per the state machine.
func (m *Manager) Advance(docID string, next docmodel.Status, progress float64, stage docmodel.ProcessingStage) error {
	m.mu.Lock()
	rec, ok := m.records[docID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("statusfabric: unknown doc %s", docID)
	}
	if !rec.Status.CanTransition(next) {
		m.mu.Unlock()
		return fmt.Errorf("statusfabric: illegal transition %s -> %s for doc %s", rec.Status, next, docID)
	}
	if progress > rec.Progress {
		rec.Progress = progress
	}
	rec.Status = next
	rec.Stage = stage
	rec.UpdatedAt = m.clock.Now()
	m.records[docID] = rec
	m.mu.Unlock()

	m.broadcastUpdate(rec)
	return nil
}

// Fail marks a document failed from any non-terminal state. This is always
// legal; the processor is the sole owner of this terminal decision.
func (m *Manager) Fail(docID string, cause error) error {
	m.mu.Lock()
	rec, ok := m.records[docID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("statusfabric: unknown doc %s", docID)
	}
	if !rec.Status.CanTransition(docmodel.StatusFailed) {
		m.mu.Unlock()
		return fmt.Errorf("statusfabric: doc %s is already terminal (%s)", docID, rec.Status)
	}
	rec.Status = docmodel.StatusFailed
	rec.Stage = "failed"
	rec.UpdatedAt = m.clock.Now()
	if cause != nil {
		rec.Error = cause.Error()
	}
	m.records[docID] = rec
	m.mu.Unlock()

	m.broadcastUpdate(rec)
	return nil
}

// RecordEmbeddings updates embedding counters shown in the status card,
// without affecting status/progress.
func (m *Manager) RecordEmbeddings(docID string, visual, text int) {
	m.mu.Lock()
	rec, ok := m.records[docID]
	if !ok {
		m.mu.Unlock()
		return
	}
	rec.VisualEmbeddings = visual
	rec.TextEmbeddings = text
	rec.UpdatedAt = m.clock.Now()
	m.records[docID] = rec
	m.mu.Unlock()
}

func (m *Manager) broadcastUpdate(rec docmodel.ProcessingStatus) {
	m.broadcast(Message{
		Type:      "status_update",
		DocID:     rec.DocID,
		Status:    string(rec.Status),
		Stage:     string(rec.Stage),
		Progress:  rec.Progress,
		Filename:  rec.Filename,
		Timestamp: rec.UpdatedAt,
	})
}

// Log broadcasts a log-type message, optionally scoped to a document.
func (m *Manager) Log(level, message, docID string) {
	m.broadcast(Message{Type: "log", Level: level, Message: message, DocID: docID, Timestamp: m.clock.Now()})
	if level == "error" {
		m.logger.Error(message, map[string]any{"doc_id": docID})
	} else {
		m.logger.Info(message, map[string]any{"doc_id": docID})
	}
}

func (m *Manager) broadcast(msg Message) {
	if m.hub != nil {
		m.hub.Broadcast(msg)
	}
}

// Get returns a single document's status record.
func (m *Manager) Get(docID string) (docmodel.ProcessingStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[docID]
	return rec, ok
}

// Active returns every record whose status isn't yet terminal, for
// /status/active.
func (m *Manager) Active() []docmodel.ProcessingStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]docmodel.ProcessingStatus, 0, len(m.records))
	for _, rec := range m.records {
		if rec.Status != docmodel.StatusCompleted && rec.Status != docmodel.StatusFailed {
			out = append(out, rec)
		}
	}
	return out
}

// Queue returns pending (queued) plus active records, for /status/queue.
func (m *Manager) Queue() []docmodel.ProcessingStatus {
	return m.Active()
}

// Stale reports documents that haven't advanced within the configured
// timeout. Per spec these are surfaced as warnings, never auto-failed — the
// processor alone decides terminal state.
func (m *Manager) Stale() []docmodel.ProcessingStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := m.clock.Now()
	var out []docmodel.ProcessingStatus
	for _, rec := range m.records {
		if rec.Status == docmodel.StatusCompleted || rec.Status == docmodel.StatusFailed {
			continue
		}
		if now.Sub(rec.UpdatedAt) > m.timeout {
			out = append(out, rec)
		}
	}
	return out
}

// Stats aggregates record counts by status, for GET /status/stats.
func (m *Manager) Stats() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int)
	for _, rec := range m.records {
		out[string(rec.Status)]++
	}
	return out
}
