// Package docmodel holds the data types shared across the ingestion and
// retrieval pipeline: parsed documents, structural metadata, multi-vector
// embeddings, and the records persisted to the vector store.
package docmodel

import "time"

// BBox is a bounding box in PDF points with bottom-left origin:
// (left, bottom, right, top), left<right and bottom<top.
type BBox struct {
	Left   float64 `json:"left"`
	Bottom float64 `json:"bottom"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
}

// Valid reports whether the box satisfies the spec's geometric invariants.
func (b BBox) Valid() bool {
	return b.Left < b.Right && b.Bottom < b.Top && b.Left >= 0 && b.Bottom >= 0
}

// HeadingLevel classifies a heading item found during structure extraction.
type HeadingLevel string

const (
	LevelTitle      HeadingLevel = "TITLE"
	LevelSection    HeadingLevel = "SECTION_HEADER"
	LevelSubsection HeadingLevel = "SUBSECTION"
	LevelParagraph  HeadingLevel = "PARAGRAPH_HEADER"
)

// rank orders heading levels from shallowest to deepest for section-path
// stack maintenance; lower rank pops deeper levels first.
func (l HeadingLevel) rank() int {
	switch l {
	case LevelTitle:
		return 0
	case LevelSection:
		return 1
	case LevelSubsection:
		return 2
	case LevelParagraph:
		return 3
	default:
		return 4
	}
}

// Rank exposes the heading-depth ordering used by the section-path stack.
func (l HeadingLevel) Rank() int { return l.rank() }

// PictureClass classifies a detected picture item.
type PictureClass string

const (
	PictureChart   PictureClass = "chart"
	PictureDiagram PictureClass = "diagram"
	PicturePhoto   PictureClass = "photo"
	PictureLogo    PictureClass = "logo"
	PictureUnknown PictureClass = "unknown"
)

// HeadingInfo describes one heading found on a page.
type HeadingInfo struct {
	Text        string       `json:"text"`
	Level       HeadingLevel `json:"level"`
	PageNum     int          `json:"page_num"`
	BBox        *BBox        `json:"bbox,omitempty"`
	SectionPath string       `json:"section_path"`
}

// TableInfo describes a detected table.
type TableInfo struct {
	TableID   string `json:"table_id"`
	PageNum   int    `json:"page_num"`
	BBox      *BBox  `json:"bbox,omitempty"`
	NumRows   int    `json:"num_rows"`
	NumCols   int    `json:"num_cols"`
	HasHeader bool   `json:"has_header"`
}

// PictureInfo describes a detected picture/figure.
type PictureInfo struct {
	PictureID      string       `json:"picture_id"`
	PageNum        int          `json:"page_num"`
	BBox           *BBox        `json:"bbox,omitempty"`
	Classification PictureClass `json:"classification"`
}

// CodeBlockInfo describes a detected code block (flag-gated).
type CodeBlockInfo struct {
	BlockID  string `json:"block_id"`
	PageNum  int    `json:"page_num"`
	BBox     *BBox  `json:"bbox,omitempty"`
	Language string `json:"language,omitempty"`
}

// FormulaInfo describes a detected formula (flag-gated).
type FormulaInfo struct {
	FormulaID string `json:"formula_id"`
	PageNum   int    `json:"page_num"`
	BBox      *BBox  `json:"bbox,omitempty"`
}

// PageStructure aggregates all structural items found on a single page.
type PageStructure struct {
	PageNum    int             `json:"page_num"`
	Headings   []HeadingInfo   `json:"headings,omitempty"`
	Tables     []TableInfo     `json:"tables,omitempty"`
	Pictures   []PictureInfo   `json:"pictures,omitempty"`
	CodeBlocks []CodeBlockInfo `json:"code_blocks,omitempty"`
	Formulas   []FormulaInfo   `json:"formulas,omitempty"`
}

// DocumentStructure is the per-document hierarchical structure, one entry
// per visual page. It is empty (not nil) when extraction degrades fully.
type DocumentStructure struct {
	Pages []PageStructure `json:"pages"`
	// Degraded records which item classes were dropped to respect the
	// per-document size guard, in drop order.
	Degraded []string `json:"degraded,omitempty"`
}

// Pictures flattens all pictures across pages, in page order.
func (d DocumentStructure) Pictures() []PictureInfo {
	var out []PictureInfo
	for _, p := range d.Pages {
		out = append(out, p.Pictures...)
	}
	return out
}

// Tables flattens all tables across pages, in page order.
func (d DocumentStructure) Tables() []TableInfo {
	var out []TableInfo
	for _, p := range d.Pages {
		out = append(out, p.Tables...)
	}
	return out
}

// ChunkContext carries the context attached to a text chunk by the smart
// chunker: where in the document hierarchy it sits, and which structural
// elements it references.
type ChunkContext struct {
	SectionPath      string   `json:"section_path"`
	ParentHeadings   []string `json:"parent_headings,omitempty"`
	ElementTypes     []string `json:"element_types,omitempty"`
	RelatedElements  []string `json:"related_elements,omitempty"`
}

// TextPreviewMaxChars bounds the "text_preview" field persisted alongside
// every text chunk record, in both the processor's store payload and the
// vector store's metadata map.
const TextPreviewMaxChars = 200

// TextChunk is a token-bounded unit of retrievable text.
type TextChunk struct {
	ChunkID        int           `json:"chunk_id"`
	Text           string        `json:"text"`
	PageNumber     int           `json:"page_number,omitempty"`
	TokenCount     int           `json:"token_count"`
	Context        ChunkContext  `json:"context"`
	StartTime      *float64      `json:"start_time,omitempty"`
	EndTime        *float64      `json:"end_time,omitempty"`
	WordTimestamps []WordTiming  `json:"word_timestamps,omitempty"`
}

// WordTiming is one word-level timestamp from an audio transcript.
type WordTiming struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// IsAudio reports whether this chunk belongs to an audio document (time
// interval rather than a page number).
func (c TextChunk) IsAudio() bool { return c.StartTime != nil && c.EndTime != nil }

// Page is one rendered page of a visual document.
type Page struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
	ImagePath  string `json:"image_path,omitempty"`
	ThumbPath  string `json:"thumb_path,omitempty"`
	WidthPx    int    `json:"width_px,omitempty"`
	HeightPx   int    `json:"height_px,omitempty"`
}

// RenderedPage is one rasterized page produced by a page renderer, ready to
// be persisted to object storage and embedded visually.
type RenderedPage struct {
	PageNumber  int
	Data        []byte
	ContentType string
	WidthPx     int
	HeightPx    int
}

// ParsedDocument is the output of the external parser: an ordered sequence
// of pages (visual formats) and text chunks (all formats with text).
type ParsedDocument struct {
	DocID    string      `json:"doc_id"`
	Filename string      `json:"filename"`
	FileType string      `json:"file_type"`
	Pages    []Page      `json:"pages,omitempty"`
	Chunks   []TextChunk `json:"chunks,omitempty"`
}

// MultiVector is a (L, D) sequence of embedding vectors for late-interaction
// scoring. L varies per item (20-300 typical); D is fixed at 768.
type MultiVector struct {
	Vectors [][]float32 `json:"-"`
}

// Dim is the dimensionality of each vector in the sequence, 0 if empty.
func (m MultiVector) Dim() int {
	if len(m.Vectors) == 0 {
		return 0
	}
	return len(m.Vectors[0])
}

// Len is the sequence length L.
func (m MultiVector) Len() int { return len(m.Vectors) }

// CLS returns the first vector of the sequence, the ANN-indexed representative.
func (m MultiVector) CLS() []float32 {
	if len(m.Vectors) == 0 {
		return nil
	}
	return m.Vectors[0]
}

// Validate checks the invariants required before persisting: L>0, every row
// has the expected dimension, and all values are finite.
func (m MultiVector) Validate(expectedDim int) error {
	if len(m.Vectors) == 0 {
		return ErrEmptyMultiVector
	}
	for _, row := range m.Vectors {
		if len(row) != expectedDim {
			return ErrDimensionMismatch
		}
		for _, v := range row {
			if isNaNOrInf(v) {
				return ErrNonFiniteVector
			}
		}
	}
	return nil
}

func isNaNOrInf(f float32) bool {
	return f != f || f > maxFinite || f < -maxFinite
}

const maxFinite = 3.4028235e38

// ProcessingStage is a free-form label for the current activity within a
// ProcessingStatus state, e.g. "embedding page 3/10".
type ProcessingStage string

// Status is the lifecycle state of a document, per the processor state machine.
type Status string

const (
	StatusQueued          Status = "queued"
	StatusParsing         Status = "parsing"
	StatusEmbeddingVisual Status = "embedding_visual"
	StatusEmbeddingText   Status = "embedding_text"
	StatusStoring         Status = "storing"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
)

// legalNext enumerates allowed forward transitions for each status; "failed"
// is reachable from every state and is intentionally omitted from this map
// since it is handled separately.
var legalNext = map[Status][]Status{
	StatusQueued:          {StatusParsing},
	StatusParsing:         {StatusEmbeddingVisual, StatusEmbeddingText},
	StatusEmbeddingVisual: {StatusEmbeddingText},
	StatusEmbeddingText:   {StatusStoring},
	StatusStoring:         {StatusCompleted},
	StatusCompleted:       {},
	StatusFailed:          {},
}

// CanTransition reports whether moving from s to next is a legal step in the
// state machine (or a terminal failure, always allowed from a non-terminal state).
func (s Status) CanTransition(next Status) bool {
	if next == StatusFailed {
		return s != StatusCompleted && s != StatusFailed
	}
	for _, n := range legalNext[s] {
		if n == next {
			return true
		}
	}
	return false
}

// ProcessingStatus is the per-document lifecycle record.
type ProcessingStatus struct {
	DocID            string          `json:"doc_id"`
	Filename         string          `json:"filename"`
	Status           Status          `json:"status"`
	Progress         float64         `json:"progress"`
	Stage            ProcessingStage `json:"stage"`
	StartedAt        time.Time       `json:"started_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Error            string          `json:"error,omitempty"`
	VisualEmbeddings int             `json:"visual_embeddings,omitempty"`
	TextEmbeddings   int             `json:"text_embeddings,omitempty"`
}

// Reference is one citation target in a research answer.
type Reference struct {
	CitationNumber int    `json:"citation_number"`
	DocID          string `json:"doc_id"`
	Filename       string `json:"filename"`
	Page           int    `json:"page"`
	ThumbnailURL   string `json:"thumbnail_url,omitempty"`
	IsVisual       bool   `json:"is_visual"`
}

// ResearchResult is the final, cited answer returned by the research orchestrator.
type ResearchResult struct {
	AnswerMarkdown string         `json:"answer_markdown"`
	References     []Reference    `json:"references"`
	Metadata       map[string]any `json:"metadata"`
}
