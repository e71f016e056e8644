// Package structure implements the structure extractor: turning a parsed
// document's page text into a hierarchical DocumentStructure (headings,
// tables, pictures, code blocks) with a section-path heading stack and a
// serialized-size guard that degrades gracefully. Formulas are never
// detected; EnableFormulaEnrichment has no effect.
package structure

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
)

// SizeGuardBytes is the per-document serialized-size cap before degradation
// kicks in (spec: ~80 KB).
const SizeGuardBytes = 80 * 1024

// Options configures which enrichments are active, mirroring the
// ENABLE_TABLE_STRUCTURE / ENABLE_PICTURE_CLASSIFICATION /
// ENABLE_CODE_ENRICHMENT / ENABLE_FORMULA_ENRICHMENT flags.
type Options struct {
	EnableTableStructure        bool
	EnablePictureClassification bool
	EnableCodeEnrichment        bool
	EnableFormulaEnrichment     bool
}

var (
	headingRe = regexp.MustCompile(`(?m)^(#{1,4})\s+(.+)$`)
	tableRe   = regexp.MustCompile(`(?m)^\|.+\|\s*$`)
	figureRe  = regexp.MustCompile(`(?i)^\s*(figure|fig\.?)\s*\d+`)
	codeFence = regexp.MustCompile("(?m)^```")
)

// Extract builds a DocumentStructure from a parsed document's pages. A panic
// while processing a page is recovered: that page contributes an empty
// PageStructure carrying only its page number, and later pages are still
// processed.
func Extract(doc docmodel.ParsedDocument, opt Options) docmodel.DocumentStructure {
	var ds docmodel.DocumentStructure
	stack := newHeadingStack()

	for _, page := range doc.Pages {
		ps := extractPage(page, opt, stack)
		ds.Pages = append(ds.Pages, ps)
	}

	degraded := applySizeGuard(&ds, opt)
	ds.Degraded = degraded
	return ds
}

func extractPage(page docmodel.Page, opt Options, stack *headingStack) (ps docmodel.PageStructure) {
	defer func() {
		if r := recover(); r != nil {
			ps = docmodel.PageStructure{PageNum: page.PageNumber}
		}
	}()

	ps.PageNum = page.PageNumber
	lines := strings.Split(page.Text, "\n")

	var codeOpen bool
	var codeStart int
	nextID := 1
	skipUntil := 0

	for i, line := range lines {
		if i < skipUntil {
			continue
		}
		if m := headingRe.FindStringSubmatch(line); m != nil {
			level := headingLevelForMarker(len(m[1]))
			text := strings.TrimSpace(m[2])
			path := stack.push(level, text)
			ps.Headings = append(ps.Headings, docmodel.HeadingInfo{
				Text:        text,
				Level:       level,
				PageNum:     page.PageNumber,
				SectionPath: path,
			})
			continue
		}

		if opt.EnableCodeEnrichment && codeFence.MatchString(line) {
			if !codeOpen {
				codeOpen = true
				codeStart = i
			} else {
				codeOpen = false
				ps.CodeBlocks = append(ps.CodeBlocks, docmodel.CodeBlockInfo{
					BlockID: idFor(page.PageNumber, "code", nextID),
					PageNum: page.PageNumber,
				})
				nextID++
				_ = codeStart
			}
			continue
		}

		if opt.EnableTableStructure && tableRe.MatchString(line) {
			rows, cols, hasHeader := scanTable(lines, i)
			skipUntil = i + rows
			ps.Tables = append(ps.Tables, docmodel.TableInfo{
				TableID:   idFor(page.PageNumber, "table", nextID),
				PageNum:   page.PageNumber,
				NumRows:   rows,
				NumCols:   cols,
				HasHeader: hasHeader,
			})
			nextID++
			continue
		}

		if figureRe.MatchString(line) {
			class := docmodel.PictureUnknown
			if opt.EnablePictureClassification {
				class = classifyCaption(line)
			}
			ps.Pictures = append(ps.Pictures, docmodel.PictureInfo{
				PictureID:      idFor(page.PageNumber, "pic", nextID),
				PageNum:        page.PageNumber,
				Classification: class,
			})
			nextID++
		}
	}

	return ps
}

func idFor(page int, kind string, n int) string {
	return kind + "-p" + itoa(page) + "-" + itoa(n)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	if neg {
		b = append([]byte{'-'}, b...)
	}
	return string(b)
}

// scanTable counts contiguous pipe-delimited rows starting at idx and
// reports whether the second row is a markdown header separator.
func scanTable(lines []string, idx int) (rows, cols int, hasHeader bool) {
	for i := idx; i < len(lines) && tableRe.MatchString(lines[i]); i++ {
		rows++
		if i == idx {
			cols = strings.Count(lines[i], "|") - 1
		}
		if i == idx+1 && strings.Contains(lines[i], "---") {
			hasHeader = true
		}
	}
	return rows, cols, hasHeader
}

func classifyCaption(line string) docmodel.PictureClass {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "chart") || strings.Contains(lower, "graph"):
		return docmodel.PictureChart
	case strings.Contains(lower, "diagram") || strings.Contains(lower, "flow"):
		return docmodel.PictureDiagram
	case strings.Contains(lower, "logo"):
		return docmodel.PictureLogo
	case strings.Contains(lower, "photo") || strings.Contains(lower, "picture"):
		return docmodel.PicturePhoto
	default:
		return docmodel.PictureUnknown
	}
}

func headingLevelForMarker(hashes int) docmodel.HeadingLevel {
	switch hashes {
	case 1:
		return docmodel.LevelTitle
	case 2:
		return docmodel.LevelSection
	case 3:
		return docmodel.LevelSubsection
	default:
		return docmodel.LevelParagraph
	}
}

// headingStack maintains the running section_path by pushing new headings
// and popping any stack entries at the same or deeper level first.
type headingStack struct {
	entries []stackEntry
}

type stackEntry struct {
	level docmodel.HeadingLevel
	text  string
}

func newHeadingStack() *headingStack { return &headingStack{} }

func (s *headingStack) push(level docmodel.HeadingLevel, text string) string {
	for len(s.entries) > 0 && s.entries[len(s.entries)-1].level.Rank() >= level.Rank() {
		s.entries = s.entries[:len(s.entries)-1]
	}
	s.entries = append(s.entries, stackEntry{level: level, text: text})

	parts := make([]string, len(s.entries))
	for i, e := range s.entries {
		parts[i] = e.text
	}
	return strings.Join(parts, " > ")
}

// applySizeGuard estimates the serialized size of ds and, if it exceeds
// SizeGuardBytes, drops item classes in order (paragraph headers/formulas,
// then pictures, then tables) until it fits, preserving headings and
// returning the list of dropped classes in drop order.
func applySizeGuard(ds *docmodel.DocumentStructure, opt Options) []string {
	var degraded []string

	if estimateSize(ds) <= SizeGuardBytes {
		return degraded
	}

	for i := range ds.Pages {
		kept := ds.Pages[i].Headings[:0]
		for _, h := range ds.Pages[i].Headings {
			if h.Level == docmodel.LevelParagraph {
				continue
			}
			kept = append(kept, h)
		}
		ds.Pages[i].Headings = kept
		ds.Pages[i].Formulas = nil
	}
	degraded = append(degraded, "paragraph_headers", "formulas")
	if estimateSize(ds) <= SizeGuardBytes {
		return degraded
	}

	for i := range ds.Pages {
		ds.Pages[i].Pictures = nil
	}
	degraded = append(degraded, "pictures")
	if estimateSize(ds) <= SizeGuardBytes {
		return degraded
	}

	for i := range ds.Pages {
		ds.Pages[i].Tables = nil
	}
	degraded = append(degraded, "tables")
	return degraded
}

func estimateSize(ds *docmodel.DocumentStructure) int {
	b, err := json.Marshal(ds)
	if err != nil {
		return 0
	}
	return len(b)
}
