package research

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	rcontext "github.com/TuckerTucker/tkr-docusearch/internal/context"
	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
)

// citationRe matches all three accepted citation forms in one sweep:
// "[N]", "[[N]]", and "[[N]](url)". The digit group is always index 1; a
// trailing "(...)" parenthetical, when present, is consumed and dropped.
var citationRe = regexp.MustCompile(`\[{1,2}(\d+)\]{1,2}(?:\([^)]*\))?`)

// applyCitations rewrites every recognized citation marker in answer to its
// canonical "[N]" form, binds each in-range marker to sources[N-1], and
// drops (removes) any marker whose N has no matching source. It returns the
// rewritten answer, the referenced sources in citation-number order, and how
// many markers were dropped.
func applyCitations(answer string, sources []rcontext.SourceRef, log Logger) (string, []docmodel.Reference, int) {
	cited := make(map[int]bool)
	dropped := 0

	rewritten := citationRe.ReplaceAllStringFunc(answer, func(match string) string {
		sub := citationRe.FindStringSubmatch(match)
		n, err := strconv.Atoi(sub[1])
		if err != nil || n < 1 || n > len(sources) {
			dropped++
			log.Error("dropping unknown citation marker", map[string]any{"marker": match})
			return ""
		}
		cited[n] = true
		return fmt.Sprintf("[%d]", n)
	})

	ns := make([]int, 0, len(cited))
	for n := range cited {
		ns = append(ns, n)
	}
	sort.Ints(ns)

	refs := make([]docmodel.Reference, 0, len(ns))
	for _, n := range ns {
		src := sources[n-1]
		refs = append(refs, docmodel.Reference{
			CitationNumber: n,
			DocID:          src.DocID,
			Filename:       src.Filename,
			Page:           src.Page,
			IsVisual:       src.IsVisual,
		})
	}
	return rewritten, refs, dropped
}
