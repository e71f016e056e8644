package context

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TuckerTucker/tkr-docusearch/internal/retrieve"
)

func textHit(docID, filename string, page int, preview string) retrieve.Hit {
	return retrieve.Hit{
		DocID:    docID,
		Filename: filename,
		Page:     page,
		IsVisual: false,
		Score:    0.9,
		Metadata: map[string]string{"text_preview": preview},
	}
}

func visualHit(docID, filename string, page int, pageContext string) retrieve.Hit {
	return retrieve.Hit{
		DocID:    docID,
		Filename: filename,
		Page:     page,
		IsVisual: true,
		Score:    0.8,
		Metadata: map[string]string{"page_context": pageContext},
	}
}

func TestBuildFormatsNumberedCitationBlocks(t *testing.T) {
	hits := []retrieve.Hit{
		textHit("doc1", "report.pdf", 5, "Revenue grew 12% year over year."),
		visualHit("doc1", "report.pdf", 6, "Bar chart showing quarterly revenue."),
	}
	res := Build(hits, Config{NumSources: 10})

	require.Contains(t, res.Text, "[1] [Text Match] report.pdf, Page 5")
	require.Contains(t, res.Text, "Revenue grew 12%")
	require.Contains(t, res.Text, "[2] [Visual Match] report.pdf, Page 6")
	require.Contains(t, res.Text, "Bar chart showing quarterly revenue.")
	require.Len(t, res.Sources, 2)
	require.Equal(t, 1, res.Sources[0].Index)
	require.Equal(t, 2, res.Sources[1].Index)
	require.False(t, res.ContextTruncated)
}

func TestBuildUsesOCRFallbackWhenVisualHitHasNoText(t *testing.T) {
	hits := []retrieve.Hit{visualHit("doc1", "deck.pptx", 2, "")}
	res := Build(hits, Config{NumSources: 10})
	require.Contains(t, res.Text, noTextFallback)
}

func TestBuildTruncatesTextPreviewAtSentenceBoundary(t *testing.T) {
	sentence := "This is a complete sentence about the quarterly numbers. "
	long := strings.Repeat(sentence, 40) // well over 1000 runes
	hits := []retrieve.Hit{textHit("doc1", "report.pdf", 1, long)}
	res := Build(hits, Config{NumSources: 10})

	// the block body (after the header line) should not exceed the cap by much
	parts := strings.SplitN(res.Text, "\n", 2)
	require.Len(t, parts, 2)
	require.LessOrEqual(t, len([]rune(parts[1])), maxPreviewChars+1)
	require.True(t, strings.HasSuffix(strings.TrimSpace(parts[1]), "."))
}

func TestBuildRespectsNumSources(t *testing.T) {
	hits := []retrieve.Hit{
		textHit("doc1", "a.pdf", 1, "one"),
		textHit("doc1", "a.pdf", 2, "two"),
		textHit("doc1", "a.pdf", 3, "three"),
	}
	res := Build(hits, Config{NumSources: 2})
	require.Len(t, res.Sources, 2)
}

func TestBuildTruncatesLastSourceOnBudgetOverflowWithoutReordering(t *testing.T) {
	hits := []retrieve.Hit{
		textHit("doc1", "a.pdf", 1, "Short first chunk."),
		textHit("doc1", "a.pdf", 2, strings.Repeat("A fairly long second chunk sentence. ", 20)),
		textHit("doc1", "a.pdf", 3, "Short third chunk."),
	}
	res := Build(hits, Config{NumSources: 10, TokenBudget: 20})

	require.True(t, res.ContextTruncated)
	require.Contains(t, res.Text, "[1]")
	require.Contains(t, res.Text, "[2]")
	require.NotContains(t, res.Text, "[3]")
}

func TestBuildCollectsImageURLsForVisionMode(t *testing.T) {
	hits := []retrieve.Hit{
		visualHit("doc1", "report.pdf", 5, "chart"),
		textHit("doc1", "report.pdf", 1, "text"),
		visualHit("doc1", "report.pdf", 9, "table"),
	}
	res := Build(hits, Config{
		NumSources:    10,
		VisionEnabled: true,
		MaxImages:     10,
		ImageBaseURL:  "https://tunnel.example.com",
	})

	require.Equal(t, []string{
		"https://tunnel.example.com/images/doc1/page005.png",
		"https://tunnel.example.com/images/doc1/page009.png",
	}, res.ImageURLs)
}

func TestBuildNeverEmitsLoopbackImageURLs(t *testing.T) {
	hits := []retrieve.Hit{visualHit("doc1", "report.pdf", 1, "chart")}
	res := Build(hits, Config{
		NumSources:    10,
		VisionEnabled: true,
		MaxImages:     10,
		ImageBaseURL:  "http://127.0.0.1:8080",
	})
	require.Empty(t, res.ImageURLs)
}

func TestBuildCapsImageURLsAtMaxImages(t *testing.T) {
	hits := []retrieve.Hit{
		visualHit("doc1", "a.pdf", 1, "x"),
		visualHit("doc1", "a.pdf", 2, "x"),
		visualHit("doc1", "a.pdf", 3, "x"),
	}
	res := Build(hits, Config{
		NumSources:    10,
		VisionEnabled: true,
		MaxImages:     2,
		ImageBaseURL:  "https://tunnel.example.com",
	})
	require.Len(t, res.ImageURLs, 2)
}
