package structure

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
)

func fullOpts() Options {
	return Options{
		EnableTableStructure:        true,
		EnablePictureClassification: true,
		EnableCodeEnrichment:        true,
	}
}

func TestExtractSectionPathStack(t *testing.T) {
	doc := docmodel.ParsedDocument{Pages: []docmodel.Page{
		{PageNumber: 1, Text: "# Intro\nsome text\n## Methods\nmore text\n### Datasets\neven more"},
	}}
	ds := Extract(doc, fullOpts())
	require.Len(t, ds.Pages, 1)
	headings := ds.Pages[0].Headings
	require.Len(t, headings, 3)
	require.Equal(t, "Intro", headings[0].SectionPath)
	require.Equal(t, "Intro > Methods", headings[1].SectionPath)
	require.Equal(t, "Intro > Methods > Datasets", headings[2].SectionPath)
}

func TestExtractSectionPathPopsSiblings(t *testing.T) {
	doc := docmodel.ParsedDocument{Pages: []docmodel.Page{
		{PageNumber: 1, Text: "# Intro\n## Methods\n## Results"},
	}}
	ds := Extract(doc, fullOpts())
	headings := ds.Pages[0].Headings
	require.Equal(t, "Intro > Results", headings[2].SectionPath)
}

func TestExtractTable(t *testing.T) {
	doc := docmodel.ParsedDocument{Pages: []docmodel.Page{
		{PageNumber: 1, Text: "| a | b |\n| --- | --- |\n| 1 | 2 |"},
	}}
	ds := Extract(doc, fullOpts())
	require.Len(t, ds.Pages[0].Tables, 1)
	tbl := ds.Pages[0].Tables[0]
	require.Equal(t, 3, tbl.NumRows)
	require.True(t, tbl.HasHeader)
}

func TestExtractPictureClassification(t *testing.T) {
	doc := docmodel.ParsedDocument{Pages: []docmodel.Page{
		{PageNumber: 5, Text: "Figure 3: quarterly revenue chart"},
	}}
	ds := Extract(doc, fullOpts())
	require.Len(t, ds.Pages[0].Pictures, 1)
	require.Equal(t, docmodel.PictureChart, ds.Pages[0].Pictures[0].Classification)
	require.Equal(t, 5, ds.Pages[0].Pictures[0].PageNum)
}

func TestExtractPictureUnknownWhenClassificationDisabled(t *testing.T) {
	doc := docmodel.ParsedDocument{Pages: []docmodel.Page{
		{PageNumber: 1, Text: "Figure 1: a chart of revenue"},
	}}
	ds := Extract(doc, Options{})
	require.Equal(t, docmodel.PictureUnknown, ds.Pages[0].Pictures[0].Classification)
}

func TestExtractNeverFabricatesBBox(t *testing.T) {
	doc := docmodel.ParsedDocument{Pages: []docmodel.Page{
		{PageNumber: 1, Text: "# Title\nFigure 1: a chart"},
	}}
	ds := Extract(doc, fullOpts())
	for _, h := range ds.Pages[0].Headings {
		require.Nil(t, h.BBox)
	}
	for _, p := range ds.Pages[0].Pictures {
		require.Nil(t, p.BBox)
	}
}

func TestSizeGuardDegradesInOrder(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 2000; i++ {
		sb.WriteString("#### Paragraph Header\nFigure 1: a chart of revenue\n| a | b |\n| --- | --- |\n| 1 | 2 |\n")
	}
	doc := docmodel.ParsedDocument{Pages: []docmodel.Page{{PageNumber: 1, Text: sb.String()}}}
	ds := Extract(doc, fullOpts())

	require.Contains(t, ds.Degraded, "paragraph_headers")
	require.Equal(t, []string{"paragraph_headers", "formulas", "pictures", "tables"}, ds.Degraded)
	for _, h := range ds.Pages[0].Headings {
		require.NotEqual(t, docmodel.LevelParagraph, h.Level)
	}
}

func TestExtractContinuesOnPanic(t *testing.T) {
	require.NotPanics(t, func() {
		Extract(docmodel.ParsedDocument{Pages: []docmodel.Page{{PageNumber: 1, Text: "ok"}}}, fullOpts())
	})
}
