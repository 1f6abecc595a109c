package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/helixir/research-aggregation-service/internal/domain"
)

func samplePapers() []domain.Paper {
	return []domain.Paper{
		{
			Title:           "Attention Is All You Need",
			Authors:         []string{"Ashish Vaswani", "Noam Shazeer"},
			Year:            2017,
			Venue:           "NeurIPS",
			CitationCount:   90000,
			DOI:             "10.1000/attn",
			URL:             "https://example.org/attn",
			PDFURL:          "https://example.org/attn.pdf",
			RelevanceScore:  0.91,
			SourceProviders: []domain.SourceType{domain.SourceTypeSemanticScholar},
		},
		{
			Title:           "An Unpublished Note",
			Authors:         []string{"Jane Doe"},
			Year:            0,
			RelevanceScore:  0.2,
			SourceProviders: []domain.SourceType{domain.SourceTypeArXiv},
		},
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	_, err := Export(samplePapers(), Format("pdf"))
	assert.True(t, errors.Is(err, domain.ErrExportFormatUnsupported))
}

func TestExportCSV(t *testing.T) {
	data, err := Export(samplePapers(), FormatCSV)
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, columns, rows[0])
	assert.Equal(t, "Attention Is All You Need", rows[1][0])
	assert.Equal(t, "Ashish Vaswani; Noam Shazeer", rows[1][1])
	assert.Equal(t, "2017", rows[1][2])

	// Unknown year exports as an empty cell.
	assert.Equal(t, "", rows[2][2])
}

func TestExportJSON(t *testing.T) {
	data, err := Export(samplePapers(), FormatJSON)
	require.NoError(t, err)

	var papers []domain.Paper
	require.NoError(t, json.Unmarshal(data, &papers))
	require.Len(t, papers, 2)
	assert.Equal(t, "Attention Is All You Need", papers[0].Title)
	assert.Equal(t, 90000, papers[0].CitationCount)
}

func TestExportJSONEmptySetIsArray(t *testing.T) {
	data, err := Export(nil, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestExportXLSX(t *testing.T) {
	data, err := Export(samplePapers(), FormatXLSX)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Papers")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "title", rows[0][0])
	assert.Equal(t, "Attention Is All You Need", rows[1][0])
	assert.Equal(t, "2017", rows[1][2])

	// Unknown year stays an empty cell, same as the csv rendering.
	year, err := f.GetCellValue("Papers", "C3")
	require.NoError(t, err)
	assert.Equal(t, "", year)
}

func TestExportExcelAlias(t *testing.T) {
	data, err := Export(samplePapers(), FormatExcel)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Papers")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, FormatXLSX.ContentType(), FormatExcel.ContentType())
	assert.Equal(t, "xlsx", FormatExcel.FileExtension())
}

func TestExportBibTeX(t *testing.T) {
	data, err := Export(samplePapers(), FormatBibTeX)
	require.NoError(t, err)

	out := string(data)
	// Title part of the key is capped at 20 alphanumeric characters.
	assert.Contains(t, out, "@article{attentionisallyounee2017,")
	assert.Contains(t, out, "author = {Ashish Vaswani and Noam Shazeer},")
	assert.Contains(t, out, "journal = {NeurIPS},")

	// Venue-less papers become @misc, and empty fields are omitted.
	assert.Contains(t, out, "@misc{anunpublishednote,")
	assert.NotContains(t, out, "journal = {},")
	assert.NotContains(t, out, "doi = {},")
}

func TestBibTeXKeyCollisions(t *testing.T) {
	papers := make([]domain.Paper, 100)
	for i := range papers {
		papers[i] = domain.Paper{Title: "Same Title", Year: 2020}
	}

	data, err := Export(papers, FormatBibTeX)
	require.NoError(t, err)

	keys := make(map[string]bool)
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "@misc{") {
			continue
		}
		key := strings.TrimSuffix(strings.TrimPrefix(line, "@misc{"), ",")
		assert.False(t, keys[key], "duplicate key %s", key)
		keys[key] = true
	}
	assert.Len(t, keys, 100)
}

func TestBibTeXNonASCIITitleKey(t *testing.T) {
	papers := []domain.Paper{{
		Title: strings.Repeat("é", 30),
		Year:  2021,
	}}

	data, err := Export(papers, FormatBibTeX)
	require.NoError(t, err)

	// The title part of the key is capped at 20 characters, counted in
	// runes rather than bytes.
	want := fmt.Sprintf("@misc{%s2021,", strings.Repeat("é", 20))
	assert.Contains(t, string(data), want)
}

func TestBibTeXEscapesBraces(t *testing.T) {
	papers := []domain.Paper{{Title: "On {Curly} Braces"}}

	data, err := Export(papers, FormatBibTeX)
	require.NoError(t, err)
	assert.Contains(t, string(data), `title = {On \{Curly\} Braces},`)
}

func TestFormatMetadata(t *testing.T) {
	assert.Equal(t, "text/csv", FormatCSV.ContentType())
	assert.Equal(t, "bib", FormatBibTeX.FileExtension())
	assert.Equal(t, "xlsx", FormatXLSX.FileExtension())

	for _, f := range []Format{FormatCSV, FormatJSON, FormatXLSX, FormatBibTeX} {
		assert.NotEmpty(t, f.ContentType(), fmt.Sprintf("format %s", f))
	}
}
