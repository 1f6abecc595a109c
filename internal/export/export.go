// Package export serializes a final paper set into downloadable formats.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/helixir/research-aggregation-service/internal/domain"
)

// Format identifies a supported export format.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatJSON   Format = "json"
	FormatXLSX   Format = "xlsx"
	FormatBibTeX Format = "bibtex"

	// FormatExcel is an accepted alias for FormatXLSX.
	FormatExcel Format = "excel"
)

// columns is the shared header row for tabular formats.
var columns = []string{
	"title", "authors", "year", "venue", "citation_count",
	"doi", "url", "pdf_url", "relevance_score", "sources",
}

// ContentType returns the MIME type served for this format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatJSON:
		return "application/json"
	case FormatXLSX, FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatBibTeX:
		return "application/x-bibtex"
	default:
		return "application/octet-stream"
	}
}

// FileExtension returns the filename extension for this format.
func (f Format) FileExtension() string {
	switch f {
	case FormatBibTeX:
		return "bib"
	case FormatExcel:
		return string(FormatXLSX)
	default:
		return string(f)
	}
}

// Export serializes papers into the requested format. Unknown formats
// yield domain.ErrExportFormatUnsupported.
func Export(papers []domain.Paper, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return exportCSV(papers)
	case FormatJSON:
		return exportJSON(papers)
	case FormatXLSX, FormatExcel:
		return exportXLSX(papers)
	case FormatBibTeX:
		return exportBibTeX(papers)
	default:
		return nil, fmt.Errorf("format %q: %w", format, domain.ErrExportFormatUnsupported)
	}
}

// exportCSV writes papers as a comma-separated table with a header row.
func exportCSV(papers []domain.Paper) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(columns); err != nil {
		return nil, fmt.Errorf("writing csv header: %w", err)
	}
	for _, paper := range papers {
		if err := w.Write(row(paper)); err != nil {
			return nil, fmt.Errorf("writing csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing csv: %w", err)
	}
	return buf.Bytes(), nil
}

// exportJSON writes papers as an indented JSON array.
func exportJSON(papers []domain.Paper) ([]byte, error) {
	if papers == nil {
		papers = []domain.Paper{}
	}
	data, err := json.MarshalIndent(papers, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling papers: %w", err)
	}
	return data, nil
}

// exportXLSX writes papers as a single-sheet spreadsheet.
func exportXLSX(papers []domain.Paper) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Papers"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("renaming sheet: %w", err)
	}

	header := make([]any, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("writing header row: %w", err)
	}

	for i, paper := range papers {
		cells := row(paper)
		values := make([]any, len(cells))
		for j, cell := range cells {
			values[j] = cell
		}
		// Keep numeric columns numeric in the sheet. An unknown year
		// stays an empty cell, same as the csv rendering.
		if paper.Year > 0 {
			values[2] = paper.Year
		}
		values[4] = paper.CitationCount
		values[8] = paper.RelevanceScore

		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("computing cell reference: %w", err)
		}
		if err := f.SetSheetRow(sheet, cellRef, &values); err != nil {
			return nil, fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// row converts a paper to its tabular representation. An unknown year
// becomes an empty cell rather than a zero.
func row(paper domain.Paper) []string {
	year := ""
	if paper.Year > 0 {
		year = strconv.Itoa(paper.Year)
	}

	sources := make([]string, len(paper.SourceProviders))
	for i, s := range paper.SourceProviders {
		sources[i] = string(s)
	}

	return []string{
		paper.Title,
		strings.Join(paper.Authors, "; "),
		year,
		paper.Venue,
		strconv.Itoa(paper.CitationCount),
		paper.DOI,
		paper.URL,
		paper.PDFURL,
		strconv.FormatFloat(paper.RelevanceScore, 'f', 4, 64),
		strings.Join(sources, ";"),
	}
}
