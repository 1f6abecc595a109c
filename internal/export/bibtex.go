package export

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/helixir/research-aggregation-service/internal/domain"
)

// citationKeyMaxTitleChars bounds the title-derived part of a citation key.
const citationKeyMaxTitleChars = 20

// exportBibTeX writes papers as a BibTeX bibliography. Papers with a venue
// become @article entries, the rest @misc. Empty optional fields are
// omitted entirely rather than emitted blank.
func exportBibTeX(papers []domain.Paper) ([]byte, error) {
	var buf bytes.Buffer
	used := make(map[string]int)

	for i, paper := range papers {
		if i > 0 {
			buf.WriteByte('\n')
		}
		writeEntry(&buf, paper, citationKey(paper, used))
	}
	return buf.Bytes(), nil
}

// writeEntry writes a single BibTeX entry.
func writeEntry(buf *bytes.Buffer, paper domain.Paper, key string) {
	entryType := "misc"
	if paper.Venue != "" {
		entryType = "article"
	}

	fmt.Fprintf(buf, "@%s{%s,\n", entryType, key)

	writeField(buf, "title", paper.Title)
	writeField(buf, "author", strings.Join(paper.Authors, " and "))
	if paper.Year > 0 {
		writeField(buf, "year", strconv.Itoa(paper.Year))
	}
	writeField(buf, "journal", paper.Venue)
	writeField(buf, "doi", paper.DOI)
	writeField(buf, "url", paper.URL)
	writeField(buf, "abstract", paper.Abstract)

	buf.WriteString("}\n")
}

// writeField writes one BibTeX field, skipping empty values and escaping
// braces in the value.
func writeField(buf *bytes.Buffer, name, value string) {
	if value == "" {
		return
	}
	value = strings.NewReplacer("{", "\\{", "}", "\\}").Replace(value)
	fmt.Fprintf(buf, "  %s = {%s},\n", name, value)
}

// citationKey derives a stable key from the paper title and year: the
// first citationKeyMaxTitleChars lowercase alphanumeric characters of the
// title followed by the year. Collisions get a "-N" suffix.
func citationKey(paper domain.Paper, used map[string]int) string {
	var sb strings.Builder
	runes := 0
	for _, r := range strings.ToLower(paper.Title) {
		if runes >= citationKeyMaxTitleChars {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			runes++
		}
	}
	if runes == 0 {
		sb.WriteString("untitled")
	}

	key := sb.String()
	if paper.Year > 0 {
		key += strconv.Itoa(paper.Year)
	}

	used[key]++
	if n := used[key]; n > 1 {
		return fmt.Sprintf("%s-%d", key, n-1)
	}
	return key
}
