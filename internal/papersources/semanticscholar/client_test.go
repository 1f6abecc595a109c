package semanticscholar

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-aggregation-service/internal/domain"
	"github.com/helixir/research-aggregation-service/internal/papersources"
)

const searchResponseBody = `{
	"total": 2,
	"offset": 0,
	"data": [
		{
			"paperId": "p1",
			"title": "Transformer Architectures for Protein Folding",
			"abstract": "We study transformers.",
			"year": 2022,
			"venue": "Nature",
			"url": "https://www.semanticscholar.org/paper/p1",
			"authors": [{"authorId": "a1", "name": "Jane Doe"}, {"name": "Bob Roe"}],
			"citationCount": 120,
			"openAccessPdf": {"url": "https://example.org/p1.pdf", "status": "GOLD"},
			"externalIds": {"DOI": "10.1000/p1"}
		},
		{
			"paperId": "p2",
			"title": "",
			"year": 2021
		}
	]
}`

func newTestHTTPClient() *papersources.HTTPClient {
	return papersources.NewHTTPClient(papersources.HTTPClientConfig{
		SourceName: sourceName,
		RateLimit:  1000,
		BurstSize:  1000,
	})
}

func TestSearchConvertsResults(t *testing.T) {
	var gotQuery, gotLimit, gotYear string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/paper/search", r.URL.Path)
		gotQuery = r.URL.Query().Get("query")
		gotLimit = r.URL.Query().Get("limit")
		gotYear = r.URL.Query().Get("year")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchResponseBody))
	}))
	defer server.Close()

	client := NewWithHTTPClient(Config{BaseURL: server.URL, Enabled: true}, newTestHTTPClient())

	result, err := client.Search(context.Background(), papersources.SearchParams{
		Query:      "protein folding",
		MaxResults: 25,
		YearFrom:   2019,
		YearTo:     2023,
	})
	require.NoError(t, err)

	assert.Equal(t, "protein folding", gotQuery)
	assert.Equal(t, "25", gotLimit)
	assert.Equal(t, "2019-2023", gotYear)

	assert.Equal(t, 2, result.TotalResults)
	assert.Equal(t, domain.SourceTypeSemanticScholar, result.Source)

	// The untitled result is dropped.
	require.Len(t, result.Records, 1)
	record := result.Records[0]
	assert.Equal(t, "Transformer Architectures for Protein Folding", record.Title)
	assert.Equal(t, []string{"Jane Doe", "Bob Roe"}, record.Authors)
	assert.Equal(t, "2022", record.Year)
	assert.Equal(t, "Nature", record.Venue)
	assert.Equal(t, 120, record.CitationCount)
	assert.Equal(t, "10.1000/p1", record.DOI)
	assert.Equal(t, "https://example.org/p1.pdf", record.PDFURL)
}

func TestSearchOpenEndedYearRange(t *testing.T) {
	var gotYear string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotYear = r.URL.Query().Get("year")
		_, _ = w.Write([]byte(`{"total": 0, "data": []}`))
	}))
	defer server.Close()

	client := NewWithHTTPClient(Config{BaseURL: server.URL}, newTestHTTPClient())

	_, err := client.Search(context.Background(), papersources.SearchParams{Query: "q", YearFrom: 2020})
	require.NoError(t, err)
	assert.Equal(t, "2020-", gotYear)
}

func TestSearchAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "bad query"}`))
	}))
	defer server.Close()

	client := NewWithHTTPClient(Config{BaseURL: server.URL}, newTestHTTPClient())

	_, err := client.Search(context.Background(), papersources.SearchParams{Query: "q"})
	require.Error(t, err)

	var apiErr *domain.ExternalAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "bad query", apiErr.Message)
}

func TestSearchMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total": `))
	}))
	defer server.Close()

	client := NewWithHTTPClient(Config{BaseURL: server.URL}, newTestHTTPClient())

	_, err := client.Search(context.Background(), papersources.SearchParams{Query: "q"})
	require.Error(t, err)

	var parseErr *domain.ParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestSourceMetadata(t *testing.T) {
	client := New(Config{Enabled: true})
	assert.Equal(t, domain.SourceTypeSemanticScholar, client.SourceType())
	assert.Equal(t, "Semantic Scholar", client.Name())
	assert.True(t, client.IsEnabled())

	disabled := New(Config{})
	assert.False(t, disabled.IsEnabled())
}
