package arxiv

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

const feedBody = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <opensearch:totalResults>42</opensearch:totalResults>
  <entry>
    <id>http://arxiv.org/abs/2301.07041v1</id>
    <title>Attention Is
  Not All You Need</title>
    <summary>We revisit
  attention mechanisms.</summary>
    <published>2023-01-17T12:00:00Z</published>
    <author><name>Carol Q. Example</name></author>
    <author><name>Dan Example</name></author>
    <link href="http://arxiv.org/abs/2301.07041v1" rel="alternate" type="text/html"/>
    <link href="http://arxiv.org/pdf/2301.07041v1" rel="related" title="pdf" type="application/pdf"/>
    <arxiv:doi>10.48550/arXiv.2301.07041</arxiv:doi>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2301.99999v1</id>
    <title></title>
    <published>2023-01-18T12:00:00Z</published>
  </entry>
</feed>`

func newTestHTTPClient() *papersources.HTTPClient {
	return papersources.NewHTTPClient(papersources.HTTPClientConfig{
		SourceName: sourceName,
		RateLimit:  1000,
		BurstSize:  1000,
	})
}

func TestSearchConvertsEntries(t *testing.T) {
	var gotSearchQuery, gotMax string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSearchQuery = r.URL.Query().Get("search_query")
		gotMax = r.URL.Query().Get("max_results")
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(feedBody))
	}))
	defer server.Close()

	client := NewWithHTTPClient(Config{BaseURL: server.URL, Enabled: true}, newTestHTTPClient())

	result, err := client.Search(context.Background(), papersources.SearchParams{
		Query:      "attention",
		MaxResults: 50,
	})
	require.NoError(t, err)

	assert.Equal(t, "all:attention", gotSearchQuery)
	assert.Equal(t, "50", gotMax)

	assert.Equal(t, 42, result.TotalResults)
	assert.Equal(t, domain.SourceTypeArXiv, result.Source)

	// The untitled entry is dropped.
	require.Len(t, result.Records, 1)
	record := result.Records[0]
	assert.Equal(t, "Attention Is Not All You Need", record.Title)
	assert.Equal(t, "We revisit attention mechanisms.", record.Abstract)
	assert.Equal(t, []string{"Carol Q. Example", "Dan Example"}, record.Authors)
	assert.Equal(t, "2023", record.Year)
	assert.Equal(t, "arXiv", record.Venue)
	assert.Equal(t, "http://arxiv.org/abs/2301.07041v1", record.URL)
	assert.Equal(t, "http://arxiv.org/pdf/2301.07041v1", record.PDFURL)
	assert.Equal(t, "10.48550/arXiv.2301.07041", record.DOI)
}

func TestSearchYearRangeQuery(t *testing.T) {
	var gotSearchQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSearchQuery = r.URL.Query().Get("search_query")
		_, _ = w.Write([]byte(`<feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
	}))
	defer server.Close()

	client := NewWithHTTPClient(Config{BaseURL: server.URL}, newTestHTTPClient())

	_, err := client.Search(context.Background(), papersources.SearchParams{
		Query:    "attention",
		YearFrom: 2020,
		YearTo:   2022,
	})
	require.NoError(t, err)
	assert.Equal(t, "all:attention AND submittedDate:[202001010000 TO 202212312359]", gotSearchQuery)
}

func TestSearchAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewWithHTTPClient(Config{BaseURL: server.URL}, newTestHTTPClient())

	_, err := client.Search(context.Background(), papersources.SearchParams{Query: "q"})
	require.Error(t, err)

	var apiErr *domain.ExternalAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}

func TestSearchMalformedXML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<feed><entry>`))
	}))
	defer server.Close()

	client := NewWithHTTPClient(Config{BaseURL: server.URL}, newTestHTTPClient())

	_, err := client.Search(context.Background(), papersources.SearchParams{Query: "q"})
	require.Error(t, err)

	var parseErr *domain.ParseError
	assert.True(t, errors.As(err, &parseErr))
}
