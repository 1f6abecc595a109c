package pubmed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/research-aggregation-service/internal/domain"
	"github.com/helixir/research-aggregation-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default base URL for the NCBI E-utilities.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// DefaultRateLimit is the default rate limit. NCBI allows 3 requests
	// per second without an API key, 10 with one.
	DefaultRateLimit = 3.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 3

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per request.
	DefaultMaxResults = 100

	// sourceName is the human-readable name for this source.
	sourceName = "PubMed"
)

// Config holds configuration for the PubMed client.
type Config struct {
	// BaseURL is the E-utilities base URL.
	BaseURL string

	// APIKey is the optional NCBI API key, sent as a query parameter.
	APIKey string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxResults is the maximum results per search request.
	MaxResults int

	// Enabled indicates whether this source is enabled for searches.
	Enabled bool
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
}

// Client implements the papersources.PaperSource interface for PubMed.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// Compile-time check that Client implements papersources.PaperSource.
var _ papersources.PaperSource = (*Client)(nil)

// New creates a new PubMed client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()
	return NewWithHTTPClient(cfg, papersources.NewHTTPClient(papersources.HTTPClientConfig{
		SourceName: sourceName,
		Timeout:    cfg.Timeout,
		RateLimit:  cfg.RateLimit,
		BurstSize:  cfg.BurstSize,
	}))
}

// NewWithHTTPClient creates a client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries PubMed for articles matching the given parameters.
// It first resolves the query to a list of PubMed IDs via ESearch, then
// fetches document summaries for those IDs via ESummary.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	start := time.Now()

	ids, total, err := c.searchIDs(ctx, params)
	if err != nil {
		return nil, err
	}

	result := &papersources.SearchResult{
		Records:        []papersources.RawRecord{},
		TotalResults:   total,
		Source:         domain.SourceTypePubMed,
		SearchDuration: time.Since(start),
	}
	if len(ids) == 0 {
		return result, nil
	}

	summaries, err := c.fetchSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	result.Records = convertToRecords(ids, summaries)
	result.SearchDuration = time.Since(start)
	return result, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypePubMed
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// searchIDs performs the ESearch step, returning the matching PubMed IDs
// and the total result count.
func (c *Client) searchIDs(ctx context.Context, params papersources.SearchParams) ([]string, int, error) {
	q := url.Values{}
	q.Set("db", "pubmed")
	q.Set("term", params.Query)
	q.Set("retmode", "json")

	retmax := params.MaxResults
	if retmax <= 0 || retmax > c.config.MaxResults {
		retmax = c.config.MaxResults
	}
	q.Set("retmax", strconv.Itoa(retmax))

	// Publication-date bounds; PubMed treats "3000" as an open upper bound.
	if params.YearFrom > 0 || params.YearTo > 0 {
		q.Set("datetype", "pdat")
		if params.YearFrom > 0 {
			q.Set("mindate", strconv.Itoa(params.YearFrom))
		} else {
			q.Set("mindate", "1000")
		}
		if params.YearTo > 0 {
			q.Set("maxdate", strconv.Itoa(params.YearTo))
		} else {
			q.Set("maxdate", "3000")
		}
	}

	var searchResp ESearchResponse
	if err := c.getJSON(ctx, "esearch.fcgi", q, &searchResp); err != nil {
		return nil, 0, err
	}

	total, _ := strconv.Atoi(searchResp.Result.Count)
	return searchResp.Result.IDList, total, nil
}

// fetchSummaries performs the ESummary step for the given IDs.
func (c *Client) fetchSummaries(ctx context.Context, ids []string) (map[string]DocSummary, error) {
	q := url.Values{}
	q.Set("db", "pubmed")
	q.Set("id", strings.Join(ids, ","))
	q.Set("retmode", "json")

	var summaryResp ESummaryResponse
	if err := c.getJSON(ctx, "esummary.fcgi", q, &summaryResp); err != nil {
		return nil, err
	}

	return decodeSummaries(summaryResp.Result)
}

// getJSON issues a GET against an E-utilities endpoint and decodes the
// JSON response into out.
func (c *Client) getJSON(ctx context.Context, endpoint string, q url.Values, out any) error {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return fmt.Errorf("parsing base URL: %w", err)
	}

	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}

	reqURL := baseURL.JoinPath(endpoint)
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	// Limit body to 10MB to prevent resource exhaustion.
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(out); err != nil {
		return domain.NewParseError(sourceName, err)
	}
	return nil
}

// decodeSummaries unpacks the ESummary result object. The object holds a
// "uids" index plus one key per PubMed ID, so each summary is decoded
// individually from the raw message.
func decodeSummaries(raw json.RawMessage) (map[string]DocSummary, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var index summaryIndex
	if err := json.Unmarshal(raw, &index); err != nil {
		return nil, domain.NewParseError(sourceName, err)
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, domain.NewParseError(sourceName, err)
	}

	summaries := make(map[string]DocSummary, len(index.UIDs))
	for _, uid := range index.UIDs {
		entry, ok := entries[uid]
		if !ok {
			continue
		}
		var summary DocSummary
		if err := json.Unmarshal(entry, &summary); err != nil {
			return nil, domain.NewParseError(sourceName, err)
		}
		summaries[uid] = summary
	}
	return summaries, nil
}

// convertToRecords converts document summaries to raw records, preserving
// the ESearch result order and dropping entries without a title.
func convertToRecords(ids []string, summaries map[string]DocSummary) []papersources.RawRecord {
	records := make([]papersources.RawRecord, 0, len(ids))
	for _, id := range ids {
		summary, ok := summaries[id]
		if !ok || summary.Title == "" {
			continue
		}
		records = append(records, convertToRecord(summary))
	}
	return records
}

// convertToRecord converts a single document summary to a raw record.
// ESummary responses carry no abstract or citation count.
func convertToRecord(summary DocSummary) papersources.RawRecord {
	record := papersources.RawRecord{
		Provider: domain.SourceTypePubMed,
		Title:    summary.Title,
		Venue:    summary.Source,
		Year:     pubYear(summary.PubDate),
		DOI:      summaryDOI(summary),
	}

	if record.Venue == "" {
		record.Venue = summary.FullJournalName
	}

	if summary.UID != "" {
		record.URL = "https://pubmed.ncbi.nlm.nih.gov/" + summary.UID + "/"
	}

	record.Authors = make([]string, 0, len(summary.Authors))
	for _, a := range summary.Authors {
		if a.Name != "" {
			record.Authors = append(record.Authors, a.Name)
		}
	}

	return record
}

// pubYear extracts the leading year from a pubdate like "2023 Mar 14".
func pubYear(pubdate string) string {
	pubdate = strings.TrimSpace(pubdate)
	if len(pubdate) < 4 {
		return ""
	}
	year := pubdate[:4]
	if _, err := strconv.Atoi(year); err != nil {
		return ""
	}
	return year
}

// summaryDOI resolves the DOI from the article ID list, falling back to
// the elocationid field ("doi: 10.1000/xyz").
func summaryDOI(summary DocSummary) string {
	for _, id := range summary.ArticleIDs {
		if id.IDType == "doi" && id.Value != "" {
			return id.Value
		}
	}
	loc := strings.TrimSpace(summary.ELocationID)
	if rest, ok := strings.CutPrefix(loc, "doi:"); ok {
		return strings.TrimSpace(rest)
	}
	return ""
}
