package arxiv

import (
	"context"
	"encoding/xml"
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
	// DefaultBaseURL is the default arXiv query API URL.
	DefaultBaseURL = "https://export.arxiv.org/api/query"

	// DefaultRateLimit is the default rate limit. arXiv asks clients to
	// make no more than one request every three seconds.
	DefaultRateLimit = 0.33

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 1

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per request.
	DefaultMaxResults = 100

	// venueName is the venue recorded for all arXiv preprints.
	venueName = "arXiv"

	// sourceName is the human-readable name for this source.
	sourceName = "arXiv"
)

// Config holds configuration for the arXiv client.
type Config struct {
	// BaseURL is the query API URL.
	BaseURL string

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

// Client implements the papersources.PaperSource interface for arXiv.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// Compile-time check that Client implements papersources.PaperSource.
var _ papersources.PaperSource = (*Client)(nil)

// New creates a new arXiv client with the given configuration.
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

// Search queries arXiv for preprints matching the given parameters.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	start := time.Now()

	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	// Limit body to 10MB to prevent resource exhaustion.
	var feed Feed
	if err := xml.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&feed); err != nil {
		return nil, domain.NewParseError(sourceName, err)
	}

	return &papersources.SearchResult{
		Records:        convertToRecords(feed.Entries),
		TotalResults:   feed.TotalResults,
		Source:         domain.SourceTypeArXiv,
		SearchDuration: time.Since(start),
	}, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeArXiv
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// buildSearchURL constructs the query API URL. Year bounds are expressed
// through the submittedDate range syntax.
func (c *Client) buildSearchURL(params papersources.SearchParams) (string, error) {
	searchURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	searchQuery := "all:" + params.Query
	if params.YearFrom > 0 || params.YearTo > 0 {
		from := "*"
		if params.YearFrom > 0 {
			from = fmt.Sprintf("%d01010000", params.YearFrom)
		}
		to := "*"
		if params.YearTo > 0 {
			to = fmt.Sprintf("%d12312359", params.YearTo)
		}
		searchQuery += fmt.Sprintf(" AND submittedDate:[%s TO %s]", from, to)
	}

	maxResults := params.MaxResults
	if maxResults <= 0 || maxResults > c.config.MaxResults {
		maxResults = c.config.MaxResults
	}

	q := searchURL.Query()
	q.Set("search_query", searchQuery)
	q.Set("start", "0")
	q.Set("max_results", strconv.Itoa(maxResults))
	q.Set("sortBy", "relevance")
	q.Set("sortOrder", "descending")

	searchURL.RawQuery = q.Encode()
	return searchURL.String(), nil
}

// convertToRecords converts feed entries to raw records, dropping entries
// without a title.
func convertToRecords(entries []Entry) []papersources.RawRecord {
	records := make([]papersources.RawRecord, 0, len(entries))
	for i := range entries {
		record, ok := convertToRecord(&entries[i])
		if ok {
			records = append(records, record)
		}
	}
	return records
}

// convertToRecord converts a single feed entry to a raw record. The second
// return value is false when the entry has no usable title. arXiv provides
// no citation counts.
func convertToRecord(entry *Entry) (papersources.RawRecord, bool) {
	title := collapseWhitespace(entry.Title)
	if title == "" {
		return papersources.RawRecord{}, false
	}

	record := papersources.RawRecord{
		Provider: domain.SourceTypeArXiv,
		Title:    title,
		Abstract: collapseWhitespace(entry.Summary),
		Venue:    venueName,
		URL:      entry.ID,
		DOI:      entry.DOI,
	}

	// Published is RFC 3339; the leading four characters are the year.
	if len(entry.Published) >= 4 {
		record.Year = entry.Published[:4]
	}

	record.Authors = make([]string, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			record.Authors = append(record.Authors, name)
		}
	}

	for _, link := range entry.Links {
		if link.Title == "pdf" {
			record.PDFURL = link.Href
			break
		}
	}

	return record, true
}

// collapseWhitespace trims a field and folds embedded newlines, which the
// Atom feed wraps into titles and abstracts, into single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
