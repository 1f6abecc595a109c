package crossref

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/research-aggregation-service/internal/domain"
	"github.com/helixir/research-aggregation-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default Crossref REST API base URL.
	DefaultBaseURL = "https://api.crossref.org"

	// DefaultRateLimit is the default rate limit. Crossref's polite pool
	// asks for a mailto-identified User-Agent and modest request rates.
	DefaultRateLimit = 5.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per request.
	// Crossref caps rows at 1000; the service default stays far below that.
	DefaultMaxResults = 100

	// sourceName is the human-readable name for this source.
	sourceName = "Crossref"
)

// jatsTagRegex strips JATS XML markup from deposited abstracts.
var jatsTagRegex = regexp.MustCompile(`<[^>]+>`)

// Config holds configuration for the Crossref client.
type Config struct {
	// BaseURL is the Crossref REST API base URL.
	BaseURL string

	// Mailto identifies the caller for Crossref's polite pool.
	Mailto string

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

// Client implements the papersources.PaperSource interface for Crossref.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// Compile-time check that Client implements papersources.PaperSource.
var _ papersources.PaperSource = (*Client)(nil)

// New creates a new Crossref client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	userAgent := "Helixir-ResearchAggregation/1.0"
	if cfg.Mailto != "" {
		userAgent = fmt.Sprintf("%s (mailto:%s)", userAgent, cfg.Mailto)
	}

	return NewWithHTTPClient(cfg, papersources.NewHTTPClient(papersources.HTTPClientConfig{
		SourceName: sourceName,
		Timeout:    cfg.Timeout,
		RateLimit:  cfg.RateLimit,
		BurstSize:  cfg.BurstSize,
		UserAgent:  userAgent,
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

// Search queries Crossref for works matching the given parameters.
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
	var worksResp WorksResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&worksResp); err != nil {
		return nil, domain.NewParseError(sourceName, err)
	}

	return &papersources.SearchResult{
		Records:        convertToRecords(worksResp.Message.Items),
		TotalResults:   worksResp.Message.TotalResults,
		Source:         domain.SourceTypeCrossref,
		SearchDuration: time.Since(start),
	}, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeCrossref
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// buildSearchURL constructs the /works search URL.
func (c *Client) buildSearchURL(params papersources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	searchURL := baseURL.JoinPath("works")

	q := searchURL.Query()
	q.Set("query", params.Query)

	rows := params.MaxResults
	if rows <= 0 || rows > c.config.MaxResults {
		rows = c.config.MaxResults
	}
	q.Set("rows", strconv.Itoa(rows))

	// Crossref filters use from-pub-date/until-pub-date with full dates.
	var filters []string
	if params.YearFrom > 0 {
		filters = append(filters, fmt.Sprintf("from-pub-date:%d-01-01", params.YearFrom))
	}
	if params.YearTo > 0 {
		filters = append(filters, fmt.Sprintf("until-pub-date:%d-12-31", params.YearTo))
	}
	if len(filters) > 0 {
		q.Set("filter", strings.Join(filters, ","))
	}

	searchURL.RawQuery = q.Encode()
	return searchURL.String(), nil
}

// convertToRecords converts Crossref works to raw records, dropping works
// without a title.
func convertToRecords(items []Work) []papersources.RawRecord {
	records := make([]papersources.RawRecord, 0, len(items))
	for i := range items {
		record, ok := convertToRecord(&items[i])
		if ok {
			records = append(records, record)
		}
	}
	return records
}

// convertToRecord converts a single work to a raw record. The second return
// value is false when the work has no usable title.
func convertToRecord(work *Work) (papersources.RawRecord, bool) {
	title := firstNonEmpty(work.Title)
	if title == "" {
		return papersources.RawRecord{}, false
	}

	record := papersources.RawRecord{
		Provider:      domain.SourceTypeCrossref,
		Title:         title,
		Venue:         firstNonEmpty(work.ContainerTitle),
		DOI:           work.DOI,
		URL:           work.URL,
		CitationCount: work.IsReferencedByCount,
		Abstract:      stripJATS(work.Abstract),
	}

	if year := work.Published.Year(); year > 0 {
		record.Year = strconv.Itoa(year)
	}

	record.Authors = make([]string, 0, len(work.Author))
	for _, a := range work.Author {
		if name := contributorName(a); name != "" {
			record.Authors = append(record.Authors, name)
		}
	}

	for _, link := range work.Link {
		if link.ContentType == "application/pdf" {
			record.PDFURL = link.URL
			break
		}
	}

	return record, true
}

// contributorName formats a contributor as "Given Family", falling back to
// the organizational name.
func contributorName(c Contributor) string {
	name := strings.TrimSpace(strings.TrimSpace(c.Given) + " " + strings.TrimSpace(c.Family))
	if name != "" {
		return name
	}
	return strings.TrimSpace(c.Name)
}

// stripJATS removes JATS XML tags from a deposited abstract.
func stripJATS(abstract string) string {
	if abstract == "" {
		return ""
	}
	return strings.TrimSpace(jatsTagRegex.ReplaceAllString(abstract, ""))
}

// firstNonEmpty returns the first non-empty string in the slice.
func firstNonEmpty(values []string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
