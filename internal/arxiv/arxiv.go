// Package arxiv searches the arXiv API for papers matching keyword queries.
package arxiv

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://export.arxiv.org/api/query"

// Paper is a single search result, reduced to the fields that survive a
// cache round-trip.
type Paper struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Abstract  string    `json:"summary"`
	PDFURL    string    `json:"pdf_url"`
	Published time.Time `json:"published"`
	Updated   time.Time `json:"updated"`
}

// AbsURL returns the canonical abstract page URL for an arXiv ID.
func AbsURL(id string) string {
	return "https://arxiv.org/abs/" + id
}

// AbsURL returns the canonical abstract page URL for the paper.
func (p Paper) AbsURL() string {
	return AbsURL(p.ID)
}

// ExtractID derives the arXiv ID from a paper's content URL. The same URL
// always yields the same ID (last path segment, ".pdf" stripped).
func ExtractID(contentURL string) string {
	u, err := url.Parse(contentURL)
	if err != nil {
		return strings.TrimSuffix(path.Base(contentURL), ".pdf")
	}
	return strings.TrimSuffix(path.Base(u.Path), ".pdf")
}

// Client queries the arXiv Atom API.
type Client struct {
	baseURL string
	client  *http.Client
	parser  *gofeed.Parser
	log     *zap.Logger
}

// NewClient creates a new arXiv API client.
func NewClient(log *zap.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		parser:  gofeed.NewParser(),
		log:     log,
	}
}

// Search queries arXiv for papers matching the keywords, submitted at or
// after since. The since bound is embedded in the query string as a
// submittedDate clause; results are sorted newest first.
func (c *Client) Search(ctx context.Context, keywords []string, maxResults int, since time.Time) ([]Paper, error) {
	query := BuildQuery(keywords, since)
	c.log.Info("searching arXiv", zap.String("query", query), zap.Int("max_results", maxResults))

	params := url.Values{}
	params.Set("search_query", query)
	params.Set("max_results", strconv.Itoa(maxResults))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "arxivdigest/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv API returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	feed, err := c.parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parsing Atom response: %w", err)
	}

	var papers []Paper
	for _, item := range feed.Items {
		paper := parseItem(item)
		if paper == nil {
			continue
		}
		papers = append(papers, *paper)
	}

	c.log.Info("search complete", zap.Int("papers", len(papers)))
	return papers, nil
}

// BuildQuery joins the keywords into one free-text query and appends the
// submittedDate filter clause.
func BuildQuery(keywords []string, since time.Time) string {
	query := strings.Join(keywords, " ")
	return query + fmt.Sprintf(" AND submittedDate:[%s TO *]", since.UTC().Format("2006-01-02T15:04:05Z"))
}

func parseItem(item *gofeed.Item) *Paper {
	pdfURL := pdfLink(item)
	if pdfURL == "" {
		return nil
	}

	title := strings.Join(strings.Fields(item.Title), " ")
	if title == "" {
		return nil
	}

	p := &Paper{
		ID:       ExtractID(pdfURL),
		Title:    title,
		Abstract: strings.TrimSpace(item.Description),
		PDFURL:   pdfURL,
	}
	if item.PublishedParsed != nil {
		p.Published = *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		p.Updated = *item.UpdatedParsed
	}
	return p
}

// pdfLink finds the PDF link among an entry's links, falling back to the
// abstract link rewritten to its PDF form.
func pdfLink(item *gofeed.Item) string {
	for _, l := range item.Links {
		if strings.Contains(l, "/pdf/") {
			return l
		}
	}
	if strings.Contains(item.Link, "/abs/") {
		return strings.Replace(item.Link, "/abs/", "/pdf/", 1)
	}
	return ""
}
