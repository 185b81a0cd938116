// Package newsapi is the REST client for the NewsAPI /v2/everything
// endpoint.
package newsapi

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

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://newsapi.org/v2"

// Client implements domain.NewsProvider against NewsAPI.
type Client struct {
	baseURL    string
	apiKey     string
	language   string
	httpClient *http.Client
}

// NewClient creates a new NewsAPI client. An empty baseURL selects
// DefaultBaseURL; a zero timeout selects 10s.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   strings.TrimSpace(apiKey),
		language: "en",
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// WithLanguage restricts results to an ISO-639-1 language. Empty keeps
// the current setting.
func (c *Client) WithLanguage(lang string) *Client {
	if lang = strings.TrimSpace(lang); lang != "" {
		c.language = lang
	}
	return c
}

var _ domain.NewsProvider = (*Client)(nil)

type apiArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

type everythingResponse struct {
	Status       string       `json:"status"`
	Code         string       `json:"code"`
	Message      string       `json:"message"`
	TotalResults int          `json:"totalResults"`
	Articles     []apiArticle `json:"articles"`
}

// Everything returns one page of articles matching q, newest first, along
// with the upstream total result count.
func (c *Client) Everything(ctx context.Context, q domain.NewsQuery) ([]domain.Article, int, error) {
	params := url.Values{}
	params.Set("q", q.Q)
	params.Set("language", c.language)
	params.Set("sortBy", "publishedAt")
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("pageSize", strconv.Itoa(q.PageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/everything?"+params.Encode(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("newsapi: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("newsapi: everything: %w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("newsapi: read response: %w: %v", domain.ErrProviderUnavailable, err)
	}

	var out everythingResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, 0, fmt.Errorf("newsapi: decode everything (HTTP %d): %w: %v", resp.StatusCode, domain.ErrProviderUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK || out.Status != "ok" {
		return nil, 0, fmt.Errorf("newsapi: everything: %w", statusError(resp.StatusCode, out))
	}

	articles := make([]domain.Article, 0, len(out.Articles))
	for _, a := range out.Articles {
		published, _ := time.Parse(time.RFC3339, a.PublishedAt)
		articles = append(articles, domain.Article{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			ImageURL:    a.URLToImage,
			Source:      a.Source.Name,
			PublishedAt: published,
			Content:     a.Content,
		})
	}
	return articles, out.TotalResults, nil
}

// statusError maps a failed response to domain errors. Every failure is
// ErrProviderUnavailable; throttling additionally matches ErrRateLimited.
func statusError(status int, r everythingResponse) error {
	if status == http.StatusTooManyRequests || r.Code == "rateLimited" {
		return fmt.Errorf("%w: %w: %s", domain.ErrProviderUnavailable, domain.ErrRateLimited, r.Message)
	}
	return fmt.Errorf("%w: HTTP %d %s: %s", domain.ErrProviderUnavailable, status, r.Code, r.Message)
}
