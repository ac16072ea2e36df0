// Package aladin adapts the Aladin open API item search to booksearch.Searcher.
package aladin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/pagewidgets/pagewidgets-server/internal/booksearch"
	"github.com/pagewidgets/pagewidgets-server/internal/ratelimit"
)

const (
	// DefaultBaseURL is the item search endpoint.
	DefaultBaseURL = "http://www.aladin.co.kr/ttb/api/ItemSearch.aspx"

	providerName = "aladin"
	apiVersion   = "20131101"

	maxResultsLimit = 50

	defaultRPS     = 5.0
	defaultBurst   = 10
	defaultTimeout = 15 * time.Second
)

// Client is a rate-limited Aladin search client.
type Client struct {
	http    *http.Client
	baseURL string
	key     booksearch.KeyFunc
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates an Aladin client. key is consulted on every search.
func New(key booksearch.KeyFunc, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: defaultTimeout},
		baseURL: DefaultBaseURL,
		key:     key,
		limiter: ratelimit.New(defaultRPS, defaultBurst),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// Search implements booksearch.Searcher.
func (c *Client) Search(ctx context.Context, query string, maxResults int) (booksearch.Results, error) {
	ttbKey := c.key()
	if ttbKey == "" {
		return booksearch.Results{}, booksearch.ErrMissingCredential
	}

	if err := c.limiter.Wait(ctx, providerName); err != nil {
		return booksearch.Results{}, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("ttbkey", ttbKey)
	params.Set("Query", query)
	params.Set("QueryType", "Keyword")
	params.Set("MaxResults", strconv.Itoa(booksearch.ClampMaxResults(maxResults, maxResultsLimit)))
	params.Set("start", "1")
	params.Set("SearchTarget", "Book")
	params.Set("output", "js")
	params.Set("Version", apiVersion)
	params.Set("Cover", "Big")

	reqURL := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return booksearch.Results{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("aladin request", "url", reqURL)

	resp, err := c.http.Do(req)
	if err != nil {
		return booksearch.Results{}, fmt.Errorf("aladin request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return booksearch.Results{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return booksearch.Results{}, &booksearch.ProviderError{
			Provider: providerName,
			Status:   resp.StatusCode,
			Message:  fmt.Sprintf("알라딘 API 응답 오류: %d", resp.StatusCode),
		}
	}

	var sr searchResponse
	// Aladin's "js" output occasionally ends with a stray semicolon.
	if err := json.Unmarshal([]byte(strings.TrimSuffix(strings.TrimSpace(string(body)), ";")), &sr); err != nil {
		return booksearch.Results{}, fmt.Errorf("parse response: %w", err)
	}

	if sr.ErrorCode != 0 {
		msg := sr.ErrorMessage
		if msg == "" {
			msg = "알라딘 API 오류가 발생했습니다."
		}
		return booksearch.Results{}, &booksearch.ProviderError{
			Provider: providerName,
			Code:     strconv.Itoa(sr.ErrorCode),
			Message:  msg,
		}
	}

	books := make([]booksearch.BookResult, 0, len(sr.Items))
	for i, item := range sr.Items {
		books = append(books, item.toResult(i))
	}

	c.logger.Debug("aladin results", "query", query, "count", len(books), "total", sr.TotalResults)

	return booksearch.Results{Books: books, Total: sr.TotalResults}, nil
}

type searchResponse struct {
	TotalResults int    `json:"totalResults"`
	Items        []item `json:"item"`
	ErrorCode    int    `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

type item struct {
	ItemID        int64  `json:"itemId"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	Cover         string `json:"cover"`
	Publisher     string `json:"publisher"`
	PubDate       string `json:"pubDate"`
	Description   string `json:"description"`
	ISBN          string `json:"isbn"`
	ISBN13        string `json:"isbn13"`
	PriceStandard int    `json:"priceStandard"`
	Link          string `json:"link"`
}

func (it item) toResult(index int) booksearch.BookResult {
	isbn := it.ISBN13
	if isbn == "" {
		isbn = booksearch.ExtractISBN13(it.ISBN)
	}
	return booksearch.BookResult{
		ID:          strconv.FormatInt(it.ItemID, 10),
		Title:       html.UnescapeString(it.Title),
		Author:      html.UnescapeString(it.Author),
		Cover:       it.Cover,
		Color:       booksearch.ColorAt(index),
		Publisher:   html.UnescapeString(it.Publisher),
		PubDate:     it.PubDate,
		Description: booksearch.CleanDescription(it.Description),
		ISBN13:      isbn,
		Price:       it.PriceStandard,
		Link:        it.Link,
	}
}
