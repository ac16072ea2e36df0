// Package kakao adapts the Kakao (Daum) book search API to booksearch.Searcher.
//
// Kakao returns thumbnails from its resizing CDN with the real image URL
// embedded in the fname query parameter. The knowledge base only renders a
// preview for URLs that look like static image files, so the adapter digs
// the origin URL out, forces https, drops its query string and optionally
// routes it through the application's image relay.
package kakao

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

	"github.com/google/uuid"

	"github.com/pagewidgets/pagewidgets-server/internal/booksearch"
	"github.com/pagewidgets/pagewidgets-server/internal/ratelimit"
)

const (
	// DefaultBaseURL is the book search endpoint.
	DefaultBaseURL = "https://dapi.kakao.com/v3/search/book"

	providerName = "kakao"

	maxResultsLimit = 50

	defaultRPS     = 10.0
	defaultBurst   = 10
	defaultTimeout = 15 * time.Second
)

// idNamespace scopes the derived result ids.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte(DefaultBaseURL))

// Client is a rate-limited Kakao search client.
type Client struct {
	http        *http.Client
	baseURL     string
	key         booksearch.KeyFunc
	proxyPrefix string
	limiter     *ratelimit.KeyedRateLimiter
	logger      *slog.Logger
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

// WithCoverProxy rewrites covers to <prefix>/cover.jpg?url=<origin>. An
// empty prefix disables the rewrite.
func WithCoverProxy(prefix string) Option {
	return func(c *Client) { c.proxyPrefix = strings.TrimRight(prefix, "/") }
}

// New creates a Kakao client. key is consulted on every search.
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
	apiKey := c.key()
	if apiKey == "" {
		return booksearch.Results{}, booksearch.ErrMissingCredential
	}

	if err := c.limiter.Wait(ctx, providerName); err != nil {
		return booksearch.Results{}, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("size", strconv.Itoa(booksearch.ClampMaxResults(maxResults, maxResultsLimit)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return booksearch.Results{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "KakaoAK "+apiKey)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("kakao request", "query", query)

	resp, err := c.http.Do(req)
	if err != nil {
		return booksearch.Results{}, fmt.Errorf("kakao request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return booksearch.Results{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		pe := &booksearch.ProviderError{
			Provider: providerName,
			Status:   resp.StatusCode,
			Message:  fmt.Sprintf("카카오 API 응답 오류: %d", resp.StatusCode),
		}
		var eb errorBody
		if json.Unmarshal(body, &eb) == nil && eb.Message != "" {
			pe.Code = eb.ErrorType
			pe.Message = fmt.Sprintf("카카오 API 응답 오류: %d %s", resp.StatusCode, eb.Message)
		}
		return booksearch.Results{}, pe
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return booksearch.Results{}, fmt.Errorf("parse response: %w", err)
	}

	books := make([]booksearch.BookResult, 0, len(sr.Documents))
	for i, d := range sr.Documents {
		books = append(books, c.toResult(d, i))
	}

	c.logger.Debug("kakao results", "query", query, "count", len(books), "total", sr.Meta.TotalCount)

	return booksearch.Results{Books: books, Total: sr.Meta.TotalCount}, nil
}

func (c *Client) toResult(d document, index int) booksearch.BookResult {
	isbn := booksearch.ExtractISBN13(d.ISBN)

	seed := isbn
	if seed == "" {
		seed = d.Title + "|" + d.Publisher + "|" + d.URL
	}

	cover := OriginCover(d.Thumbnail)
	if cover != "" && c.proxyPrefix != "" {
		cover = ProxyCover(c.proxyPrefix, cover)
	}

	return booksearch.BookResult{
		ID:          uuid.NewSHA1(idNamespace, []byte(seed)).String(),
		Title:       d.Title,
		Author:      strings.Join(d.Authors, ", "),
		Cover:       cover,
		Color:       booksearch.ColorAt(index),
		Publisher:   d.Publisher,
		PubDate:     booksearch.NormalizeDate(d.Datetime),
		Description: d.Contents,
		ISBN13:      isbn,
		Price:       d.Price,
		Link:        d.URL,
	}
}

// OriginCover extracts the origin image URL from a Kakao thumbnail URL,
// forces https and strips its query string. A thumbnail without an
// embedded URL is returned unchanged.
func OriginCover(thumbnail string) string {
	thumbnail = strings.TrimSpace(thumbnail)
	if thumbnail == "" {
		return ""
	}
	u, err := url.Parse(thumbnail)
	if err != nil {
		return thumbnail
	}
	fname := u.Query().Get("fname")
	if fname == "" {
		return thumbnail
	}
	// fname is sometimes encoded twice.
	if !strings.Contains(fname, "://") {
		if dec, err := url.QueryUnescape(fname); err == nil {
			fname = dec
		}
	}

	origin, err := url.Parse(fname)
	if err != nil || origin.Host == "" {
		return thumbnail
	}
	origin.Scheme = "https"
	origin.RawQuery = ""
	origin.ForceQuery = false
	origin.Fragment = ""
	return origin.String()
}

// ProxyCover routes origin through the image relay under prefix so the
// resulting path always ends in .jpg.
func ProxyCover(prefix, origin string) string {
	return strings.TrimRight(prefix, "/") + "/cover.jpg?url=" + url.QueryEscape(origin)
}

type searchResponse struct {
	Meta struct {
		TotalCount    int  `json:"total_count"`
		PageableCount int  `json:"pageable_count"`
		IsEnd         bool `json:"is_end"`
	} `json:"meta"`
	Documents []document `json:"documents"`
}

type document struct {
	Title     string   `json:"title"`
	Contents  string   `json:"contents"`
	URL       string   `json:"url"`
	ISBN      string   `json:"isbn"`
	Datetime  string   `json:"datetime"`
	Authors   []string `json:"authors"`
	Publisher string   `json:"publisher"`
	Price     int      `json:"price"`
	Thumbnail string   `json:"thumbnail"`
}

type errorBody struct {
	ErrorType string `json:"errorType"`
	Message   string `json:"message"`
}
