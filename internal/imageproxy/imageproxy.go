// Package imageproxy relays cover images from an allow-list of hosts under
// a path that ends in .jpg, so that knowledge-base previews render them.
package imageproxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"golang.org/x/net/idna"
)

const (
	// MaxImageBytes caps the size of a relayed image.
	MaxImageBytes = 10 << 20

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// DefaultAllowedHosts are the cover hosts of the supported providers.
var DefaultAllowedHosts = []string{"t1.daumcdn.net", "search1.kakaocdn.net", "image.aladin.co.kr"}

var (
	ErrMissingURL  = errors.New("missing url parameter")
	ErrInvalidURL  = errors.New("invalid url parameter")
	ErrHostBlocked = errors.New("domain not allowed")
	ErrTooLarge    = errors.New("image too large")
)

// Proxy is the relay handler.
type Proxy struct {
	http    *http.Client
	allowed []string
	logger  *slog.Logger
}

// Option configures a Proxy.
type Option func(*Proxy)

// WithHTTPClient replaces the outbound client. Its redirect policy is
// overridden so redirects stay inside the allow-list.
func WithHTTPClient(hc *http.Client) Option {
	return func(p *Proxy) {
		c := *hc
		p.http = &c
	}
}

// New creates a relay for the given hosts. A host also admits its
// subdomains.
func New(allowedHosts []string, logger *slog.Logger, opts ...Option) *Proxy {
	p := &Proxy{
		http:   &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
	for _, h := range allowedHosts {
		if h = normalizeHost(h); h != "" {
			p.allowed = append(p.allowed, h)
		}
	}
	for _, opt := range opts {
		opt(p)
	}
	p.http.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 5 {
			return errors.New("too many redirects")
		}
		if !p.hostAllowed(req.URL.Hostname()) {
			return fmt.Errorf("%w: redirect to %s", ErrHostBlocked, req.URL.Hostname())
		}
		return nil
	}
	return p
}

// Check parses raw and verifies it may be relayed.
func (p *Proxy) Check(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, ErrMissingURL
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidURL
	}
	if !p.hostAllowed(u.Hostname()) {
		return nil, ErrHostBlocked
	}
	return u, nil
}

func (p *Proxy) hostAllowed(host string) bool {
	host = normalizeHost(host)
	if host == "" {
		return false
	}
	return slices.ContainsFunc(p.allowed, func(a string) bool {
		return host == a || strings.HasSuffix(host, "."+a)
	})
}

func normalizeHost(h string) string {
	h = strings.TrimSuffix(strings.TrimSpace(h), ".")
	ascii, err := idna.Lookup.ToASCII(h)
	if err != nil {
		return ""
	}
	return strings.ToLower(ascii)
}

// Image is a fetched image.
type Image struct {
	ContentType string
	Body        []byte
}

// StatusError is a non-2xx upstream response.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d", e.Status)
}

// Fetch downloads u, which must have passed Check.
func (p *Proxy) Fetch(ctx context.Context, u *url.URL) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Status: resp.StatusCode}
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if n > MaxImageBytes {
		return nil, ErrTooLarge
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "image/jpeg"
	}
	return &Image{ContentType: ct, Body: buf.Bytes()}, nil
}

// ServeHTTP relays the image named by the url query parameter. Errors are
// plain text.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u, err := p.Check(r.URL.Query().Get("url"))
	switch {
	case errors.Is(err, ErrMissingURL):
		http.Error(w, "Missing url parameter", http.StatusBadRequest)
		return
	case errors.Is(err, ErrInvalidURL):
		http.Error(w, "Invalid url parameter", http.StatusBadRequest)
		return
	case errors.Is(err, ErrHostBlocked):
		p.logger.Warn("image proxy blocked host", "url", r.URL.Query().Get("url"))
		http.Error(w, "Domain not allowed", http.StatusForbidden)
		return
	}

	img, err := p.Fetch(r.Context(), u)
	if err != nil {
		var se *StatusError
		switch {
		case errors.As(err, &se):
			http.Error(w, "Failed to fetch image", se.Status)
		case errors.Is(err, ErrTooLarge):
			http.Error(w, "Image too large", http.StatusBadGateway)
		case errors.Is(err, ErrHostBlocked):
			http.Error(w, "Domain not allowed", http.StatusForbidden)
		default:
			p.logger.Error("image proxy error", "host", u.Hostname(), "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h := w.Header()
	h.Set("Content-Type", img.ContentType)
	h.Set("Content-Disposition", `inline; filename="cover.jpg"`)
	h.Set("Cache-Control", "public, max-age=31536000, immutable")
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Body)
}
