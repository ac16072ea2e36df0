package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/pagewidgets/pagewidgets-server/internal/widgetcfg"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const contextKeyBaseURL contextKey = "base_url"

// securityHeaders are sent on every response.
var securityHeaders = [][2]string{
	{"X-Frame-Options", "SAMEORIGIN"},
	{"X-Content-Type-Options", "nosniff"},
	{"Referrer-Policy", "origin-when-cross-origin"},
	{"X-XSS-Protection", "1; mode=block"},
	{"X-DNS-Prefetch-Control", "on"},
	{"Strict-Transport-Security", "max-age=31536000; includeSubDomains"},
	{"Permissions-Policy", "camera=(), microphone=(), geolocation=(), interest-cohort=()"},
}

// frameablePrefixes cover routes that embedding pages load inside an iframe.
var frameablePrefixes = []string{
	"/api/widgets/",
	"/" + widgetcfg.BookRoute + "/",
	"/" + widgetcfg.TodoRoute + "/",
}

func frameable(path string) bool {
	for _, prefix := range frameablePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// withSecurityHeaders sets securityHeaders, leaving out X-Frame-Options on
// widget routes.
func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		embeddable := frameable(r.URL.Path)
		for _, h := range securityHeaders {
			if embeddable && h[0] == "X-Frame-Options" {
				continue
			}
			w.Header().Set(h[0], h[1])
		}
		next.ServeHTTP(w, r)
	})
}

// withBaseURL stores the base used for embed links in the request context:
// the configured public URL if set, else the URL the request came in on.
func withBaseURL(public string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			base := public
			if base == "" {
				base = getServerURL(r)
			}
			ctx := context.WithValue(r.Context(), contextKeyBaseURL, base)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// getBaseURL returns the embed base stored by withBaseURL.
func getBaseURL(ctx context.Context) string {
	if base, ok := ctx.Value(contextKeyBaseURL).(string); ok {
		return base
	}
	return ""
}

// getServerURL derives the external URL from the request, honouring
// reverse proxy headers. Without a host it returns "" so embed links stay
// relative.
func getServerURL(r *http.Request) string {
	scheme := "https"
	if r.TLS == nil {
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		} else {
			scheme = "http"
		}
	}

	host := r.Host
	if forwardedHost := r.Header.Get("X-Forwarded-Host"); forwardedHost != "" {
		host = forwardedHost
	}
	if host == "" {
		host = r.URL.Host
	}
	if host == "" {
		return ""
	}

	return scheme + "://" + host
}
