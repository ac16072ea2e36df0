// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Search providers.
const (
	ProviderAladin = "aladin"
	ProviderKakao  = "kakao"
)

// Config holds the application configuration.
type Config struct {
	App        AppConfig
	Logger     LoggerConfig
	Server     ServerConfig
	Search     SearchConfig
	ImageProxy ImageProxyConfig
	Notion     NotionConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port               string        // Server port (default: 3000)
	PublicBaseURL      string        // Optional; embed URLs fall back to the request host
	ReadTimeout        time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout       time.Duration // HTTP write timeout (default: 30s)
	IdleTimeout        time.Duration // HTTP idle timeout (default: 60s)
	CORSAllowedOrigins []string      // default: *
	RateLimit          int           // Requests per minute per client IP, 0 disables (default: 300)
}

// SearchConfig selects the book search provider wired at deployment time.
// Provider credentials are not part of the config; they are read from the
// environment on every request.
type SearchConfig struct {
	Provider     string
	AladinKeyEnv string
	KakaoKeyEnv  string
}

// ImageProxyConfig holds cover relay configuration.
type ImageProxyConfig struct {
	// RewriteCovers routes provider thumbnails through the relay so the
	// saved URL always ends in .jpg.
	RewriteCovers bool
	PathPrefix    string
	AllowedHosts  []string
}

// NotionConfig holds knowledge-base API settings.
type NotionConfig struct {
	BaseURL string
	Version string
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	port := flag.String("port", "", "Server port (default: 3000)")
	baseURL := flag.String("public-base-url", "", "Public base URL used in embed links")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 30s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	provider := flag.String("search-provider", "", "Book search provider (aladin, kakao)")
	rewriteCovers := flag.String("image-proxy-rewrite", "", "Route provider covers through the image relay (default: false)")
	notionURL := flag.String("notion-api-url", "", "Notion API base URL")
	rateLimit := flag.String("rate-limit", "", "Requests per minute per client IP, 0 disables (default: 300)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	return build(flagValues{
		env:           *env,
		logLevel:      *logLevel,
		port:          *port,
		baseURL:       *baseURL,
		readTimeout:   *readTimeout,
		writeTimeout:  *writeTimeout,
		idleTimeout:   *idleTimeout,
		provider:      *provider,
		rewriteCovers: *rewriteCovers,
		notionURL:     *notionURL,
		rateLimit:     *rateLimit,
	})
}

// flagValues carries raw flag input into build so tests can skip flag.Parse.
type flagValues struct {
	env           string
	logLevel      string
	port          string
	baseURL       string
	readTimeout   string
	writeTimeout  string
	idleTimeout   string
	provider      string
	rewriteCovers string
	notionURL     string
	rateLimit     string
}

func build(f flagValues) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(f.env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(f.logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:               getConfigValue(f.port, "SERVER_PORT", "3000"),
			PublicBaseURL:      strings.TrimRight(getConfigValue(f.baseURL, "PUBLIC_BASE_URL", ""), "/"),
			CORSAllowedOrigins: getListConfigValue("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Search: SearchConfig{
			Provider:     strings.ToLower(getConfigValue(f.provider, "SEARCH_PROVIDER", ProviderAladin)),
			AladinKeyEnv: "ALADIN_TTB_KEY",
			KakaoKeyEnv:  "KAKAO_REST_API_KEY",
		},
		ImageProxy: ImageProxyConfig{
			RewriteCovers: getBoolConfigValue(f.rewriteCovers, "IMAGE_PROXY_REWRITE", false),
			PathPrefix:    "/api/image-proxy",
			AllowedHosts: getListConfigValue("IMAGE_PROXY_ALLOWED_HOSTS", []string{
				"t1.daumcdn.net",
				"search1.kakaocdn.net",
				"image.aladin.co.kr",
			}),
		},
		Notion: NotionConfig{
			BaseURL: getConfigValue(f.notionURL, "NOTION_API_URL", "https://api.notion.com/v1"),
			Version: getConfigValue("", "NOTION_VERSION", "2022-06-28"),
		},
	}

	var err error
	if cfg.Server.ReadTimeout, err = parseDuration(f.readTimeout, "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, fmt.Errorf("invalid read timeout: %w", err)
	}
	if cfg.Server.WriteTimeout, err = parseDuration(f.writeTimeout, "SERVER_WRITE_TIMEOUT", "30s"); err != nil {
		return nil, fmt.Errorf("invalid write timeout: %w", err)
	}
	if cfg.Server.IdleTimeout, err = parseDuration(f.idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, fmt.Errorf("invalid idle timeout: %w", err)
	}

	if cfg.Server.RateLimit, err = strconv.Atoi(getConfigValue(f.rateLimit, "SERVER_RATE_LIMIT", "300")); err != nil {
		return nil, fmt.Errorf("invalid rate limit: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.Search.Provider {
	case ProviderAladin, ProviderKakao:
	default:
		return fmt.Errorf("invalid search provider: %s (must be aladin or kakao)", c.Search.Provider)
	}

	if c.Server.PublicBaseURL != "" {
		u, err := url.Parse(c.Server.PublicBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid public base URL: %q", c.Server.PublicBaseURL)
		}
	}

	if c.Server.RateLimit < 0 {
		return fmt.Errorf("invalid rate limit: %d (must not be negative)", c.Server.RateLimit)
	}

	if c.Notion.BaseURL == "" {
		return errors.New("NOTION_API_URL cannot be empty")
	}

	return nil
}

// IsProduction reports whether the app runs in production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func parseDuration(flagValue, envKey, defaultValue string) (time.Duration, error) {
	raw := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", raw, err)
	}
	return d, nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getListConfigValue splits a comma-separated env var, dropping blanks.
func getListConfigValue(envKey string, defaultValue []string) []string {
	raw := os.Getenv(envKey)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
