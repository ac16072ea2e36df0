package providers

import (
	"testing"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagewidgets/pagewidgets-server/internal/booksearch/aladin"
	"github.com/pagewidgets/pagewidgets-server/internal/booksearch/kakao"
	"github.com/pagewidgets/pagewidgets-server/internal/config"
	"github.com/pagewidgets/pagewidgets-server/internal/imageproxy"
	"github.com/pagewidgets/pagewidgets-server/internal/kb"
	"github.com/pagewidgets/pagewidgets-server/internal/logger"
)

func testConfig(provider string) *config.Config {
	return &config.Config{
		App:    config.AppConfig{Environment: "development"},
		Logger: config.LoggerConfig{Level: "info"},
		Server: config.ServerConfig{Port: "0", CORSAllowedOrigins: []string{"*"}},
		Search: config.SearchConfig{
			Provider:     provider,
			AladinKeyEnv: "ALADIN_TTB_KEY",
			KakaoKeyEnv:  "KAKAO_REST_API_KEY",
		},
		ImageProxy: config.ImageProxyConfig{
			PathPrefix:   "/api/image-proxy",
			AllowedHosts: imageproxy.DefaultAllowedHosts,
		},
		Notion: config.NotionConfig{BaseURL: "http://127.0.0.1:1/v1", Version: "2022-06-28"},
	}
}

func newInjector(cfg *config.Config) do.Injector {
	i := do.New()
	do.ProvideValue(i, cfg)
	do.ProvideValue(i, logger.Discard())
	do.Provide(i, ProvideNotionClient)
	do.Provide(i, ProvideGateway)
	do.Provide(i, ProvideSearcher)
	do.Provide(i, ProvideImageProxy)
	do.Provide(i, ProvideHTTPServer)
	return i
}

func TestProvideSearcher(t *testing.T) {
	t.Run("aladin", func(t *testing.T) {
		h, err := do.Invoke[*SearcherHandle](newInjector(testConfig(config.ProviderAladin)))
		require.NoError(t, err)
		assert.IsType(t, &aladin.Client{}, h.Searcher)
		require.NoError(t, h.Shutdown())
	})

	t.Run("kakao", func(t *testing.T) {
		cfg := testConfig(config.ProviderKakao)
		cfg.ImageProxy.RewriteCovers = true
		cfg.Server.PublicBaseURL = "https://widgets.example.org"

		h, err := do.Invoke[*SearcherHandle](newInjector(cfg))
		require.NoError(t, err)
		assert.IsType(t, &kakao.Client{}, h.Searcher)
		require.NoError(t, h.Shutdown())
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := do.Invoke[*SearcherHandle](newInjector(testConfig("google")))
		require.Error(t, err)
	})
}

func TestProvideGateway(t *testing.T) {
	gw, err := do.Invoke[*kb.Gateway](newInjector(testConfig(config.ProviderAladin)))
	require.NoError(t, err)
	assert.NotNil(t, gw)
}

func TestProvideHTTPServer(t *testing.T) {
	h, err := do.Invoke[*HTTPServerHandle](newInjector(testConfig(config.ProviderAladin)))
	require.NoError(t, err)
	assert.Equal(t, ":0", h.Addr)
	require.NoError(t, h.Shutdown())
}
