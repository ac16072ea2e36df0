package providers

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/pagewidgets/pagewidgets-server/internal/booksearch"
	"github.com/pagewidgets/pagewidgets-server/internal/booksearch/aladin"
	"github.com/pagewidgets/pagewidgets-server/internal/booksearch/kakao"
	"github.com/pagewidgets/pagewidgets-server/internal/config"
	"github.com/pagewidgets/pagewidgets-server/internal/logger"
)

// SearcherHandle wraps the configured book search provider with shutdown
// capability.
type SearcherHandle struct {
	booksearch.Searcher
	close func()
}

// Shutdown implements do.Shutdownable.
func (h *SearcherHandle) Shutdown() error {
	if h.close != nil {
		h.close()
	}
	return nil
}

// ProvideSearcher provides the book search provider chosen by SEARCH_PROVIDER.
// Credentials are read from the environment on every search.
func ProvideSearcher(i do.Injector) (*SearcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	switch cfg.Search.Provider {
	case config.ProviderAladin:
		c := aladin.New(booksearch.EnvKey(cfg.Search.AladinKeyEnv), log.Logger)
		log.Info("Book search provider initialized", "provider", cfg.Search.Provider)
		return &SearcherHandle{Searcher: c, close: c.Close}, nil

	case config.ProviderKakao:
		var opts []kakao.Option
		if cfg.ImageProxy.RewriteCovers {
			if cfg.Server.PublicBaseURL == "" {
				log.Warn("Cover rewrite without PUBLIC_BASE_URL stores relative cover links")
			}
			opts = append(opts, kakao.WithCoverProxy(cfg.Server.PublicBaseURL+cfg.ImageProxy.PathPrefix))
		}
		c := kakao.New(booksearch.EnvKey(cfg.Search.KakaoKeyEnv), log.Logger, opts...)
		log.Info("Book search provider initialized",
			"provider", cfg.Search.Provider,
			"rewrite_covers", cfg.ImageProxy.RewriteCovers,
		)
		return &SearcherHandle{Searcher: c, close: c.Close}, nil

	default:
		return nil, fmt.Errorf("unknown search provider %q", cfg.Search.Provider)
	}
}
