// Package di provides dependency injection configuration for the widget server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/pagewidgets/pagewidgets-server/internal/config"
	"github.com/pagewidgets/pagewidgets-server/internal/di/providers"
	"github.com/pagewidgets/pagewidgets-server/internal/imageproxy"
	"github.com/pagewidgets/pagewidgets-server/internal/kb"
	"github.com/pagewidgets/pagewidgets-server/internal/logger"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Knowledge base
	do.Provide(injector, providers.ProvideNotionClient)
	do.Provide(injector, providers.ProvideGateway)

	// Book search and covers
	do.Provide(injector, providers.ProvideSearcher)
	do.Provide(injector, providers.ProvideImageProxy)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services, which starts the HTTP server.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.NotionClientHandle](injector)
	_ = do.MustInvoke[*kb.Gateway](injector)
	_ = do.MustInvoke[*providers.SearcherHandle](injector)
	_ = do.MustInvoke[*imageproxy.Proxy](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)
	return nil
}
