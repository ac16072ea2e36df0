package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/pagewidgets/pagewidgets-server/internal/api"
	"github.com/pagewidgets/pagewidgets-server/internal/config"
	"github.com/pagewidgets/pagewidgets-server/internal/imageproxy"
	"github.com/pagewidgets/pagewidgets-server/internal/kb"
	"github.com/pagewidgets/pagewidgets-server/internal/logger"
)

// ProvideImageProxy provides the cover image relay.
func ProvideImageProxy(i do.Injector) (*imageproxy.Proxy, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	proxy := imageproxy.New(cfg.ImageProxy.AllowedHosts, log.Logger)
	log.Info("Image relay initialized",
		"path", cfg.ImageProxy.PathPrefix,
		"allowed_hosts", cfg.ImageProxy.AllowedHosts,
	)
	return proxy, nil
}

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	handler *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.handler.Close()
	return err
}

// ProvideHTTPServer provides the HTTP server and starts it in the background.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	searcher := do.MustInvoke[*SearcherHandle](i)
	gateway := do.MustInvoke[*kb.Gateway](i)
	images := do.MustInvoke[*imageproxy.Proxy](i)

	handler := api.NewServer(cfg, &api.Services{
		Search: searcher.Searcher,
		KB:     gateway,
		Images: images,
	}, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr, "rate_limit_per_minute", cfg.Server.RateLimit)

	return &HTTPServerHandle{Server: srv, handler: handler}, nil
}
