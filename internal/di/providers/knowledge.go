package providers

import (
	"github.com/samber/do/v2"

	"github.com/pagewidgets/pagewidgets-server/internal/config"
	"github.com/pagewidgets/pagewidgets-server/internal/kb"
	"github.com/pagewidgets/pagewidgets-server/internal/logger"
	"github.com/pagewidgets/pagewidgets-server/internal/notion"
)

// NotionClientHandle wraps the knowledge-base REST client with shutdown capability.
type NotionClientHandle struct {
	*notion.Client
}

// Shutdown implements do.Shutdownable.
func (h *NotionClientHandle) Shutdown() error {
	h.Client.Close()
	return nil
}

// ProvideNotionClient provides the knowledge-base REST client. It carries
// no token; the gateway authenticates each call with the caller's key.
func ProvideNotionClient(i do.Injector) (*NotionClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := notion.New(log.Logger,
		notion.WithBaseURL(cfg.Notion.BaseURL),
		notion.WithVersion(cfg.Notion.Version),
	)
	log.Info("Knowledge-base client initialized",
		"base_url", cfg.Notion.BaseURL,
		"version", cfg.Notion.Version,
	)

	return &NotionClientHandle{Client: client}, nil
}

// ProvideGateway provides the knowledge-base gateway.
func ProvideGateway(i do.Injector) (*kb.Gateway, error) {
	clientHandle := do.MustInvoke[*NotionClientHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return kb.New(clientHandle.Client, log.Logger), nil
}
