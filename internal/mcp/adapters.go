package mcp

import (
	"log"
	"strings"

	"github.com/mohammad-safakhou/agentflow/config"
)

// BuildAdapters constructs live adapters for every backend with enough
// configuration to try. Servers missing here (or failing construction) are
// transparently mocked by the client, so adapter errors are logged, never
// fatal.
func BuildAdapters(cfg *config.Config, logger *log.Logger) map[string]Adapter {
	if logger == nil {
		logger = log.New(log.Writer(), "[MCP] ", log.LstdFlags)
	}
	adapters := make(map[string]Adapter)

	if cfg.Servers.WebSearch.APIKey != "" {
		if a, err := NewSearchAdapter(cfg.Servers.WebSearch); err != nil {
			logger.Printf("web_search adapter unavailable: %v", err)
		} else {
			adapters[ServerWebSearch] = a
		}
	}
	if cfg.Servers.Firecrawl.Enabled != "" {
		adapters[ServerFirecrawl] = NewScrapeAdapter(cfg.Servers.Firecrawl)
	}
	if cfg.Servers.Filesystem.Root != "" {
		if a, err := NewFilesystemAdapter(cfg.Servers.Filesystem.Root); err != nil {
			logger.Printf("filesystem adapter unavailable: %v", err)
		} else {
			adapters[ServerFilesystem] = a
		}
	}
	if cfg.Servers.Docstore.RedisAddr != "" {
		if a, err := NewDocstoreAdapter(cfg.Servers.Docstore); err != nil {
			logger.Printf("docstore adapter unavailable: %v", err)
		} else {
			adapters[ServerDocstore] = a
		}
	}
	if cfg.Servers.Gmail.SMTPHost != "" {
		adapters[ServerGmail] = NewGmailAdapter(cfg.Servers.Gmail)
	}
	if cfg.Servers.Slack.WebhookURL != "" {
		adapters[ServerSlack] = NewSlackAdapter(cfg.Servers.Slack)
	}
	if strings.TrimSpace(cfg.Servers.Chart.Endpoint) != "" {
		adapters[ServerChart] = NewChartAdapter(cfg.Servers.Chart)
	}
	return adapters
}
