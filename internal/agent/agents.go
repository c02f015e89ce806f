// Package agent implements the four pipeline stages: collection, processing,
// action and reporting. Each stage talks to the outside world exclusively
// through its scoped tool client.
package agent

import (
	"log"

	"github.com/mohammad-safakhou/agentflow/config"
	"github.com/mohammad-safakhou/agentflow/internal/mcp"
	"github.com/mohammad-safakhou/agentflow/internal/telemetry"
	"github.com/mohammad-safakhou/agentflow/internal/workflow"
)

// Stages builds the pipeline in execution order, each stage with its own
// permission-scoped tool client.
func Stages(cfg *config.Config, registry *mcp.Registry, adapters map[string]mcp.Adapter, tele *telemetry.Telemetry) []workflow.Stage {
	timeout := cfg.General.DefaultTimeout
	client := func(agent string) *mcp.Client {
		var logger *log.Logger
		if tele != nil {
			logger = tele.Logger("MCP")
		}
		return mcp.NewClient(agent, registry, adapters, timeout, tele, logger)
	}
	stageLogger := func(prefix string) *log.Logger {
		if tele != nil {
			return tele.Logger(prefix)
		}
		return nil
	}
	return []workflow.Stage{
		NewCollector(client(mcp.AgentCollector), cfg.Workflow.MaxSites, stageLogger("COLLECT")),
		NewProcessor(client(mcp.AgentProcessor), stageLogger("PROCESS")),
		NewAction(client(mcp.AgentAction), stageLogger("ACTION")),
		NewReporter(client(mcp.AgentReporter), NotifyTargets{
			EmailTo:      cfg.Servers.Gmail.To,
			SlackChannel: cfg.Servers.Slack.Channel,
		}, stageLogger("REPORT")),
	}
}
