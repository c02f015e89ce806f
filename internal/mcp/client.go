package mcp

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mohammad-safakhou/agentflow/internal/telemetry"
)

// Adapter is the contract a live backend implements for one server.
type Adapter interface {
	Invoke(ctx context.Context, tool string, args map[string]any) (map[string]any, error)
}

// ToolCallResult is the envelope for a single tool invocation. A call either
// fully succeeds or fully fails; there is no partial state.
type ToolCallResult struct {
	Success bool           `json:"success"`
	Result  map[string]any `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
	Source  string         `json:"source,omitempty"` // live or mock
}

const (
	SourceLive = "live"
	SourceMock = "mock"
)

// Client is the per-agent tool invocation surface. It resolves the agent's
// permitted servers from the registry and routes each call to the live
// adapter when the server is available, falling back to the mock otherwise.
// Invoke never panics and never returns a Go error: every outcome is a
// ToolCallResult.
type Client struct {
	agent    string
	registry *Registry
	adapters map[string]Adapter
	mock     *MockAdapter
	timeout  time.Duration
	tele     *telemetry.Telemetry
	logger   *log.Logger
}

// NewClient scopes a client to one agent. adapters may be nil or sparse; any
// server without a live adapter is served by the mock.
func NewClient(agent string, registry *Registry, adapters map[string]Adapter, timeout time.Duration, tele *telemetry.Telemetry, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(log.Writer(), "[MCP] ", log.LstdFlags)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		agent:    agent,
		registry: registry,
		adapters: adapters,
		mock:     NewMockAdapter(logger),
		timeout:  timeout,
		tele:     tele,
		logger:   logger,
	}
}

// Agent returns the owning agent identifier.
func (c *Client) Agent() string { return c.agent }

// Servers returns the agent's permitted server names in routing order.
func (c *Client) Servers() []string { return c.registry.ServersFor(c.agent) }

// Invoke calls a named tool on a named server. No retries: policy, if any,
// belongs to the calling stage.
func (c *Client) Invoke(ctx context.Context, server, tool string, args map[string]any) (res ToolCallResult) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Printf("panic in %s.%s: %v", server, tool, r)
			res = ToolCallResult{Success: false, Error: fmt.Sprintf("tool call panicked: %v", r)}
		}
		outcome := "failure"
		if res.Success {
			outcome = "success"
		}
		if c.tele != nil {
			c.tele.ToolCall(server, tool, outcome, res.Source)
		}
	}()

	if !c.registry.Permitted(c.agent, server) {
		return ToolCallResult{Success: false, Error: "server not permitted for this agent"}
	}
	srv, ok := c.registry.Server(server)
	if !ok {
		return ToolCallResult{Success: false, Error: "server not permitted for this agent"}
	}
	if _, ok := srv.Tool(tool); !ok {
		return ToolCallResult{Success: false, Error: "unknown tool"}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if adapter := c.adapters[server]; adapter != nil && srv.Available() {
		result, err := c.invokeLive(ctx, adapter, tool, args)
		if err == nil {
			return ToolCallResult{Success: true, Result: result, Source: SourceLive}
		}
		// Fallback, not an error: unreachable backends must not break a run.
		c.logger.Printf("%s.%s live adapter failed, using mock: %v", server, tool, err)
	}

	result, err := c.mock.Call(ctx, server, tool, args)
	if err != nil {
		return ToolCallResult{Success: false, Error: err.Error(), Source: SourceMock}
	}
	return ToolCallResult{Success: true, Result: result, Source: SourceMock}
}

// invokeLive guards a live adapter call: a panicking backend is treated like
// any other adapter failure so the caller can fall back to the mock.
func (c *Client) invokeLive(ctx context.Context, adapter Adapter, tool string, args map[string]any) (result map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("adapter panicked: %v", r)
		}
	}()
	return adapter.Invoke(ctx, tool, args)
}
