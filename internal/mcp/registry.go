package mcp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mohammad-safakhou/agentflow/config"
)

// Agent identifiers used in the routing table. Each pipeline stage owns one.
const (
	AgentCollector = "collector"
	AgentProcessor = "processor"
	AgentAction    = "action"
	AgentReporter  = "reporter"
)

// Server names of the known tool backends.
const (
	ServerWebSearch  = "web_search"
	ServerFirecrawl  = "firecrawl"
	ServerFilesystem = "filesystem"
	ServerDocstore   = "docstore"
	ServerGmail      = "gmail"
	ServerSlack      = "slack"
	ServerChart      = "chart"
)

// ToolSpec describes a single tool exposed by a server.
type ToolSpec struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Params      []string `json:"parameters"`
}

// ServerCapability is the static descriptor for one backend: its tools, the
// configuration it needs, and the settings actually supplied.
type ServerCapability struct {
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Tools          []ToolSpec `json:"tools"`
	RequiredConfig []string   `json:"required_config"`

	settings map[string]string
}

// Available reports whether every required configuration key is present and
// non-empty. An unavailable server is served by the mock adapter.
func (s ServerCapability) Available() bool {
	for _, key := range s.RequiredConfig {
		if strings.TrimSpace(s.settings[key]) == "" {
			return false
		}
	}
	return true
}

// Tool returns the descriptor for a tool name.
func (s ServerCapability) Tool(name string) (ToolSpec, bool) {
	for _, t := range s.Tools {
		if t.Name == name {
			return t, true
		}
	}
	return ToolSpec{}, false
}

// Setting returns a supplied configuration value.
func (s ServerCapability) Setting(key string) string { return s.settings[key] }

// Registry is an immutable catalog of servers plus the per-agent routing
// table. It is constructed explicitly and injected into each client; there is
// no package-level instance.
type Registry struct {
	servers map[string]ServerCapability
	routes  map[string][]string
}

// NewRegistry validates that every route references a declared server.
func NewRegistry(servers []ServerCapability, routes map[string][]string) (*Registry, error) {
	r := &Registry{servers: make(map[string]ServerCapability, len(servers)), routes: make(map[string][]string, len(routes))}
	for _, s := range servers {
		if s.Name == "" {
			return nil, fmt.Errorf("server with empty name")
		}
		if len(s.Tools) == 0 {
			return nil, fmt.Errorf("server %s declares no tools", s.Name)
		}
		if _, dup := r.servers[s.Name]; dup {
			return nil, fmt.Errorf("duplicate server %s", s.Name)
		}
		r.servers[s.Name] = s
	}
	for agent, names := range routes {
		for _, name := range names {
			if _, ok := r.servers[name]; !ok {
				return nil, fmt.Errorf("agent %s routed to unknown server %s", agent, name)
			}
		}
		r.routes[agent] = append([]string(nil), names...)
	}
	return r, nil
}

// Server looks up a capability descriptor by name.
func (r *Registry) Server(name string) (ServerCapability, bool) {
	s, ok := r.servers[name]
	return s, ok
}

// Servers returns all descriptors sorted by name.
func (r *Registry) Servers() []ServerCapability {
	out := make([]ServerCapability, 0, len(r.servers))
	for _, s := range r.servers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ServersFor returns the ordered server list an agent may reach.
func (r *Registry) ServersFor(agent string) []string {
	return append([]string(nil), r.routes[agent]...)
}

// Permitted reports whether an agent may call the named server.
func (r *Registry) Permitted(agent, server string) bool {
	for _, name := range r.routes[agent] {
		if name == server {
			return true
		}
	}
	return false
}

// DefaultRoutes is the static agent→server routing table.
func DefaultRoutes() map[string][]string {
	return map[string][]string{
		AgentCollector: {ServerWebSearch, ServerFirecrawl, ServerFilesystem},
		AgentProcessor: {ServerFilesystem, ServerDocstore, ServerChart},
		AgentAction:    {ServerFilesystem, ServerDocstore},
		AgentReporter:  {ServerGmail, ServerSlack, ServerChart, ServerDocstore, ServerFilesystem},
	}
}

// DefaultRegistry builds the full server catalog from configuration.
func DefaultRegistry(cfg *config.Config) (*Registry, error) {
	servers := []ServerCapability{
		{
			Name:        ServerWebSearch,
			Description: "Web search capabilities",
			Tools: []ToolSpec{
				{Name: "search", Description: "Search the web", Params: []string{"query", "num_results"}},
			},
			RequiredConfig: []string{"api_key"},
			settings: map[string]string{
				"api_key":  cfg.Servers.WebSearch.APIKey,
				"provider": cfg.Servers.WebSearch.Provider,
			},
		},
		{
			Name:        ServerFirecrawl,
			Description: "Web scraping and content extraction",
			Tools: []ToolSpec{
				{Name: "scrape_url", Description: "Extract content from a URL", Params: []string{"url", "options"}},
				{Name: "crawl_site", Description: "Crawl an entire website", Params: []string{"url", "max_pages"}},
			},
			RequiredConfig: []string{"enabled"},
			settings: map[string]string{
				"enabled":    cfg.Servers.Firecrawl.Enabled,
				"user_agent": cfg.Servers.Firecrawl.UserAgent,
			},
		},
		{
			Name:        ServerFilesystem,
			Description: "Artifact file operations",
			Tools: []ToolSpec{
				{Name: "read_file", Description: "Read file contents", Params: []string{"path"}},
				{Name: "write_file", Description: "Write file contents", Params: []string{"path", "content"}},
				{Name: "list_directory", Description: "List directory contents", Params: []string{"path"}},
			},
			RequiredConfig: []string{"root"},
			settings:       map[string]string{"root": cfg.Servers.Filesystem.Root},
		},
		{
			Name:        ServerDocstore,
			Description: "Document persistence and retrieval",
			Tools: []ToolSpec{
				{Name: "save_document", Description: "Persist a document", Params: []string{"title", "content", "tags"}},
				{Name: "search_documents", Description: "Full-text search over saved documents", Params: []string{"query", "limit"}},
			},
			RequiredConfig: []string{"redis_addr"},
			settings:       map[string]string{"redis_addr": cfg.Servers.Docstore.RedisAddr},
		},
		{
			Name:        ServerGmail,
			Description: "Email delivery for reports",
			Tools: []ToolSpec{
				{Name: "send_email", Description: "Send email", Params: []string{"to", "subject", "body"}},
			},
			RequiredConfig: []string{"smtp_host", "username", "password"},
			settings: map[string]string{
				"smtp_host": cfg.Servers.Gmail.SMTPHost,
				"smtp_port": cfg.Servers.Gmail.SMTPPort,
				"username":  cfg.Servers.Gmail.Username,
				"password":  cfg.Servers.Gmail.Password,
				"from":      cfg.Servers.Gmail.From,
			},
		},
		{
			Name:        ServerSlack,
			Description: "Chat notifications",
			Tools: []ToolSpec{
				{Name: "send_message", Description: "Send message to a channel", Params: []string{"channel", "message"}},
			},
			RequiredConfig: []string{"webhook_url"},
			settings: map[string]string{
				"webhook_url": cfg.Servers.Slack.WebhookURL,
				"channel":     cfg.Servers.Slack.Channel,
			},
		},
		{
			Name:        ServerChart,
			Description: "Chart generation and visualization",
			Tools: []ToolSpec{
				{Name: "create_chart", Description: "Create a data visualization chart", Params: []string{"data", "chart_type", "options"}},
			},
			RequiredConfig: []string{"endpoint"},
			settings:       map[string]string{"endpoint": cfg.Servers.Chart.Endpoint},
		},
	}
	return NewRegistry(servers, DefaultRoutes())
}
