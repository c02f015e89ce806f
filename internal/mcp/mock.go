package mcp

import (
	"context"
	"fmt"
	"log"

	"github.com/mohammad-safakhou/agentflow/utils"
)

// MockAdapter produces deterministic, I/O-free responses for every tool in
// the catalog. It keeps the pipeline runnable and testable with zero external
// configuration. An unmatched tool name is a configuration bug and fails the
// call loudly rather than being swallowed.
type MockAdapter struct {
	logger *log.Logger
}

func NewMockAdapter(logger *log.Logger) *MockAdapter {
	if logger == nil {
		logger = log.New(log.Writer(), "[MOCK] ", log.LstdFlags)
	}
	return &MockAdapter{logger: logger}
}

// Call synthesizes a tool response. Payload shapes mirror the live adapters:
// downstream stages read these keys unconditionally.
func (m *MockAdapter) Call(_ context.Context, server, tool string, args map[string]any) (map[string]any, error) {
	var result map[string]any
	switch tool {
	case "search":
		query := utils.Str(args["query"])
		result = map[string]any{
			"results": []map[string]any{
				{
					"title":   "Mock search result for: " + query,
					"url":     "https://example.com/mock-result",
					"snippet": "Mock search result snippet...",
				},
			},
		}
	case "scrape_url":
		url := utils.Str(args["url"])
		result = map[string]any{
			"content":  "Mock scraped content from " + url,
			"title":    "Mock Page Title",
			"url":      url,
			"metadata": map[string]any{"word_count": 150},
		}
	case "crawl_site":
		url := utils.Str(args["url"])
		result = map[string]any{
			"pages": []map[string]any{
				{"url": url, "content": "Mock crawled content from " + url},
			},
			"page_count": 1,
		}
	case "read_file":
		path := utils.Str(args["path"])
		result = map[string]any{"path": path, "content": "Mock file contents for " + path}
	case "write_file":
		path := utils.Str(args["path"])
		result = map[string]any{"path": path, "bytes_written": len(utils.Str(args["content"]))}
	case "list_directory":
		path := utils.Str(args["path"])
		result = map[string]any{"path": path, "entries": []string{"mock-report.md"}}
	case "save_document":
		title := utils.Str(args["title"])
		result = map[string]any{"document_id": "mock-doc-1", "title": title}
	case "search_documents":
		query := utils.Str(args["query"])
		result = map[string]any{
			"documents": []map[string]any{
				{"id": "mock-doc-1", "title": "Mock document for: " + query, "score": 1.0},
			},
		}
	case "send_email":
		to := utils.Str(args["to"])
		result = map[string]any{"message": "Mock email sent to " + to}
	case "send_message":
		channel := utils.Str(args["channel"])
		result = map[string]any{"message": "Mock Slack message sent to " + channel}
	case "create_chart":
		result = map[string]any{"chart_url": "mock-chart-url.png", "message": "Mock chart created successfully"}
	default:
		m.logger.Printf("no mock defined for %s.%s", server, tool)
		return nil, fmt.Errorf("no mock defined for %s.%s", server, tool)
	}
	return result, nil
}
