package mcp

import (
	"context"
	"testing"
)

// requiredMockKeys lists the payload keys downstream stages read
// unconditionally for each tool.
var requiredMockKeys = map[string][]string{
	"search":           {"results"},
	"scrape_url":       {"content", "title", "url", "metadata"},
	"crawl_site":       {"pages", "page_count"},
	"read_file":        {"path", "content"},
	"write_file":       {"path", "bytes_written"},
	"list_directory":   {"path", "entries"},
	"save_document":    {"document_id", "title"},
	"search_documents": {"documents"},
	"send_email":       {"message"},
	"send_message":     {"message"},
	"create_chart":     {"chart_url", "message"},
}

func TestMockCoversEveryCatalogTool(t *testing.T) {
	reg, err := DefaultRegistry(defaultTestConfig())
	if err != nil {
		t.Fatalf("DefaultRegistry: %v", err)
	}
	mock := NewMockAdapter(nil)
	for _, srv := range reg.Servers() {
		for _, tool := range srv.Tools {
			result, err := mock.Call(context.Background(), srv.Name, tool.Name, map[string]any{
				"query": "q", "url": "https://example.com", "path": "a.txt",
				"content": "x", "title": "t", "to": "a@b.c", "channel": "#x",
			})
			if err != nil {
				t.Fatalf("mock %s.%s: %v", srv.Name, tool.Name, err)
			}
			keys, ok := requiredMockKeys[tool.Name]
			if !ok {
				t.Fatalf("tool %s.%s has no required-key expectation; update the catalog test", srv.Name, tool.Name)
			}
			for _, key := range keys {
				if _, ok := result[key]; !ok {
					t.Fatalf("mock %s.%s missing key %q", srv.Name, tool.Name, key)
				}
			}
		}
	}
}

func TestMockInterpolatesArguments(t *testing.T) {
	mock := NewMockAdapter(nil)
	result, err := mock.Call(context.Background(), ServerWebSearch, "search", map[string]any{"query": "korean startups"})
	if err != nil {
		t.Fatalf("mock search: %v", err)
	}
	hits, ok := result["results"].([]map[string]any)
	if !ok || len(hits) == 0 {
		t.Fatalf("expected at least one synthetic result")
	}
	if hits[0]["title"] != "Mock search result for: korean startups" {
		t.Fatalf("unexpected title: %v", hits[0]["title"])
	}
}

func TestMockRejectsUnknownTool(t *testing.T) {
	mock := NewMockAdapter(nil)
	if _, err := mock.Call(context.Background(), ServerWebSearch, "summon", nil); err == nil {
		t.Fatalf("expected error for undefined mock tool")
	}
}
