package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/mohammad-safakhou/agentflow/config"
	"github.com/mohammad-safakhou/agentflow/utils"
)

// SearchResult is one hit from a web search backend.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// WebSearcher abstracts the concrete search API.
type WebSearcher interface {
	Discover(ctx context.Context, q string, k int) ([]SearchResult, error)
}

// SearchAdapter serves the web_search server's `search` tool.
type SearchAdapter struct {
	searcher   WebSearcher
	maxResults int
}

// NewSearchAdapter selects the provider from config.
func NewSearchAdapter(cfg config.WebSearchConfig) (*SearchAdapter, error) {
	var s WebSearcher
	switch cfg.Provider {
	case "serper", "":
		s = serperSearch{apiKey: cfg.APIKey}
	case "brave":
		s = braveSearch{apiKey: cfg.APIKey}
	default:
		return nil, fmt.Errorf("unsupported web search provider: %s", cfg.Provider)
	}
	max := cfg.MaxResults
	if max <= 0 {
		max = 5
	}
	return &SearchAdapter{searcher: s, maxResults: max}, nil
}

func (a *SearchAdapter) Invoke(ctx context.Context, tool string, args map[string]any) (map[string]any, error) {
	if tool != "search" {
		return nil, fmt.Errorf("web_search: unsupported tool %s", tool)
	}
	query := utils.Str(args["query"])
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("web_search: empty query")
	}
	k := utils.Int(args["num_results"])
	if k <= 0 || k > a.maxResults {
		k = a.maxResults
	}
	hits, err := a.searcher.Discover(ctx, query, k)
	if err != nil {
		return nil, err
	}
	results := make([]map[string]any, 0, len(hits))
	for _, h := range hits {
		results = append(results, map[string]any{"title": h.Title, "url": h.URL, "snippet": h.Snippet})
	}
	return map[string]any{"results": results}, nil
}

type serperSearch struct {
	apiKey string
}

func (s serperSearch) Discover(ctx context.Context, q string, k int) ([]SearchResult, error) {
	// https://serper.dev/ docs
	payload, _ := json.Marshal(map[string]any{"q": q, "num": k})
	req, _ := http.NewRequestWithContext(ctx, "POST", "https://google.serper.dev/search", strings.NewReader(string(payload)))
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	var out []SearchResult
	if items, ok := raw["organic"].([]any); ok {
		for i, it := range items {
			if i >= k {
				break
			}
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, SearchResult{
				Title: utils.Str(m["title"]), URL: utils.Str(m["link"]), Snippet: utils.Str(m["snippet"]),
			})
		}
	}
	return out, nil
}

type braveSearch struct {
	apiKey string
}

func (s braveSearch) Discover(ctx context.Context, q string, k int) ([]SearchResult, error) {
	// https://api.search.brave.com/app/documentation/web-search
	url := fmt.Sprintf("https://api.search.brave.com/res/v1/web/search?q=%s&count=%d", utils.UrlQuery(q), k)
	req, _ := http.NewRequestWithContext(ctx, "GET", url, nil)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", s.apiKey)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var raw struct {
		Web struct {
			Results []struct {
				Title   string `json:"title"`
				URL     string `json:"url"`
				Snippet string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	var out []SearchResult
	for i, r := range raw.Web.Results {
		if i >= k {
			break
		}
		out = append(out, SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Snippet})
	}
	return out, nil
}
