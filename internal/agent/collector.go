package agent

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/mohammad-safakhou/agentflow/internal/mcp"
	"github.com/mohammad-safakhou/agentflow/internal/workflow"
	"github.com/mohammad-safakhou/agentflow/utils"
)

// Site is one scraped source in the collection output.
type Site struct {
	URL            string  `json:"url"`
	Title          string  `json:"title"`
	ContentPreview string  `json:"content_preview"`
	Content        string  `json:"content"`
	WordCount      int     `json:"word_count"`
	RelevanceScore float64 `json:"relevance_score"`
}

// CollectionOutput is the collection stage's envelope data.
type CollectionOutput struct {
	UserRequest string            `json:"user_request"`
	SearchQuery string            `json:"search_query"`
	Sites       []Site            `json:"sites"`
	Summary     CollectionSummary `json:"collection_summary"`
}

type CollectionSummary struct {
	TotalURLs int `json:"total_urls"`
	Scraped   int `json:"scraped"`
	Failed    int `json:"failed"`
}

// Collector searches the web for the request and scrapes the result pages.
type Collector struct {
	tools    *mcp.Client
	maxSites int
	logger   *log.Logger
}

func NewCollector(tools *mcp.Client, maxSites int, logger *log.Logger) *Collector {
	if logger == nil {
		logger = log.New(log.Writer(), "[COLLECT] ", log.LstdFlags)
	}
	if maxSites <= 0 {
		maxSites = 5
	}
	return &Collector{tools: tools, maxSites: maxSites, logger: logger}
}

func (c *Collector) Step() workflow.Step { return workflow.StepCollection }

func (c *Collector) Run(ctx context.Context, in workflow.StageInput) workflow.Envelope {
	query := strings.Join(extractKeywords(in.UserRequest, 5), " ")
	if query == "" {
		query = strings.TrimSpace(in.UserRequest)
	}
	if query == "" {
		return workflow.Failure("empty user request")
	}
	c.logger.Printf("searching: %s", query)

	search := c.tools.Invoke(ctx, mcp.ServerWebSearch, "search", map[string]any{
		"query":       query,
		"num_results": c.maxSites,
	})
	if !search.Success {
		return workflow.Failure("web search failed: " + search.Error)
	}
	var urls []string
	for _, hit := range asMapSlice(search.Result["results"]) {
		if u := utils.Str(hit["url"]); u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		return workflow.Failure("no relevant sites found")
	}
	if len(urls) > c.maxSites {
		urls = urls[:c.maxSites]
	}

	out := CollectionOutput{
		UserRequest: in.UserRequest,
		SearchQuery: query,
		Summary:     CollectionSummary{TotalURLs: len(urls)},
	}
	for _, u := range urls {
		scrape := c.tools.Invoke(ctx, mcp.ServerFirecrawl, "scrape_url", map[string]any{"url": u})
		if !scrape.Success {
			c.logger.Printf("scrape failed for %s: %s", u, scrape.Error)
			out.Summary.Failed++
			continue
		}
		content := utils.Str(scrape.Result["content"])
		out.Sites = append(out.Sites, Site{
			URL:            u,
			Title:          utils.Str(scrape.Result["title"]),
			ContentPreview: utils.Truncate(content, 200),
			Content:        content,
			WordCount:      len(strings.Fields(content)),
			RelevanceScore: relevance(content, in.UserRequest),
		})
		out.Summary.Scraped++
	}
	if out.Summary.Scraped == 0 {
		return workflow.Failure("all scrapes failed")
	}
	sort.SliceStable(out.Sites, func(i, j int) bool {
		return out.Sites[i].RelevanceScore > out.Sites[j].RelevanceScore
	})

	msg := fmt.Sprintf("collected %d of %d sites", out.Summary.Scraped, out.Summary.TotalURLs)
	c.logger.Printf("%s", msg)
	return workflow.Success(msg, workflow.ToMap(out))
}
