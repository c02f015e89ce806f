package mcp

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	readability "github.com/go-shiori/go-readability"

	"github.com/mohammad-safakhou/agentflow/config"
	"github.com/mohammad-safakhou/agentflow/utils"
)

// ScrapeAdapter serves the firecrawl server with a headless browser fetch
// plus readability extraction.
type ScrapeAdapter struct {
	userAgent string
	timeout   time.Duration
	maxChars  int
}

func NewScrapeAdapter(cfg config.FirecrawlConfig) *ScrapeAdapter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxChars := cfg.MaxChars
	if maxChars <= 0 {
		maxChars = 12000
	}
	return &ScrapeAdapter{userAgent: cfg.UserAgent, timeout: timeout, maxChars: maxChars}
}

func (a *ScrapeAdapter) Invoke(ctx context.Context, tool string, args map[string]any) (map[string]any, error) {
	switch tool {
	case "scrape_url":
		return a.scrape(ctx, utils.Str(args["url"]))
	case "crawl_site":
		maxPages := utils.Int(args["max_pages"])
		if maxPages <= 0 {
			maxPages = 1
		}
		// Single-page crawl only: the entry page is fetched and reported as
		// the sole crawled page. Deeper traversal needs link extraction.
		page, err := a.scrape(ctx, utils.Str(args["url"]))
		if err != nil {
			return nil, err
		}
		return map[string]any{"pages": []map[string]any{page}, "page_count": 1}, nil
	default:
		return nil, fmt.Errorf("firecrawl: unsupported tool %s", tool)
	}
}

func (a *ScrapeAdapter) scrape(ctx context.Context, raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("firecrawl: empty url")
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	html, err := a.fetchHTML(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("firecrawl: fetch %s: %w", raw, err)
	}

	article, err := readability.FromReader(strings.NewReader(html), mustParseURL(raw))
	if err != nil {
		return nil, fmt.Errorf("firecrawl: extract %s: %w", raw, err)
	}
	text := utils.Clip(strings.TrimSpace(article.TextContent), a.maxChars)
	return map[string]any{
		"url":     raw,
		"title":   strings.TrimSpace(article.Title),
		"content": text,
		"metadata": map[string]any{
			"word_count": len(strings.Fields(text)),
			"byline":     strings.TrimSpace(article.Byline),
		},
	}, nil
}

func (a *ScrapeAdapter) fetchHTML(ctx context.Context, url string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent(a.userAgent),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(bctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return &url.URL{}
	}
	return u
}
