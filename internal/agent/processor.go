package agent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mohammad-safakhou/agentflow/internal/mcp"
	"github.com/mohammad-safakhou/agentflow/internal/workflow"
	"github.com/mohammad-safakhou/agentflow/utils"
)

// Analysis is the structured view the processor builds from scraped sites.
type Analysis struct {
	TotalSites        int            `json:"total_sites"`
	SuccessfulScrapes int            `json:"successful_scrapes"`
	Categories        map[string]int `json:"categories"`
	Keywords          []keywordCount `json:"keywords"`
	Summaries         []string       `json:"summaries"`
	URLs              []string       `json:"urls"`
	RelevanceScore    float64        `json:"relevance_score"`
	CoverageLevel     string         `json:"coverage_level"`
}

// ProcessingOutput is the processing stage's envelope data.
type ProcessingOutput struct {
	UserRequest string            `json:"user_request"`
	Analysis    Analysis          `json:"analysis"`
	Insights    []string          `json:"insights"`
	Keywords    []string          `json:"keywords"`
	ChartURL    string            `json:"chart_url,omitempty"`
	Summary     ProcessingSummary `json:"processing_summary"`
}

type ProcessingSummary struct {
	TotalProcessed    int `json:"total_processed"`
	CategoriesFound   int `json:"categories_found"`
	KeywordsExtracted int `json:"keywords_extracted"`
}

// Processor structures collected data, derives rule-based insights and
// renders an optional category chart.
type Processor struct {
	tools  *mcp.Client
	logger *log.Logger
}

func NewProcessor(tools *mcp.Client, logger *log.Logger) *Processor {
	if logger == nil {
		logger = log.New(log.Writer(), "[PROCESS] ", log.LstdFlags)
	}
	return &Processor{tools: tools, logger: logger}
}

func (p *Processor) Step() workflow.Step { return workflow.StepProcessing }

func (p *Processor) Run(ctx context.Context, in workflow.StageInput) workflow.Envelope {
	sites := asMapSlice(in.Prior["sites"])
	if len(sites) == 0 {
		return workflow.Failure("no collected data to process")
	}

	analysis := Analysis{Categories: map[string]int{}}
	if summary, ok := in.Prior["collection_summary"].(map[string]any); ok {
		analysis.TotalSites = utils.Int(summary["total_urls"])
	}
	if analysis.TotalSites == 0 {
		analysis.TotalSites = len(sites)
	}
	var contents []string
	for _, site := range sites {
		content := utils.Str(site["content"])
		if content == "" {
			content = utils.Str(site["content_preview"])
		}
		analysis.SuccessfulScrapes++
		analysis.URLs = append(analysis.URLs, utils.Str(site["url"]))
		analysis.Categories[categorize(content)]++
		analysis.Summaries = append(analysis.Summaries, utils.Truncate(content, 200))
		contents = append(contents, content)
	}
	analysis.Keywords = countKeywords(contents, 10)

	topKeywords := make([]string, 0, 10)
	for _, kc := range analysis.Keywords {
		topKeywords = append(topKeywords, kc.Keyword)
		if len(topKeywords) == 10 {
			break
		}
	}
	analysis.RelevanceScore, analysis.CoverageLevel = assessRelevance(in.UserRequest, topKeywords)

	out := ProcessingOutput{
		UserRequest: in.UserRequest,
		Analysis:    analysis,
		Insights:    p.insights(analysis),
		Keywords:    topKeywords,
		Summary: ProcessingSummary{
			TotalProcessed:    analysis.SuccessfulScrapes,
			CategoriesFound:   len(analysis.Categories),
			KeywordsExtracted: len(analysis.Keywords),
		},
	}

	// Chart rendering is best effort: the stage result does not depend on it.
	if chart := p.tools.Invoke(ctx, mcp.ServerChart, "create_chart", map[string]any{
		"data":       analysis.Categories,
		"chart_type": "bar",
		"options":    map[string]any{"title": "Category distribution"},
	}); chart.Success {
		out.ChartURL = utils.Str(chart.Result["chart_url"])
	} else {
		p.logger.Printf("chart rendering skipped: %s", chart.Error)
	}

	msg := fmt.Sprintf("processed %d sites into %d categories", out.Summary.TotalProcessed, out.Summary.CategoriesFound)
	p.logger.Printf("%s", msg)
	return workflow.Success(msg, workflow.ToMap(out))
}

func (p *Processor) insights(a Analysis) []string {
	var insights []string
	rate := float64(a.SuccessfulScrapes) / float64(a.TotalSites)
	switch {
	case rate > 0.8:
		insights = append(insights, "high scrape success rate, collected data quality is good")
	case rate < 0.5:
		insights = append(insights, "low scrape success rate, additional collection is recommended")
	}
	if top := topCategory(a.Categories); top != "" {
		insights = append(insights, fmt.Sprintf("most covered category: %s", top))
	}
	if len(a.Keywords) > 0 {
		n := len(a.Keywords)
		if n > 3 {
			n = 3
		}
		kws := make([]string, 0, n)
		for _, kc := range a.Keywords[:n] {
			kws = append(kws, kc.Keyword)
		}
		insights = append(insights, "top keywords: "+strings.Join(kws, ", "))
	}
	return insights
}

func categorize(content string) string {
	c := strings.ToLower(content)
	switch {
	case strings.Contains(c, "ai") || strings.Contains(c, "artificial") || strings.Contains(c, "intelligence"):
		return "AI/ML"
	case strings.Contains(c, "tech") || strings.Contains(c, "technology"):
		return "Technology"
	case strings.Contains(c, "business") || strings.Contains(c, "company"):
		return "Business"
	default:
		return "General"
	}
}

func topCategory(categories map[string]int) string {
	best, bestN := "", 0
	for cat, n := range categories {
		if n > bestN || (n == bestN && cat < best) {
			best, bestN = cat, n
		}
	}
	return best
}

func assessRelevance(request string, contentKeywords []string) (float64, string) {
	reqKeywords := extractKeywords(request, 10)
	if len(reqKeywords) == 0 {
		return 0, "low"
	}
	set := make(map[string]struct{}, len(contentKeywords))
	for _, kw := range contentKeywords {
		set[kw] = struct{}{}
	}
	overlap := 0
	for _, kw := range reqKeywords {
		if _, ok := set[kw]; ok {
			overlap++
		}
	}
	score := float64(overlap) / float64(len(reqKeywords))
	switch {
	case overlap > 3:
		return score, "high"
	case overlap > 1:
		return score, "moderate"
	default:
		return score, "low"
	}
}
