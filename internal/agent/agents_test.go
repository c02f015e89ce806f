package agent

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/agentflow/config"
	"github.com/mohammad-safakhou/agentflow/internal/mcp"
	"github.com/mohammad-safakhou/agentflow/internal/workflow"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.General.DefaultTimeout = time.Second
	cfg.Workflow.MaxProcessingTime = time.Minute
	cfg.Workflow.MaxSites = 3
	return cfg
}

func mockClient(t *testing.T, agent string) *mcp.Client {
	t.Helper()
	reg, err := mcp.DefaultRegistry(testConfig())
	if err != nil {
		t.Fatalf("DefaultRegistry: %v", err)
	}
	return mcp.NewClient(agent, reg, nil, time.Second, nil, nil)
}

func TestCollectorScrapesSearchResults(t *testing.T) {
	c := NewCollector(mockClient(t, mcp.AgentCollector), 3, nil)
	env := c.Run(context.Background(), workflow.StageInput{UserRequest: "summarize korean ai startup funding"})
	if !env.OK() {
		t.Fatalf("collector failed: %+v", env)
	}
	sites := asMapSlice(env.Data["sites"])
	if len(sites) != 1 {
		t.Fatalf("expected one mock site, got %d", len(sites))
	}
	if !strings.Contains(sites[0]["content"].(string), "Mock scraped content") {
		t.Fatalf("unexpected site content: %v", sites[0]["content"])
	}
	summary, ok := env.Data["collection_summary"].(map[string]any)
	if !ok || summary["scraped"].(float64) != 1 {
		t.Fatalf("unexpected collection summary: %v", env.Data["collection_summary"])
	}
	if env.Data["search_query"] == "" {
		t.Fatalf("expected a derived search query")
	}
}

func TestCollectorRejectsEmptyRequest(t *testing.T) {
	c := NewCollector(mockClient(t, mcp.AgentCollector), 3, nil)
	if env := c.Run(context.Background(), workflow.StageInput{UserRequest: "   "}); env.OK() {
		t.Fatalf("expected failure for empty request")
	}
}

func collectionData() map[string]any {
	return workflow.ToMap(CollectionOutput{
		UserRequest: "analyze ai startup trends",
		SearchQuery: "analyze startup trends",
		Sites: []Site{
			{URL: "https://a.example/ai", Title: "AI", Content: "artificial intelligence startup funding trends", WordCount: 5},
			{URL: "https://b.example/biz", Title: "Biz", Content: "business company quarterly revenue report", WordCount: 5},
		},
		Summary: CollectionSummary{TotalURLs: 3, Scraped: 2, Failed: 1},
	})
}

func TestProcessorStructuresCollectedData(t *testing.T) {
	p := NewProcessor(mockClient(t, mcp.AgentProcessor), nil)
	env := p.Run(context.Background(), workflow.StageInput{
		UserRequest: "analyze ai startup trends",
		Prior:       collectionData(),
	})
	if !env.OK() {
		t.Fatalf("processor failed: %+v", env)
	}
	analysis, ok := env.Data["analysis"].(map[string]any)
	if !ok {
		t.Fatalf("missing analysis in %v", env.Data)
	}
	cats, ok := analysis["categories"].(map[string]any)
	if !ok || len(cats) == 0 {
		t.Fatalf("expected categories, got %v", analysis["categories"])
	}
	if _, ok := cats["AI/ML"]; !ok {
		t.Fatalf("expected AI/ML category in %v", cats)
	}
	if insights := asStringSlice(env.Data["insights"]); len(insights) == 0 {
		t.Fatalf("expected insights")
	}
	if env.Data["chart_url"] != "mock-chart-url.png" {
		t.Fatalf("expected mock chart url, got %v", env.Data["chart_url"])
	}
}

func TestProcessorRejectsMissingInput(t *testing.T) {
	p := NewProcessor(mockClient(t, mcp.AgentProcessor), nil)
	if env := p.Run(context.Background(), workflow.StageInput{UserRequest: "x"}); env.OK() {
		t.Fatalf("expected failure without collected data")
	}
}

func processingData(t *testing.T) map[string]any {
	t.Helper()
	p := NewProcessor(mockClient(t, mcp.AgentProcessor), nil)
	env := p.Run(context.Background(), workflow.StageInput{
		UserRequest: "summary and analysis of ai startup trends",
		Prior:       collectionData(),
	})
	if !env.OK() {
		t.Fatalf("processor failed: %+v", env)
	}
	return env.Data
}

func TestActionPlanEndsWithReportDraft(t *testing.T) {
	a := NewAction(mockClient(t, mcp.AgentAction), nil)
	env := a.Run(context.Background(), workflow.StageInput{
		UserRequest: "summary and analysis of ai startup trends",
		Prior:       processingData(t),
	})
	if !env.OK() {
		t.Fatalf("action failed: %+v", env)
	}
	plan := asMapSlice(env.Data["action_plan"])
	if len(plan) < 3 {
		t.Fatalf("expected summary, analysis and report actions, got %v", plan)
	}
	if plan[len(plan)-1]["action_type"] != actionPrepareReport {
		t.Fatalf("plan must end with %s, got %v", actionPrepareReport, plan[len(plan)-1])
	}
	if draft, ok := env.Data["report_draft"].(map[string]any); !ok || len(draft) == 0 {
		t.Fatalf("expected a report draft, got %v", env.Data["report_draft"])
	}
	eval, ok := env.Data["evaluation"].(map[string]any)
	if !ok || eval["total_actions"].(float64) != float64(len(plan)) {
		t.Fatalf("unexpected evaluation: %v", env.Data["evaluation"])
	}
}

func TestActionRejectsMissingInput(t *testing.T) {
	a := NewAction(mockClient(t, mcp.AgentAction), nil)
	if env := a.Run(context.Background(), workflow.StageInput{UserRequest: "x"}); env.OK() {
		t.Fatalf("expected failure without processed data")
	}
}

func TestReporterExportsAndNotifies(t *testing.T) {
	processing := processingData(t)
	action := NewAction(mockClient(t, mcp.AgentAction), nil).Run(context.Background(), workflow.StageInput{
		UserRequest: "summary of ai startup trends",
		Prior:       processing,
	})
	if !action.OK() {
		t.Fatalf("action failed: %+v", action)
	}

	r := NewReporter(mockClient(t, mcp.AgentReporter), NotifyTargets{EmailTo: "team@example.com", SlackChannel: "#reports"}, nil)
	env := r.Run(context.Background(), workflow.StageInput{
		UserRequest: "summary of ai startup trends",
		Prior:       action.Data,
		History: map[string]workflow.Envelope{
			"collection": workflow.Success("collected", collectionData()),
			"processing": workflow.Success("processed", processing),
			"action":     action,
		},
	})
	if !env.OK() {
		t.Fatalf("reporter failed: %+v", env)
	}
	markdown, _ := env.Data["markdown"].(string)
	if !strings.Contains(markdown, "# Information Collection and Analysis Report") {
		t.Fatalf("markdown missing title:\n%s", markdown)
	}
	if !strings.Contains(markdown, "## Insights") {
		t.Fatalf("markdown missing insights section:\n%s", markdown)
	}
	if export, _ := env.Data["export_path"].(string); !strings.HasPrefix(export, "reports/") {
		t.Fatalf("unexpected export path: %v", env.Data["export_path"])
	}
	notifications := asMapSlice(env.Data["notifications"])
	if len(notifications) != 2 {
		t.Fatalf("expected email and slack notifications, got %v", notifications)
	}
	for _, n := range notifications {
		if n["status"] != "sent" {
			t.Fatalf("mock-backed notification should be sent: %v", n)
		}
	}
}

func TestFullPipelineOnMocks(t *testing.T) {
	cfg := testConfig()
	reg, err := mcp.DefaultRegistry(cfg)
	if err != nil {
		t.Fatalf("DefaultRegistry: %v", err)
	}
	o := workflow.NewOrchestrator(cfg, Stages(cfg, reg, nil, nil), nil, nil)

	env := o.Execute(context.Background(), "summary and analysis of korean ai startups", "req_pipeline")
	if !env.OK() {
		t.Fatalf("pipeline failed: %+v", env)
	}
	st, ok := o.GetStatus("req_pipeline")
	if !ok || st.Status != workflow.RunCompleted || st.Progress != 100 {
		t.Fatalf("unexpected final state: %+v", st)
	}
	results, _ := env.Data["results"].(map[string]any)
	for _, key := range []string{"collection", "processing", "action", "report"} {
		if _, ok := results[key]; !ok {
			t.Fatalf("aggregate missing %s", key)
		}
	}
}

func TestKeywordHelpers(t *testing.T) {
	kws := extractKeywords("Please find the latest AI startup funding news", 5)
	for _, kw := range kws {
		if _, stop := stopWords[kw]; stop {
			t.Fatalf("stopword leaked: %s", kw)
		}
	}
	if len(kws) == 0 {
		t.Fatalf("expected keywords")
	}
	counts := countKeywords([]string{"startup funding", "startup news"}, 5)
	if counts[0].Keyword != "startup" || counts[0].Count != 2 {
		t.Fatalf("unexpected top keyword: %+v", counts[0])
	}
	if relevance("startup funding trends", "startup funding") <= 0 {
		t.Fatalf("expected positive relevance for overlapping texts")
	}
}
