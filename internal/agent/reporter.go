package agent

import (
	"context"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"github.com/mohammad-safakhou/agentflow/internal/mcp"
	"github.com/mohammad-safakhou/agentflow/internal/workflow"
	"github.com/mohammad-safakhou/agentflow/utils"
)

// Report is the reporter's structured result.
type Report struct {
	Title       string         `json:"title"`
	Subtitle    string         `json:"subtitle"`
	GeneratedAt string         `json:"generated_at"`
	Sections    map[string]any `json:"sections"`
	Highlights  []string       `json:"highlights"`
}

// Notification records one delivery attempt.
type Notification struct {
	Channel string `json:"channel"`
	Status  string `json:"status"` // sent or failed
	Detail  string `json:"detail,omitempty"`
}

// ReportOutput is the reporting stage's envelope data.
type ReportOutput struct {
	Report        Report         `json:"report"`
	Markdown      string         `json:"markdown"`
	ExportPath    string         `json:"export_path"`
	DocumentID    string         `json:"document_id,omitempty"`
	Notifications []Notification `json:"notifications"`
}

// NotifyTargets configures where finished reports are announced.
type NotifyTargets struct {
	EmailTo      string
	SlackChannel string
}

// Reporter integrates all prior stage outputs into a markdown report, exports
// it and announces it. Notifications and archiving are best effort; only the
// export itself can fail the stage.
type Reporter struct {
	tools  *mcp.Client
	notify NotifyTargets
	logger *log.Logger
}

func NewReporter(tools *mcp.Client, notify NotifyTargets, logger *log.Logger) *Reporter {
	if logger == nil {
		logger = log.New(log.Writer(), "[REPORT] ", log.LstdFlags)
	}
	return &Reporter{tools: tools, notify: notify, logger: logger}
}

func (r *Reporter) Step() workflow.Step { return workflow.StepReporting }

func (r *Reporter) Run(ctx context.Context, in workflow.StageInput) workflow.Envelope {
	collection := in.History["collection"].Data
	processing := in.History["processing"].Data
	action := in.History["action"].Data

	report := r.compose(in.UserRequest, collection, processing, action)
	markdown := renderMarkdown(report)

	exportPath := path.Join("reports", fmt.Sprintf("report_%s.md", time.Now().Format("20060102_150405")))
	export := r.tools.Invoke(ctx, mcp.ServerFilesystem, "write_file", map[string]any{
		"path":    exportPath,
		"content": markdown,
	})
	if !export.Success {
		return workflow.Failure("report export failed: " + export.Error)
	}

	out := ReportOutput{
		Report:        report,
		Markdown:      markdown,
		ExportPath:    exportPath,
		Notifications: []Notification{},
	}

	if archive := r.tools.Invoke(ctx, mcp.ServerDocstore, "save_document", map[string]any{
		"title":   report.Title + ": " + utils.Truncate(in.UserRequest, 60),
		"content": markdown,
		"tags":    []string{"report"},
	}); archive.Success {
		out.DocumentID = utils.Str(archive.Result["document_id"])
	} else {
		r.logger.Printf("archiving skipped: %s", archive.Error)
	}

	out.Notifications = append(out.Notifications, r.sendEmail(ctx, report, markdown))
	out.Notifications = append(out.Notifications, r.sendSlack(ctx, report))

	msg := fmt.Sprintf("report exported to %s", exportPath)
	r.logger.Printf("%s", msg)
	return workflow.Success(msg, workflow.ToMap(out))
}

func (r *Reporter) compose(userRequest string, collection, processing, action map[string]any) Report {
	metrics := map[string]any{
		"websites_analyzed": 0,
		"scraped":           0,
		"categories_found":  0,
		"actions_executed":  0,
	}
	if summary, ok := collection["collection_summary"].(map[string]any); ok {
		metrics["websites_analyzed"] = utils.Int(summary["total_urls"])
		metrics["scraped"] = utils.Int(summary["scraped"])
	}
	if summary, ok := processing["processing_summary"].(map[string]any); ok {
		metrics["categories_found"] = utils.Int(summary["categories_found"])
	}
	if eval, ok := action["evaluation"].(map[string]any); ok {
		metrics["actions_executed"] = utils.Int(eval["successful_actions"])
	}

	insights := asStringSlice(processing["insights"])
	keywords := asStringSlice(processing["keywords"])

	highlights := []string{
		fmt.Sprintf("%d websites analyzed, %d scraped", metrics["websites_analyzed"], metrics["scraped"]),
		fmt.Sprintf("%d categories discovered", metrics["categories_found"]),
	}
	if len(insights) > 0 {
		highlights = append(highlights, insights[0])
	}

	sections := map[string]any{
		"executive_summary": map[string]any{
			"overview":    fmt.Sprintf("Results of the information pipeline for: %s", userRequest),
			"key_metrics": metrics,
		},
		"methodology": map[string]any{
			"workflow": []string{"collection", "processing", "action", "reporting"},
		},
		"findings": map[string]any{
			"top_keywords": keywords,
			"categories":   categoryDistribution(map[string]any{"analysis": processing["analysis"]}),
			"sources":      sourceURLs(collection),
		},
		"insights":        insights,
		"recommendations": action["report_draft"],
		"appendix": map[string]any{
			"chart_url":    utils.Str(processing["chart_url"]),
			"action_plan":  action["action_plan"],
			"generated_at": time.Now().Format(time.RFC3339),
		},
	}

	return Report{
		Title:       "Information Collection and Analysis Report",
		Subtitle:    "Request: " + userRequest,
		GeneratedAt: time.Now().Format("2006-01-02 15:04:05"),
		Sections:    sections,
		Highlights:  highlights,
	}
}

func (r *Reporter) sendEmail(ctx context.Context, report Report, markdown string) Notification {
	args := map[string]any{
		"to":      r.notify.EmailTo,
		"subject": report.Title,
		"body":    markdown,
	}
	res := r.tools.Invoke(ctx, mcp.ServerGmail, "send_email", args)
	if !res.Success {
		return Notification{Channel: "email", Status: "failed", Detail: res.Error}
	}
	return Notification{Channel: "email", Status: "sent", Detail: utils.Str(res.Result["message"])}
}

func (r *Reporter) sendSlack(ctx context.Context, report Report) Notification {
	text := report.Title + "\n" + strings.Join(report.Highlights, "\n")
	res := r.tools.Invoke(ctx, mcp.ServerSlack, "send_message", map[string]any{
		"channel": r.notify.SlackChannel,
		"message": text,
	})
	if !res.Success {
		return Notification{Channel: "slack", Status: "failed", Detail: res.Error}
	}
	return Notification{Channel: "slack", Status: "sent", Detail: utils.Str(res.Result["message"])}
}

func sourceURLs(collection map[string]any) []string {
	var urls []string
	for _, site := range asMapSlice(collection["sites"]) {
		if u := utils.Str(site["url"]); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

func renderMarkdown(report Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", report.Title)
	fmt.Fprintf(&b, "%s\n\nGenerated: %s\n\n", report.Subtitle, report.GeneratedAt)

	b.WriteString("## Highlights\n\n")
	for _, h := range report.Highlights {
		fmt.Fprintf(&b, "- %s\n", h)
	}
	b.WriteString("\n")

	exec, _ := report.Sections["executive_summary"].(map[string]any)
	b.WriteString("## Executive Summary\n\n")
	fmt.Fprintf(&b, "%s\n\n", utils.Str(exec["overview"]))
	if metrics, ok := exec["key_metrics"].(map[string]any); ok {
		for _, key := range []string{"websites_analyzed", "scraped", "categories_found", "actions_executed"} {
			fmt.Fprintf(&b, "- %s: %d\n", strings.ReplaceAll(key, "_", " "), utils.Int(metrics[key]))
		}
		b.WriteString("\n")
	}

	if findings, ok := report.Sections["findings"].(map[string]any); ok {
		b.WriteString("## Findings\n\n")
		if keywords := asStringSlice(findings["top_keywords"]); len(keywords) > 0 {
			fmt.Fprintf(&b, "Top keywords: %s\n\n", strings.Join(keywords, ", "))
		}
		if sources := asStringSlice(findings["sources"]); len(sources) > 0 {
			b.WriteString("Sources:\n\n")
			for _, u := range sources {
				fmt.Fprintf(&b, "- %s\n", u)
			}
			b.WriteString("\n")
		}
	}

	if insights := asStringSlice(report.Sections["insights"]); len(insights) > 0 {
		b.WriteString("## Insights\n\n")
		for _, insight := range insights {
			fmt.Fprintf(&b, "- %s\n", insight)
		}
		b.WriteString("\n")
	}

	if draft, ok := report.Sections["recommendations"].(map[string]any); ok {
		if recs := asStringSlice(draft["recommendations"]); len(recs) > 0 {
			b.WriteString("## Recommendations\n\n")
			for _, rec := range recs {
				fmt.Fprintf(&b, "- %s\n", rec)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}
