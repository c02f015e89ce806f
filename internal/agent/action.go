package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"github.com/mohammad-safakhou/agentflow/internal/mcp"
	"github.com/mohammad-safakhou/agentflow/internal/workflow"
	"github.com/mohammad-safakhou/agentflow/utils"
)

const actionPrepareReport = "prepare_report"

// PlannedAction is one entry of the action plan.
type PlannedAction struct {
	Type        string `json:"action_type"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// ExecutedAction pairs a planned action with its outcome.
type ExecutedAction struct {
	Action PlannedAction  `json:"action"`
	Status string         `json:"status"` // completed or failed
	Result map[string]any `json:"result"`
}

// Evaluation grades an executed plan.
type Evaluation struct {
	TotalActions      int     `json:"total_actions"`
	SuccessfulActions int     `json:"successful_actions"`
	FailedActions     int     `json:"failed_actions"`
	SuccessRate       float64 `json:"success_rate"`
	Satisfaction      string  `json:"user_request_satisfaction"`
}

// ActionOutput is the action stage's envelope data.
type ActionOutput struct {
	Plan            []PlannedAction  `json:"action_plan"`
	ExecutedActions []ExecutedAction `json:"executed_actions"`
	Evaluation      Evaluation       `json:"evaluation"`
	ReportDraft     map[string]any   `json:"report_draft"`
	ArtifactPath    string           `json:"artifact_path,omitempty"`
	DocumentID      string           `json:"document_id,omitempty"`
}

// Action plans and executes follow-up work on the processed data, persisting
// intermediate artifacts. It always ends with a prepare_report action whose
// draft feeds the reporter.
type Action struct {
	tools  *mcp.Client
	logger *log.Logger
}

func NewAction(tools *mcp.Client, logger *log.Logger) *Action {
	if logger == nil {
		logger = log.New(log.Writer(), "[ACTION] ", log.LstdFlags)
	}
	return &Action{tools: tools, logger: logger}
}

func (a *Action) Step() workflow.Step { return workflow.StepAction }

func (a *Action) Run(ctx context.Context, in workflow.StageInput) workflow.Envelope {
	if len(in.Prior) == 0 {
		return workflow.Failure("no processed data to act on")
	}

	plan := buildPlan(in.UserRequest, in.Prior)
	out := ActionOutput{Plan: plan, ReportDraft: map[string]any{}}
	for _, planned := range plan {
		a.logger.Printf("executing %s", planned.Type)
		result, err := a.execute(ctx, planned, in, &out)
		exec := ExecutedAction{Action: planned, Status: "completed", Result: result}
		if err != nil {
			exec.Status = "failed"
			exec.Result = map[string]any{"error": err.Error()}
			a.logger.Printf("%s failed: %v", planned.Type, err)
		}
		out.ExecutedActions = append(out.ExecutedActions, exec)
	}

	out.Evaluation = evaluate(out.ExecutedActions, in.UserRequest)
	if len(out.ReportDraft) == 0 {
		return workflow.Failure("report preparation failed")
	}

	msg := fmt.Sprintf("executed %d of %d actions", out.Evaluation.SuccessfulActions, out.Evaluation.TotalActions)
	a.logger.Printf("%s", msg)
	return workflow.Success(msg, workflow.ToMap(out))
}

func buildPlan(userRequest string, prior map[string]any) []PlannedAction {
	var plan []PlannedAction
	if analysis, ok := prior["analysis"].(map[string]any); ok {
		total := utils.Int(analysis["total_sites"])
		scraped := utils.Int(analysis["successful_scrapes"])
		if total > 0 && float64(scraped)/float64(total) < 0.7 {
			plan = append(plan, PlannedAction{
				Type:        "data_improvement",
				Description: "plan additional collection to raise scrape quality",
				Priority:    "high",
			})
		}
	}
	req := strings.ToLower(userRequest)
	if strings.Contains(req, "summary") || strings.Contains(req, "summarize") {
		plan = append(plan, PlannedAction{
			Type:        "comprehensive_summary",
			Description: "generate a comprehensive summary of the findings",
			Priority:    "high",
		})
	}
	if strings.Contains(req, "analysis") || strings.Contains(req, "analyze") {
		plan = append(plan, PlannedAction{
			Type:        "deep_analysis",
			Description: "perform deep trend and pattern analysis",
			Priority:    "high",
		})
	}
	plan = append(plan, PlannedAction{
		Type:        actionPrepareReport,
		Description: "prepare the final report draft",
		Priority:    "high",
	})
	return plan
}

func (a *Action) execute(ctx context.Context, planned PlannedAction, in workflow.StageInput, out *ActionOutput) (map[string]any, error) {
	switch planned.Type {
	case "data_improvement":
		return map[string]any{
			"improvement_strategies": []string{
				"use a broader set of source sites",
				"tune scrape timeouts for slow pages",
			},
		}, nil

	case "comprehensive_summary":
		summary := map[string]any{
			"overview":     fmt.Sprintf("analysis completed for request: %s", in.UserRequest),
			"key_findings": in.Prior["insights"],
		}
		res := a.tools.Invoke(ctx, mcp.ServerDocstore, "save_document", map[string]any{
			"title":   "Summary: " + utils.Truncate(in.UserRequest, 60),
			"content": marshalIndent(summary),
			"tags":    []string{"summary"},
		})
		if !res.Success {
			return nil, fmt.Errorf("saving summary: %s", res.Error)
		}
		out.DocumentID = utils.Str(res.Result["document_id"])
		return map[string]any{"summary": summary, "document_id": out.DocumentID}, nil

	case "deep_analysis":
		return map[string]any{
			"trend_analysis": map[string]any{
				"keyword_trends":        in.Prior["keywords"],
				"category_distribution": categoryDistribution(in.Prior),
			},
		}, nil

	case actionPrepareReport:
		draft := map[string]any{
			"title":           "Information Collection and Analysis Report",
			"timestamp":       time.Now().Format("2006-01-02 15:04:05"),
			"insights":        in.Prior["insights"],
			"keywords":        in.Prior["keywords"],
			"recommendations": recommendations(in.Prior),
		}
		artifact := path.Join("artifacts", fmt.Sprintf("draft_%d.json", time.Now().Unix()))
		res := a.tools.Invoke(ctx, mcp.ServerFilesystem, "write_file", map[string]any{
			"path":    artifact,
			"content": marshalIndent(draft),
		})
		if !res.Success {
			return nil, fmt.Errorf("writing report draft: %s", res.Error)
		}
		out.ReportDraft = draft
		out.ArtifactPath = artifact
		return map[string]any{"report": draft, "artifact_path": artifact}, nil

	default:
		return nil, fmt.Errorf("unknown action type: %s", planned.Type)
	}
}

func recommendations(prior map[string]any) []string {
	recs := []string{"collect additional sources around the top keywords"}
	if analysis, ok := prior["analysis"].(map[string]any); ok {
		total := utils.Int(analysis["total_sites"])
		scraped := utils.Int(analysis["successful_scrapes"])
		if total > 0 && float64(scraped)/float64(total) < 0.7 {
			recs = append(recs, "improve scrape strategy to raise the success rate")
		}
		if cats, ok := analysis["categories"].(map[string]any); ok && len(cats) > 0 {
			recs = append(recs, "deepen the analysis of the dominant category")
		}
	}
	return recs
}

func categoryDistribution(prior map[string]any) map[string]any {
	if analysis, ok := prior["analysis"].(map[string]any); ok {
		if cats, ok := analysis["categories"].(map[string]any); ok {
			return cats
		}
	}
	return map[string]any{}
}

func evaluate(executed []ExecutedAction, userRequest string) Evaluation {
	ev := Evaluation{TotalActions: len(executed)}
	var completed []string
	for _, exec := range executed {
		if exec.Status == "completed" {
			ev.SuccessfulActions++
			completed = append(completed, exec.Action.Description)
		} else {
			ev.FailedActions++
		}
	}
	if ev.TotalActions > 0 {
		ev.SuccessRate = float64(ev.SuccessfulActions) / float64(ev.TotalActions)
	}
	ev.Satisfaction = satisfaction(completed, userRequest)
	return ev
}

func satisfaction(descriptions []string, userRequest string) string {
	reqKeywords := extractKeywords(userRequest, 10)
	if len(reqKeywords) == 0 {
		return "low"
	}
	joined := strings.ToLower(strings.Join(descriptions, " "))
	matched := 0
	for _, kw := range reqKeywords {
		if strings.Contains(joined, kw) {
			matched++
		}
	}
	score := float64(matched) / float64(len(reqKeywords))
	switch {
	case score > 0.7:
		return "high"
	case score > 0.4:
		return "medium"
	default:
		return "low"
	}
}

func marshalIndent(v any) string {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(raw)
}
