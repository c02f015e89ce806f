package workflow

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mohammad-safakhou/agentflow/config"
	"github.com/mohammad-safakhou/agentflow/internal/telemetry"
)

// StageInput is what every stage receives: the original request, the prior
// stage's data, and the envelopes of every stage that already completed.
type StageInput struct {
	UserRequest string
	Prior       map[string]any
	History     map[string]Envelope
}

// Stage is one unit of the pipeline. Run must not panic for expected
// failures; it reports them through an error envelope.
type Stage interface {
	Step() Step
	Run(ctx context.Context, in StageInput) Envelope
}

// resultKeys maps a step to its key in the aggregate result.
var resultKeys = map[Step]string{
	StepCollection: "collection",
	StepProcessing: "processing",
	StepAction:     "action",
	StepReporting:  "report",
}

// Orchestrator drives the collect, process, act, report pipeline. Stages run
// strictly in order and a stage failure short-circuits the run.
type Orchestrator struct {
	cfg    *config.Config
	store  *Store
	stages []Stage
	tele   *telemetry.Telemetry
	logger *log.Logger
}

func NewOrchestrator(cfg *config.Config, stages []Stage, tele *telemetry.Telemetry, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	}
	return &Orchestrator{
		cfg:    cfg,
		store:  NewStore(),
		stages: stages,
		tele:   tele,
		logger: logger,
	}
}

// NewRequestID generates an id for callers that did not supply one.
func NewRequestID() string {
	return fmt.Sprintf("req_%d_%s", time.Now().Unix(), uuid.NewString()[:8])
}

// Execute runs the full pipeline for one request and returns the aggregate
// envelope. It blocks until the run finishes; concurrent calls with distinct
// request ids are independent.
func (o *Orchestrator) Execute(ctx context.Context, userRequest, requestID string) (env Envelope) {
	if requestID == "" {
		requestID = NewRequestID()
	}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, o.cfg.Workflow.MaxProcessingTime)
	defer cancel()

	ctx, span := otel.Tracer("agentflow/workflow").Start(ctx, "workflow.execute")
	span.SetAttributes(attribute.String("request_id", requestID))
	defer span.End()

	o.store.Create(requestID, userRequest)
	if o.tele != nil {
		o.tele.RunStarted()
	}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Printf("[%s] panic: %v", requestID, r)
			env = o.fail(requestID, Envelope{
				Status:  StatusError,
				Message: fmt.Sprintf("workflow panicked: %v", r),
			})
		}
		status := "completed"
		if !env.OK() {
			status = "error"
		}
		if o.tele != nil {
			o.tele.RunFinished(status, time.Since(start))
		}
	}()

	o.logger.Printf("[%s] starting workflow: %s", requestID, userRequest)

	history := make(map[string]Envelope, len(o.stages))
	var prior map[string]any
	for _, stage := range o.stages {
		step := stage.Step()
		o.store.SetStep(requestID, step)
		o.logger.Printf("[%s] step %s (%d%%)", requestID, step, Checkpoints[step])

		stageStart := time.Now()
		sctx, sspan := otel.Tracer("agentflow/workflow").Start(ctx, "workflow.stage."+string(step))
		result := stage.Run(sctx, StageInput{UserRequest: userRequest, Prior: prior, History: history})
		sspan.End()
		if o.tele != nil {
			o.tele.StageObserved(string(step), time.Since(stageStart))
		}

		o.store.AppendStep(requestID, step, result.Status, result.Message)
		if !result.OK() {
			o.logger.Printf("[%s] step %s failed: %s", requestID, step, result.Message)
			return o.fail(requestID, Envelope{
				Status:  StatusError,
				Message: fmt.Sprintf("%s failed: %s", step, result.Message),
				Data: map[string]any{
					"request_id":  requestID,
					"failed_step": string(step),
					"error_data":  result.Data,
				},
			})
		}
		history[resultKeys[step]] = result
		prior = result.Data
	}

	results := make(map[string]any, len(history))
	for key, e := range history {
		results[key] = map[string]any{
			"status":  string(e.Status),
			"message": e.Message,
			"data":    e.Data,
		}
	}
	env = Envelope{
		Status:  StatusSuccess,
		Message: "workflow completed successfully",
		Data: map[string]any{
			"request_id": requestID,
			"results":    results,
			"workflow_summary": map[string]any{
				"user_request":    userRequest,
				"total_steps":     len(o.stages),
				"completed_steps": len(o.stages),
				"execution_time":  time.Since(start).Seconds(),
			},
		},
	}
	o.store.Complete(requestID, env)
	o.logger.Printf("[%s] workflow completed in %s", requestID, time.Since(start).Round(time.Millisecond))
	return env
}

func (o *Orchestrator) fail(requestID string, errEnv Envelope) Envelope {
	if errEnv.Data == nil {
		errEnv.Data = map[string]any{"request_id": requestID}
	}
	o.store.Fail(requestID, errEnv)
	return errEnv
}

// GetStatus returns a snapshot of one run.
func (o *Orchestrator) GetStatus(requestID string) (State, bool) {
	return o.store.Get(requestID)
}

// GetAllStatuses returns snapshots of every known run.
func (o *Orchestrator) GetAllStatuses() map[string]State {
	return o.store.All()
}
