package workflow

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mohammad-safakhou/agentflow/config"
)

type stubStage struct {
	step   Step
	run    func(ctx context.Context, in StageInput) Envelope
	panics bool
}

func (s stubStage) Step() Step { return s.step }

func (s stubStage) Run(ctx context.Context, in StageInput) Envelope {
	if s.panics {
		panic("stage exploded")
	}
	if s.run != nil {
		return s.run(ctx, in)
	}
	return Success(string(s.step)+" done", map[string]any{"stage": string(s.step)})
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Workflow.MaxProcessingTime = time.Minute
	return cfg
}

func allStages() []Stage {
	return []Stage{
		stubStage{step: StepCollection},
		stubStage{step: StepProcessing},
		stubStage{step: StepAction},
		stubStage{step: StepReporting},
	}
}

func TestExecuteRunsAllStagesInOrder(t *testing.T) {
	var order []string
	stages := make([]Stage, 0, 4)
	for _, step := range []Step{StepCollection, StepProcessing, StepAction, StepReporting} {
		step := step
		stages = append(stages, stubStage{step: step, run: func(_ context.Context, in StageInput) Envelope {
			order = append(order, string(step))
			return Success(string(step)+" done", map[string]any{"stage": string(step)})
		}})
	}
	o := NewOrchestrator(testConfig(), stages, nil, nil)

	env := o.Execute(context.Background(), "summarize korean startups", "req_test_1")
	if !env.OK() {
		t.Fatalf("expected success, got %+v", env)
	}
	want := []string{"collection", "processing", "action", "reporting"}
	if len(order) != len(want) {
		t.Fatalf("expected %d stage runs, got %v", len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("stage order mismatch at %d: got %v", i, order)
		}
	}

	results, ok := env.Data["results"].(map[string]any)
	if !ok {
		t.Fatalf("missing results in %v", env.Data)
	}
	for _, key := range []string{"collection", "processing", "action", "report"} {
		if _, ok := results[key]; !ok {
			t.Fatalf("missing %s in aggregate results", key)
		}
	}

	st, ok := o.GetStatus("req_test_1")
	if !ok {
		t.Fatalf("run not found in store")
	}
	if st.Status != RunCompleted || st.Progress != 100 {
		t.Fatalf("unexpected final state: %+v", st)
	}
	if len(st.Steps) != 4 {
		t.Fatalf("expected 4 step records, got %d", len(st.Steps))
	}
	if st.EndTime == nil || st.Result == nil {
		t.Fatalf("completed run must carry end time and result")
	}
}

func TestExecuteShortCircuitsOnStageFailure(t *testing.T) {
	ran := map[Step]bool{}
	mk := func(step Step, env Envelope) Stage {
		return stubStage{step: step, run: func(_ context.Context, _ StageInput) Envelope {
			ran[step] = true
			return env
		}}
	}
	stages := []Stage{
		mk(StepCollection, Success("collected", map[string]any{"sites": 2})),
		mk(StepProcessing, Failure("no structured data produced")),
		mk(StepAction, Success("acted", nil)),
		mk(StepReporting, Success("reported", nil)),
	}
	o := NewOrchestrator(testConfig(), stages, nil, nil)

	env := o.Execute(context.Background(), "anything", "req_test_fail")
	if env.OK() {
		t.Fatalf("expected failure envelope")
	}
	if env.Message != "processing failed: no structured data produced" {
		t.Fatalf("unexpected message: %q", env.Message)
	}
	if env.Data["failed_step"] != "processing" {
		t.Fatalf("unexpected failed_step: %v", env.Data["failed_step"])
	}
	if ran[StepAction] || ran[StepReporting] {
		t.Fatalf("later stages must not run after a failure")
	}

	st, _ := o.GetStatus("req_test_fail")
	if st.Status != RunError {
		t.Fatalf("expected error status, got %s", st.Status)
	}
	if st.Progress != Checkpoints[StepProcessing] {
		t.Fatalf("progress should stay at the failed checkpoint, got %d", st.Progress)
	}
	if len(st.Steps) != 2 {
		t.Fatalf("expected 2 step records, got %d", len(st.Steps))
	}
	if st.Steps[1].Status != StatusError {
		t.Fatalf("failing step record must carry error status")
	}
}

func TestExecuteRecoversFromStagePanic(t *testing.T) {
	stages := []Stage{
		stubStage{step: StepCollection},
		stubStage{step: StepProcessing, panics: true},
	}
	o := NewOrchestrator(testConfig(), stages, nil, nil)

	env := o.Execute(context.Background(), "anything", "req_test_panic")
	if env.OK() {
		t.Fatalf("expected error envelope after panic")
	}
	st, ok := o.GetStatus("req_test_panic")
	if !ok || st.Status != RunError {
		t.Fatalf("panicked run must end in error state, got %+v", st)
	}
}

func TestExecutePassesPriorDataForward(t *testing.T) {
	stages := []Stage{
		stubStage{step: StepCollection, run: func(_ context.Context, in StageInput) Envelope {
			if in.Prior != nil {
				return Failure("first stage must not receive prior data")
			}
			return Success("collected", map[string]any{"token": "abc"})
		}},
		stubStage{step: StepProcessing, run: func(_ context.Context, in StageInput) Envelope {
			if in.Prior["token"] != "abc" {
				return Failure("prior data not forwarded")
			}
			if in.UserRequest != "carry me" {
				return Failure("user request not forwarded")
			}
			return Success("processed", map[string]any{"insights": 1})
		}},
		stubStage{step: StepAction},
		stubStage{step: StepReporting, run: func(_ context.Context, in StageInput) Envelope {
			if _, ok := in.History["collection"]; !ok {
				return Failure("history missing collection envelope")
			}
			if _, ok := in.History["processing"]; !ok {
				return Failure("history missing processing envelope")
			}
			return Success("reported", nil)
		}},
	}
	o := NewOrchestrator(testConfig(), stages, nil, nil)
	if env := o.Execute(context.Background(), "carry me", ""); !env.OK() {
		t.Fatalf("pipeline failed: %+v", env)
	}
}

func TestStatusProgressNeverDecreasesDuringRun(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan Step)
	mk := func(step Step) Stage {
		return stubStage{step: step, run: func(_ context.Context, _ StageInput) Envelope {
			entered <- step
			<-release
			return Success(string(step)+" done", map[string]any{"stage": string(step)})
		}}
	}
	steps := []Step{StepCollection, StepProcessing, StepAction, StepReporting}
	stages := make([]Stage, 0, len(steps))
	for _, step := range steps {
		stages = append(stages, mk(step))
	}
	o := NewOrchestrator(testConfig(), stages, nil, nil)

	done := make(chan Envelope, 1)
	go func() { done <- o.Execute(context.Background(), "poll me", "req_test_poll") }()

	last := -1
	observe := func() int {
		st, ok := o.GetStatus("req_test_poll")
		if !ok {
			t.Fatalf("running workflow not tracked")
		}
		if st.Progress < last {
			t.Fatalf("progress decreased: %d after %d", st.Progress, last)
		}
		last = st.Progress
		return st.Progress
	}
	for _, step := range steps {
		<-entered
		if got := observe(); got != Checkpoints[step] {
			t.Fatalf("expected checkpoint %d while %s runs, got %d", Checkpoints[step], step, got)
		}
		release <- struct{}{}
		observe()
	}
	if env := <-done; !env.OK() {
		t.Fatalf("pipeline failed: %+v", env)
	}
	if observe() != 100 {
		t.Fatalf("expected final progress 100, got %d", last)
	}
}

func TestExecuteGeneratesRequestID(t *testing.T) {
	o := NewOrchestrator(testConfig(), allStages(), nil, nil)
	env := o.Execute(context.Background(), "anything", "")
	id, _ := env.Data["request_id"].(string)
	if id == "" {
		t.Fatalf("expected generated request id in %v", env.Data)
	}
	if _, ok := o.GetStatus(id); !ok {
		t.Fatalf("generated id %q not tracked", id)
	}
}

func TestConcurrentExecutesAreIndependent(t *testing.T) {
	o := NewOrchestrator(testConfig(), allStages(), nil, nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("req_concurrent_%d", i)
			if env := o.Execute(context.Background(), "request", id); !env.OK() {
				t.Errorf("run %s failed: %+v", id, env)
			}
		}(i)
	}
	wg.Wait()
	all := o.GetAllStatuses()
	if len(all) != 8 {
		t.Fatalf("expected 8 tracked runs, got %d", len(all))
	}
	for id, st := range all {
		if st.Status != RunCompleted || st.Progress != 100 {
			t.Fatalf("run %s not completed: %+v", id, st)
		}
	}
}

func TestStoreSnapshotsAreIsolated(t *testing.T) {
	s := NewStore()
	s.Create("r1", "request")
	s.AppendStep("r1", StepCollection, StatusSuccess, "ok")

	snap, _ := s.Get("r1")
	snap.Steps[0].Message = "mutated"

	fresh, _ := s.Get("r1")
	if fresh.Steps[0].Message != "ok" {
		t.Fatalf("snapshot mutation leaked into store")
	}
	if _, ok := s.Get("missing"); ok {
		t.Fatalf("unknown run must not be found")
	}
}
