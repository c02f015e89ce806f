package telemetry

import (
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mohammad-safakhou/agentflow/config"
)

// Telemetry provides run/tool metrics and the shared logger factory.
type Telemetry struct {
	config   config.TelemetryConfig
	logger   *log.Logger
	registry *prometheus.Registry

	workflowRuns  *prometheus.CounterVec
	stageSeconds  *prometheus.HistogramVec
	toolCalls     *prometheus.CounterVec
	activeRuns    prometheus.Gauge
	logFileHandle io.Closer
	mu            sync.Mutex
}

// NewTelemetry wires prometheus collectors into a private registry so tests
// can construct as many instances as they need.
func NewTelemetry(cfg config.TelemetryConfig) *Telemetry {
	t := &Telemetry{
		config:   cfg,
		registry: prometheus.NewRegistry(),
		workflowRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_runs_total",
			Help: "Completed workflow runs by terminal status.",
		}, []string{"status"}),
		stageSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "workflow_stage_seconds",
			Help:    "Wall time spent in each pipeline stage.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tool_calls_total",
			Help: "Tool invocations by server, tool, outcome and source.",
		}, []string{"server", "tool", "outcome", "source"}),
		activeRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "workflow_active_runs",
			Help: "Workflow runs currently executing.",
		}),
	}
	t.registry.MustRegister(t.workflowRuns, t.stageSeconds, t.toolCalls, t.activeRuns)

	out := log.Writer()
	if cfg.LogFile != "" {
		if f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			out = io.MultiWriter(out, f)
			t.logFileHandle = f
		}
	}
	t.logger = log.New(out, "[TELEMETRY] ", log.LstdFlags)
	return t
}

// Logger returns a prefixed logger sharing the telemetry output destination.
func (t *Telemetry) Logger(prefix string) *log.Logger {
	return log.New(t.logger.Writer(), "["+prefix+"] ", log.LstdFlags)
}

// Registry exposes the prometheus registry for the /metrics handler.
func (t *Telemetry) Registry() *prometheus.Registry { return t.registry }

func (t *Telemetry) RunStarted() {
	if !t.config.Enabled {
		return
	}
	t.activeRuns.Inc()
}

func (t *Telemetry) RunFinished(status string, elapsed time.Duration) {
	if !t.config.Enabled {
		return
	}
	t.activeRuns.Dec()
	t.workflowRuns.WithLabelValues(status).Inc()
	if t.config.LogFile != "" || t.logger != nil {
		t.logger.Printf("run finished status=%s elapsed=%v", status, elapsed)
	}
}

func (t *Telemetry) StageObserved(stage string, elapsed time.Duration) {
	if !t.config.Enabled {
		return
	}
	t.stageSeconds.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func (t *Telemetry) ToolCall(server, tool, outcome, source string) {
	if !t.config.Enabled {
		return
	}
	t.toolCalls.WithLabelValues(server, tool, outcome, source).Inc()
}

// Shutdown releases the log file handle if one was opened.
func (t *Telemetry) Shutdown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.logFileHandle != nil {
		_ = t.logFileHandle.Close()
		t.logFileHandle = nil
	}
}
