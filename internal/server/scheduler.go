package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/mohammad-safakhou/agentflow/config"
	"github.com/mohammad-safakhou/agentflow/internal/workflow"
)

// Scheduler fires configured workflow requests on their cron schedules.
type Scheduler struct {
	schedules []config.ScheduleConfig
	orch      *workflow.Orchestrator
	interval  time.Duration
	stop      chan struct{}
	stopOnce  sync.Once
	logger    *log.Logger

	mu      sync.Mutex
	lastRun map[int]time.Time
}

func NewScheduler(schedules []config.ScheduleConfig, orch *workflow.Orchestrator, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.New(log.Writer(), "[SCHED] ", log.LstdFlags)
	}
	return &Scheduler{
		schedules: schedules,
		orch:      orch,
		interval:  time.Minute,
		stop:      make(chan struct{}),
		logger:    logger,
		lastRun:   make(map[int]time.Time),
	}
}

func (s *Scheduler) Start() {
	if len(s.schedules) == 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	go func() {
		for {
			select {
			case <-s.stop:
				ticker.Stop()
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Scheduler) tick() {
	now := time.Now()
	for i, sched := range s.schedules {
		s.mu.Lock()
		var last *time.Time
		if t, ok := s.lastRun[i]; ok {
			last = &t
		}
		due := isDue(sched.Cron, last)
		if due {
			s.lastRun[i] = now
		}
		s.mu.Unlock()
		if !due {
			continue
		}
		s.logger.Printf("firing scheduled request: %s", sched.Request)
		go func(request string) {
			env := s.orch.Execute(context.Background(), request, "")
			if !env.OK() {
				s.logger.Printf("scheduled run failed: %s", env.Message)
			}
		}(sched.Request)
	}
}

// isDue reports whether a schedule with cronSpec should fire now given its
// last firing time. Supports "@daily", "@hourly" and standard cron
// expressions; an unparsable spec degrades to @daily.
func isDue(cronSpec string, last *time.Time) bool {
	now := time.Now()
	switch cronSpec {
	case "@daily":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= 24*time.Hour
	case "@hourly":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= time.Hour
	default:
		expr, err := cronexpr.Parse(cronSpec)
		if err != nil {
			if last == nil {
				return true
			}
			return now.Sub(*last) >= 24*time.Hour
		}
		if last == nil {
			return true
		}
		next := expr.Next(*last)
		return !next.After(now)
	}
}
