package workflow

import (
	"sync"
	"time"
)

// RunStatus is the lifecycle of a whole run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunError     RunStatus = "error"
)

// Step names the checkpoint a run is currently at.
type Step string

const (
	StepInitialization Step = "initialization"
	StepCollection     Step = "collection"
	StepProcessing     Step = "processing"
	StepAction         Step = "action"
	StepReporting      Step = "reporting"
)

// Checkpoints maps each step to its progress percentage. A completed run
// reports 100.
var Checkpoints = map[Step]int{
	StepInitialization: 0,
	StepCollection:     25,
	StepProcessing:     50,
	StepAction:         75,
	StepReporting:      90,
}

// StepRecord is one append-only entry in a run's step log.
type StepRecord struct {
	Step      Step      `json:"step"`
	Status    Status    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// State is a snapshot of one run. Result is set only on completion, Error
// only on failure.
type State struct {
	RequestID   string       `json:"request_id"`
	UserRequest string       `json:"user_request"`
	Status      RunStatus    `json:"status"`
	CurrentStep Step         `json:"current_step"`
	Progress    int          `json:"progress"`
	Steps       []StepRecord `json:"steps"`
	StartTime   time.Time    `json:"start_time"`
	EndTime     *time.Time   `json:"end_time,omitempty"`
	Result      *Envelope    `json:"result,omitempty"`
	Error       *Envelope    `json:"error,omitempty"`
}

// Store keeps run states in memory. All methods are safe for concurrent use;
// reads return deep copies so callers never observe in-flight mutation.
type Store struct {
	mu   sync.RWMutex
	runs map[string]*State
}

func NewStore() *Store {
	return &Store{runs: make(map[string]*State)}
}

// Create registers a new run at the initialization checkpoint. An existing
// run with the same id is replaced.
func (s *Store) Create(requestID, userRequest string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[requestID] = &State{
		RequestID:   requestID,
		UserRequest: userRequest,
		Status:      RunRunning,
		CurrentStep: StepInitialization,
		Progress:    Checkpoints[StepInitialization],
		StartTime:   time.Now(),
	}
}

// SetStep advances a run to the given step's checkpoint.
func (s *Store) SetStep(requestID string, step Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.runs[requestID]
	if !ok {
		return
	}
	st.CurrentStep = step
	st.Progress = Checkpoints[step]
}

// AppendStep records one step-log entry.
func (s *Store) AppendStep(requestID string, step Step, status Status, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.runs[requestID]
	if !ok {
		return
	}
	st.Steps = append(st.Steps, StepRecord{Step: step, Status: status, Message: message, Timestamp: time.Now()})
}

// Complete marks a run finished with its aggregate result.
func (s *Store) Complete(requestID string, result Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.runs[requestID]
	if !ok {
		return
	}
	now := time.Now()
	st.Status = RunCompleted
	st.Progress = 100
	st.EndTime = &now
	st.Result = &result
}

// Fail marks a run failed with its error envelope. Progress stays at the
// checkpoint of the step that failed.
func (s *Store) Fail(requestID string, errEnv Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.runs[requestID]
	if !ok {
		return
	}
	now := time.Now()
	st.Status = RunError
	st.EndTime = &now
	st.Error = &errEnv
}

// Get returns a snapshot of one run.
func (s *Store) Get(requestID string) (State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.runs[requestID]
	if !ok {
		return State{}, false
	}
	return snapshot(st), true
}

// All returns a snapshot of every run keyed by request id.
func (s *Store) All() map[string]State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]State, len(s.runs))
	for id, st := range s.runs {
		out[id] = snapshot(st)
	}
	return out
}

func snapshot(st *State) State {
	cp := *st
	cp.Steps = append([]StepRecord(nil), st.Steps...)
	if st.EndTime != nil {
		t := *st.EndTime
		cp.EndTime = &t
	}
	if st.Result != nil {
		r := *st.Result
		cp.Result = &r
	}
	if st.Error != nil {
		e := *st.Error
		cp.Error = &e
	}
	return cp
}
