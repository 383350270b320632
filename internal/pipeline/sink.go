package pipeline

import (
	"sync"
	"time"

	"github.com/ignite/decision-gateway/internal/decision"
)

// Execution states.
const (
	StateProcessing = "processing"
	StateCompleted  = "completed"
	StateFailed     = "failed"
)

// PartitionResult records how one outcome partition fared during
// submission.
type PartitionResult struct {
	Outcome  decision.Outcome `json:"outcome"`
	Contacts int              `json:"contacts"`
	SyncURI  string           `json:"syncUri,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// Execution is the observable record of one notification run. The
// notification endpoint acknowledges before processing starts, so this
// record is the only way to learn how a run ended.
type Execution struct {
	InstanceID  string            `json:"instanceId"`
	ExecutionID string            `json:"executionId"`
	State       string            `json:"state"`
	Total       int               `json:"totalContacts"`
	Partitions  []PartitionResult `json:"partitions,omitempty"`
	StartedAt   time.Time         `json:"startedAt"`
	CompletedAt time.Time         `json:"completedAt,omitzero"`
}

// Sink tracks executions in memory, keyed by instance and execution id.
// Later executions of the same pair overwrite earlier ones.
type Sink struct {
	mu   sync.RWMutex
	runs map[string]*Execution
}

func NewSink() *Sink {
	return &Sink{runs: make(map[string]*Execution)}
}

func sinkKey(instanceID, executionID string) string {
	return instanceID + "/" + executionID
}

// Begin registers a run in the processing state.
func (s *Sink) Begin(instanceID, executionID string, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[sinkKey(instanceID, executionID)] = &Execution{
		InstanceID:  instanceID,
		ExecutionID: executionID,
		State:       StateProcessing,
		Total:       total,
		StartedAt:   time.Now().UTC(),
	}
}

// Finish records the partition results for a run. The run is failed if
// any partition failed, otherwise completed.
func (s *Sink) Finish(instanceID, executionID string, partitions []PartitionResult) {
	state := StateCompleted
	for _, p := range partitions {
		if p.Error != "" {
			state = StateFailed
			break
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[sinkKey(instanceID, executionID)]
	if !ok {
		return
	}
	run.State = state
	run.Partitions = partitions
	run.CompletedAt = time.Now().UTC()
}

// Get returns a copy of the execution record, or false if the run is
// unknown.
func (s *Sink) Get(instanceID, executionID string) (Execution, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[sinkKey(instanceID, executionID)]
	if !ok {
		return Execution{}, false
	}
	copied := *run
	copied.Partitions = append([]PartitionResult(nil), run.Partitions...)
	return copied, true
}
