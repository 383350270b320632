package configstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the default in-process backend. Instances do not
// survive a restart; the platform recreates them on redeploy.
type MemoryStore struct {
	mu        sync.RWMutex
	instances map[string]*Instance
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{instances: make(map[string]*Instance)}
}

func (s *MemoryStore) Create(_ context.Context, inst *Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneInstance(inst)
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	s.instances[stored.ID] = stored
	inst.CreatedAt = stored.CreatedAt
	inst.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.instances[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneInstance(inst), nil
}

func (s *MemoryStore) Update(_ context.Context, inst *Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.instances[inst.ID]
	if !ok {
		return ErrNotFound
	}
	stored := cloneInstance(inst)
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = time.Now().UTC()
	s.instances[stored.ID] = stored
	inst.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.instances[id]; !ok {
		return ErrNotFound
	}
	delete(s.instances, id)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]*Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Instance, 0, len(s.instances))
	for _, inst := range s.instances {
		out = append(out, cloneInstance(inst))
	}
	return out, nil
}

// cloneInstance copies the instance and its maps so callers and the
// store never share mutable state.
func cloneInstance(inst *Instance) *Instance {
	copied := *inst
	if inst.RecordDefinition != nil {
		copied.RecordDefinition = make(map[string]string, len(inst.RecordDefinition))
		for k, v := range inst.RecordDefinition {
			copied.RecordDefinition[k] = v
		}
	}
	if inst.Config != nil {
		copied.Config = make(map[string]any, len(inst.Config))
		for k, v := range inst.Config {
			copied.Config[k] = v
		}
	}
	return &copied
}
