package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sicko7947/durable"
)

// MemoryStore implements durable.Store with in-memory maps, guarded by a
// single RWMutex. It is used by tests and by examples that do not need
// cross-process durability.
type MemoryStore struct {
	mu        sync.RWMutex
	steps     map[string]map[string]*durable.StepRecord // workflowID -> stepKey -> record
	workflows map[string]*durable.WorkflowRecord
}

// NewMemoryStore creates an empty in-memory durable.Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		steps:     make(map[string]map[string]*durable.StepRecord),
		workflows: make(map[string]*durable.WorkflowRecord),
	}
}

func copyStepRecord(r *durable.StepRecord) *durable.StepRecord {
	if r == nil {
		return nil
	}
	cp := *r
	if r.NextRetryAt != nil {
		v := *r.NextRetryAt
		cp.NextRetryAt = &v
	}
	return &cp
}

func (s *MemoryStore) Find(ctx context.Context, workflowID, stepKey string) (*durable.StepRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, ok := s.steps[workflowID]
	if !ok {
		return nil, nil
	}
	return copyStepRecord(rows[stepKey]), nil
}

func (s *MemoryStore) MarkRunning(ctx context.Context, workflowID, stepKey, stepName string, sequenceID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.steps[workflowID]
	if !ok {
		rows = make(map[string]*durable.StepRecord)
		s.steps[workflowID] = rows
	}
	now := time.Now()
	createdAt := now
	if existing, ok := rows[stepKey]; ok {
		createdAt = existing.CreatedAt
	}
	rows[stepKey] = &durable.StepRecord{
		WorkflowID: workflowID,
		StepKey:    stepKey,
		StepName:   stepName,
		SequenceID: sequenceID,
		Status:     durable.StepRunning,
		RetryCount: 0,
		CreatedAt:  createdAt,
		UpdatedAt:  now,
	}
	return nil
}

func (s *MemoryStore) MarkCompleted(ctx context.Context, workflowID, stepKey, output string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.steps[workflowID]
	if !ok {
		return nil
	}
	row, ok := rows[stepKey]
	if !ok {
		return nil
	}
	row.Status = durable.StepCompleted
	row.Output = output
	row.Error = ""
	row.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) MarkFailed(ctx context.Context, workflowID, stepKey, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.steps[workflowID]
	if !ok {
		return nil
	}
	row, ok := rows[stepKey]
	if !ok {
		return nil
	}
	row.Status = durable.StepFailed
	row.Error = errMsg
	row.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) MarkFailedWithRetry(ctx context.Context, workflowID, stepKey, errMsg string, retryCount int, nextRetryAtMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.steps[workflowID]
	if !ok {
		return nil
	}
	row, ok := rows[stepKey]
	if !ok {
		return nil
	}
	row.Status = durable.StepFailed
	row.Error = errMsg
	row.RetryCount = retryCount
	row.NextRetryAt = durable.ToPtr(nextRetryAtMs)
	row.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) UpsertWorkflow(ctx context.Context, workflowID string, status durable.WorkflowStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	createdAt := now
	if existing, ok := s.workflows[workflowID]; ok {
		createdAt = existing.CreatedAt
	}
	s.workflows[workflowID] = &durable.WorkflowRecord{
		WorkflowID: workflowID,
		Status:     status,
		CreatedAt:  createdAt,
		UpdatedAt:  now,
	}
	return nil
}

func (s *MemoryStore) GetWorkflowStatus(ctx context.Context, workflowID string) (durable.WorkflowStatus, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.workflows[workflowID]
	if !ok {
		return "", false, nil
	}
	return row.Status, true, nil
}

func (s *MemoryStore) IsCancelled(ctx context.Context, workflowID string) (bool, error) {
	status, ok, err := s.GetWorkflowStatus(ctx, workflowID)
	if err != nil {
		return false, err
	}
	return ok && status == durable.WorkflowCancelled, nil
}

func (s *MemoryStore) CancelWorkflow(ctx context.Context, workflowID string) error {
	return s.UpsertWorkflow(ctx, workflowID, durable.WorkflowCancelled)
}

func (s *MemoryStore) GetCompletedSteps(ctx context.Context, workflowID string) ([]*durable.StepRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, ok := s.steps[workflowID]
	if !ok {
		return nil, nil
	}
	out := make([]*durable.StepRecord, 0, len(rows))
	for _, r := range rows {
		if r.Status == durable.StepCompleted {
			out = append(out, copyStepRecord(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceID < out[j].SequenceID })
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
