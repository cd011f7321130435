package durable

import "context"

// Store is the narrow persistence interface the engine depends on. All
// operations must be serializable against each other; a single mutex
// across the backing connection is an acceptable implementation. Mutating
// operations must commit before returning — a crash after return must
// survive the write.
//
// Store does not retry internally. I/O errors propagate to the caller; the
// executor's retry policy operates at the step level, never at the storage
// level.
type Store interface {
	// Find reads a step record by primary key. Returns (nil, nil) when
	// absent.
	Find(ctx context.Context, workflowID, stepKey string) (*StepRecord, error)

	// MarkRunning inserts a fresh RUNNING record, or overwrites any
	// existing record with the same identity columns, resetting
	// status/output/error/retry to their initial values. This reclaims
	// zombie RUNNING rows without a separate cleanup path.
	MarkRunning(ctx context.Context, workflowID, stepKey, stepName string, sequenceID uint64) error

	// MarkCompleted transitions a row to COMPLETED with the given
	// serialized output. A no-op if the row is absent.
	MarkCompleted(ctx context.Context, workflowID, stepKey, output string) error

	// MarkFailed transitions a row to FAILED without retry accounting.
	MarkFailed(ctx context.Context, workflowID, stepKey, errMsg string) error

	// MarkFailedWithRetry transitions a row to FAILED and records retry
	// accounting.
	MarkFailedWithRetry(ctx context.Context, workflowID, stepKey, errMsg string, retryCount int, nextRetryAtMs int64) error

	// UpsertWorkflow inserts or replaces the workflow status row.
	UpsertWorkflow(ctx context.Context, workflowID string, status WorkflowStatus) error

	// GetWorkflowStatus returns (status, true) or ("", false) when absent.
	GetWorkflowStatus(ctx context.Context, workflowID string) (WorkflowStatus, bool, error)

	// IsCancelled is a convenience wrapper over GetWorkflowStatus.
	IsCancelled(ctx context.Context, workflowID string) (bool, error)

	// CancelWorkflow marks a workflow CANCELLED.
	CancelWorkflow(ctx context.Context, workflowID string) error

	// GetCompletedSteps returns completed step records ordered by
	// sequence_id ascending. Used by drivers for resume diagnostics; the
	// executor never calls this.
	GetCompletedSteps(ctx context.Context, workflowID string) ([]*StepRecord, error)

	// Close releases the backing handle.
	Close() error
}
