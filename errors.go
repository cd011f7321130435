package durable

import (
	"errors"
	"fmt"
)

// StepExecutionFailed wraps the error a step closure returned (or a Store
// I/O failure encountered while persisting a step transition).
type StepExecutionFailed struct {
	WorkflowID string
	StepKey    string
	Attempt    int
	Cause      error
}

func (e *StepExecutionFailed) Error() string {
	return fmt.Sprintf("step %q failed on workflow %q (attempt %d): %v", e.StepKey, e.WorkflowID, e.Attempt, e.Cause)
}

func (e *StepExecutionFailed) Unwrap() error { return e.Cause }

// RetryLimitExceeded specializes StepExecutionFailed for the case where the
// retry policy's maxAttempts was reached without the closure succeeding.
type RetryLimitExceeded struct {
	*StepExecutionFailed
	MaxAttempts int
}

func (e *RetryLimitExceeded) Error() string {
	return fmt.Sprintf("step %q on workflow %q exceeded retry limit (%d attempts): %v",
		e.StepKey, e.WorkflowID, e.MaxAttempts, e.Cause)
}

// WorkflowCancelledError is surfaced when a step call observes that its
// workflow has been cancelled.
type WorkflowCancelledError struct {
	WorkflowID string
}

func (e *WorkflowCancelledError) Error() string {
	return fmt.Sprintf("workflow %q is cancelled", e.WorkflowID)
}

// IsCancelled reports whether err is (or wraps) a WorkflowCancelledError.
func IsCancelled(err error) bool {
	var ce *WorkflowCancelledError
	return errors.As(err, &ce)
}

// IsRetryLimitExceeded reports whether err is (or wraps) a RetryLimitExceeded.
func IsRetryLimitExceeded(err error) bool {
	var re *RetryLimitExceeded
	return errors.As(err, &re)
}

// IsStepExecutionFailed reports whether err is (or wraps) a StepExecutionFailed.
func IsStepExecutionFailed(err error) bool {
	var se *StepExecutionFailed
	return errors.As(err, &se)
}
