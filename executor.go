package durable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Work is the user-supplied closure a step wraps. Its return value is
// serialized to the Store on success.
type Work[T any] func() (T, error)

// Run is the memoization protocol's canonical entry point, with no retry
// policy. See RunWithPolicy for the full protocol description.
func Run[T any](ctx context.Context, dc *DurableContext, stepName string, work Work[T]) (T, error) {
	return runStep(ctx, dc, stepName, nil, work)
}

// RunWithPolicy executes the memoization protocol, in order:
//
//  1. Cancellation gate — CheckCancelled; on failure, surface
//     WorkflowCancelledError immediately with no Store writes.
//  2. Key derivation — seq := dc.Sequence().Next(); stepKey := name#seq.
//  3. Memo lookup — Store.Find(workflowID, stepKey).
//  4. Cache hit — if COMPLETED, decode and return without invoking work.
//  5. Retry-eligible prior failure — if FAILED, CanRetry, and policy set,
//     enforce maxAttempts before invoking work.
//  6. Transition to RUNNING (overwrites any zombie row).
//  7. Execute work.
//  8. On success: serialize, MarkCompleted, bump the steps metric, return.
//  9. On failure: bump the failures metric, mark FAILED (with retry
//     metadata if policy is set), wrap and propagate. Retry accounting is
//     carried forward from the FAILED record read in step 3, since step
//     6 already reset the Store's own retry_count to 0.
func RunWithPolicy[T any](ctx context.Context, dc *DurableContext, stepName string, policy *RetryPolicy, work Work[T]) (T, error) {
	return runStep(ctx, dc, stepName, policy, work)
}

func runStep[T any](ctx context.Context, dc *DurableContext, stepName string, policy *RetryPolicy, work Work[T]) (T, error) {
	var zero T

	// 1. Cancellation gate.
	if err := dc.CheckCancelled(ctx); err != nil {
		return zero, err
	}

	// 2. Key derivation.
	seq := dc.Sequence().Next()
	stepKey := fmt.Sprintf("%s#%d", stepName, seq)
	log := StepLogger(dc.WorkflowID, stepKey, 0)
	logStepStarted(log)

	store := dc.Store()

	// 3. Memo lookup.
	record, err := store.Find(ctx, dc.WorkflowID, stepKey)
	if err != nil {
		return zero, &StepExecutionFailed{WorkflowID: dc.WorkflowID, StepKey: stepKey, Cause: err}
	}

	// 4. Cache hit.
	if record.IsCompleted() {
		logStepSkippedMemoized(log)
		var out T
		if err := json.Unmarshal([]byte(record.Output), &out); err != nil {
			return zero, &StepExecutionFailed{WorkflowID: dc.WorkflowID, StepKey: stepKey, Cause: err}
		}
		return out, nil
	}

	// 5. Retry-eligible prior failure.
	if record.IsFailed() && record.CanRetry(nowFunc()) && policy != nil {
		attempt := record.RetryCount + 1
		if attempt > policy.MaxAttempts {
			return zero, &RetryLimitExceeded{
				StepExecutionFailed: &StepExecutionFailed{WorkflowID: dc.WorkflowID, StepKey: stepKey, Attempt: attempt, Cause: errors.New(record.Error)},
				MaxAttempts:         policy.MaxAttempts,
			}
		}
		logStepRetrying(StepLogger(dc.WorkflowID, stepKey, attempt))
	}

	// 6. Transition to RUNNING.
	if err := store.MarkRunning(ctx, dc.WorkflowID, stepKey, stepName, seq); err != nil {
		return zero, &StepExecutionFailed{WorkflowID: dc.WorkflowID, StepKey: stepKey, Cause: err}
	}

	// 7. Execute closure, shielded against panics so the failure path
	// below still records retry accounting.
	start := nowFunc()
	out, workErr := invokeWork(work)

	// 8. On success.
	if workErr == nil {
		encoded, err := json.Marshal(out)
		if err != nil {
			return zero, &StepExecutionFailed{WorkflowID: dc.WorkflowID, StepKey: stepKey, Cause: err}
		}
		if err := store.MarkCompleted(ctx, dc.WorkflowID, stepKey, string(encoded)); err != nil {
			return zero, &StepExecutionFailed{WorkflowID: dc.WorkflowID, StepKey: stepKey, Cause: err}
		}
		metricSteps.Add(1)
		logStepCompleted(log, nowFunc().Sub(start).Milliseconds())
		return out, nil
	}

	// 9. On failure.
	metricFailures.Add(1)
	logStepFailed(log, workErr)

	if policy == nil {
		if err := store.MarkFailed(ctx, dc.WorkflowID, stepKey, workErr.Error()); err != nil {
			return zero, &StepExecutionFailed{WorkflowID: dc.WorkflowID, StepKey: stepKey, Cause: err}
		}
		return zero, &StepExecutionFailed{WorkflowID: dc.WorkflowID, StepKey: stepKey, Cause: workErr}
	}

	// retryCount is derived from the FAILED record read in step 3, before
	// MarkRunning overwrote it with retry_count=0. Re-reading the Store
	// here would see that just-written RUNNING row and never accumulate.
	retryCount := 1
	if record.IsFailed() {
		retryCount = record.RetryCount + 1
	}
	attempt := retryCount

	if attempt >= policy.MaxAttempts {
		// Persist retryCount (not a bare MarkFailed) so a later run's
		// step 5 sees attempt > MaxAttempts and short-circuits with
		// RetryLimitExceeded instead of invoking the closure again.
		// nextRetryAt is set to now so CanRetry is immediately true.
		if err := store.MarkFailedWithRetry(ctx, dc.WorkflowID, stepKey, workErr.Error(), retryCount, nowMillis()); err != nil {
			return zero, &StepExecutionFailed{WorkflowID: dc.WorkflowID, StepKey: stepKey, Attempt: attempt, Cause: err}
		}
		return zero, &RetryLimitExceeded{
			StepExecutionFailed: &StepExecutionFailed{WorkflowID: dc.WorkflowID, StepKey: stepKey, Attempt: attempt, Cause: workErr},
			MaxAttempts:         policy.MaxAttempts,
		}
	}

	nextRetryAt := nowMillis() + policy.BackoffForAttempt(attempt)
	if err := store.MarkFailedWithRetry(ctx, dc.WorkflowID, stepKey, workErr.Error(), retryCount, nextRetryAt); err != nil {
		return zero, &StepExecutionFailed{WorkflowID: dc.WorkflowID, StepKey: stepKey, Attempt: attempt, Cause: err}
	}
	logStepRetryScheduled(StepLogger(dc.WorkflowID, stepKey, attempt), nextRetryAt)

	return zero, &StepExecutionFailed{WorkflowID: dc.WorkflowID, StepKey: stepKey, Attempt: attempt, Cause: workErr}
}

func invokeWork[T any](work Work[T]) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoveredToError(r)
		}
	}()
	return work()
}
