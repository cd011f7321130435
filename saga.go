package durable

import "context"

// Saga wraps Run: on success, action's compensation is pushed onto the
// context's compensation stack; on failure, ExecuteCompensations runs
// every previously-registered compensation in LIFO order before the
// original error is re-propagated.
//
// Compensations are not themselves persisted as steps — they are
// best-effort in-memory rollback. A crash does not replay them; the next
// run resumes forward. Durable rollback requires the caller to make the
// compensation itself a step.
func Saga[T any](ctx context.Context, dc *DurableContext, stepName string, work Work[T], compensate func()) (T, error) {
	return sagaStep(ctx, dc, stepName, nil, work, compensate)
}

// SagaWithPolicy is Saga with a retry policy applied to the wrapped step.
func SagaWithPolicy[T any](ctx context.Context, dc *DurableContext, stepName string, policy *RetryPolicy, work Work[T], compensate func()) (T, error) {
	return sagaStep(ctx, dc, stepName, policy, work, compensate)
}

func sagaStep[T any](ctx context.Context, dc *DurableContext, stepName string, policy *RetryPolicy, work Work[T], compensate func()) (T, error) {
	out, err := runStep(ctx, dc, stepName, policy, work)
	if err != nil {
		dc.ExecuteCompensations()
		var zero T
		return zero, err
	}
	if compensate != nil {
		dc.AddCompensation(compensate)
	}
	return out, nil
}
