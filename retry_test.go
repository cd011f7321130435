package durable

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy_BackoffForAttempt(t *testing.T) {
	policy := &RetryPolicy{MaxAttempts: 5, InitialBackoffMs: 1000}

	assert.Equal(t, int64(1000), policy.BackoffForAttempt(1))
	assert.Equal(t, int64(2000), policy.BackoffForAttempt(2))
	assert.Equal(t, int64(4000), policy.BackoffForAttempt(3))
	assert.Equal(t, int64(8000), policy.BackoffForAttempt(4))
}

func TestRetryPolicy_BackoffForAttempt_ClampsBelowOne(t *testing.T) {
	policy := &RetryPolicy{MaxAttempts: 3, InitialBackoffMs: 500}

	assert.Equal(t, policy.BackoffForAttempt(1), policy.BackoffForAttempt(0))
	assert.Equal(t, policy.BackoffForAttempt(1), policy.BackoffForAttempt(-4))
}

func TestRetryPolicy_BackoffForAttempt_ClampsAtSixtyTwo(t *testing.T) {
	policy := &RetryPolicy{MaxAttempts: 100, InitialBackoffMs: 1}

	assert.Equal(t, policy.BackoffForAttempt(62), policy.BackoffForAttempt(63))
	assert.Equal(t, policy.BackoffForAttempt(62), policy.BackoffForAttempt(1000))
}

func TestRetryPresets(t *testing.T) {
	assert.Equal(t, 3, RetryDefault.MaxAttempts)
	assert.Equal(t, int64(1000), RetryDefault.InitialBackoffMs)

	assert.Equal(t, 5, RetryAggressive.MaxAttempts)
	assert.Equal(t, int64(500), RetryAggressive.InitialBackoffMs)

	assert.Equal(t, 1, RetryNone.MaxAttempts)
	assert.Equal(t, int64(0), RetryNone.InitialBackoffMs)
}
