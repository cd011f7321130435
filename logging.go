package durable

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Step-level log event names.
const (
	EventStepStarted        = "step_started"
	EventStepSkippedMemoized = "step_skipped_memoized"
	EventStepRetrying       = "step_retrying"
	EventStepCompleted      = "step_completed"
	EventStepFailed         = "step_failed"
	EventStepRetryScheduled = "step_retry_scheduled"

	EventWorkflowCancelled  = "workflow_cancelled"
	EventCompensationRan    = "compensation_ran"
	EventCompensationFailed = "compensation_failed"
)

var (
	logMu  sync.RWMutex
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()
)

// SetLogger replaces the package-wide logger used for step and
// compensation event lines.
func SetLogger(l zerolog.Logger) {
	logMu.Lock()
	defer logMu.Unlock()
	logger = l
}

func currentLogger() zerolog.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger
}

// StepLogger enriches the package logger with the identity of a single
// step invocation.
func StepLogger(workflowID, stepKey string, attempt int) zerolog.Logger {
	return currentLogger().With().
		Str("workflow_id", workflowID).
		Str("step_key", stepKey).
		Int("attempt", attempt).
		Logger()
}

func logStepStarted(l zerolog.Logger) {
	l.Info().Str("event", EventStepStarted).Msg("step started")
}

func logStepSkippedMemoized(l zerolog.Logger) {
	l.Debug().Str("event", EventStepSkippedMemoized).Msg("step already completed, skipping closure")
}

func logStepRetrying(l zerolog.Logger) {
	l.Warn().Str("event", EventStepRetrying).Msg("retrying step")
}

func logStepCompleted(l zerolog.Logger, durationMs int64) {
	l.Info().Str("event", EventStepCompleted).Int64("duration_ms", durationMs).Msg("step completed")
}

func logStepFailed(l zerolog.Logger, err error) {
	l.Error().Str("event", EventStepFailed).Err(err).Msg("step failed")
}

func logStepRetryScheduled(l zerolog.Logger, nextRetryAtMs int64) {
	l.Warn().Str("event", EventStepRetryScheduled).Int64("next_retry_at", nextRetryAtMs).Msg("step retry scheduled")
}

func logWorkflowCancelled(l zerolog.Logger) {
	l.Warn().Str("event", EventWorkflowCancelled).Msg("workflow is cancelled")
}

func logCompensationRan(l zerolog.Logger) {
	l.Info().Str("event", EventCompensationRan).Msg("compensation executed")
}

func logCompensationFailed(l zerolog.Logger, err error) {
	l.Error().Str("event", EventCompensationFailed).Err(err).Msg("compensation failed, continuing rollback")
}
