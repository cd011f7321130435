package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/sicko7947/durable"
)

// LibSQLStore implements durable.Store over an embedded libSQL file. It is
// the canonical relational backend; a single connection keeps the
// serializability contract trivially true without an explicit
// application-level mutex.
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens (and migrates) a libSQL database at dbPath. The
// path should be a file URI, e.g. "file:/path/to/workflow.db".
func NewLibSQLStore(ctx context.Context, dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	s := &LibSQLStore{db: db}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// DB exposes the underlying *sql.DB for callers that need a raw handle.
func (s *LibSQLStore) DB() *sql.DB { return s.db }

func (s *LibSQLStore) Find(ctx context.Context, workflowID, stepKey string) (*durable.StepRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT workflow_id, step_key, step_name, sequence_id, status,
		output, error, retry_count, next_retry_at, created_at, updated_at
		FROM steps WHERE workflow_id = ? AND step_key = ?`, workflowID, stepKey)

	var r durable.StepRecord
	var output, errMsg sql.NullString
	var nextRetryAt sql.NullInt64
	err := row.Scan(&r.WorkflowID, &r.StepKey, &r.StepName, &r.SequenceID, &r.Status,
		&output, &errMsg, &r.RetryCount, &nextRetryAt, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find step: %w", err)
	}
	r.Output = output.String
	r.Error = errMsg.String
	if nextRetryAt.Valid {
		r.NextRetryAt = durable.ToPtr(nextRetryAt.Int64)
	}
	return &r, nil
}

func (s *LibSQLStore) MarkRunning(ctx context.Context, workflowID, stepKey, stepName string, sequenceID uint64) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `INSERT INTO steps
		(workflow_id, step_key, step_name, sequence_id, status, output, error, retry_count, next_retry_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, 'RUNNING', NULL, NULL, 0, NULL, ?, ?)
		ON CONFLICT(workflow_id, step_key) DO UPDATE SET
			step_name=excluded.step_name, sequence_id=excluded.sequence_id, status='RUNNING',
			output=NULL, error=NULL, retry_count=0, next_retry_at=NULL, updated_at=excluded.updated_at`,
		workflowID, stepKey, stepName, sequenceID, now, now)
	if err != nil {
		return fmt.Errorf("mark running: %w", err)
	}
	return nil
}

func (s *LibSQLStore) MarkCompleted(ctx context.Context, workflowID, stepKey, output string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE steps SET status='COMPLETED', output=?, error=NULL, updated_at=?
		WHERE workflow_id = ? AND step_key = ?`, output, time.Now(), workflowID, stepKey)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

func (s *LibSQLStore) MarkFailed(ctx context.Context, workflowID, stepKey, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE steps SET status='FAILED', error=?, updated_at=?
		WHERE workflow_id = ? AND step_key = ?`, errMsg, time.Now(), workflowID, stepKey)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

func (s *LibSQLStore) MarkFailedWithRetry(ctx context.Context, workflowID, stepKey, errMsg string, retryCount int, nextRetryAtMs int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE steps SET status='FAILED', error=?, retry_count=?, next_retry_at=?, updated_at=?
		WHERE workflow_id = ? AND step_key = ?`, errMsg, retryCount, nextRetryAtMs, time.Now(), workflowID, stepKey)
	if err != nil {
		return fmt.Errorf("mark failed with retry: %w", err)
	}
	return nil
}

func (s *LibSQLStore) UpsertWorkflow(ctx context.Context, workflowID string, status durable.WorkflowStatus) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `INSERT INTO workflows (workflow_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(workflow_id) DO UPDATE SET status=excluded.status, updated_at=excluded.updated_at`,
		workflowID, string(status), now, now)
	if err != nil {
		return fmt.Errorf("upsert workflow: %w", err)
	}
	return nil
}

func (s *LibSQLStore) GetWorkflowStatus(ctx context.Context, workflowID string) (durable.WorkflowStatus, bool, error) {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM workflows WHERE workflow_id = ?`, workflowID).Scan(&status)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get workflow status: %w", err)
	}
	return durable.WorkflowStatus(status), true, nil
}

func (s *LibSQLStore) IsCancelled(ctx context.Context, workflowID string) (bool, error) {
	status, ok, err := s.GetWorkflowStatus(ctx, workflowID)
	if err != nil {
		return false, err
	}
	return ok && status == durable.WorkflowCancelled, nil
}

func (s *LibSQLStore) CancelWorkflow(ctx context.Context, workflowID string) error {
	return s.UpsertWorkflow(ctx, workflowID, durable.WorkflowCancelled)
}

func (s *LibSQLStore) GetCompletedSteps(ctx context.Context, workflowID string) ([]*durable.StepRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT workflow_id, step_key, step_name, sequence_id, status,
		output, error, retry_count, next_retry_at, created_at, updated_at
		FROM steps WHERE workflow_id = ? AND status = 'COMPLETED' ORDER BY sequence_id ASC`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("list completed steps: %w", err)
	}
	defer rows.Close()

	var out []*durable.StepRecord
	for rows.Next() {
		var r durable.StepRecord
		var output, errMsg sql.NullString
		var nextRetryAt sql.NullInt64
		if err := rows.Scan(&r.WorkflowID, &r.StepKey, &r.StepName, &r.SequenceID, &r.Status,
			&output, &errMsg, &r.RetryCount, &nextRetryAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		r.Output = output.String
		r.Error = errMsg.String
		if nextRetryAt.Valid {
			r.NextRetryAt = durable.ToPtr(nextRetryAt.Int64)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *LibSQLStore) Close() error { return s.db.Close() }
