package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sicko7947/durable"
	"github.com/sicko7947/durable/store"
)

func TestServer_HealthCheck(t *testing.T) {
	s := New(store.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_GetStatus_NotFound(t *testing.T) {
	s := New(store.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/workflows/missing", nil)
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_GetStatus_ReportsCompletedStepCount(t *testing.T) {
	memStore := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, memStore.UpsertWorkflow(ctx, "wf-1", durable.WorkflowRunning))
	require.NoError(t, memStore.MarkRunning(ctx, "wf-1", "a#1", "a", 1))
	require.NoError(t, memStore.MarkCompleted(ctx, "wf-1", "a#1", `"ok"`))

	s := New(memStore)

	req := httptest.NewRequest(http.MethodGet, "/workflows/wf-1", nil)
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, float64(1), body["completedSteps"])
}

func TestServer_Cancel(t *testing.T) {
	memStore := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, memStore.UpsertWorkflow(ctx, "wf-1", durable.WorkflowRunning))

	s := New(memStore)

	req := httptest.NewRequest(http.MethodPost, "/workflows/wf-1/cancel", nil)
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancelled, err := memStore.IsCancelled(ctx, "wf-1")
	require.NoError(t, err)
	assert.True(t, cancelled)
}
