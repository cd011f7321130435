package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/sicko7947/durable"
)

func TestLibSQLStoreConformance(t *testing.T) {
	runConformanceSuite(t, func(t *testing.T) durable.Store {
		dbPath := filepath.Join(t.TempDir(), "workflow.db")
		s, err := NewLibSQLStore(context.Background(), fmt.Sprintf("file:%s", dbPath))
		if err != nil {
			t.Fatalf("NewLibSQLStore: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}
