// Package dbtest opens throwaway sqlite databases for package tests.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/mind-engage/mindengage-progress/internal/db"
)

// Open returns a migrated in-memory sqlite database private to t.
func Open(t *testing.T) *sql.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	h, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	return h
}

// SeedLearner inserts a learner and an empty progress row.
func SeedLearner(t *testing.T, h *sql.DB, id string) {
	t.Helper()
	if _, err := h.Exec(`INSERT INTO learners (id, username, role, password_hash, created_at) VALUES ($1,$2,'student','x',0)`, id, id); err != nil {
		t.Fatalf("seed learner %s: %v", id, err)
	}
	if _, err := h.Exec(`INSERT INTO learner_progress (learner_id, updated_at) VALUES ($1,0)`, id); err != nil {
		t.Fatalf("seed progress %s: %v", id, err)
	}
}
