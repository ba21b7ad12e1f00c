package db

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	d, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestMigrationsCreateSchema(t *testing.T) {
	d := openTestDB(t)

	for _, table := range []string{"turns", "tool_invocations", "goose_db_version"} {
		var name string
		err := d.Conn().QueryRow(
			`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q should exist after migrations: %v", table, err)
		}
	}
}

func TestInsertTurnWithInvocations(t *testing.T) {
	d := openTestDB(t)

	now := NowString(time.Now())
	turnID, err := d.InsertTurn(
		TurnRecord{
			SessionID: "S2", Language: "en-US", Rounds: 2,
			ToolNames: JoinNames([]string{"rooms_filter"}), DurationMs: 120, Outcome: "OK",
			CreatedAt: now,
		},
		[]ToolInvocation{
			{Name: "rooms_filter", Status: "OK", DurationMs: 80, CreatedAt: now},
		},
	)
	if err != nil {
		t.Fatalf("insert turn: %v", err)
	}
	if turnID == 0 {
		t.Fatalf("expected a non-zero turn id")
	}

	var count int
	if err := d.Conn().QueryRow(`SELECT COUNT(*) FROM tool_invocations WHERE turn_id = ?`, turnID).Scan(&count); err != nil {
		t.Fatalf("query tool_invocations: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 tool invocation row, got %d", count)
	}
}

