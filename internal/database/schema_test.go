package database

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

type recordingExecer struct {
	stmts  []string
	failOn int // 1-based statement index to fail, 0 never
}

func (r *recordingExecer) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	r.stmts = append(r.stmts, sql)
	if r.failOn == len(r.stmts) {
		return pgconn.CommandTag{}, errors.New("permission denied")
	}
	return pgconn.CommandTag{}, nil
}

func TestEnsureSchema(t *testing.T) {
	db := &recordingExecer{}
	if err := EnsureSchema(context.Background(), db, false); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	if len(db.stmts) != len(schema) {
		t.Fatalf("ran %d statements, want %d", len(db.stmts), len(schema))
	}
	if !strings.Contains(db.stmts[0], "CREATE TABLE IF NOT EXISTS ohlc_bars") {
		t.Errorf("first statement = %q, want ohlc_bars table", db.stmts[0])
	}
	if !strings.Contains(db.stmts[2], "CREATE TABLE IF NOT EXISTS ohlc_days") {
		t.Errorf("third statement = %q, want ohlc_days table", db.stmts[2])
	}
	for _, s := range db.stmts {
		if strings.Contains(s, "create_hypertable") {
			t.Error("hypertable created without timescale")
		}
	}
}

func TestEnsureSchema_Timescale(t *testing.T) {
	db := &recordingExecer{}
	if err := EnsureSchema(context.Background(), db, true); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	last := db.stmts[len(db.stmts)-1]
	if !strings.Contains(last, "create_hypertable('ticks'") {
		t.Errorf("last statement = %q, want hypertable", last)
	}
	if len(schema) != 5 {
		t.Errorf("base schema mutated: %d statements", len(schema))
	}
}

func TestEnsureSchema_StopsOnError(t *testing.T) {
	db := &recordingExecer{failOn: 2}
	err := EnsureSchema(context.Background(), db, false)
	if err == nil || !strings.Contains(err.Error(), "permission denied") {
		t.Fatalf("err = %v, want permission denied", err)
	}
	if len(db.stmts) != 2 {
		t.Errorf("ran %d statements after failure, want 2", len(db.stmts))
	}
}
