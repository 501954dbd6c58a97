package datamapper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	boardlist "github.com/goliatone/go-boardlist"
	"github.com/goliatone/go-boardlist/pkg/clock"
)

func TestFileMapperRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "queries.json")
	clk := clock.NewManual(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	m := NewFileMapper(path, clk)
	ctx := context.Background()

	if _, err := m.Stream(ctx, boardlist.DefaultProjection(), "q1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on a missing file, got %v", err)
	}
	if err := m.Put(boardlist.QueryEntity{ID: "q1", Name: "Sprint board"}); err != nil {
		t.Fatalf("put: %v", err)
	}

	name := "Release board"
	if err := m.Patch(ctx, "q1", boardlist.QueryPatch{Name: &name}); err != nil {
		t.Fatalf("patch: %v", err)
	}

	reopened := NewFileMapper(path, clk)
	q, err := reopened.Stream(ctx, boardlist.DefaultProjection(), "q1")
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if q.Name != "Release board" {
		t.Fatalf("expected persisted rename, got %q", q.Name)
	}
	if !q.UpdatedAt.Equal(clk.Now()) {
		t.Fatalf("expected UpdatedAt %v, got %v", clk.Now(), q.UpdatedAt)
	}
	if len(q.Columns) != 2 {
		t.Fatalf("expected projected columns, got %v", q.Columns)
	}
}

func TestFileMapperRejectsCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	m := NewFileMapper(path, nil)
	if _, err := m.Stream(context.Background(), boardlist.DefaultProjection(), "q1"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestFileMapperPatchUnknownID(t *testing.T) {
	m := NewFileMapper(filepath.Join(t.TempDir(), "queries.json"), nil)
	name := "x"
	if err := m.Patch(context.Background(), "missing", boardlist.QueryPatch{Name: &name}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
