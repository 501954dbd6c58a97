package boardlist_test

import (
	"context"
	"sync"
	"testing"
	"time"

	boardlist "github.com/goliatone/go-boardlist"
)

var epoch = time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

type funcMapper struct {
	stream func(ctx context.Context, projection boardlist.Projection, id boardlist.Identifier) (*boardlist.QueryEntity, error)
	patch  func(ctx context.Context, id boardlist.Identifier, patch boardlist.QueryPatch) error
}

func (m funcMapper) Stream(ctx context.Context, projection boardlist.Projection, id boardlist.Identifier) (*boardlist.QueryEntity, error) {
	return m.stream(ctx, projection, id)
}

func (m funcMapper) Patch(ctx context.Context, id boardlist.Identifier, patch boardlist.QueryPatch) error {
	return m.patch(ctx, id, patch)
}

type logRecorder struct {
	mu     sync.Mutex
	events []boardlist.LogEvent
}

func (r *logRecorder) LogEvent(event boardlist.LogEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *logRecorder) failures() []boardlist.LogEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []boardlist.LogEvent
	for _, event := range r.events {
		if event.Err != nil {
			out = append(out, event)
		}
	}
	return out
}

func (r *logRecorder) ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, event := range r.events {
		out = append(out, event.Op)
	}
	return out
}

func sprintBoard() boardlist.QueryEntity {
	return boardlist.QueryEntity{ID: "q1", Name: "Sprint board", Columns: []string{"id", "subject"}}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
