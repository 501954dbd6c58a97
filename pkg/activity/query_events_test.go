package activity

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuildQueryRenamedEventCarriesNames(t *testing.T) {
	meta := map[string]any{"board": "sprint"}
	event := BuildQueryRenamedEvent(QueryEventInput{
		ActorID:  " actor ",
		QueryID:  " 7 ",
		OldName:  "Backlog",
		NewName:  "Sprint 12",
		Metadata: meta,
	})

	if event.Verb != VerbQueryRenamed || event.ObjectType != ObjectTypeQuery || event.ObjectID != "7" {
		t.Fatalf("unexpected event identity: %+v", event)
	}
	if event.ActorID != "actor" {
		t.Fatalf("expected trimmed actor, got %q", event.ActorID)
	}
	want := map[string]any{"board": "sprint", "old_name": "Backlog", "new_name": "Sprint 12"}
	if diff := cmp.Diff(want, event.Metadata); diff != "" {
		t.Fatalf("metadata mismatch (-want +got):\n%s", diff)
	}
	if _, ok := meta["old_name"]; ok {
		t.Fatalf("expected caller metadata untouched: %+v", meta)
	}
}

func TestBuildQueryRenameFailedEventRecordsError(t *testing.T) {
	event := BuildQueryRenameFailedEvent(QueryEventInput{
		QueryID: "7",
		NewName: "Sprint 12",
		Err:     errors.New("conflict"),
	})

	if event.Verb != VerbQueryRenameFailed {
		t.Fatalf("unexpected verb %q", event.Verb)
	}
	if event.Metadata["error"] != "conflict" {
		t.Fatalf("expected error metadata, got %+v", event.Metadata)
	}
}

func TestQueryEventsWithoutIDAreDropped(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true})

	if err := emitter.Emit(context.Background(), BuildQueryLoadedEvent(QueryEventInput{})); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if err := emitter.Emit(context.Background(), BuildQueryRenameRejectedEvent(QueryEventInput{QueryID: "3", NewName: ""})); err != nil {
		t.Fatalf("emit: %v", err)
	}

	if diff := cmp.Diff([]string{VerbQueryRenameRejected}, capture.Verbs()); diff != "" {
		t.Fatalf("verbs mismatch (-want +got):\n%s", diff)
	}
}
