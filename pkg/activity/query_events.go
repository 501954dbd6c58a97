package activity

import (
	"strings"
	"time"
)

// Verbs emitted for board query lifecycle events.
const (
	VerbQueryLoaded         = "query.loaded"
	VerbQueryRenamed        = "query.renamed"
	VerbQueryRenameFailed   = "query.rename_failed"
	VerbQueryRenameRejected = "query.rename_rejected"
)

// ObjectTypeQuery is the object type of every query event.
const ObjectTypeQuery = "query"

// QueryEventInput carries the fields shared by query events.
type QueryEventInput struct {
	ActorID    string
	TenantID   string
	QueryID    string
	Channel    string
	OldName    string
	NewName    string
	Err        error
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildQueryLoadedEvent describes a query resolved through a fetch.
func BuildQueryLoadedEvent(input QueryEventInput) Event {
	return buildQueryEvent(VerbQueryLoaded, input)
}

// BuildQueryRenamedEvent describes a committed rename.
func BuildQueryRenamedEvent(input QueryEventInput) Event {
	return buildQueryEvent(VerbQueryRenamed, input)
}

// BuildQueryRenameFailedEvent describes a rename whose persistence failed.
func BuildQueryRenameFailedEvent(input QueryEventInput) Event {
	return buildQueryEvent(VerbQueryRenameFailed, input)
}

// BuildQueryRenameRejectedEvent describes a rename refused by a rename rule.
func BuildQueryRenameRejectedEvent(input QueryEventInput) Event {
	return buildQueryEvent(VerbQueryRenameRejected, input)
}

func buildQueryEvent(verb string, input QueryEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.OldName != "" {
		metadata = ensureMetadata(metadata)
		metadata["old_name"] = input.OldName
	}
	if input.NewName != "" {
		metadata = ensureMetadata(metadata)
		metadata["new_name"] = input.NewName
	}
	if input.Err != nil {
		metadata = ensureMetadata(metadata)
		metadata["error"] = input.Err.Error()
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: ObjectTypeQuery,
		ObjectID:   strings.TrimSpace(input.QueryID),
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
