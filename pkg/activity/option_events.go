package activity

import (
	"strconv"
	"strings"
	"time"
)

const (
	// VerbOptionLoaded marks an override whose interception became active.
	VerbOptionLoaded = "options.loaded"
	// VerbOptionUnautoloaded marks a stored row rewritten with autoload off.
	VerbOptionUnautoloaded = "options.unautoloaded"
	// VerbOptionDeleted marks a stored row removed by cleanup.
	VerbOptionDeleted = "options.deleted"
	// VerbCleanupCompleted marks the end of one cleanup run.
	VerbCleanupCompleted = "options.cleanup.completed"
)

// OptionEventInput describes the common fields for override lifecycle
// events.
type OptionEventInput struct {
	ActorID    string
	Tenant     int64
	Name       string
	Type       string
	Origin     string
	Strategy   string
	RunID      string
	Channel    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildOptionLoadedEvent constructs the event emitted when an override loads.
func BuildOptionLoadedEvent(input OptionEventInput) Event {
	return buildOptionEvent(VerbOptionLoaded, "option", input)
}

// BuildOptionUnautoloadedEvent constructs the event emitted when cleanup
// rewrites a row without autoload.
func BuildOptionUnautoloadedEvent(input OptionEventInput) Event {
	return buildOptionEvent(VerbOptionUnautoloaded, "option", input)
}

// BuildOptionDeletedEvent constructs the event emitted when cleanup deletes
// a row.
func BuildOptionDeletedEvent(input OptionEventInput) Event {
	return buildOptionEvent(VerbOptionDeleted, "option", input)
}

// BuildCleanupCompletedEvent constructs the summary event for a cleanup run.
// The run id doubles as the object id.
func BuildCleanupCompletedEvent(input OptionEventInput) Event {
	return buildOptionEvent(VerbCleanupCompleted, "options.cleanup", input)
}

func buildOptionEvent(verb, objectType string, input OptionEventInput) Event {
	metadata := cloneMap(input.Metadata)
	set := func(key string, value any) {
		metadata = ensureMetadata(metadata)
		metadata[key] = value
	}
	if input.Type != "" {
		set("type", input.Type)
	}
	if input.Origin != "" {
		set("origin", input.Origin)
	}
	if input.Strategy != "" {
		set("db_strategy", input.Strategy)
	}
	if input.RunID != "" {
		set("run_id", input.RunID)
	}

	objectID := strings.TrimSpace(input.Name)
	if objectID != "" && input.Type != "" {
		objectID = input.Type + "_" + objectID
	}
	if objectID == "" {
		objectID = strings.TrimSpace(input.RunID)
	}
	if objectID == "" {
		objectID = objectType
	}

	tenantID := ""
	if input.Tenant != 0 {
		tenantID = strconv.FormatInt(input.Tenant, 10)
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		TenantID:   tenantID,
		ObjectType: objectType,
		ObjectID:   objectID,
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
