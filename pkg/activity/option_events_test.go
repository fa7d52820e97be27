package activity

import (
	"context"
	"testing"
)

func TestBuildOptionDeletedEventIncludesMetadata(t *testing.T) {
	meta := map[string]any{"custom": "value"}
	input := OptionEventInput{
		ActorID:  " cron ",
		Tenant:   4,
		Name:     "mailserver_url",
		Type:     "option",
		Origin:   "platform",
		Strategy: "delete",
		RunID:    "run-1",
		Metadata: meta,
	}

	event := BuildOptionDeletedEvent(input)

	if event.Verb != VerbOptionDeleted {
		t.Fatalf("expected verb %s got %s", VerbOptionDeleted, event.Verb)
	}
	if event.ObjectType != "option" || event.ObjectID != "option_mailserver_url" {
		t.Fatalf("unexpected object fields: %+v", event)
	}
	if event.ActorID != "cron" || event.TenantID != "4" {
		t.Fatalf("unexpected identity fields: %+v", event)
	}
	if event.Metadata["origin"] != "platform" || event.Metadata["db_strategy"] != "delete" || event.Metadata["run_id"] != "run-1" {
		t.Fatalf("expected option metadata, got %+v", event.Metadata)
	}
	if event.Metadata["custom"] != "value" {
		t.Fatalf("expected custom metadata preserved, got %+v", event.Metadata)
	}
	event.Metadata["custom"] = "changed"
	if meta["custom"] != "value" {
		t.Fatalf("expected input metadata untouched")
	}
}

func TestBuildCleanupCompletedEventUsesRunID(t *testing.T) {
	event := BuildCleanupCompletedEvent(OptionEventInput{RunID: "run-42"})
	if event.ObjectType != "options.cleanup" || event.ObjectID != "run-42" {
		t.Fatalf("unexpected object fields: %+v", event)
	}
	if event.TenantID != "" {
		t.Fatalf("expected empty tenant for zero tenant, got %q", event.TenantID)
	}
}

func TestBuildOptionLoadedEventFallbackObjectID(t *testing.T) {
	event := BuildOptionLoadedEvent(OptionEventInput{})
	if event.ObjectID != "option" {
		t.Fatalf("expected fallback object ID 'option', got %q", event.ObjectID)
	}
}

func TestBuildOptionEventsWorkWithHooks(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}

	event := BuildOptionUnautoloadedEvent(OptionEventInput{Name: "isc_storage", Type: "option"})
	if err := hooks.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected capture to record event, got %d", len(capture.Events))
	}
	if capture.Events[0].Verb != VerbOptionUnautoloaded {
		t.Fatalf("expected verb %s, got %s", VerbOptionUnautoloaded, capture.Events[0].Verb)
	}
}
