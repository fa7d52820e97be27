package usersink_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-options-overlay/pkg/activity"
	"github.com/goliatone/go-options-overlay/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()

	event := activity.Event{
		Verb:       activity.VerbOptionDeleted,
		ActorID:    actorID.String(),
		TenantID:   "7",
		ObjectType: "option",
		ObjectID:   "option_mailserver_url",
		Channel:    "overlay",
		Metadata:   map[string]any{"run_id": "run-1"},
		OccurredAt: now,
	}

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID {
		t.Fatalf("expected actor %s got %s", actorID, record.ActorID)
	}
	if record.TenantID != usersink.TenantUUID("7") || record.TenantID == uuid.Nil {
		t.Fatalf("expected derived tenant uuid, got %s", record.TenantID)
	}
	if record.Verb != activity.VerbOptionDeleted || record.ObjectType != "option" || record.ObjectID != "option_mailserver_url" {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != "overlay" || record.OccurredAt != now {
		t.Fatalf("unexpected channel/time: %+v", record)
	}
	if record.Data["run_id"] != "run-1" {
		t.Fatalf("expected metadata passthrough got %v", record.Data["run_id"])
	}
}

func TestHookNotifyKeepsNonUUIDActorInData(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	err := hook.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbCleanupCompleted,
		ActorID:    "cron",
		ObjectType: "options.cleanup",
		ObjectID:   "run-1",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	record := sink.records[0]
	if record.ActorID != uuid.Nil || record.Data["actor"] != "cron" {
		t.Fatalf("expected actor kept in data, got %+v", record)
	}
	if record.OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be defaulted")
	}
}

func TestHookNotifySkipsMissingVerb(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	_ = hook.Notify(context.Background(), activity.Event{})

	if len(sink.records) != 0 {
		t.Fatalf("expected no records for empty event, got %d", len(sink.records))
	}
}

func TestTenantUUIDStable(t *testing.T) {
	if usersink.TenantUUID("1") != usersink.TenantUUID(" 1 ") {
		t.Fatalf("expected stable mapping")
	}
	if usersink.TenantUUID("1") == usersink.TenantUUID("2") {
		t.Fatalf("expected distinct tenants to differ")
	}
	id := uuid.New()
	if usersink.TenantUUID(id.String()) != id {
		t.Fatalf("expected uuid passthrough")
	}
}
