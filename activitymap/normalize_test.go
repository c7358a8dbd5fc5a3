package activitymap_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	authsync "github.com/goliatone/go-authsync"
	"github.com/goliatone/go-authsync/activitymap"
	"github.com/redis/go-redis/v9"
)

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	event := authsync.ActivityEvent{
		EventType: authsync.ActivityEventProfileCreated,
		UserID:    "uid-100",
		Email:     "a@b.com",
		Metadata: map[string]any{
			"source": "bridge",
		},
		OccurredAt: ts,
	}

	out := activitymap.Normalize(event)

	if out.ActorID != "uid-100" {
		t.Fatalf("expected actor_id uid-100, got %q", out.ActorID)
	}
	if out.Verb != string(authsync.ActivityEventProfileCreated) {
		t.Fatalf("expected verb %q, got %q", authsync.ActivityEventProfileCreated, out.Verb)
	}
	if out.ObjectType != "profile" {
		t.Fatalf("expected object_type profile, got %q", out.ObjectType)
	}
	if out.ObjectID != "uid-100" {
		t.Fatalf("expected object_id uid-100, got %q", out.ObjectID)
	}
	if out.Channel != "authsync" {
		t.Fatalf("expected channel authsync, got %q", out.Channel)
	}
	if !out.OccurredAt.Equal(ts) {
		t.Fatalf("expected occurred_at %v, got %v", ts, out.OccurredAt)
	}
	if out.Metadata["source"] != "bridge" {
		t.Fatalf("expected metadata source bridge, got %#v", out.Metadata["source"])
	}
	if out.Metadata[activitymap.MetadataKeyEmail] != "a@b.com" {
		t.Fatalf("expected metadata email a@b.com, got %#v", out.Metadata[activitymap.MetadataKeyEmail])
	}
	if len(event.Metadata) != 1 {
		t.Fatalf("expected source metadata to remain unchanged, got %+v", event.Metadata)
	}
}

func TestNormalizeOptionOverrides(t *testing.T) {
	t.Parallel()

	event := authsync.ActivityEvent{
		EventType: authsync.ActivityEventLoginFailure,
		Email:     "a@b.com",
		Metadata: map[string]any{
			"code":                       authsync.CodeWrongPassword,
			activitymap.MetadataKeyEmail: "existing@b.com",
		},
	}

	out := activitymap.Normalize(
		event,
		activitymap.WithDefaultChannel("security"),
		activitymap.WithDefaultObjectType("account"),
		activitymap.WithObjectIDResolver(func(e authsync.ActivityEvent) string {
			return e.Email
		}),
	)

	if out.Channel != "security" {
		t.Fatalf("expected channel security, got %q", out.Channel)
	}
	if out.ObjectType != "account" {
		t.Fatalf("expected object_type account, got %q", out.ObjectType)
	}
	if out.ObjectID != "a@b.com" {
		t.Fatalf("expected object_id a@b.com, got %q", out.ObjectID)
	}
	if out.Metadata[activitymap.MetadataKeyEmail] != "existing@b.com" {
		t.Fatalf("expected existing email preserved, got %#v", out.Metadata[activitymap.MetadataKeyEmail])
	}
	if out.OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be set when input is zero")
	}
}

func TestNormalizeActorFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		event  authsync.ActivityEvent
		opts   []activitymap.Option
		expect string
	}{
		{
			name:   "uses user id when present",
			event:  authsync.ActivityEvent{UserID: "uid-2"},
			expect: "uid-2",
		},
		{
			name:   "uses default fallback when user missing",
			event:  authsync.ActivityEvent{},
			expect: "anonymous",
		},
		{
			name:   "uses configured fallback when user missing",
			event:  authsync.ActivityEvent{},
			opts:   []activitymap.Option{activitymap.WithActorFallback("job")},
			expect: "job",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out := activitymap.Normalize(tc.event, tc.opts...)
			if out.ActorID != tc.expect {
				t.Fatalf("expected actor_id %q, got %q", tc.expect, out.ActorID)
			}
		})
	}
}

func TestFanout(t *testing.T) {
	t.Parallel()

	var seen []string
	record := func(name string, err error) authsync.ActivitySink {
		return authsync.ActivitySinkFunc(func(_ context.Context, e authsync.ActivityEvent) error {
			seen = append(seen, name+":"+string(e.EventType))
			return err
		})
	}

	boom := errors.New("boom")
	sink := activitymap.Fanout(record("a", boom), nil, record("b", nil))

	err := sink.Record(context.Background(), authsync.ActivityEvent{EventType: authsync.ActivityEventLogout})
	if !errors.Is(err, boom) {
		t.Fatalf("expected first error, got %v", err)
	}
	if len(seen) != 2 || seen[1] != "b:auth.logout" {
		t.Fatalf("expected both sinks to record, got %v", seen)
	}
}

func TestStreamSink(t *testing.T) {
	addr := os.Getenv("AUTHSYNC_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("AUTHSYNC_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	stream := "authsync:test:activity:" + time.Now().Format("150405.000000")
	t.Cleanup(func() { client.Del(ctx, stream) })

	sink := activitymap.NewStreamSink(client).WithStream(stream).WithMaxLen(100)
	err := sink.Record(ctx, authsync.ActivityEvent{
		EventType: authsync.ActivityEventLoginSuccess,
		UserID:    "uid-1",
		Email:     "a@b.com",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	entries, err := client.XRange(ctx, stream, "-", "+").Result()
	if err != nil {
		t.Fatalf("xrange: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Values["verb"] != string(authsync.ActivityEventLoginSuccess) {
		t.Fatalf("unexpected verb %#v", entries[0].Values["verb"])
	}
}
