package handlers

import (
	"context"
	"fmt"
	"testing"

	"p9e.in/hallfix/models"
	"p9e.in/hallfix/pkg/docstore"
)

// memoryReadSet is the in-process ReadSetStore used by tests.
type memoryReadSet struct {
	keys map[string]struct{}
}

func newMemoryReadSet() *memoryReadSet {
	return &memoryReadSet{keys: make(map[string]struct{})}
}

func (s *memoryReadSet) Add(_ context.Context, keys ...string) error {
	for _, k := range keys {
		s.keys[k] = struct{}{}
	}
	return nil
}

func (s *memoryReadSet) Members(context.Context) ([]string, error) {
	out := make([]string, 0, len(s.keys))
	for k := range s.keys {
		out = append(out, k)
	}
	return out, nil
}

func (s *memoryReadSet) Clear(context.Context) error {
	s.keys = make(map[string]struct{})
	return nil
}

func seedEngineReports(n int) {
	Engine = NewReportEngine()
	docs := make(docstore.Snapshot, 0, n)
	for i := 0; i < n; i++ {
		docs = append(docs, snapDoc(
			fmt.Sprintf("r%d", i),
			fmt.Sprintf("reports/r%d", i),
			models.JSONMap{
				"room":      fmt.Sprintf("Room %d", i),
				"faults":    []interface{}{"Faulty Bulb"},
				"createdAt": fmt.Sprintf("2026-05-%02dT10:00:00Z", i%27+1),
			},
		))
	}
	Engine.SetCurrentSnapshot(docs)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	seedEngineReports(3)
	svc := NewNotificationServiceWith(newMemoryReadSet())

	if err := svc.MarkRead(ctx, "reports/r0", "reports/r1"); err != nil {
		t.Fatal(err)
	}
	if err := svc.MarkRead(ctx, "reports/r0", "reports/r1"); err != nil {
		t.Fatal(err)
	}

	feed, err := svc.UnreadFeed(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(feed) != 1 {
		t.Fatalf("unread = %d, expected 1 after double mark", len(feed))
	}
	if feed[0].Key != "reports/r2" {
		t.Errorf("remaining key = %q", feed[0].Key)
	}
}

func TestUnreadFeedCap(t *testing.T) {
	ctx := context.Background()
	seedEngineReports(NotificationFeedLimit + 7)
	svc := NewNotificationServiceWith(newMemoryReadSet())

	feed, err := svc.UnreadFeed(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(feed) != NotificationFeedLimit {
		t.Errorf("feed = %d, expected cap %d", len(feed), NotificationFeedLimit)
	}
}

func TestUnreadFeedFaultScope(t *testing.T) {
	ctx := context.Background()
	Engine = NewReportEngine()
	Engine.SetCurrentSnapshot(docstore.Snapshot{
		snapDoc("r1", "reports/r1", models.JSONMap{"room": "Room 1", "faultTypes": []interface{}{"Faulty Bulb"}}),
		snapDoc("r2", "reports/r2", models.JSONMap{"room": "Room 2", "faultTypes": []interface{}{"Broken Bed"}}),
	})
	svc := NewNotificationServiceWith(newMemoryReadSet())

	feed, err := svc.UnreadFeed(ctx, "broken-bed")
	if err != nil {
		t.Fatal(err)
	}
	if len(feed) != 1 || feed[0].Key != "reports/r2" {
		t.Errorf("scoped feed = %+v", feed)
	}
}

func TestResetAllRestoresEveryNotification(t *testing.T) {
	ctx := context.Background()
	seedEngineReports(4)
	svc := NewNotificationServiceWith(newMemoryReadSet())

	if err := svc.MarkRead(ctx, "reports/r0", "reports/r1", "reports/r2", "reports/r3"); err != nil {
		t.Fatal(err)
	}
	feed, _ := svc.UnreadFeed(ctx, "")
	if len(feed) != 0 {
		t.Fatalf("unread = %d, expected 0", len(feed))
	}

	if err := svc.ResetAll(ctx); err != nil {
		t.Fatal(err)
	}
	feed, _ = svc.UnreadFeed(ctx, "")
	if len(feed) != 4 {
		t.Errorf("unread after reset = %d, expected 4", len(feed))
	}
}

func TestMarkReadUnknownKeysAreHarmless(t *testing.T) {
	ctx := context.Background()
	seedEngineReports(2)
	svc := NewNotificationServiceWith(newMemoryReadSet())

	if err := svc.MarkRead(ctx, "reports/ghost"); err != nil {
		t.Fatal(err)
	}
	feed, err := svc.UnreadFeed(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(feed) != 2 {
		t.Errorf("unread = %d, expected 2", len(feed))
	}
}
