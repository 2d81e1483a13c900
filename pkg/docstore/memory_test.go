package docstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"p9e.in/hallfix/models"
)

func TestSubscribeDeliversInitialSnapshot(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.WriteFields(ctx, "users/u1", models.JSONMap{"name": "Ada"}))

	var got Snapshot
	store.Subscribe(Query{Collection: "users"}, func(snap Snapshot) {
		got = snap
	}, func(err error) {
		t.Fatalf("unexpected error: %v", err)
	})

	require.Len(t, got, 1)
	assert.Equal(t, "u1", got[0].ID)
	assert.Equal(t, "users/u1", got[0].Path)
	assert.Equal(t, "Ada", got[0].Fields.FieldString("name"))
}

func TestWriteNotifiesMatchingSubscriptions(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var calls int
	var last Snapshot
	store.Subscribe(Query{Collection: "users"}, func(snap Snapshot) {
		calls++
		last = snap
	}, nil)
	require.Equal(t, 1, calls, "initial snapshot")

	require.NoError(t, store.WriteFields(ctx, "users/u1", models.JSONMap{"name": "Ada"}))
	assert.Equal(t, 2, calls)
	require.Len(t, last, 1)

	// A write in an unrelated collection must not re-notify.
	require.NoError(t, store.WriteFields(ctx, "faults/f1", models.JSONMap{"label": "Leaky Tap"}))
	assert.Equal(t, 2, calls)
}

func TestWriteFieldsMergesAndDeletes(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.WriteFields(ctx, "users/u1", models.JSONMap{"name": "Ada", "room": "Room 1"}))
	require.NoError(t, store.WriteFields(ctx, "users/u1", models.JSONMap{"room": "Room 2", "name": nil}))

	snap, err := store.Fetch(ctx, "users", 0)
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, "Room 2", snap[0].Fields.FieldString("room"))
	_, exists := snap[0].Fields["name"]
	assert.False(t, exists, "nil value must delete the key")
}

func TestGroupQueryMatchesLeafCollections(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.WriteFields(ctx, "reports/r1", models.JSONMap{"room": "Room 1"}))
	require.NoError(t, store.WriteFields(ctx, "rooms/Room 2/students/u1/reports/r2", models.JSONMap{"room": "Room 2"}))
	require.NoError(t, store.WriteFields(ctx, "users/u1", models.JSONMap{"name": "Ada"}))

	var group Snapshot
	store.Subscribe(Query{Collection: "reports", Group: true}, func(snap Snapshot) {
		group = snap
	}, nil)
	assert.Len(t, group, 2, "group query spans top-level and nested reports")

	var plain Snapshot
	store.Subscribe(Query{Collection: "reports"}, func(snap Snapshot) {
		plain = snap
	}, nil)
	assert.Len(t, plain, 1, "plain query only matches the exact parent")
}

func TestOrderAndLimit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		path := fmt.Sprintf("reports/r%d", i)
		require.NoError(t, store.WriteFields(ctx, path, models.JSONMap{
			"createdAt": base.Add(time.Duration(i) * time.Hour),
		}))
	}
	// One record without a timestamp sorts last.
	require.NoError(t, store.WriteFields(ctx, "reports/undated", models.JSONMap{"room": "Room 9"}))

	var got Snapshot
	store.Subscribe(Query{Collection: "reports", OrderByCreatedDesc: true, Limit: 3}, func(snap Snapshot) {
		got = snap
	}, nil)

	require.Len(t, got, 3)
	assert.Equal(t, "r4", got[0].ID)
	assert.Equal(t, "r3", got[1].ID)
	assert.Equal(t, "r2", got[2].ID)
}

func TestEqualsAndArrayContainsFilters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.WriteFields(ctx, "reports/r1", models.JSONMap{
		"room":   "Room 1",
		"faults": []interface{}{"Faulty Bulb"},
	}))
	require.NoError(t, store.WriteFields(ctx, "reports/r2", models.JSONMap{
		"room":   "Room 2",
		"faults": []interface{}{"Broken Bed"},
	}))

	var byRoom Snapshot
	store.Subscribe(Query{Collection: "reports", Equals: map[string]string{"room": "Room 1"}}, func(snap Snapshot) {
		byRoom = snap
	}, nil)
	require.Len(t, byRoom, 1)
	assert.Equal(t, "r1", byRoom[0].ID)

	var byFault Snapshot
	store.Subscribe(Query{Collection: "reports", ArrayContains: map[string]string{"faults": "Broken Bed"}}, func(snap Snapshot) {
		byFault = snap
	}, nil)
	require.Len(t, byFault, 1)
	assert.Equal(t, "r2", byFault[0].ID)
}

func TestUnsubscribeStopsDeliveryAndIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var calls int
	unsub := store.Subscribe(Query{Collection: "users"}, func(Snapshot) {
		calls++
	}, nil)
	require.Equal(t, 1, calls)

	unsub()
	unsub() // second call must be harmless

	require.NoError(t, store.WriteFields(ctx, "users/u1", models.JSONMap{"name": "Ada"}))
	assert.Equal(t, 1, calls, "no delivery after unsubscribe")
}

func TestCreateDocGeneratesIDAndNotifies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var last Snapshot
	store.Subscribe(Query{Collection: "rooms/Room 1/students/u1/reports", Group: false}, func(snap Snapshot) {
		last = snap
	}, nil)

	doc, err := store.CreateDoc(ctx, "rooms/Room 1/students/u1/reports", models.JSONMap{"room": "Room 1"})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "rooms/Room 1/students/u1/reports/"+doc.ID, doc.Path)
	require.Len(t, last, 1)
}

func TestSnapshotsAreIsolatedCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.WriteFields(ctx, "users/u1", models.JSONMap{"name": "Ada"}))

	snap, err := store.Fetch(ctx, "users", 0)
	require.NoError(t, err)
	snap[0].Fields["name"] = "Mutated"

	again, err := store.Fetch(ctx, "users", 0)
	require.NoError(t, err)
	assert.Equal(t, "Ada", again[0].Fields.FieldString("name"), "snapshot mutation must not leak into the store")
}
