package internal

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := OpenStore(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	// strictly increasing clock so ordering is deterministic
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return store
}

func TestSQLStoreTranscripts(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if _, ok, err := store.QueryTranscript(ctx, "vid", "alice"); err != nil || ok {
		t.Fatalf("QueryTranscript on empty store = (ok=%v, err=%v)", ok, err)
	}

	entries := []TranscriptEntry{{Text: "hello", Timestamp: "0:00"}, {Text: "world", Timestamp: "0:02"}}
	if err := store.StoreTranscript(ctx, "vid", "alice", entries); err != nil {
		t.Fatalf("StoreTranscript: %v", err)
	}

	got, ok, err := store.QueryTranscript(ctx, "vid", "alice")
	if err != nil || !ok {
		t.Fatalf("QueryTranscript = (ok=%v, err=%v)", ok, err)
	}
	if len(got) != 2 || got[0] != entries[0] || got[1] != entries[1] {
		t.Errorf("QueryTranscript = %v, want %v", got, entries)
	}

	// transcripts are scoped per user
	if _, ok, _ := store.QueryTranscript(ctx, "vid", "bob"); ok {
		t.Error("bob should not see alice's transcript")
	}

	// a second store for the same pair keeps the first copy
	if err := store.StoreTranscript(ctx, "vid", "alice", []TranscriptEntry{{Text: "other", Timestamp: "0:00"}}); err != nil {
		t.Fatalf("StoreTranscript again: %v", err)
	}
	got, _, _ = store.QueryTranscript(ctx, "vid", "alice")
	if len(got) != 2 {
		t.Errorf("transcript was overwritten: %v", got)
	}
}

func TestSQLStoreTitles(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, title := range []string{"first", "second"} {
		if err := store.RecordTitle(ctx, "vid", "alice", title); err != nil {
			t.Fatalf("RecordTitle: %v", err)
		}
	}
	if err := store.RecordTitle(ctx, "vid", "bob", "bob's"); err != nil {
		t.Fatalf("RecordTitle: %v", err)
	}

	titles, err := store.ListTitles(ctx, "vid", "alice")
	if err != nil {
		t.Fatalf("ListTitles: %v", err)
	}
	if len(titles) != 2 {
		t.Fatalf("ListTitles returned %d titles, want 2", len(titles))
	}
	if titles[0].Title != "first" || titles[1].Title != "second" {
		t.Errorf("titles out of order: %q, %q", titles[0].Title, titles[1].Title)
	}
	if titles[0].ID == "" || titles[0].ID == titles[1].ID {
		t.Error("titles should have distinct IDs")
	}

	empty, err := store.ListTitles(ctx, "other", "alice")
	if err != nil || len(empty) != 0 {
		t.Errorf("ListTitles for unknown video = (%v, %v)", empty, err)
	}
}

func TestSQLStoreImages(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if _, ok, err := store.LookupImageRef(ctx, "vid", "alice"); err != nil || ok {
		t.Fatalf("LookupImageRef on empty store = (ok=%v, err=%v)", ok, err)
	}

	if err := store.RecordImage(ctx, "ref-1", "vid", "alice"); err != nil {
		t.Fatalf("RecordImage: %v", err)
	}
	if err := store.RecordImage(ctx, "ref-2", "vid", "alice"); err != nil {
		t.Fatalf("RecordImage: %v", err)
	}

	ref, ok, err := store.LookupImageRef(ctx, "vid", "alice")
	if err != nil || !ok || ref != "ref-2" {
		t.Errorf("LookupImageRef = (%q, %v, %v), want newest ref-2", ref, ok, err)
	}
}

func TestSQLStoreUsage(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for range 3 {
		if err := store.Track(ctx, FeatureTranscription, "alice"); err != nil {
			t.Fatalf("Track: %v", err)
		}
	}
	if err := store.Track(ctx, FeatureImageGeneration, "alice"); err != nil {
		t.Fatalf("Track: %v", err)
	}

	n, err := store.CountUsage(ctx, FeatureTranscription, "alice")
	if err != nil || n != 3 {
		t.Errorf("CountUsage = (%d, %v), want 3", n, err)
	}
}

func TestOpenStoreRejectsUnknownDriver(t *testing.T) {
	if _, err := OpenStore(context.Background(), "mysql", "x"); err == nil {
		t.Error("expected an error for an unsupported driver")
	}
}
