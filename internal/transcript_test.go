package internal

import (
	"context"
	"errors"
	"testing"
)

func TestTranscriptCacheHit(t *testing.T) {
	store := newMemoryStore()
	stored := []TranscriptEntry{{Text: "cached", Timestamp: "0:00"}}
	store.transcripts[pairKey("vid", "alice")] = stored
	transcriber := &fakeTranscriber{}
	usage := &fakeUsage{}

	svc := NewTranscriptService(alice(), store, transcriber, usage, discardLogger())
	res, err := svc.Transcript(context.Background(), "vid")
	if err != nil {
		t.Fatalf("Transcript: %v", err)
	}

	if transcriber.calls != 0 {
		t.Errorf("transcriber called %d times on a cache hit", transcriber.calls)
	}
	if len(usage.events) != 0 {
		t.Errorf("usage events on a cache hit: %v", usage.events)
	}
	if store.storeCalls != 0 {
		t.Errorf("store written on a cache hit")
	}
	if !res.Cached || res.Cache != CachedTranscriptNote {
		t.Errorf("unexpected provenance %q (cached=%v)", res.Cache, res.Cached)
	}
	if len(res.Transcript) != 1 || res.Transcript[0] != stored[0] {
		t.Errorf("Transcript = %v, want %v", res.Transcript, stored)
	}
}

func TestTranscriptCacheMiss(t *testing.T) {
	store := newMemoryStore()
	remote := []TranscriptEntry{{Text: "hello", Timestamp: "0:00"}, {Text: "there", Timestamp: "0:03"}}
	transcriber := &fakeTranscriber{entries: remote}
	usage := &fakeUsage{}

	svc := NewTranscriptService(alice(), store, transcriber, usage, discardLogger())
	res, err := svc.Transcript(context.Background(), "vid")
	if err != nil {
		t.Fatalf("Transcript: %v", err)
	}

	if transcriber.calls != 1 {
		t.Errorf("transcriber called %d times, want 1", transcriber.calls)
	}
	if store.storeCalls != 1 {
		t.Errorf("store written %d times, want 1", store.storeCalls)
	}
	if len(usage.events) != 1 || usage.events[0] != FeatureTranscription {
		t.Errorf("usage events = %v, want one transcription event", usage.events)
	}
	if res.Cached || res.Cache != FreshTranscriptNote {
		t.Errorf("unexpected provenance %q", res.Cache)
	}
	if len(res.Transcript) != 2 || res.Transcript[1] != remote[1] {
		t.Errorf("Transcript = %v, want %v", res.Transcript, remote)
	}
	if got := store.transcripts[pairKey("vid", "alice")]; len(got) != 2 {
		t.Errorf("stored transcript = %v", got)
	}
}

func TestTranscriptFetchFailure(t *testing.T) {
	store := newMemoryStore()
	transcriber := &fakeTranscriber{err: errBoom}
	usage := &fakeUsage{}

	svc := NewTranscriptService(alice(), store, transcriber, usage, discardLogger())
	res, err := svc.Transcript(context.Background(), "vid")
	if err != nil {
		t.Fatalf("fetch failures should not surface as errors, got %v", err)
	}

	if len(res.Transcript) != 0 || res.Transcript == nil {
		t.Errorf("Transcript = %#v, want an empty slice", res.Transcript)
	}
	if res.Cached || res.Cache != FailedTranscriptNote {
		t.Errorf("unexpected provenance %q", res.Cache)
	}
	if store.storeCalls != 0 || len(usage.events) != 0 {
		t.Errorf("no write or usage event expected, got %d writes and %v", store.storeCalls, usage.events)
	}
	if transcriber.calls != 1 {
		t.Errorf("fetch should not be retried, got %d calls", transcriber.calls)
	}
}

func TestTranscriptPersistAndTrackErrorsPropagate(t *testing.T) {
	t.Run("store", func(t *testing.T) {
		store := newMemoryStore()
		store.storeErr = errBoom
		usage := &fakeUsage{}
		svc := NewTranscriptService(alice(), store, &fakeTranscriber{entries: []TranscriptEntry{{Text: "x"}}}, usage, discardLogger())

		if _, err := svc.Transcript(context.Background(), "vid"); !errors.Is(err, errBoom) {
			t.Errorf("error = %v, want boom", err)
		}
		if len(usage.events) != 0 {
			t.Error("usage should not be tracked when the store fails")
		}
	})

	t.Run("usage", func(t *testing.T) {
		store := newMemoryStore()
		svc := NewTranscriptService(alice(), store, &fakeTranscriber{entries: []TranscriptEntry{{Text: "x"}}}, &fakeUsage{err: errBoom}, discardLogger())

		if _, err := svc.Transcript(context.Background(), "vid"); !errors.Is(err, errBoom) {
			t.Errorf("error = %v, want boom", err)
		}
		if store.storeCalls != 1 {
			t.Error("transcript should be stored before tracking")
		}
	})

	t.Run("lookup", func(t *testing.T) {
		store := newMemoryStore()
		store.queryErr = errBoom
		transcriber := &fakeTranscriber{}
		svc := NewTranscriptService(alice(), store, transcriber, &fakeUsage{}, discardLogger())

		if _, err := svc.Transcript(context.Background(), "vid"); !errors.Is(err, errBoom) {
			t.Errorf("error = %v, want boom", err)
		}
		if transcriber.calls != 0 {
			t.Error("fetch should not run when the lookup fails")
		}
	})
}

func TestTranscriptRequiresIdentity(t *testing.T) {
	store := newMemoryStore()
	transcriber := &fakeTranscriber{}
	svc := NewTranscriptService(nobody(), store, transcriber, &fakeUsage{}, discardLogger())

	if _, err := svc.Transcript(context.Background(), "vid"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("error = %v, want ErrUnauthenticated", err)
	}
	if store.queryCalls != 0 || transcriber.calls != 0 {
		t.Error("no collaborator should be called without an identity")
	}
}

func TestTranscriptScopedPerUser(t *testing.T) {
	store := newMemoryStore()
	store.transcripts[pairKey("vid", "bob")] = []TranscriptEntry{{Text: "bob's"}}
	transcriber := &fakeTranscriber{entries: []TranscriptEntry{{Text: "fresh"}}}

	svc := NewTranscriptService(alice(), store, transcriber, &fakeUsage{}, discardLogger())
	res, err := svc.Transcript(context.Background(), "vid")
	if err != nil {
		t.Fatalf("Transcript: %v", err)
	}
	if res.Cached || transcriber.calls != 1 {
		t.Error("another user's transcript must not be reused")
	}
}
