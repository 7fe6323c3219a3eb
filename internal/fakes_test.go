package internal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
)

var errBoom = errors.New("boom")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func alice() Authenticator {
	return StaticAuth{Identity: Identity{UserID: "alice"}}
}

func nobody() Authenticator {
	return StaticAuth{}
}

// memoryStore is an in-memory implementation of the persistence interfaces
type memoryStore struct {
	mu          sync.Mutex
	transcripts map[string][]TranscriptEntry
	titles      []GeneratedTitle
	images      map[string]string

	queryCalls  int
	storeCalls  int
	recordCalls int
	queryErr    error
	storeErr    error
	recordErr   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{transcripts: map[string][]TranscriptEntry{}, images: map[string]string{}}
}

func pairKey(videoID, userID string) string { return videoID + "|" + userID }

func (m *memoryStore) QueryTranscript(ctx context.Context, videoID, userID string) ([]TranscriptEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryCalls++
	if m.queryErr != nil {
		return nil, false, m.queryErr
	}
	entries, ok := m.transcripts[pairKey(videoID, userID)]
	return entries, ok, nil
}

func (m *memoryStore) StoreTranscript(ctx context.Context, videoID, userID string, entries []TranscriptEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storeCalls++
	if m.storeErr != nil {
		return m.storeErr
	}
	m.transcripts[pairKey(videoID, userID)] = entries
	return nil
}

func (m *memoryStore) RecordTitle(ctx context.Context, videoID, userID, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordCalls++
	if m.recordErr != nil {
		return m.recordErr
	}
	m.titles = append(m.titles, GeneratedTitle{VideoID: videoID, UserID: userID, Title: title})
	return nil
}

func (m *memoryStore) ListTitles(ctx context.Context, videoID, userID string) ([]GeneratedTitle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []GeneratedTitle
	for _, t := range m.titles {
		if t.VideoID == videoID && t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memoryStore) RecordImage(ctx context.Context, storageRef, videoID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordCalls++
	if m.recordErr != nil {
		return m.recordErr
	}
	m.images[pairKey(videoID, userID)] = storageRef
	return nil
}

func (m *memoryStore) LookupImageRef(ctx context.Context, videoID, userID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref, ok := m.images[pairKey(videoID, userID)]
	return ref, ok, nil
}

type fakeTranscriber struct {
	entries []TranscriptEntry
	err     error
	calls   int
}

func (f *fakeTranscriber) FetchTranscript(ctx context.Context, videoID string) ([]TranscriptEntry, error) {
	f.calls++
	return f.entries, f.err
}

type fakeUsage struct {
	events []Feature
	err    error
}

func (f *fakeUsage) Track(ctx context.Context, feature Feature, userID string) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, feature)
	return nil
}

type fakeTextGen struct {
	text       string
	err        error
	calls      int
	lastPrompt string
	lastSystem string
	lastParams SamplingParams
}

func (f *fakeTextGen) GenerateText(ctx context.Context, prompt, system string, params SamplingParams) (string, error) {
	f.calls++
	f.lastPrompt, f.lastSystem, f.lastParams = prompt, system, params
	return f.text, f.err
}

type fakeImageGen struct {
	image      *ImageData
	err        error
	calls      int
	lastAspect string
}

func (f *fakeImageGen) GenerateImage(ctx context.Context, prompt, aspectRatio string) (*ImageData, error) {
	f.calls++
	f.lastAspect = aspectRatio
	return f.image, f.err
}

type fakeBlobs struct {
	targetErr error
	uploadErr error
	ref       string
	uploads   [][]byte
	mimeTypes []string
	targets   int
}

func (f *fakeBlobs) RequestUploadTarget(ctx context.Context) (UploadTarget, error) {
	f.targets++
	if f.targetErr != nil {
		return UploadTarget{}, f.targetErr
	}
	return UploadTarget{URL: "https://upload.example/target", Method: "PUT", Key: f.ref}, nil
}

func (f *fakeBlobs) Upload(ctx context.Context, target UploadTarget, data []byte, mimeType string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads = append(f.uploads, data)
	f.mimeTypes = append(f.mimeTypes, mimeType)
	return target.Key, nil
}

func (f *fakeBlobs) URL(ctx context.Context, storageRef string) (string, error) {
	return "https://cdn.example/" + storageRef, nil
}

type fakeDetails struct {
	details *VideoDetails
	err     error
	calls   int
}

func (f *fakeDetails) VideoDetails(ctx context.Context, videoID string) (*VideoDetails, error) {
	f.calls++
	return f.details, f.err
}
