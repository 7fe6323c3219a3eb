package internal

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

// fakeProvider combines the generation fakes into a Provider
type fakeProvider struct {
	*fakeTextGen
	*fakeImageGen
	*scriptedModel
}

// quietUI records nothing and shows nothing
type quietUI struct{}

func (quietUI) NewProgressBar(int, string) ProgressBar { return SilentProgressBar{} }
func (quietUI) NewSpinner(string) ProgressBar          { return SilentProgressBar{} }
func (quietUI) Verbose(string, ...any)                 {}
func (quietUI) Printf(string, ...any)                  {}
func (quietUI) Println(...any)                         {}

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	return &Config{
		Provider:       ProviderOpenAI,
		ChatMaxSteps:   DefaultChatMaxSteps,
		DatabaseDriver: DriverSQLite,
		DatabaseURL:    filepath.Join(dir, "data", "test.db"),
		Storage:        StorageFS,
		ImagesDir:      filepath.Join(dir, "images"),
		PublicBaseURL:  "http://localhost:8080",
		UserID:         "alice",
		ConfigDir:      filepath.Join(dir, "config"),
		DataDir:        filepath.Join(dir, "data"),
		CacheDir:       filepath.Join(dir, "cache"),
	}
}

func newTestApp(t *testing.T, opts ...AppOption) (*App, *fakeProvider) {
	t.Helper()
	provider := &fakeProvider{
		fakeTextGen:   &fakeTextGen{text: "Generated Title"},
		fakeImageGen:  &fakeImageGen{image: &ImageData{Bytes: []byte("\x89PNG\r\n\x1a\n"), MIMEType: "image/png"}},
		scriptedModel: &scriptedModel{},
	}
	base := []AppOption{
		WithProvider(provider),
		WithTranscriber(&fakeTranscriber{entries: []TranscriptEntry{{Text: "hello", Timestamp: "0:00"}, {Text: "gophers", Timestamp: "0:02"}}}),
		WithDetails(&fakeDetails{details: &VideoDetails{Title: "Gophers"}}),
		WithLogger(discardLogger()),
		WithUI(quietUI{}),
	}
	app, err := NewApp(context.Background(), testConfig(t), append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })
	return app, provider
}

func TestNewAppDefaults(t *testing.T) {
	app, _ := newTestApp(t)

	if _, ok := app.store.(*SQLStore); !ok {
		t.Errorf("store = %T, want *SQLStore", app.store)
	}
	dir, ok := app.ImagesDir()
	if !ok || !strings.HasSuffix(dir, "images") {
		t.Errorf("ImagesDir = (%q, %v)", dir, ok)
	}
	if id, ok := app.auth.CurrentIdentity(context.Background()); !ok || id.UserID != "alice" {
		t.Errorf("identity = %+v", id)
	}
}

func TestAppTranscriptTracksUsage(t *testing.T) {
	app, _ := newTestApp(t)
	ctx := context.Background()

	first, err := app.TranscriptWithStatus(ctx, "vid", false)
	if err != nil {
		t.Fatalf("TranscriptWithStatus: %v", err)
	}
	second, err := app.TranscriptWithStatus(ctx, "vid", false)
	if err != nil {
		t.Fatalf("TranscriptWithStatus: %v", err)
	}

	if first.Cached || !second.Cached {
		t.Errorf("cached = %v then %v, want false then true", first.Cached, second.Cached)
	}
	n, err := app.UsageCount(ctx, FeatureTranscription)
	if err != nil || n != 1 {
		t.Errorf("UsageCount = (%d, %v), want 1", n, err)
	}
}

func TestAppGenerateTitles(t *testing.T) {
	app, provider := newTestApp(t)
	ctx := context.Background()

	titles, err := app.GenerateTitles(ctx, "vid", "", "", 3)
	if err != nil {
		t.Fatalf("GenerateTitles: %v", err)
	}
	if len(titles) != 3 || provider.fakeTextGen.calls != 3 {
		t.Errorf("titles = %v, calls = %d", titles, provider.fakeTextGen.calls)
	}
	if !strings.Contains(provider.lastPrompt, "hello gophers") {
		t.Errorf("transcript should stand in for the summary: %q", provider.lastPrompt)
	}

	history, err := app.Titles().List(ctx, "vid")
	if err != nil || len(history) != 3 {
		t.Errorf("List = (%v, %v)", history, err)
	}
}

func TestAppThumbnail(t *testing.T) {
	app, _ := newTestApp(t)
	ctx := context.Background()

	img, err := app.GenerateThumbnail(ctx, "vid", "a gopher on a laptop")
	if err != nil {
		t.Fatalf("GenerateThumbnail: %v", err)
	}
	if !strings.HasPrefix(img.ImageURL, "http://localhost:8080/images/") {
		t.Errorf("ImageURL = %q", img.ImageURL)
	}

	latest, ok, err := app.Images().ImageURL(ctx, "vid")
	if err != nil || !ok || latest != img.ImageURL {
		t.Errorf("ImageURL = (%q, %v, %v)", latest, ok, err)
	}
}

func TestAppChatUsesTools(t *testing.T) {
	app, provider := newTestApp(t)
	provider.scriptedModel.replies = []scriptedReply{
		{calls: []ToolCall{{ID: "1", Name: "fetchTranscript", Arguments: json.RawMessage(`{"videoId":"vid"}`)}}},
		{deltas: []string{"It is about gophers."}},
	}

	var events []ChatEvent
	err := app.Chat().Stream(context.Background(), ChatRequest{VideoID: "vid", Messages: []ChatMessage{{Role: RoleUser, Content: "what is it about?"}}}, collect(&events))
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	res, ok := events[1].Result.(*TranscriptResult)
	if !ok || res.Cache != FreshTranscriptNote {
		t.Errorf("tool result = %#v", events[1].Result)
	}
	if len(provider.scriptedModel.turns[0].Tools) != 5 {
		t.Errorf("tools offered = %d, want 5", len(provider.scriptedModel.turns[0].Tools))
	}
}

func TestNewAppRejectsUnknownProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.Provider = "bard"
	_, err := NewApp(context.Background(), cfg, WithLogger(discardLogger()), WithUI(quietUI{}))
	if err == nil {
		t.Fatal("expected an error for an unknown provider")
	}
}

func TestTranscriptText(t *testing.T) {
	long := strings.Repeat("x", maxSummaryChars)
	got := TranscriptText([]TranscriptEntry{{Text: "a"}, {Text: long}, {Text: "never"}})
	if len(got) != maxSummaryChars || strings.Contains(got, "never") {
		t.Errorf("len = %d", len(got))
	}

	accented := TranscriptText([]TranscriptEntry{{Text: strings.Repeat("é", 7000)}})
	if !utf8.ValidString(accented) || len(accented) != maxSummaryChars {
		t.Errorf("multi-byte text cut to len %d, valid = %v", len(accented), utf8.ValidString(accented))
	}
	odd := TranscriptText([]TranscriptEntry{{Text: "a" + strings.Repeat("é", 7000)}})
	if !utf8.ValidString(odd) || len(odd) != maxSummaryChars-1 {
		t.Errorf("cut inside a rune should back off, len %d, valid = %v", len(odd), utf8.ValidString(odd))
	}
	if TranscriptText(nil) != "" {
		t.Error("empty transcript should give empty text")
	}
}

func TestAppUsageCountNeedsLedger(t *testing.T) {
	app, _ := newTestApp(t, WithStore(newMemoryStore()))
	if _, err := app.UsageCount(context.Background(), FeatureTranscription); err == nil || errors.Is(err, ErrUnauthenticated) {
		t.Errorf("error = %v, want a missing ledger error", err)
	}
}
