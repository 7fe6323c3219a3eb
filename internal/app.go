package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Store is the persistence the orchestrators need
type Store interface {
	TranscriptStore
	TitleStore
	ImageStore
}

// usageCounter is implemented by stores that keep the usage ledger
type usageCounter interface {
	CountUsage(ctx context.Context, feature Feature, userID string) (int, error)
}

// App holds the application state and dependencies
type App struct {
	config *Config
	logger *slog.Logger
	ui     UIManager

	auth        Authenticator
	store       Store
	blobs       BlobStorage
	provider    Provider
	transcriber Transcriber
	details     VideoDetailer
	usage       UsageTracker
	prompts     *PromptManager

	transcripts *TranscriptService
	titles      *TitleService
	images      *ImageService
	chat        *ChatRouter

	closers []io.Closer
}

// AppOption customizes App creation
type AppOption func(*App)

// WithAuth sets how the current user is resolved
func WithAuth(auth Authenticator) AppOption {
	return func(a *App) { a.auth = auth }
}

// WithStore sets the persistence layer
func WithStore(store Store) AppOption {
	return func(a *App) { a.store = store }
}

// WithBlobs sets the image storage
func WithBlobs(blobs BlobStorage) AppOption {
	return func(a *App) { a.blobs = blobs }
}

// WithProvider sets the model provider
func WithProvider(provider Provider) AppOption {
	return func(a *App) { a.provider = provider }
}

// WithTranscriber sets the caption source
func WithTranscriber(t Transcriber) AppOption {
	return func(a *App) { a.transcriber = t }
}

// WithDetails sets the video details source
func WithDetails(d VideoDetailer) AppOption {
	return func(a *App) { a.details = d }
}

// WithUsage sets the usage tracker
func WithUsage(u UsageTracker) AppOption {
	return func(a *App) { a.usage = u }
}

// WithLogger sets the structured logger
func WithLogger(l *slog.Logger) AppOption {
	return func(a *App) { a.logger = l }
}

// WithUI sets the terminal UI
func WithUI(ui UIManager) AppOption {
	return func(a *App) { a.ui = ui }
}

// NewApp initializes the application. Collaborators not supplied through
// options are built from config.
func NewApp(ctx context.Context, config *Config, options ...AppOption) (*App, error) {
	app := &App{config: config}
	for _, option := range options {
		option(app)
	}

	if app.logger == nil {
		app.logger = NewLogger(config, os.Stderr)
	}
	if app.ui == nil {
		app.ui = NewUIManager(config.Verbose, config.Quiet)
	}
	if app.auth == nil {
		app.auth = StaticAuth{Identity: config.Identity()}
	}

	if err := app.initStore(ctx); err != nil {
		return nil, err
	}
	if err := app.initBlobs(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	if err := app.initProvider(); err != nil {
		_ = app.Close()
		return nil, err
	}

	var yt *YouTube
	if app.transcriber == nil || app.details == nil {
		yt = NewYouTube(filepath.Join(config.CacheDir, "subs"), app.logger)
	}
	if app.transcriber == nil {
		app.transcriber = yt
	}
	if app.details == nil {
		var chain FallbackDetailer
		if config.YouTubeAPIKey != "" {
			chain = append(chain, NewYouTubeDataAPI(config.YouTubeAPIKey))
		}
		app.details = append(chain, yt)
	}

	if app.usage == nil {
		var trackers MultiTracker
		if t, ok := app.store.(UsageTracker); ok {
			trackers = append(trackers, t)
		}
		if config.UsageAPIKey != "" {
			schematic := NewSchematicTracker(config.UsageEndpoint, config.UsageAPIKey)
			trackers = append(trackers, schematic)
			app.closers = append(app.closers, schematic)
		}
		app.usage = trackers
	}

	app.prompts = NewPromptManager(config.ConfigDir, config.Prompt)

	app.transcripts = NewTranscriptService(app.auth, app.store, app.transcriber, app.usage, app.logger)
	app.titles = NewTitleService(app.auth, app.provider, app.store, app.usage, app.logger)
	app.images = NewImageService(app.auth, app.provider, app.blobs, app.store, app.usage, app.logger)
	app.chat = NewChatRouter(app.auth, app.provider, app.details, app.prompts, app.Tools, config.ChatMaxSteps, app.logger)

	return app, nil
}

func (app *App) initStore(ctx context.Context) error {
	if app.store != nil {
		return nil
	}
	if app.config.DatabaseDriver == DriverSQLite {
		if err := EnsureDirs(filepath.Dir(app.config.DatabaseURL)); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}
	store, err := OpenStore(ctx, app.config.DatabaseDriver, app.config.DatabaseURL)
	if err != nil {
		return err
	}
	app.store = store
	app.closers = append(app.closers, store)
	return nil
}

func (app *App) initBlobs(ctx context.Context) error {
	if app.blobs != nil {
		return nil
	}
	switch app.config.Storage {
	case StorageS3:
		s3, err := NewS3Storage(ctx, app.config.S3Bucket, app.config.S3Prefix, app.config.S3URLTTL)
		if err != nil {
			return err
		}
		app.blobs = s3
	default:
		fs, err := NewFSStorage(app.config.ImagesDir, app.config.PublicBaseURL)
		if err != nil {
			return err
		}
		app.blobs = fs
	}
	return nil
}

func (app *App) initProvider() error {
	if app.provider != nil {
		return nil
	}
	switch app.config.Provider {
	case ProviderOpenAI:
		app.provider = NewOpenAIProvider(app.config.OpenAIAPIKey, app.config.Models(), app.config.AITimeout)
	case ProviderVertex:
		app.provider = NewVertexProvider(VertexConfig{
			Project:  app.config.VertexProject,
			Location: app.config.VertexLocation,
			APIKey:   app.config.GeminiAPIKey,
		}, app.config.Models(), app.config.AITimeout)
	default:
		_, err := DefaultModels(app.config.Provider)
		return err
	}
	return nil
}

// Close releases resources opened by NewApp
func (app *App) Close() error {
	var errs []error
	for _, c := range app.closers {
		errs = append(errs, c.Close())
	}
	app.closers = nil
	return errors.Join(errs...)
}

func (app *App) Config() *Config { return app.config }
func (app *App) Logger() *slog.Logger { return app.logger }
func (app *App) UI() UIManager { return app.ui }
func (app *App) Transcripts() *TranscriptService { return app.transcripts }
func (app *App) Titles() *TitleService { return app.titles }
func (app *App) Images() *ImageService { return app.images }
func (app *App) Chat() *ChatRouter { return app.chat }
func (app *App) Details() VideoDetailer { return app.details }

// Tools builds the tool registry for a conversation about videoID
func (app *App) Tools(videoID string) *ToolRegistry {
	return VideoTools{
		Transcripts: app.transcripts,
		Titles:      app.titles,
		Images:      app.images,
		Details:     app.details,
	}.Registry(videoID)
}

// ImagesDir returns the directory served under /images/ when images are
// stored on the local filesystem.
func (app *App) ImagesDir() (string, bool) {
	fs, ok := app.blobs.(*FSStorage)
	if !ok {
		return "", false
	}
	return fs.Dir(), true
}

// UsageCount returns how often the current user used a feature
func (app *App) UsageCount(ctx context.Context, feature Feature) (int, error) {
	user, err := requireIdentity(ctx, app.auth)
	if err != nil {
		return 0, err
	}
	counter, ok := app.store.(usageCounter)
	if !ok {
		return 0, fmt.Errorf("usage ledger is not available for this store")
	}
	return counter.CountUsage(ctx, feature, user.UserID)
}

// TranscriptWithStatus fetches a transcript with an optional status spinner
func (app *App) TranscriptWithStatus(ctx context.Context, videoID string, showStatus bool) (*TranscriptResult, error) {
	var spinner ProgressBar = SilentProgressBar{}
	if showStatus {
		spinner = app.ui.NewSpinner("Fetching transcript...")
	}
	defer spinner.Finish()

	res, err := app.transcripts.Transcript(ctx, videoID)
	if err != nil {
		return nil, err
	}
	app.ui.Verbose("%s\n", res.Cache)
	return res, nil
}

// maxSummaryChars bounds the transcript text used as a title summary
const maxSummaryChars = 12000

// TranscriptText joins transcript entries into plain text, truncated for prompts
func TranscriptText(entries []TranscriptEntry) string {
	var sb strings.Builder
	for i, e := range entries {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(e.Text)
		if sb.Len() >= maxSummaryChars {
			break
		}
	}
	text := sb.String()
	if len(text) > maxSummaryChars {
		cut := maxSummaryChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text
}

// GenerateTitles generates n title candidates with a progress bar. When
// summary is empty the video's transcript stands in for it.
func (app *App) GenerateTitles(ctx context.Context, videoID, summary, considerations string, n int) ([]string, error) {
	if strings.TrimSpace(summary) == "" {
		res, err := app.TranscriptWithStatus(ctx, videoID, !app.config.Quiet)
		if err != nil {
			return nil, err
		}
		if len(res.Transcript) == 0 {
			return nil, fmt.Errorf("no transcript available for %s: %s", videoID, res.Cache)
		}
		summary = TranscriptText(res.Transcript)
	}

	if n < 1 {
		n = 1
	}
	var bar ProgressBar = SilentProgressBar{}
	if n > 1 {
		bar = app.ui.NewProgressBar(n, "Generating titles")
	}
	defer bar.Finish()

	titles := make([]string, 0, n)
	for i := 0; i < n; i++ {
		title, err := app.titles.Generate(ctx, videoID, summary, considerations)
		if err != nil {
			return titles, err
		}
		titles = append(titles, title)
		bar.Set(i + 1)
	}
	return titles, nil
}

// GenerateThumbnail generates one thumbnail with a status spinner
func (app *App) GenerateThumbnail(ctx context.Context, videoID, prompt string) (*GeneratedImage, error) {
	var spinner ProgressBar = SilentProgressBar{}
	if !app.config.Quiet {
		spinner = app.ui.NewSpinner("Generating thumbnail...")
	}
	defer spinner.Finish()

	return app.images.Generate(ctx, videoID, prompt)
}
