package internal

import (
	"context"
	"fmt"
	"log/slog"
)

// Provenance notes returned with a transcript
const (
	CachedTranscriptNote = "This video has already been transcribed - Accessing cached transcript instead of using a token"
	FreshTranscriptNote  = "This video was transcribed using a token, the transcript is now saved in the database"
	FailedTranscriptNote = "Error fetching transcript, please try again later"
)

// Transcriber fetches captions for a video from the source platform
type Transcriber interface {
	FetchTranscript(ctx context.Context, videoID string) ([]TranscriptEntry, error)
}

// TranscriptService returns a user's transcript for a video, fetching and
// paying for it only when the user has none stored.
type TranscriptService struct {
	auth        Authenticator
	store       TranscriptStore
	transcriber Transcriber
	usage       UsageTracker
	logger      *slog.Logger
}

// NewTranscriptService creates a transcript orchestrator
func NewTranscriptService(auth Authenticator, store TranscriptStore, transcriber Transcriber, usage UsageTracker, logger *slog.Logger) *TranscriptService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TranscriptService{
		auth:        auth,
		store:       store,
		transcriber: transcriber,
		usage:       usage,
		logger:      logger,
	}
}

// Transcript looks up the stored transcript for the current user and fetches
// one on a miss. A failed fetch is reported through the result, not the error.
// Errors storing the transcript or tracking usage are returned.
func (s *TranscriptService) Transcript(ctx context.Context, videoID string) (*TranscriptResult, error) {
	user, err := requireIdentity(ctx, s.auth)
	if err != nil {
		return nil, err
	}
	if videoID == "" {
		return nil, invalidInput("video ID is required")
	}

	logger := s.logger.With(slog.String("video_id", videoID), slog.String("user_id", user.UserID))

	cached, ok, err := s.store.QueryTranscript(ctx, videoID, user.UserID)
	if err != nil {
		return nil, fmt.Errorf("checking stored transcript: %w", err)
	}
	if ok {
		logger.Info("transcript found in database")
		return &TranscriptResult{Transcript: cached, Cache: CachedTranscriptNote, Cached: true}, nil
	}

	logger.Info("transcript not stored, fetching from YouTube")
	entries, err := s.transcriber.FetchTranscript(ctx, videoID)
	if err != nil {
		logger.Error("fetching transcript", slog.Any("error", err))
		return &TranscriptResult{Transcript: []TranscriptEntry{}, Cache: FailedTranscriptNote}, nil
	}
	if entries == nil {
		entries = []TranscriptEntry{}
	}

	if err := s.store.StoreTranscript(ctx, videoID, user.UserID, entries); err != nil {
		return nil, fmt.Errorf("saving transcript: %w", err)
	}

	if err := s.usage.Track(ctx, FeatureTranscription, user.UserID); err != nil {
		return nil, fmt.Errorf("tracking transcription: %w", err)
	}

	logger.Info("transcript fetched and stored", slog.Int("entries", len(entries)))
	return &TranscriptResult{Transcript: entries, Cache: FreshTranscriptNote}, nil
}
