package internal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const titleSystemInstruction = "You are a helpful YouTube video creator assistant that creates high quality SEO friendly concise video titles."

const titlePromptFormat = "Please provide ONE concise YouTube title (and nothing else) for this video. Focus on the main points and key takeaways, it should be SEO friendly and 100 characters or less:\n\n%s\n\n%s"

var titleSampling = SamplingParams{Temperature: 0.7, MaxTokens: 500}

// TitleService generates and records video titles
type TitleService struct {
	auth   Authenticator
	model  TextGenerator
	store  TitleStore
	usage  UsageTracker
	logger *slog.Logger
}

// NewTitleService creates a title orchestrator
func NewTitleService(auth Authenticator, model TextGenerator, store TitleStore, usage UsageTracker, logger *slog.Logger) *TitleService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TitleService{auth: auth, model: model, store: store, usage: usage, logger: logger}
}

// TitlePrompt builds the user prompt for a title request
func TitlePrompt(summary, considerations string) string {
	return fmt.Sprintf(titlePromptFormat, summary, considerations)
}

// Generate asks the model for one title, records it and tracks the usage
func (s *TitleService) Generate(ctx context.Context, videoID, summary, considerations string) (string, error) {
	user, err := requireIdentity(ctx, s.auth)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(summary) == "" {
		return "", invalidInput("video summary is required")
	}

	logger := s.logger.With(slog.String("video_id", videoID), slog.String("user_id", user.UserID))
	logger.Info("generating title")

	text, err := s.model.GenerateText(ctx, TitlePrompt(summary, considerations), titleSystemInstruction, titleSampling)
	if err != nil {
		logger.Error("generating title", slog.Any("error", err))
		return "", fmt.Errorf("%w: %w", generationFailed("Failed to generate title"), err)
	}

	title := strings.TrimSpace(text)
	if title == "" {
		return "", generationFailed("Failed to generate title")
	}

	if err := s.store.RecordTitle(ctx, videoID, user.UserID, title); err != nil {
		return "", fmt.Errorf("saving title: %w", err)
	}

	if err := s.usage.Track(ctx, FeatureTitleGenerations, user.UserID); err != nil {
		return "", fmt.Errorf("tracking title generation: %w", err)
	}

	logger.Info("title generated", slog.String("title", title))
	return title, nil
}

// List returns the current user's title history for a video
func (s *TitleService) List(ctx context.Context, videoID string) ([]GeneratedTitle, error) {
	user, err := requireIdentity(ctx, s.auth)
	if err != nil {
		return nil, err
	}
	return s.store.ListTitles(ctx, videoID, user.UserID)
}
