package internal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// ThumbnailAspectRatio is the aspect ratio of generated thumbnails
const ThumbnailAspectRatio = "16:9"

// ImageService generates thumbnails and hands them to blob storage
type ImageService struct {
	auth   Authenticator
	model  ImageGenerator
	blobs  BlobStorage
	store  ImageStore
	usage  UsageTracker
	logger *slog.Logger
}

// NewImageService creates an image orchestrator
func NewImageService(auth Authenticator, model ImageGenerator, blobs BlobStorage, store ImageStore, usage UsageTracker, logger *slog.Logger) *ImageService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageService{auth: auth, model: model, blobs: blobs, store: store, usage: usage, logger: logger}
}

// Generate creates an image, uploads it, records it against the video and
// returns its URL. A failure after the upload leaves the object orphaned.
func (s *ImageService) Generate(ctx context.Context, videoID, prompt string) (*GeneratedImage, error) {
	user, err := requireIdentity(ctx, s.auth)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, invalidInput("Failed to generate image prompt")
	}

	logger := s.logger.With(slog.String("video_id", videoID), slog.String("user_id", user.UserID))
	logger.Info("generating image", slog.String("prompt", prompt))

	image, err := s.model.GenerateImage(ctx, prompt, ThumbnailAspectRatio)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", generationFailed("Failed to generate image"), err)
	}
	if image == nil || len(image.Bytes) == 0 {
		return nil, generationFailed("Failed to generate image")
	}

	target, err := s.blobs.RequestUploadTarget(ctx)
	if err != nil {
		return nil, fmt.Errorf("requesting upload target: %w", err)
	}

	storageRef, err := s.blobs.Upload(ctx, target, image.Bytes, image.MIMEType)
	if err != nil {
		return nil, fmt.Errorf("uploading image: %w", err)
	}
	if storageRef == "" {
		return nil, fmt.Errorf("upload returned no storage reference")
	}

	if err := s.store.RecordImage(ctx, storageRef, videoID, user.UserID); err != nil {
		return nil, fmt.Errorf("saving image: %w", err)
	}
	logger.Info("image stored", slog.String("storage_ref", storageRef))

	imageURL, err := s.blobs.URL(ctx, storageRef)
	if err != nil {
		return nil, fmt.Errorf("resolving image url: %w", err)
	}

	if err := s.usage.Track(ctx, FeatureImageGeneration, user.UserID); err != nil {
		return nil, fmt.Errorf("tracking image generation: %w", err)
	}

	return &GeneratedImage{ImageURL: imageURL}, nil
}

// ImageURL returns the URL of the current user's newest image for a video
func (s *ImageService) ImageURL(ctx context.Context, videoID string) (string, bool, error) {
	user, err := requireIdentity(ctx, s.auth)
	if err != nil {
		return "", false, err
	}
	ref, ok, err := s.store.LookupImageRef(ctx, videoID, user.UserID)
	if err != nil || !ok {
		return "", false, err
	}
	u, err := s.blobs.URL(ctx, ref)
	if err != nil {
		return "", false, fmt.Errorf("resolving image url: %w", err)
	}
	return u, true, nil
}
