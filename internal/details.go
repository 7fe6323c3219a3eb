package internal

import (
	"context"
	"errors"
	"fmt"
)

// VideoDetailer looks up display details for a video
type VideoDetailer interface {
	VideoDetails(ctx context.Context, videoID string) (*VideoDetails, error)
}

// FallbackDetailer tries each source in order and returns the first success
type FallbackDetailer []VideoDetailer

// VideoDetails implements VideoDetailer
func (f FallbackDetailer) VideoDetails(ctx context.Context, videoID string) (*VideoDetails, error) {
	if videoID == "" {
		return nil, invalidInput("video ID is required")
	}
	var errs []error
	for _, source := range f {
		if source == nil {
			continue
		}
		details, err := source.VideoDetails(ctx, videoID)
		if err == nil && details != nil {
			return details, nil
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: video %s", ErrNotFound, videoID)
	}
	return nil, errors.Join(errs...)
}
