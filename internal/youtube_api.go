package internal

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YouTubeDataAPI looks up video details through the YouTube Data API v3
type YouTubeDataAPI struct {
	apiKey string
	opts   []option.ClientOption

	svc     *youtube.Service
	svcErr  error
	svcOnce sync.Once
}

// NewYouTubeDataAPI creates a Data API client with lazy initialization
func NewYouTubeDataAPI(apiKey string, opts ...option.ClientOption) *YouTubeDataAPI {
	return &YouTubeDataAPI{apiKey: apiKey, opts: opts}
}

func (y *YouTubeDataAPI) service(ctx context.Context) (*youtube.Service, error) {
	y.svcOnce.Do(func() {
		if y.apiKey == "" {
			y.svcErr = fmt.Errorf("YouTube API key is not configured")
			return
		}
		opts := append([]option.ClientOption{option.WithAPIKey(y.apiKey)}, y.opts...)
		y.svc, y.svcErr = youtube.NewService(ctx, opts...)
	})
	return y.svc, y.svcErr
}

// VideoDetails implements VideoDetailer
func (y *YouTubeDataAPI) VideoDetails(ctx context.Context, videoID string) (*VideoDetails, error) {
	svc, err := y.service(ctx)
	if err != nil {
		return nil, err
	}

	videos, err := svc.Videos.List([]string{"snippet", "statistics"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("listing video %s: %w", videoID, err)
	}
	if len(videos.Items) == 0 || videos.Items[0].Snippet == nil {
		return nil, fmt.Errorf("%w: video %s", ErrNotFound, videoID)
	}
	video := videos.Items[0]

	details := &VideoDetails{
		Title:       video.Snippet.Title,
		Thumbnail:   bestThumbnail(video.Snippet.Thumbnails),
		PublishedAt: video.Snippet.PublishedAt,
		Channel:     ChannelDetails{Title: video.Snippet.ChannelTitle},
	}
	if stats := video.Statistics; stats != nil {
		details.Views = int64(stats.ViewCount)
		details.Likes = int64(stats.LikeCount)
		details.Comments = int64(stats.CommentCount)
	}

	if video.Snippet.ChannelId != "" {
		channels, err := svc.Channels.List([]string{"snippet", "statistics"}).Id(video.Snippet.ChannelId).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("listing channel %s: %w", video.Snippet.ChannelId, err)
		}
		if len(channels.Items) > 0 {
			ch := channels.Items[0]
			if ch.Snippet != nil {
				details.Channel.Title = ch.Snippet.Title
				details.Channel.Thumbnail = bestThumbnail(ch.Snippet.Thumbnails)
			}
			if ch.Statistics != nil {
				details.Channel.Subscribers = int64(ch.Statistics.SubscriberCount)
			}
		}
	}

	return details, nil
}

func bestThumbnail(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*youtube.Thumbnail{t.Maxres, t.High, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}
