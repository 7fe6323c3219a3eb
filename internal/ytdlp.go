package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lrstanley/go-ytdlp"
)

// WatchURL is the canonical watch page for a video
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// YouTube fetches captions and metadata through yt-dlp
type YouTube struct {
	cacheDir string
	logger   *slog.Logger

	installOnce sync.Once
	installErr  error
}

// NewYouTube creates a yt-dlp backed transcriber. Caption files are written to
// a scratch directory under cacheDir and removed after parsing.
func NewYouTube(cacheDir string, logger *slog.Logger) *YouTube {
	if logger == nil {
		logger = slog.Default()
	}
	return &YouTube{cacheDir: cacheDir, logger: logger}
}

// ensureInstalled downloads the yt-dlp binary on first use
func (yt *YouTube) ensureInstalled(ctx context.Context) error {
	yt.installOnce.Do(func() {
		if _, err := ytdlp.Install(ctx, nil); err != nil {
			yt.installErr = fmt.Errorf("installing yt-dlp: %w", err)
		}
	})
	return yt.installErr
}

// FetchTranscript implements Transcriber using English manual or automatic captions
func (yt *YouTube) FetchTranscript(ctx context.Context, videoID string) ([]TranscriptEntry, error) {
	if err := yt.ensureInstalled(ctx); err != nil {
		return nil, err
	}

	if err := EnsureDirs(yt.cacheDir); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	dir, err := os.MkdirTemp(yt.cacheDir, "subs-")
	if err != nil {
		return nil, fmt.Errorf("creating subtitle directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			yt.logger.Warn("removing subtitle directory", slog.String("dir", dir), slog.Any("error", err))
		}
	}()

	yt.logger.Debug("downloading subtitles", slog.String("video_id", videoID))

	dl := ytdlp.New().
		WriteSubs().
		WriteAutoSubs().
		SubLangs("en").
		SubFormat("json3").
		SkipDownload().
		NoPlaylist().
		Output(filepath.Join(dir, "%(id)s"))

	result, err := dl.Run(ctx, WatchURL(videoID))
	if err != nil {
		if result != nil {
			yt.logger.Debug("yt-dlp failed", slog.String("stderr", result.Stderr))
		}
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json3"))
	if err != nil || len(files) == 0 {
		return nil, fmt.Errorf("%w: no English captions for %s", ErrNotFound, videoID)
	}

	content, err := os.ReadFile(files[0])
	if err != nil {
		return nil, fmt.Errorf("reading subtitles: %w", err)
	}
	return parseJSON3(content)
}

type json3Captions struct {
	Events []struct {
		StartMs int64 `json:"tStartMs"`
		Segs    []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

// parseJSON3 turns YouTube's json3 caption events into transcript entries.
// Events without text, such as window styling, are skipped.
func parseJSON3(content []byte) ([]TranscriptEntry, error) {
	var captions json3Captions
	if err := json.Unmarshal(content, &captions); err != nil {
		return nil, fmt.Errorf("parsing subtitles: %w", err)
	}

	entries := make([]TranscriptEntry, 0, len(captions.Events))
	for _, ev := range captions.Events {
		var sb strings.Builder
		for _, seg := range ev.Segs {
			sb.WriteString(seg.UTF8)
		}
		text := strings.Join(strings.Fields(sb.String()), " ")
		if text == "" {
			continue
		}
		entries = append(entries, TranscriptEntry{Text: text, Timestamp: FormatTimestamp(ev.StartMs)})
	}
	return entries, nil
}

type ytdlpMetadata struct {
	Title           string `json:"title"`
	Thumbnail       string `json:"thumbnail"`
	Channel         string `json:"channel"`
	Uploader        string `json:"uploader"`
	ChannelFollower int64  `json:"channel_follower_count"`
	UploadDate      string `json:"upload_date"`
	ViewCount       int64  `json:"view_count"`
	LikeCount       int64  `json:"like_count"`
	CommentCount    int64  `json:"comment_count"`
}

// VideoDetails implements VideoDetailer from yt-dlp's metadata dump
func (yt *YouTube) VideoDetails(ctx context.Context, videoID string) (*VideoDetails, error) {
	if err := yt.ensureInstalled(ctx); err != nil {
		return nil, err
	}

	dl := ytdlp.New().
		DumpSingleJSON().
		NoPlaylist().
		SkipDownload()

	result, err := dl.Run(ctx, WatchURL(videoID))
	if err != nil {
		var stderr string
		if result != nil {
			stderr = result.Stderr
			yt.logger.Debug("yt-dlp failed", slog.String("stderr", stderr))
		}
		if videoUnavailable(err.Error() + "\n" + stderr) {
			return nil, fmt.Errorf("%w: video %s: %w", ErrNotFound, videoID, err)
		}
		return nil, fmt.Errorf("extracting video metadata: %w", err)
	}

	return parseYtdlpMetadata([]byte(result.Stdout))
}

// yt-dlp messages for videos that do not exist or cannot be viewed
var unavailableMarkers = []string{
	"video unavailable",
	"private video",
	"this video has been removed",
	"this video is not available",
	"this video does not exist",
	"incomplete youtube id",
}

func videoUnavailable(output string) bool {
	output = strings.ToLower(output)
	for _, m := range unavailableMarkers {
		if strings.Contains(output, m) {
			return true
		}
	}
	return false
}

func parseYtdlpMetadata(content []byte) (*VideoDetails, error) {
	var meta ytdlpMetadata
	if err := json.Unmarshal(content, &meta); err != nil {
		return nil, fmt.Errorf("parsing video metadata: %w", err)
	}

	channel := meta.Channel
	if channel == "" {
		channel = meta.Uploader
	}
	return &VideoDetails{
		Title:     meta.Title,
		Thumbnail: meta.Thumbnail,
		Channel: ChannelDetails{
			Title:       channel,
			Subscribers: meta.ChannelFollower,
		},
		PublishedAt: formatUploadDate(meta.UploadDate),
		Views:       meta.ViewCount,
		Likes:       meta.LikeCount,
		Comments:    meta.CommentCount,
	}, nil
}

// formatUploadDate turns yt-dlp's YYYYMMDD into YYYY-MM-DD
func formatUploadDate(d string) string {
	if len(d) != 8 {
		return d
	}
	return d[:4] + "-" + d[4:6] + "-" + d[6:]
}
