package internal

import (
	"fmt"
	"regexp"
	"strings"
)

// idMatcher pairs a URL shape test with the extractor for that shape
type idMatcher struct {
	name    string
	match   func(string) bool
	extract func(string) string
}

// videoIDMatchers are evaluated in order; the first shape that matches decides
// the result even when it yields an empty segment.
var videoIDMatchers = []idMatcher{
	{name: "short link", match: containsFunc("youtu.be/"), extract: segmentAfter("youtu.be/", "?#")},
	{name: "shorts", match: containsFunc("youtube.com/shorts/"), extract: segmentAfter("shorts/", "?#")},
	{name: "watch", match: containsFunc("v="), extract: segmentAfter("v=", "&")},
}

func containsFunc(marker string) func(string) bool {
	return func(s string) bool { return strings.Contains(s, marker) }
}

// segmentAfter returns the text between the first and second occurrence of
// marker, cut at the first of stops.
func segmentAfter(marker, stops string) func(string) string {
	return func(s string) string {
		parts := strings.Split(s, marker)
		if len(parts) < 2 {
			return ""
		}
		segment := parts[1]
		if i := strings.IndexAny(segment, stops); i >= 0 {
			segment = segment[:i]
		}
		return segment
	}
}

// ExtractVideoID returns the video identifier embedded in a YouTube URL.
// No validation of the identifier's shape is done.
func ExtractVideoID(rawURL string) (string, bool) {
	for _, m := range videoIDMatchers {
		if !m.match(rawURL) {
			continue
		}
		id := m.extract(rawURL)
		return id, id != ""
	}
	return "", false
}

// AnalysisPath is where a video's analysis page lives
func AnalysisPath(videoID string) string {
	return fmt.Sprintf("/video/%s/analysis", videoID)
}

// ParseArg normalizes a command line argument (URL or bare video ID)
// into a watch URL and video ID.
func ParseArg(arg string) (string, string, error) {
	arg = strings.TrimSpace(arg)
	if id, ok := ExtractVideoID(arg); ok {
		return arg, id, nil
	}
	if IsValidYouTubeID(arg) {
		return "https://www.youtube.com/watch?v=" + arg, arg, nil
	}
	return "", "", fmt.Errorf("'%s' doesn't look like a YouTube URL or video ID", arg)
}

var youtubeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// IsValidYouTubeID checks if a string looks like a valid YouTube video ID
func IsValidYouTubeID(id string) bool {
	return youtubeIDPattern.MatchString(id)
}

// IsLikelyCommand checks if a string looks like it might be a mistyped command
func IsLikelyCommand(arg string) bool {
	if _, ok := ExtractVideoID(arg); ok {
		return false
	}
	return len(arg) <= 10 && !IsValidYouTubeID(arg)
}

// SuggestCommands returns the commands that look similar to arg
func SuggestCommands(arg string, commands []string) []string {
	input := strings.ToLower(arg)
	var suggestions []string
	for _, cmd := range commands {
		if strings.Contains(cmd, input) || strings.Contains(input, cmd) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}
