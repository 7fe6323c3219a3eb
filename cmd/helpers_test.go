package cmd

import (
	"strings"
	"testing"

	"github.com/rtzll/tubeagent/internal"
)

func TestFormatTranscript(t *testing.T) {
	entries := []internal.TranscriptEntry{
		{Text: "hello", Timestamp: "0:00"},
		{Text: "gophers", Timestamp: "1:02"},
	}

	if got := formatTranscript(entries, false); got != "[0:00] hello\n[1:02] gophers\n" {
		t.Errorf("timestamped = %q", got)
	}
	if got := formatTranscript(entries, true); got != "hello\ngophers\n" {
		t.Errorf("raw = %q", got)
	}
	if got := formatTranscript(nil, false); got != "" {
		t.Errorf("empty = %q", got)
	}
}

func TestVideoIDArg(t *testing.T) {
	tests := []struct {
		arg     string
		want    string
		wantErr bool
	}{
		{"https://www.youtube.com/watch?v=tAP1eZYEuKA", "tAP1eZYEuKA", false},
		{"https://youtu.be/tAP1eZYEuKA", "tAP1eZYEuKA", false},
		{"tAP1eZYEuKA", "tAP1eZYEuKA", false},
		{"not a video", "", true},
	}
	for _, tt := range tests {
		got, err := videoIDArg(tt.arg)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("videoIDArg(%q) = (%q, %v)", tt.arg, got, err)
		}
	}
}

func TestAnalysisMarkdown(t *testing.T) {
	details := &internal.VideoDetails{
		Title:   "Go Channels",
		Channel: internal.ChannelDetails{Title: "Gopher TV", Subscribers: 1200},
		Views:   42,
	}

	got := analysisMarkdown("tAP1eZYEuKA", details, "https://tube.example.com/")
	for _, want := range []string{"# Go Channels", "**Gopher TV** (1200 subscribers)", "- Views: 42", "https://tube.example.com/video/tAP1eZYEuKA/analysis"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}

	fallback := analysisMarkdown("tAP1eZYEuKA", nil, "http://localhost:8080")
	if !strings.HasPrefix(fallback, "# "+internal.DefaultChatTitle) {
		t.Errorf("fallback = %q", fallback)
	}
}
