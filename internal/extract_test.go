package internal

import "testing"

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		wantID string
		wantOK bool
	}{
		{"short link", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"short link with query", "https://youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ", true},
		{"short link with fragment", "https://youtu.be/dQw4w9WgXcQ#t=30", "dQw4w9WgXcQ", true},
		{"shorts", "https://www.youtube.com/shorts/abc123XYZ_-", "abc123XYZ_-", true},
		{"shorts with fragment", "https://youtube.com/shorts/abc123#t=5", "abc123", true},
		{"shorts with query", "https://youtube.com/shorts/abc123?feature=share", "abc123", true},
		{"watch", "https://www.youtube.com/watch?v=tAP1eZYEuKA", "tAP1eZYEuKA", true},
		{"watch with extra params", "https://www.youtube.com/watch?v=tAP1eZYEuKA&x=1", "tAP1eZYEuKA", true},
		{"watch param not first", "https://www.youtube.com/watch?feature=share&v=tAP1eZYEuKA&t=10", "tAP1eZYEuKA", true},
		{"no shape", "https://example.com/video/123", "", false},
		{"empty", "", "", false},
		{"empty short link segment", "https://youtu.be/", "", false},
		{"empty watch value", "https://www.youtube.com/watch?v=&t=1", "", false},
		// the short link shape wins even though a v= is present
		{"short link precedence", "https://youtu.be/?v=abc", "", false},
		{"no shape validation", "v=x", "x", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ExtractVideoID(tt.url)
			if id != tt.wantID || ok != tt.wantOK {
				t.Errorf("ExtractVideoID(%q) = (%q, %v), want (%q, %v)", tt.url, id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestParseArg(t *testing.T) {
	tests := []struct {
		arg     string
		wantURL string
		wantID  string
		wantErr bool
	}{
		{"tAP1eZYEuKA", "https://www.youtube.com/watch?v=tAP1eZYEuKA", "tAP1eZYEuKA", false},
		{"https://youtu.be/tAP1eZYEuKA", "https://youtu.be/tAP1eZYEuKA", "tAP1eZYEuKA", false},
		{"  https://www.youtube.com/watch?v=tAP1eZYEuKA ", "https://www.youtube.com/watch?v=tAP1eZYEuKA", "tAP1eZYEuKA", false},
		{"serve", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			url, id, err := ParseArg(tt.arg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseArg(%q) error = %v, wantErr %v", tt.arg, err, tt.wantErr)
			}
			if url != tt.wantURL || id != tt.wantID {
				t.Errorf("ParseArg(%q) = (%q, %q), want (%q, %q)", tt.arg, url, id, tt.wantURL, tt.wantID)
			}
		})
	}
}

func TestIsLikelyCommand(t *testing.T) {
	if !IsLikelyCommand("serv") {
		t.Error("expected 'serv' to look like a command")
	}
	if IsLikelyCommand("tAP1eZYEuKA") {
		t.Error("a video ID is not a command")
	}
	if IsLikelyCommand("https://youtu.be/abc") {
		t.Error("a URL is not a command")
	}
	got := SuggestCommands("serv", []string{"serve", "mcp", "chat"})
	if len(got) != 1 || got[0] != "serve" {
		t.Errorf("SuggestCommands = %v, want [serve]", got)
	}
}
