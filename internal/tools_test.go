package internal

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func testVideoTools(store *memoryStore, details VideoDetailer) VideoTools {
	auth := alice()
	usage := &fakeUsage{}
	return VideoTools{
		Transcripts: NewTranscriptService(auth, store, &fakeTranscriber{entries: []TranscriptEntry{{Text: "hi", Timestamp: "0:00"}}}, usage, discardLogger()),
		Titles:      NewTitleService(auth, &fakeTextGen{text: "A Title"}, store, usage, discardLogger()),
		Images:      NewImageService(auth, &fakeImageGen{image: &ImageData{Bytes: []byte("png"), MIMEType: "image/png"}}, &fakeBlobs{ref: "ref"}, store, usage, discardLogger()),
		Details:     details,
	}
}

func TestRegistryNames(t *testing.T) {
	r := testVideoTools(newMemoryStore(), &fakeDetails{}).Registry("vid")

	want := []string{"fetchTranscript", "generateTitle", "generateImage", "getVideoDetails", "extractVideoId"}
	specs := r.Specs()
	if len(specs) != len(want) {
		t.Fatalf("got %d tools, want %d", len(specs), len(want))
	}
	for i, name := range want {
		if specs[i].Name != name {
			t.Errorf("tool %d = %s, want %s", i, specs[i].Name, name)
		}
		if specs[i].Parameters["type"] != "object" {
			t.Errorf("%s parameters are not an object schema", name)
		}
	}
}

func TestImageToolBindsVideo(t *testing.T) {
	bound := testVideoTools(newMemoryStore(), &fakeDetails{}).Registry("vid")
	unbound := testVideoTools(newMemoryStore(), &fakeDetails{}).Registry("")

	boundTool, _ := bound.Lookup("generateImage")
	if _, ok := boundTool.Definition.InputSchema.Properties["videoId"]; ok {
		t.Error("bound image tool should not ask for a video ID")
	}
	unboundTool, _ := unbound.Lookup("generateImage")
	if _, ok := unboundTool.Definition.InputSchema.Properties["videoId"]; !ok {
		t.Error("unbound image tool should ask for a video ID")
	}
}

func TestRegistryCall(t *testing.T) {
	store := newMemoryStore()
	details := &fakeDetails{details: &VideoDetails{Title: "Gophers"}}
	r := testVideoTools(store, details).Registry("vid")
	ctx := context.Background()

	t.Run("fetchTranscript", func(t *testing.T) {
		out, err := r.Call(ctx, "fetchTranscript", json.RawMessage(`{"videoId":"vid"}`))
		if err != nil {
			t.Fatalf("Call: %v", err)
		}
		res, ok := out.(*TranscriptResult)
		if !ok || len(res.Transcript) != 1 || res.Cache != FreshTranscriptNote {
			t.Errorf("result = %#v", out)
		}
	})

	t.Run("generateTitle", func(t *testing.T) {
		out, err := r.Call(ctx, "generateTitle", json.RawMessage(`{"videoId":"vid","videoSummary":"sum","considerations":"none"}`))
		if err != nil {
			t.Fatalf("Call: %v", err)
		}
		if out.(map[string]any)["title"] != "A Title" {
			t.Errorf("result = %v", out)
		}
	})

	t.Run("generateImage", func(t *testing.T) {
		out, err := r.Call(ctx, "generateImage", json.RawMessage(`{"prompt":"a gopher"}`))
		if err != nil {
			t.Fatalf("Call: %v", err)
		}
		if img, ok := out.(*GeneratedImage); !ok || img.ImageURL != "https://cdn.example/ref" {
			t.Errorf("result = %#v", out)
		}
		if store.images[pairKey("vid", "alice")] != "ref" {
			t.Error("image should be recorded against the bound video")
		}
	})

	t.Run("getVideoDetails", func(t *testing.T) {
		out, err := r.Call(ctx, "getVideoDetails", json.RawMessage(`{"videoId":"vid"}`))
		if err != nil {
			t.Fatalf("Call: %v", err)
		}
		if got := out.(map[string]any)["videoDetails"].(*VideoDetails); got.Title != "Gophers" {
			t.Errorf("details = %+v", got)
		}

		missing := testVideoTools(newMemoryStore(), &fakeDetails{err: ErrNotFound}).Registry("vid")
		out, err = missing.Call(ctx, "getVideoDetails", json.RawMessage(`{"videoId":"gone"}`))
		if err != nil {
			t.Fatalf("Call: %v", err)
		}
		if v, ok := out.(map[string]any)["videoDetails"]; !ok || v != nil {
			t.Errorf("absent video should yield null details, got %v", out)
		}
	})

	t.Run("extractVideoId", func(t *testing.T) {
		out, err := r.Call(ctx, "extractVideoId", json.RawMessage(`{"url":"https://youtu.be/abc123?t=4"}`))
		if err != nil {
			t.Fatalf("Call: %v", err)
		}
		if out.(map[string]any)["videoId"] != "abc123" {
			t.Errorf("result = %v", out)
		}

		out, err = r.Call(ctx, "extractVideoId", json.RawMessage(`{"url":"https://example.com"}`))
		if err != nil {
			t.Fatalf("Call: %v", err)
		}
		if v, ok := out.(map[string]any)["videoId"]; !ok || v != nil {
			t.Errorf("unmatched url should yield a null video ID, got %v", out)
		}
	})
}

func TestRegistryValidation(t *testing.T) {
	var got map[string]any
	r := NewToolRegistry()
	r.Register(mcp.NewTool("echo",
		mcp.WithString("text", mcp.Required()),
		mcp.WithNumber("count"),
		mcp.WithBoolean("loud"),
		mcp.WithString("mode", mcp.Enum("whisper", "shout")),
	), func(ctx context.Context, args map[string]any) (any, error) {
		got = args
		return "ok", nil
	})

	tests := []struct {
		name    string
		tool    string
		args    string
		wantErr error
	}{
		{"valid", "echo", `{"text":"hi","count":2,"loud":true}`, nil},
		{"missing required", "echo", `{"count":2}`, ErrInvalidInput},
		{"null required", "echo", `{"text":null}`, ErrInvalidInput},
		{"wrong type", "echo", `{"text":3}`, ErrInvalidInput},
		{"wrong optional type", "echo", `{"text":"hi","loud":"yes"}`, ErrInvalidInput},
		{"allowed enum value", "echo", `{"text":"hi","mode":"shout"}`, nil},
		{"unknown enum value", "echo", `{"text":"hi","mode":"sing"}`, ErrInvalidInput},
		{"not an object", "echo", `["hi"]`, ErrInvalidInput},
		{"empty arguments", "echo", ``, ErrInvalidInput},
		{"unknown tool", "shout", `{}`, ErrUnknownTool},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Call(context.Background(), tt.tool, json.RawMessage(tt.args))
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Call: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := r.Call(context.Background(), "echo", json.RawMessage(`{"text":"hi","extra":1}`)); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if _, ok := got["extra"]; ok {
		t.Error("undeclared parameters should be dropped")
	}
}

func TestRegistryRegisterReplaces(t *testing.T) {
	r := NewToolRegistry()
	r.Register(mcp.NewTool("t"), func(ctx context.Context, args map[string]any) (any, error) { return 1, nil })
	r.Register(mcp.NewTool("t"), func(ctx context.Context, args map[string]any) (any, error) { return 2, nil })

	if len(r.Tools()) != 1 {
		t.Fatalf("got %d tools, want 1", len(r.Tools()))
	}
	out, err := r.Call(context.Background(), "t", nil)
	if err != nil || out != 2 {
		t.Errorf("Call = (%v, %v)", out, err)
	}
}
