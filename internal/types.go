package internal

import (
	"encoding/json"
	"time"
)

// Feature is a metered capability. Its String value is the usage event name.
type Feature int

const (
	FeatureUnknown Feature = iota
	FeatureTranscription
	FeatureTitleGenerations
	FeatureImageGeneration
)

// String returns the usage event name for the feature
func (f Feature) String() string {
	switch f {
	case FeatureTranscription:
		return "transcription"
	case FeatureTitleGenerations:
		return "title_generations"
	case FeatureImageGeneration:
		return "image_generation"
	default:
		return "unknown"
	}
}

// Identity is the signed-in user a request acts for
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
}

// TranscriptEntry is one captioned segment, in playback order
type TranscriptEntry struct {
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// TranscriptResult is what the transcript orchestrator hands back.
// Cache carries the human readable provenance note.
type TranscriptResult struct {
	Transcript []TranscriptEntry `json:"transcript"`
	Cache      string            `json:"cache"`
	Cached     bool              `json:"cached"`
}

// GeneratedTitle is one entry in a user's title history for a video
type GeneratedTitle struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// GeneratedImage references a stored thumbnail
type GeneratedImage struct {
	ImageURL string `json:"imageUrl"`
}

// ImageData is raw model output before it is uploaded
type ImageData struct {
	Bytes    []byte
	MIMEType string
}

// ChannelDetails describes the channel that published a video
type ChannelDetails struct {
	Title       string `json:"title"`
	Thumbnail   string `json:"thumbnail"`
	Subscribers int64  `json:"subscribers"`
}

// VideoDetails is the metadata shown next to a video
type VideoDetails struct {
	Title       string         `json:"title"`
	Thumbnail   string         `json:"thumbnail"`
	Channel     ChannelDetails `json:"channel"`
	PublishedAt string         `json:"publishedAt"`
	Views       int64          `json:"views"`
	Likes       int64          `json:"likes"`
	Comments    int64          `json:"comments"`
}

// Chat roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatMessage is a provider neutral chat message
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"toolCalls,omitempty"`
	ToolCallID string     `json:"toolCallId,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolCall is a model's request to run a named tool
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ChatRequest is the body of a chat turn
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
	VideoID  string        `json:"videoId"`
}

// Chat event types streamed to the caller
const (
	EventText       = "text"
	EventToolCall   = "tool_call"
	EventToolResult = "tool_result"
	EventError      = "error"
	EventDone       = "done"
)

// ChatEvent is one incremental unit of a streamed chat response
type ChatEvent struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ToolCall *ToolCall `json:"toolCall,omitempty"`
	Result   any       `json:"result,omitempty"`
	Error    string    `json:"error,omitempty"`

	// Messages on EventDone are the assistant and tool messages this turn
	// added to the conversation.
	Messages []ChatMessage `json:"messages,omitempty"`
}
