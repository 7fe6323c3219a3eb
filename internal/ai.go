package internal

import (
	"context"
	"fmt"
)

// Supported model providers
const (
	ProviderOpenAI = "openai"
	ProviderVertex = "vertex"
)

// SamplingParams tunes a single text generation
type SamplingParams struct {
	Temperature float64
	MaxTokens   int
}

// TextGenerator produces one completion for a prompt
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt, systemInstruction string, params SamplingParams) (string, error)
}

// ImageGenerator produces one image for a prompt
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt, aspectRatio string) (*ImageData, error)
}

// ToolSpec is a tool as the model sees it. Parameters is a JSON Schema object.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ChatTurn is everything a model needs for one streamed reply
type ChatTurn struct {
	System   string
	Messages []ChatMessage
	Tools    []ToolSpec
}

// ChatReply is the complete reply once the stream ends
type ChatReply struct {
	Text      string
	ToolCalls []ToolCall
}

// ChatModel streams one model reply, calling onDelta for each text fragment.
// Tool calls requested by the model are returned in the reply, not executed.
type ChatModel interface {
	StreamChat(ctx context.Context, turn ChatTurn, onDelta func(string) error) (*ChatReply, error)
}

// Provider bundles the three generative capabilities
type Provider interface {
	TextGenerator
	ImageGenerator
	ChatModel
}

// ModelSet names the model used for each capability
type ModelSet struct {
	Chat  string
	Title string
	Image string
}

// DefaultModels returns the models used when none are configured
func DefaultModels(provider string) (ModelSet, error) {
	switch provider {
	case ProviderOpenAI:
		return ModelSet{Chat: "gpt-4o-mini", Title: "gpt-4o-mini", Image: "dall-e-3"}, nil
	case ProviderVertex:
		return ModelSet{Chat: "gemini-1.5-pro", Title: "gemini-1.5-pro", Image: "imagen-3.0-generate-002"}, nil
	default:
		return ModelSet{}, fmt.Errorf("unsupported provider: %s (supported: %s, %s)", provider, ProviderOpenAI, ProviderVertex)
	}
}
