package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// VertexConfig selects the Gemini backend. With a project the Vertex AI
// backend is used with application default credentials; otherwise APIKey is
// used against the Gemini API.
type VertexConfig struct {
	Project  string
	Location string
	APIKey   string
	BaseURL  string

	HTTPClient *http.Client
}

// VertexProvider implements Provider on Gemini and Imagen models
type VertexProvider struct {
	cfg     VertexConfig
	models  ModelSet
	timeout time.Duration

	client     *genai.Client
	clientErr  error
	clientOnce sync.Once
}

// NewVertexProvider creates a provider with lazy client initialization
func NewVertexProvider(cfg VertexConfig, models ModelSet, timeout time.Duration) *VertexProvider {
	return &VertexProvider{cfg: cfg, models: models, timeout: timeout}
}

func (p *VertexProvider) ensureClient(ctx context.Context) error {
	p.clientOnce.Do(func() {
		cc := &genai.ClientConfig{HTTPClient: p.cfg.HTTPClient}
		switch {
		case p.cfg.Project != "":
			cc.Backend = genai.BackendVertexAI
			cc.Project = p.cfg.Project
			cc.Location = p.cfg.Location
		case p.cfg.APIKey != "":
			cc.Backend = genai.BackendGeminiAPI
			cc.APIKey = p.cfg.APIKey
		default:
			p.clientErr = fmt.Errorf("vertex provider needs GOOGLE_CLOUD_PROJECT or a Gemini API key")
			return
		}
		if p.cfg.BaseURL != "" {
			cc.HTTPOptions = genai.HTTPOptions{BaseURL: p.cfg.BaseURL}
		}
		p.client, p.clientErr = genai.NewClient(ctx, cc)
	})
	return p.clientErr
}

func (p *VertexProvider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

// GenerateText implements TextGenerator
func (p *VertexProvider) GenerateText(ctx context.Context, prompt, systemInstruction string, params SamplingParams) (string, error) {
	if err := p.ensureClient(ctx); err != nil {
		return "", err
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	config := &genai.GenerateContentConfig{}
	if systemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}
	if params.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(params.Temperature))
	}
	if params.MaxTokens > 0 {
		config.MaxOutputTokens = int32(params.MaxTokens)
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.models.Title, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}
	return resp.Text(), nil
}

// GenerateImage implements ImageGenerator
func (p *VertexProvider) GenerateImage(ctx context.Context, prompt, aspectRatio string) (*ImageData, error) {
	if err := p.ensureClient(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	resp, err := p.client.Models.GenerateImages(ctx, p.models.Image, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    aspectRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("generating image: %w", err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, fmt.Errorf("no image data from Vertex AI")
	}

	img := resp.GeneratedImages[0].Image
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = http.DetectContentType(img.ImageBytes)
	}
	return &ImageData{Bytes: img.ImageBytes, MIMEType: mimeType}, nil
}

// StreamChat implements ChatModel
func (p *VertexProvider) StreamChat(ctx context.Context, turn ChatTurn, onDelta func(string) error) (*ChatReply, error) {
	if err := p.ensureClient(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	contents, err := genaiContents(turn.Messages)
	if err != nil {
		return nil, err
	}

	config := &genai.GenerateContentConfig{}
	if turn.System != "" {
		config.SystemInstruction = genai.NewContentFromText(turn.System, genai.RoleUser)
	}
	if len(turn.Tools) > 0 {
		tool := &genai.Tool{}
		for _, spec := range turn.Tools {
			tool.FunctionDeclarations = append(tool.FunctionDeclarations, &genai.FunctionDeclaration{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  genaiSchema(spec.Parameters),
			})
		}
		config.Tools = []*genai.Tool{tool}
	}

	reply := &ChatReply{}
	var text []byte
	for resp, err := range p.client.Models.GenerateContentStream(ctx, p.models.Chat, contents, config) {
		if err != nil {
			return nil, fmt.Errorf("streaming content: %w", err)
		}

		if delta := resp.Text(); delta != "" {
			text = append(text, delta...)
			if err := onDelta(delta); err != nil {
				return nil, err
			}
		}

		for _, fc := range resp.FunctionCalls() {
			args, err := json.Marshal(fc.Args)
			if err != nil {
				return nil, fmt.Errorf("encoding %s arguments: %w", fc.Name, err)
			}
			if fc.Args == nil {
				args = []byte("{}")
			}
			id := fc.ID
			if id == "" {
				id = "call_" + uuid.NewString()
			}
			reply.ToolCalls = append(reply.ToolCalls, ToolCall{ID: id, Name: fc.Name, Arguments: args})
		}
	}
	reply.Text = string(text)
	return reply, nil
}

// genaiContents converts the conversation. Consecutive tool results are
// grouped into one user turn following the model's function calls.
func genaiContents(messages []ChatMessage) ([]*genai.Content, error) {
	var contents []*genai.Content
	var pending []*genai.Part

	flush := func() {
		if len(pending) > 0 {
			contents = append(contents, genai.NewContentFromParts(pending, genai.RoleUser))
			pending = nil
		}
	}

	for _, m := range messages {
		if m.Role != RoleTool {
			flush()
		}
		switch m.Role {
		case RoleUser:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		case RoleAssistant:
			var parts []*genai.Part
			if m.Content != "" {
				parts = append(parts, genai.NewPartFromText(m.Content))
			}
			for _, tc := range m.ToolCalls {
				args := map[string]any{}
				if len(tc.Arguments) > 0 {
					if err := json.Unmarshal(tc.Arguments, &args); err != nil {
						return nil, fmt.Errorf("decoding %s arguments: %w", tc.Name, err)
					}
				}
				parts = append(parts, genai.NewPartFromFunctionCall(tc.Name, args))
			}
			if len(parts) > 0 {
				contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
			}
		case RoleTool:
			pending = append(pending, genai.NewPartFromFunctionResponse(m.Name, functionResponse(m.Content)))
		}
	}
	flush()
	return contents, nil
}

// functionResponse wraps a JSON tool result the way Gemini expects it
func functionResponse(content string) map[string]any {
	var v any
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		return map[string]any{"output": content}
	}
	if obj, ok := v.(map[string]any); ok {
		return obj
	}
	return map[string]any{"output": v}
}

var genaiTypes = map[string]genai.Type{
	"string":  genai.TypeString,
	"number":  genai.TypeNumber,
	"integer": genai.TypeInteger,
	"boolean": genai.TypeBoolean,
	"object":  genai.TypeObject,
	"array":   genai.TypeArray,
}

// genaiSchema converts a JSON Schema object to a Gemini schema
func genaiSchema(js map[string]any) *genai.Schema {
	if js == nil {
		return nil
	}
	s := &genai.Schema{}
	if t, ok := js["type"].(string); ok {
		s.Type = genaiTypes[t]
	}
	if d, ok := js["description"].(string); ok {
		s.Description = d
	}
	if props, ok := js["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if prop, ok := raw.(map[string]any); ok {
				s.Properties[name] = genaiSchema(prop)
			}
		}
	}
	switch req := js["required"].(type) {
	case []string:
		s.Required = req
	case []any:
		for _, r := range req {
			if name, ok := r.(string); ok {
				s.Required = append(s.Required, name)
			}
		}
	}
	if items, ok := js["items"].(map[string]any); ok {
		s.Items = genaiSchema(items)
	}
	return s
}
