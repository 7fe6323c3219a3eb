package internal

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIProvider implements Provider on the OpenAI API
type OpenAIProvider struct {
	apiKey  string
	models  ModelSet
	timeout time.Duration
	opts    []option.RequestOption

	client     *openai.Client
	clientOnce sync.Once
}

// NewOpenAIProvider creates a provider with lazy client initialization.
// Extra request options are passed to the SDK client (base URL, HTTP client).
func NewOpenAIProvider(apiKey string, models ModelSet, timeout time.Duration, opts ...option.RequestOption) *OpenAIProvider {
	return &OpenAIProvider{
		apiKey:  apiKey,
		models:  models,
		timeout: timeout,
		opts:    opts,
	}
}

// ensureClient initializes the OpenAI client if needed
func (p *OpenAIProvider) ensureClient() error {
	if p.apiKey == "" {
		return ValidateOpenAIAPIKey("")
	}

	p.clientOnce.Do(func() {
		opts := append([]option.RequestOption{option.WithAPIKey(p.apiKey)}, p.opts...)
		client := openai.NewClient(opts...)
		p.client = &client
	})

	return nil
}

func (p *OpenAIProvider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

// GenerateText implements TextGenerator
func (p *OpenAIProvider) GenerateText(ctx context.Context, prompt, systemInstruction string, params SamplingParams) (string, error) {
	if err := p.ensureClient(); err != nil {
		return "", err
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	var messages []openai.ChatCompletionMessageParamUnion
	if systemInstruction != "" {
		messages = append(messages, openai.SystemMessage(systemInstruction))
	}
	messages = append(messages, openai.UserMessage(prompt))

	req := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.models.Title),
		Messages: messages,
	}
	if params.Temperature > 0 {
		req.Temperature = openai.Float(params.Temperature)
	}
	if params.MaxTokens > 0 {
		req.MaxCompletionTokens = openai.Int(int64(params.MaxTokens))
	}

	resp, err := p.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return "", fmt.Errorf("creating chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateImage implements ImageGenerator
func (p *OpenAIProvider) GenerateImage(ctx context.Context, prompt, aspectRatio string) (*ImageData, error) {
	if err := p.ensureClient(); err != nil {
		return nil, err
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	model := p.models.Image
	req := openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(model),
		N:      openai.Int(1),
		Size:   openai.ImageGenerateParamsSize(openAIImageSize(model, aspectRatio)),
	}
	// gpt-image models always return base64 and reject response_format
	if strings.HasPrefix(model, "dall-e") {
		req.ResponseFormat = openai.ImageGenerateParamsResponseFormatB64JSON
	}

	resp, err := p.client.Images.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generating image: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("no image data from OpenAI")
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return &ImageData{Bytes: data, MIMEType: http.DetectContentType(data)}, nil
}

// openAIImageSize maps an aspect ratio to the closest size the model accepts
func openAIImageSize(model, aspectRatio string) string {
	switch {
	case model == "dall-e-2":
		return "1024x1024"
	case strings.HasPrefix(model, "gpt-image"):
		switch aspectRatio {
		case "16:9":
			return "1536x1024"
		case "9:16":
			return "1024x1536"
		}
	default:
		switch aspectRatio {
		case "16:9":
			return "1792x1024"
		case "9:16":
			return "1024x1792"
		}
	}
	return "1024x1024"
}

// StreamChat implements ChatModel
func (p *OpenAIProvider) StreamChat(ctx context.Context, turn ChatTurn, onDelta func(string) error) (*ChatReply, error) {
	if err := p.ensureClient(); err != nil {
		return nil, err
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	req := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.models.Chat),
		Messages: openAIMessages(turn),
	}
	for _, spec := range turn.Tools {
		req.Tools = append(req.Tools, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        spec.Name,
			Description: openai.String(spec.Description),
			Parameters:  openai.FunctionParameters(spec.Parameters),
		}))
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, req)
	defer stream.Close()

	acc := openai.ChatCompletionAccumulator{}
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)

		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			if err := onDelta(chunk.Choices[0].Delta.Content); err != nil {
				return nil, err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("streaming chat completion: %w", err)
	}

	reply := &ChatReply{}
	if len(acc.Choices) == 0 {
		return reply, nil
	}
	msg := acc.Choices[0].Message
	reply.Text = msg.Content
	for _, tc := range msg.ToolCalls {
		args := json.RawMessage(tc.Function.Arguments)
		if len(args) == 0 {
			args = json.RawMessage("{}")
		}
		reply.ToolCalls = append(reply.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return reply, nil
}

func openAIMessages(turn ChatTurn) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turn.Messages)+1)
	if turn.System != "" {
		messages = append(messages, openai.SystemMessage(turn.System))
	}

	for _, m := range turn.Messages {
		switch m.Role {
		case RoleUser:
			messages = append(messages, openai.UserMessage(m.Content))
		case RoleTool:
			messages = append(messages, openai.ToolMessage(m.Content, m.ToolCallID))
		case RoleAssistant:
			if len(m.ToolCalls) == 0 {
				messages = append(messages, openai.AssistantMessage(m.Content))
				continue
			}
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(m.Content)}
			}
			for _, tc := range m.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: tc.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      tc.Name,
							Arguments: string(tc.Arguments),
						},
					},
				})
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		}
	}
	return messages
}
