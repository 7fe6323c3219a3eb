package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// DefaultChatMaxSteps bounds the model/tool round trips in one chat turn
const DefaultChatMaxSteps = 5

// ChatRouter runs one streamed chat turn about a video, executing the tools
// the model asks for and feeding their results back.
type ChatRouter struct {
	auth     Authenticator
	model    ChatModel
	details  VideoDetailer
	prompts  *PromptManager
	tools    func(videoID string) *ToolRegistry
	maxSteps int
	logger   *slog.Logger
}

// NewChatRouter creates a chat router. maxSteps <= 0 uses DefaultChatMaxSteps.
func NewChatRouter(auth Authenticator, model ChatModel, details VideoDetailer, prompts *PromptManager, tools func(videoID string) *ToolRegistry, maxSteps int, logger *slog.Logger) *ChatRouter {
	if logger == nil {
		logger = slog.Default()
	}
	if maxSteps <= 0 {
		maxSteps = DefaultChatMaxSteps
	}
	if prompts == nil {
		prompts = NewPromptManager("", "")
	}
	return &ChatRouter{
		auth:     auth,
		model:    model,
		details:  details,
		prompts:  prompts,
		tools:    tools,
		maxSteps: maxSteps,
		logger:   logger,
	}
}

// Stream answers the conversation in req, calling emit for each event in
// order. The final event is EventDone unless an error is returned. Requests
// without an identity fail before any model call.
func (r *ChatRouter) Stream(ctx context.Context, req ChatRequest, emit func(ChatEvent) error) error {
	user, err := requireIdentity(ctx, r.auth)
	if err != nil {
		return err
	}

	logger := r.logger.With(slog.String("video_id", req.VideoID), slog.String("user_id", user.UserID))

	var details *VideoDetails
	if req.VideoID != "" && r.details != nil {
		details, err = r.details.VideoDetails(ctx, req.VideoID)
		if err != nil {
			logger.Warn("video details unavailable", slog.Any("error", err))
			details = nil
		}
	}

	system, err := r.prompts.SystemInstruction(req.VideoID, details)
	if err != nil {
		return fmt.Errorf("building system prompt: %w", err)
	}

	registry := NewToolRegistry()
	if r.tools != nil {
		registry = r.tools(req.VideoID)
	}

	messages := conversation(req.Messages)
	start := len(messages)
	for step := 0; step < r.maxSteps; step++ {
		reply, err := r.model.StreamChat(ctx, ChatTurn{
			System:   system,
			Messages: messages,
			Tools:    registry.Specs(),
		}, func(delta string) error {
			return emit(ChatEvent{Type: EventText, Text: delta})
		})
		if err != nil {
			return fmt.Errorf("streaming chat reply: %w", err)
		}

		if len(reply.ToolCalls) == 0 {
			logger.Debug("chat turn complete", slog.Int("steps", step+1))
			if reply.Text != "" {
				messages = append(messages, ChatMessage{Role: RoleAssistant, Content: reply.Text})
			}
			return emit(ChatEvent{Type: EventDone, Messages: messages[start:]})
		}

		messages = append(messages, ChatMessage{
			Role:      RoleAssistant,
			Content:   reply.Text,
			ToolCalls: reply.ToolCalls,
		})

		for _, call := range reply.ToolCalls {
			if err := emit(ChatEvent{Type: EventToolCall, ToolCall: &call}); err != nil {
				return err
			}

			result := r.runTool(ctx, logger, registry, call)
			if err := emit(ChatEvent{Type: EventToolResult, ToolCall: &call, Result: result}); err != nil {
				return err
			}

			content, err := json.Marshal(result)
			if err != nil {
				return fmt.Errorf("encoding %s result: %w", call.Name, err)
			}
			messages = append(messages, ChatMessage{
				Role:       RoleTool,
				Content:    string(content),
				ToolCallID: call.ID,
				Name:       call.Name,
			})
		}
	}

	logger.Warn("chat step limit reached", slog.Int("max_steps", r.maxSteps))
	return emit(ChatEvent{Type: EventDone, Messages: messages[start:]})
}

// runTool executes a tool call. Failures become an error object the model can
// explain to the user.
func (r *ChatRouter) runTool(ctx context.Context, logger *slog.Logger, registry *ToolRegistry, call ToolCall) any {
	logger = logger.With(slog.String("tool", call.Name))
	logger.Info("running tool")

	result, err := registry.Call(ctx, call.Name, call.Arguments)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("tool canceled")
		} else {
			logger.Error("tool failed", slog.Any("error", err))
		}
		return map[string]any{"error": err.Error()}
	}
	return result
}

// conversation keeps the client's user, assistant and tool messages. The
// system prompt is always built server side.
func conversation(in []ChatMessage) []ChatMessage {
	out := make([]ChatMessage, 0, len(in))
	for _, m := range in {
		switch m.Role {
		case RoleUser, RoleAssistant, RoleTool:
			out = append(out, m)
		}
	}
	return out
}
