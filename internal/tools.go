package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ToolHandler executes a tool with arguments that already passed schema validation
type ToolHandler func(ctx context.Context, args map[string]any) (any, error)

// Tool couples a declared schema with its executor
type Tool struct {
	Definition mcp.Tool
	Handler    ToolHandler

	schema    *jsonschema.Schema
	schemaErr error
}

// ToolRegistry is an ordered set of named tools. Which tool to call is left
// to the model; the registry only validates and executes.
type ToolRegistry struct {
	tools []Tool
	index map[string]int
}

// NewToolRegistry creates an empty registry
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{index: make(map[string]int)}
}

// Register adds a tool, replacing any tool with the same name
func (r *ToolRegistry) Register(def mcp.Tool, handler ToolHandler) {
	tool := Tool{Definition: def, Handler: handler}
	tool.schema, tool.schemaErr = compileInputSchema(def)
	if i, ok := r.index[def.Name]; ok {
		r.tools[i] = tool
		return
	}
	r.index[def.Name] = len(r.tools)
	r.tools = append(r.tools, tool)
}

// compileInputSchema compiles a tool's input schema for argument validation
func compileInputSchema(def mcp.Tool) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schemaObject(def.InputSchema))
	if err != nil {
		return nil, fmt.Errorf("encoding %s schema: %w", def.Name, err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding %s schema: %w", def.Name, err)
	}

	loc := "https://" + AppName + ".local/tools/" + def.Name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(loc, doc); err != nil {
		return nil, fmt.Errorf("adding %s schema: %w", def.Name, err)
	}
	sch, err := c.Compile(loc)
	if err != nil {
		return nil, fmt.Errorf("compiling %s schema: %w", def.Name, err)
	}
	return sch, nil
}

// Tools returns the registered tools in registration order
func (r *ToolRegistry) Tools() []Tool {
	return r.tools
}

// Lookup finds a tool by name
func (r *ToolRegistry) Lookup(name string) (Tool, bool) {
	i, ok := r.index[name]
	if !ok {
		return Tool{}, false
	}
	return r.tools[i], true
}

// Specs describes the tools for a model provider
func (r *ToolRegistry) Specs() []ToolSpec {
	specs := make([]ToolSpec, 0, len(r.tools))
	for _, t := range r.tools {
		specs = append(specs, ToolSpec{
			Name:        t.Definition.Name,
			Description: t.Definition.Description,
			Parameters:  schemaObject(t.Definition.InputSchema),
		})
	}
	return specs
}

func schemaObject(schema mcp.ToolInputSchema) map[string]any {
	props := schema.Properties
	if props == nil {
		props = map[string]any{}
	}
	obj := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(schema.Required) > 0 {
		obj["required"] = schema.Required
	}
	return obj
}

// Call decodes raw JSON arguments, validates them against the tool's schema
// and runs the tool.
func (r *ToolRegistry) Call(ctx context.Context, name string, raw json.RawMessage) (any, error) {
	if _, ok := r.Lookup(name); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	args := map[string]any{}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, invalidInput(fmt.Sprintf("arguments for %s are not a JSON object: %v", name, err))
		}
	}
	return r.CallArgs(ctx, name, args)
}

// CallArgs is Call for arguments that are already decoded
func (r *ToolRegistry) CallArgs(ctx context.Context, name string, args map[string]any) (any, error) {
	tool, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := validateArgs(tool, args); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return tool.Handler(ctx, args)
}

// validateArgs checks args against the tool's input schema.
// Undeclared parameters are dropped.
func validateArgs(tool Tool, args map[string]any) error {
	if tool.schemaErr != nil {
		return tool.schemaErr
	}
	if err := tool.schema.Validate(args); err != nil {
		return invalidInput(fmt.Sprintf("invalid arguments: %v", err))
	}
	for name := range args {
		if _, ok := tool.Definition.InputSchema.Properties[name]; !ok {
			delete(args, name)
		}
	}
	return nil
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

// VideoTools are the services the chat tools proxy to
type VideoTools struct {
	Transcripts *TranscriptService
	Titles      *TitleService
	Images      *ImageService
	Details     VideoDetailer
}

// Registry builds the tool set for one conversation. When videoID is empty the
// image tool asks the model for the video ID instead of binding it.
func (vt VideoTools) Registry(videoID string) *ToolRegistry {
	r := NewToolRegistry()

	r.Register(mcp.NewTool("fetchTranscript",
		mcp.WithDescription("Fetch the transcript of a YouTube video in segments. Uses the copy saved in the database when the user transcribed the video before."),
		mcp.WithString("videoId", mcp.Description("The video ID to fetch the transcript for"), mcp.Required()),
	), func(ctx context.Context, args map[string]any) (any, error) {
		return vt.Transcripts.Transcript(ctx, stringArg(args, "videoId"))
	})

	r.Register(mcp.NewTool("generateTitle",
		mcp.WithDescription("Generate a concise, SEO friendly title for a YouTube video from a summary of its content"),
		mcp.WithString("videoId", mcp.Description("The video ID to generate a title for"), mcp.Required()),
		mcp.WithString("videoSummary", mcp.Description("A summary of the video to base the title on"), mcp.Required()),
		mcp.WithString("considerations", mcp.Description("Anything else the title should take into account")),
	), func(ctx context.Context, args map[string]any) (any, error) {
		title, err := vt.Titles.Generate(ctx, stringArg(args, "videoId"), stringArg(args, "videoSummary"), stringArg(args, "considerations"))
		if err != nil {
			return nil, err
		}
		return map[string]any{"title": title}, nil
	})

	imageOpts := []mcp.ToolOption{
		mcp.WithDescription("Generate a 16:9 thumbnail image for the video from a prompt"),
		mcp.WithString("prompt", mcp.Description("A description of the thumbnail to generate"), mcp.Required()),
	}
	if videoID == "" {
		imageOpts = append(imageOpts, mcp.WithString("videoId", mcp.Description("The video ID the thumbnail is for"), mcp.Required()))
	}
	r.Register(mcp.NewTool("generateImage", imageOpts...), func(ctx context.Context, args map[string]any) (any, error) {
		target := videoID
		if target == "" {
			target = stringArg(args, "videoId")
		}
		return vt.Images.Generate(ctx, target, stringArg(args, "prompt"))
	})

	r.Register(mcp.NewTool("getVideoDetails",
		mcp.WithDescription("Get the details of a YouTube video"),
		mcp.WithString("videoId", mcp.Description("The video ID to get the details for"), mcp.Required()),
	), func(ctx context.Context, args map[string]any) (any, error) {
		details, err := vt.Details.VideoDetails(ctx, stringArg(args, "videoId"))
		if errors.Is(err, ErrNotFound) {
			return map[string]any{"videoDetails": nil}, nil
		}
		if err != nil {
			return nil, err
		}
		return map[string]any{"videoDetails": details}, nil
	})

	r.Register(mcp.NewTool("extractVideoId",
		mcp.WithDescription("Extract the video ID from a URL"),
		mcp.WithString("url", mcp.Description("The URL to extract the video ID from"), mcp.Required()),
	), func(ctx context.Context, args map[string]any) (any, error) {
		id, ok := ExtractVideoID(stringArg(args, "url"))
		if !ok {
			return map[string]any{"videoId": nil}, nil
		}
		return map[string]any{"videoId": id}, nil
	})

	return r
}
