// Package llm adapts the Genkit model API to the session's Model
// interface. Tool execution stays on the caller's side: every generate
// call sets return-tool-requests so the session loop owns dispatch,
// guards, and auto-chaining instead of the framework.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/evihealth/evi/internal/log"
	"github.com/evihealth/evi/internal/session"
	"github.com/evihealth/evi/internal/tools"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "googleai/gemini-2.5-flash"

// Config contains all required parameters for the client.
type Config struct {
	Genkit   *genkit.Genkit
	Registry *tools.Registry
	Logger   log.Logger

	// ModelName overrides DefaultModel when set.
	ModelName string
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.Registry == nil {
		return errors.New("tool registry is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Client implements session.Model on Genkit. Safe for concurrent use.
type Client struct {
	g         *genkit.Genkit
	modelName string
	logger    log.Logger

	// toolRefs maps registered tool names to their Genkit handles so each
	// request can advertise exactly the set the session selected.
	toolRefs map[string]ai.ToolRef
}

// New registers every tool from the registry with Genkit and returns the
// client. Tools are registered once; per-request filtering happens by ref.
func New(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	modelName := cfg.ModelName
	if modelName == "" {
		modelName = DefaultModel
	}

	refs := make(map[string]ai.ToolRef)
	for _, t := range cfg.Registry.Definitions(true) {
		tool := t
		refs[tool.Name] = genkit.DefineTool(cfg.Genkit, tool.Name, tool.Description,
			func(ctx *ai.ToolContext, input map[string]any) (any, error) {
				// Reached only if a caller opts out of return-tool-requests.
				return tool.Run(ctx, input)
			})
	}

	cfg.Logger.Info("llm client initialized", "model", modelName, "tools", len(refs))
	return &Client{
		g:         cfg.Genkit,
		modelName: modelName,
		logger:    cfg.Logger,
		toolRefs:  refs,
	}, nil
}

// Generate runs one model invocation and returns its text and any
// requested tool calls without executing them.
func (c *Client) Generate(ctx context.Context, req *session.ModelRequest) (*session.ModelResponse, error) {
	messages, err := toGenkitMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	opts := []ai.GenerateOption{
		ai.WithModelName(c.modelName),
		ai.WithMessages(messages...),
		ai.WithReturnToolRequests(true),
	}
	if req.MaxOutputTokens > 0 {
		opts = append(opts, ai.WithConfig(&ai.GenerationCommonConfig{
			MaxOutputTokens: req.MaxOutputTokens,
		}))
	}
	if len(req.Tools) > 0 {
		refs := make([]ai.ToolRef, 0, len(req.Tools))
		for _, t := range req.Tools {
			ref, ok := c.toolRefs[t.Name]
			if !ok {
				return nil, fmt.Errorf("tool %q is not registered", t.Name)
			}
			refs = append(refs, ref)
		}
		opts = append(opts, ai.WithTools(refs...))
		choice := ai.ToolChoiceAuto
		if req.ToolChoice == session.ToolChoiceNone {
			choice = ai.ToolChoiceNone
		}
		opts = append(opts, ai.WithToolChoice(choice))
	}

	resp, err := genkit.Generate(ctx, c.g, opts...)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	out := &session.ModelResponse{Text: resp.Text()}
	for _, tr := range resp.ToolRequests() {
		args, _ := tr.Input.(map[string]any)
		out.ToolCalls = append(out.ToolCalls, session.ToolCall{
			Ref:  tr.Ref,
			Name: tr.Name,
			Args: args,
		})
	}

	c.logger.Debug("model response",
		"text_length", len(out.Text),
		"tool_calls", len(out.ToolCalls))
	return out, nil
}

// toGenkitMessages converts the session transcript into Genkit messages.
// Assistant tool requests and tool outputs must round-trip with their refs
// intact or the backend rejects the continuation.
func toGenkitMessages(msgs []session.Message) ([]*ai.Message, error) {
	out := make([]*ai.Message, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case session.RoleSystem:
			out = append(out, &ai.Message{
				Role:    ai.RoleSystem,
				Content: []*ai.Part{ai.NewTextPart(m.Content)},
			})
		case session.RoleUser:
			out = append(out, ai.NewUserMessage(ai.NewTextPart(m.Content)))
		case session.RoleAssistant:
			var parts []*ai.Part
			if m.Content != "" {
				parts = append(parts, ai.NewTextPart(m.Content))
			}
			for _, tc := range m.ToolRequests {
				parts = append(parts, ai.NewToolRequestPart(&ai.ToolRequest{
					Name:  tc.Name,
					Ref:   tc.Ref,
					Input: tc.Args,
				}))
			}
			if len(parts) == 0 {
				parts = append(parts, ai.NewTextPart(""))
			}
			out = append(out, ai.NewModelMessage(parts...))
		case session.RoleTool:
			var parts []*ai.Part
			for _, to := range m.ToolOutputs {
				parts = append(parts, ai.NewToolResponsePart(&ai.ToolResponse{
					Name:   to.Name,
					Ref:    to.Ref,
					Output: to.Output,
				}))
			}
			out = append(out, &ai.Message{Role: ai.RoleTool, Content: parts})
		default:
			return nil, fmt.Errorf("unknown message role %q", m.Role)
		}
	}
	return out, nil
}
