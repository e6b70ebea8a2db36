package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
)

// ToolRunner executes one tool call and returns its textual result.
// isError marks the result as a tool failure for the model without
// aborting the session.
type ToolRunner interface {
	Execute(ctx context.Context, name string, input json.RawMessage) (content string, isError bool)
}

// SessionConfig configures a Session.
type SessionConfig struct {
	Client *Client
	// Model is the model for every call in this session.
	Model anthropic.Model
	// System is the system prompt.
	System string
	// Tools are the schemas offered to the model. Empty means a plain
	// text exchange with no tool loop.
	Tools []anthropic.ToolUnionParam
	// Runner executes tool calls. Required when Tools is non-empty.
	Runner ToolRunner
	// MaxTokens caps each response. Zero defaults to 4096.
	MaxTokens int64
	// MaxIterations caps API calls per Run. Zero defaults to 20.
	MaxIterations int
}

// Session is one model conversation loop: send prompt, execute any
// requested tool calls, feed results back, repeat until the model stops.
// Sessions are cheap; workers create one and reuse it across retries.
type Session struct {
	client        *Client
	model         anthropic.Model
	system        string
	tools         []anthropic.ToolUnionParam
	runner        ToolRunner
	maxTokens     int64
	maxIterations int
}

// NewSession creates a session from the given configuration.
func NewSession(cfg SessionConfig) *Session {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = 20
	}

	return &Session{
		client:        cfg.Client,
		model:         cfg.Client.ResolveModel(cfg.Model),
		system:        cfg.System,
		tools:         cfg.Tools,
		runner:        cfg.Runner,
		maxTokens:     maxTokens,
		maxIterations: maxIter,
	}
}

// Run executes the session loop for one user prompt and returns the
// model's final text output.
func (s *Session) Run(ctx context.Context, userPrompt string) (string, error) {
	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
	}

	for iteration := 0; iteration < s.maxIterations; iteration++ {
		resp, err := s.client.sdk().Messages.New(ctx, anthropic.MessageNewParams{
			Model:     s.model,
			MaxTokens: s.maxTokens,
			System: []anthropic.TextBlockParam{
				{Text: s.system},
			},
			Messages: messages,
			Tools:    s.tools,
		})
		if err != nil {
			return "", fmt.Errorf("API call failed: %w", err)
		}

		s.client.Tracker().Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

		var assistantBlocks []anthropic.ContentBlockParamUnion
		var toolResultBlocks []anthropic.ContentBlockParamUnion
		var textOutput string

		for _, block := range resp.Content {
			switch variant := block.AsAny().(type) {
			case anthropic.TextBlock:
				textOutput += variant.Text
				assistantBlocks = append(assistantBlocks, anthropic.NewTextBlock(variant.Text))

			case anthropic.ToolUseBlock:
				assistantBlocks = append(assistantBlocks,
					anthropic.NewToolUseBlock(variant.ID, variant.Input, variant.Name))

				content, isErr := s.executeTool(ctx, variant.Name, variant.Input)
				toolResultBlocks = append(toolResultBlocks,
					anthropic.NewToolResultBlock(variant.ID, content, isErr))
			}
		}

		if resp.StopReason == anthropic.StopReasonEndTurn {
			return textOutput, nil
		}

		messages = append(messages, anthropic.NewAssistantMessage(assistantBlocks...))
		if len(toolResultBlocks) > 0 {
			messages = append(messages, anthropic.NewUserMessage(toolResultBlocks...))
		}
	}

	return "", fmt.Errorf("max iterations (%d) reached", s.maxIterations)
}

func (s *Session) executeTool(ctx context.Context, name string, input json.RawMessage) (string, bool) {
	if s.runner == nil {
		return fmt.Sprintf("tool %s is not available in this session", name), true
	}
	return s.runner.Execute(ctx, name, input)
}

// Complete makes a single tool-free call and returns the text response.
// Used for judge evaluations and instruction generation.
func Complete(ctx context.Context, client *Client, model anthropic.Model, system, userPrompt string) (string, error) {
	resp, err := client.sdk().Messages.New(ctx, anthropic.MessageNewParams{
		Model:     client.ResolveModel(model),
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", err
	}

	client.Tracker().Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var result string
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			result += variant.Text
		}
	}
	return result, nil
}
