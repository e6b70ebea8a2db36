// Package api wraps the Anthropic SDK behind the small surface loom
// workers need: a shared client, per-call model selection, and a
// tool-use session loop.
package api

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"
)

// Client is a shared Anthropic client with run-wide token accounting.
// One client serves every worker and the judge; model selection happens
// per session, not per client.
type Client struct {
	inner   anthropic.Client
	bedrock bool
	tracker *TokenTracker
}

// ClientConfig configures client construction.
type ClientConfig struct {
	// APIKey is the Anthropic API key. Empty falls back to the
	// ANTHROPIC_API_KEY environment variable.
	APIKey string
	// UseAWSBedrock routes calls through AWS Bedrock instead of the
	// direct API.
	UseAWSBedrock bool
	// AWSRegion is the Bedrock region (e.g. "us-west-2").
	AWSRegion string
	// AWSProfile is an optional AWS shared-config profile name.
	AWSProfile string
}

// NewClient creates the shared API client.
func NewClient(cfg ClientConfig) (*Client, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		ctx := context.Background()

		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}

		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	return &Client{
		inner:   anthropic.NewClient(opts...),
		bedrock: cfg.UseAWSBedrock,
		tracker: NewTokenTracker(),
	}, nil
}

// sdk returns the underlying SDK client for in-package use.
func (c *Client) sdk() *anthropic.Client {
	return &c.inner
}

// Tracker returns the run-wide token tracker.
func (c *Client) Tracker() *TokenTracker {
	return c.tracker
}

// ResolveModel maps a model name to the form the active transport
// expects. Direct-API clients pass names through; Bedrock clients get
// cross-region inference-profile identifiers.
func (c *Client) ResolveModel(model anthropic.Model) anthropic.Model {
	if !c.bedrock {
		return model
	}
	return translateModelForBedrock(model)
}

// translateModelForBedrock converts standard Anthropic model names to
// Bedrock inference-profile format: us.anthropic.{model}-v1:0.
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	if strings.HasPrefix(string(model), "us.anthropic") {
		return model
	}

	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		anthropic.ModelClaudeOpus4_1_20250805:   "us.anthropic.claude-opus-4-1-20250805-v1:0",
		anthropic.ModelClaudeOpus4_5_20251101:   "us.anthropic.claude-opus-4-5-20251101-v1:0",
		anthropic.ModelClaude3_7Sonnet20250219:  "us.anthropic.claude-3-7-sonnet-20250219-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:   "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}

	if bedrockModel, ok := bedrockModels[model]; ok {
		return anthropic.Model(bedrockModel)
	}
	return model
}
