// Package llm talks to an OpenAI-compatible chat completion endpoint.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/rcliao/companion/internal/model"
)

// Defaults for an OpenRouter deployment.
const (
	DefaultBaseURL     = "https://openrouter.ai/api/v1"
	DefaultModel       = "x-ai/grok-4.1-fast:free"
	DefaultVisionModel = "meta-llama/llama-4-scout:free"
	DefaultMaxTokens   = 150
)

const (
	imagePrompt       = "Briefly describe this image in 1-2 sentences, focusing on the main subject and any emotions or context it conveys."
	imageMaxTokens    = 100
	imageFallback     = "An image was shared"
	ImageErrorMessage = "A beautiful moment captured"
)

// ModelInfo describes a model offered to clients.
type ModelInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Tier   string `json:"tier"`
	Vision bool   `json:"vision,omitempty"`
}

// Models is the catalogue exposed by the relay.
var Models = []ModelInfo{
	{ID: "x-ai/grok-4.1-fast:free", Name: "Grok 4.1 Fast", Tier: "free"},
	{ID: "meta-llama/llama-4-scout:free", Name: "Llama 4 Scout", Tier: "free", Vision: true},
	{ID: "nvidia/nemotron-nano-12b-v2-vl:free", Name: "Nemotron Nano 12B", Tier: "free"},
}

// Config configures a Client.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	VisionModel string
	MaxTokens   int
	// Timeout bounds each call. Zero leaves the deadline to the caller's context.
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Request is one chat completion call.
type Request struct {
	Model     string // empty means the configured model
	Messages  []model.ChatMessage
	MaxTokens int // zero means the configured limit
}

// Response is a finished completion.
type Response struct {
	Content    string `json:"content"`
	TokensUsed int    `json:"tokens_used"`
}

// Client wraps the OpenAI SDK client. The SDK's own retries are disabled.
type Client struct {
	client      openai.Client
	model       string
	visionModel string
	maxTokens   int
	timeout     time.Duration
	log         *zap.Logger
}

// New creates a Client, filling unset fields with defaults.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = DefaultVisionModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(withTrailingSlash(cfg.BaseURL)),
		option.WithHTTPClient(cfg.HTTPClient),
		option.WithMaxRetries(0),
	}

	return &Client{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		visionModel: cfg.VisionModel,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		log:         cfg.Logger,
	}
}

// Model returns the default chat model.
func (c *Client) Model() string { return c.model }

// Complete runs a non-streaming completion.
func (c *Client) Complete(ctx context.Context, r Request) (*Response, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	params := c.params(r)
	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	// A reply without choices is an empty message, not a failure.
	out := &Response{TokensUsed: int(resp.Usage.TotalTokens)}
	if len(resp.Choices) > 0 {
		out.Content = resp.Choices[0].Message.Content
	}
	c.log.Debug("completion finished",
		zap.String("model", string(params.Model)),
		zap.Int("tokens", out.TokensUsed),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

// Stream runs a streaming completion and calls onDelta for every non-empty
// content chunk. An error from onDelta stops the stream and is returned.
func (c *Client) Stream(ctx context.Context, r Request, onDelta func(string) error) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	stream := c.client.Chat.Completions.NewStreaming(ctx, c.params(r))
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if s := chunk.Choices[0].Delta.Content; s != "" {
			if err := onDelta(s); err != nil {
				return err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("chat stream: %w", err)
	}
	return nil
}

// DescribeImage asks the vision model for a short description of an image.
// An empty answer yields a generic description.
func (c *Client) DescribeImage(ctx context.Context, imageURL string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(c.visionModel),
		MaxTokens: openai.Int(imageMaxTokens),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(imagePrompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: imageURL}),
			}),
		},
	})
	if err != nil {
		return "", fmt.Errorf("describe image: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return imageFallback, nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) params(r Request) openai.ChatCompletionNewParams {
	modelName := r.Model
	if modelName == "" {
		modelName = c.model
	}
	maxTokens := r.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	return openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(modelName),
		MaxTokens: openai.Int(int64(maxTokens)),
		Messages:  toParams(r.Messages),
	}
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func toParams(msgs []model.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case model.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case model.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func withTrailingSlash(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}
