// Package llm wraps an OpenAI-compatible chat completions API behind the
// two call shapes the agents use: schema-constrained streaming generation
// and legacy function-calling completion.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sgrlabs/sgr-deep-research/pkg/models"
)

// Config carries the per-agent LLM settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	// Proxy routes API traffic through the given URL
	// (e.g. socks5://127.0.0.1:1081 or http://127.0.0.1:8080).
	Proxy string
}

// Usage reports token consumption for one LLM call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// StructuredRequest asks the model for a single JSON document conforming to
// Schema, streamed token by token.
type StructuredRequest struct {
	Messages   []models.Message
	SchemaName string
	Schema     map[string]any
	// OnDelta receives raw content deltas as they arrive. Optional.
	OnDelta func(delta string)
}

// StructuredResponse is the accumulated document plus usage, when the
// backend reports it.
type StructuredResponse struct {
	Content string
	Usage   Usage
}

// FunctionDefinition describes one callable function for the legacy
// function-calling API.
type FunctionDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// FunctionsRequest drives a unary function-calling completion.
type FunctionsRequest struct {
	Messages  []models.Message
	Functions []FunctionDefinition
	// ForceFunction pins the call to one function name; empty lets the
	// model choose ("auto").
	ForceFunction string
}

// FunctionsResponse carries the assistant text and the function call the
// model selected, if any.
type FunctionsResponse struct {
	Content      string
	FunctionCall *models.FunctionCall
	Usage        Usage
}

// Client is a thin adapter over the go-openai SDK. Safe for concurrent use.
type Client struct {
	api         *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// New builds a client for the given configuration.
func New(cfg Config) (*Client, error) {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		apiCfg.HTTPClient = &http.Client{
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}
	}
	return &Client{
		api:         openai.NewClientWithConfig(apiCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// schemaJSON adapts a schema map to the json.Marshaler the SDK's
// json_schema response format expects.
type schemaJSON map[string]any

func (s schemaJSON) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any(s))
}

// GenerateStructured streams a completion constrained to the given JSON
// schema and returns the accumulated document.
func (c *Client) GenerateStructured(ctx context.Context, req StructuredRequest) (*StructuredResponse, error) {
	stream, err := c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toOpenAIMessages(req.Messages),
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Stream:      true,
		StreamOptions: &openai.StreamOptions{
			IncludeUsage: true,
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.SchemaName,
				Schema: schemaJSON(req.Schema),
				Strict: true,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create completion stream: %w", err)
	}
	defer stream.Close()

	var content strings.Builder
	var usage Usage
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("receive stream chunk: %w", err)
		}
		if resp.Usage != nil {
			usage = usageFrom(*resp.Usage)
		}
		// The usage-only trailer chunk has no choices.
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		content.WriteString(delta)
		if req.OnDelta != nil {
			req.OnDelta(delta)
		}
	}
	return &StructuredResponse{Content: content.String(), Usage: usage}, nil
}

// CompleteWithFunctions performs a unary completion against the legacy
// functions API. It scans the legacy function_call field first and falls
// back to tool_calls for backends that only speak the newer shape.
func (c *Client) CompleteWithFunctions(ctx context.Context, req FunctionsRequest) (*FunctionsResponse, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toOpenAIMessages(req.Messages),
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Functions:   toOpenAIFunctions(req.Functions),
	}
	if req.ForceFunction != "" {
		chatReq.FunctionCall = map[string]string{"name": req.ForceFunction}
	} else {
		chatReq.FunctionCall = "auto"
	}

	resp, err := c.api.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("create completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("completion returned no choices")
	}

	msg := resp.Choices[0].Message
	out := &FunctionsResponse{Content: msg.Content, Usage: usageFrom(resp.Usage)}
	switch {
	case msg.FunctionCall != nil:
		out.FunctionCall = &models.FunctionCall{
			Name:      msg.FunctionCall.Name,
			Arguments: msg.FunctionCall.Arguments,
		}
	case len(msg.ToolCalls) > 0:
		out.FunctionCall = &models.FunctionCall{
			Name:      msg.ToolCalls[0].Function.Name,
			Arguments: msg.ToolCalls[0].Function.Arguments,
		}
	}
	return out, nil
}

func toOpenAIMessages(msgs []models.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		cm := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
		if m.FunctionCall != nil {
			cm.FunctionCall = &openai.FunctionCall{
				Name:      m.FunctionCall.Name,
				Arguments: m.FunctionCall.Arguments,
			}
		}
		for _, tc := range m.ToolCalls {
			cm.ToolCalls = append(cm.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		out = append(out, cm)
	}
	return out
}

func toOpenAIFunctions(fns []FunctionDefinition) []openai.FunctionDefinition {
	out := make([]openai.FunctionDefinition, 0, len(fns))
	for _, fn := range fns {
		out = append(out, openai.FunctionDefinition{
			Name:        fn.Name,
			Description: fn.Description,
			Parameters:  fn.Parameters,
		})
	}
	return out
}

func usageFrom(u openai.Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}
