// Package claude implements triage.Oracle on the Anthropic API.
package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/sift/internal/triage"
)

const systemPrompt = "You are a triage verifier for an intake pipeline. " +
	"You check deterministic classifications against the item content and " +
	"respond with a single JSON object, nothing else."

// Client calls the Anthropic Messages API and parses the reply into a
// triage.Classification.
type Client struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	logger    log.Logger
}

// New creates a new Claude oracle client.
func New(apiKey, model string, maxTokens int, logger log.Logger) *Client {
	if logger == nil {
		logger = log.Nop()
	}
	return &Client{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: int64(maxTokens),
		logger:    logger,
	}
}

// Classify sends the prompt and parses the JSON reply. A reply that
// fails validation is retried once with the validation error appended;
// a second failure is returned as an error so the caller can fall back.
func (c *Client) Classify(ctx context.Context, prompt string) (*triage.Classification, error) {
	cls, err := c.classifyOnce(ctx, prompt)
	if err == nil {
		return cls, nil
	}

	c.logger.Warn(ctx, "oracle reply rejected, retrying once", "error", err.Error())

	retryPrompt := prompt + fmt.Sprintf(
		"\n\nYour previous reply was rejected: %v\nRespond again with ONLY the JSON object.", err)
	cls, retryErr := c.classifyOnce(ctx, retryPrompt)
	if retryErr != nil {
		return nil, fmt.Errorf("classification rejected twice: %w", retryErr)
	}
	return cls, nil
}

func (c *Client) classifyOnce(ctx context.Context, prompt string) (*triage.Classification, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic api: %w", err)
	}

	text := ""
	for _, block := range message.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return nil, fmt.Errorf("no text content in response")
	}

	return ParseClassification(text)
}

// ParseClassification extracts a validated Classification from a model
// reply, tolerating markdown code fences around the JSON.
func ParseClassification(text string) (*triage.Classification, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var cls triage.Classification
	if err := json.Unmarshal([]byte(text), &cls); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if err := cls.Validate(); err != nil {
		return nil, fmt.Errorf("invalid classification: %w", err)
	}
	return &cls, nil
}
