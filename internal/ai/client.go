package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Client calls a vision-capable chat model to analyze payment proof images.
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	logger      *zap.Logger
}

// NewClient creates a new vision model client
func NewClient(apiKey, model string, temperature float32, maxTokens int, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		timeout:     timeout,
		logger:      logger,
	}
}

// Analyze sends the image and prompt to the model and returns the raw text
// response. The response is expected to contain a single JSON object but is
// returned verbatim; ParseAnalysis handles fences and malformed output.
// The call is bounded by the configured timeout and honors ctx cancellation.
func (c *Client) Analyze(ctx context.Context, image []byte, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	mimeType := DetectImageMIME(image)
	base64Img := base64.StdEncoding.EncodeToString(image)

	c.logger.Debug("Calling vision model",
		zap.String("model", c.model),
		zap.String("mime_type", mimeType),
		zap.Int("image_bytes", len(image)))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an expert analyst of Indonesian bank and e-wallet transfer receipts. You read amounts, dates, reference numbers and account details with high accuracy and you detect image manipulation. Always respond with valid JSON.",
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: prompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    fmt.Sprintf("data:%s;base64,%s", mimeType, base64Img),
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})

	if err != nil {
		c.logger.Error("Vision model call failed", zap.Error(err))
		return "", fmt.Errorf("vision model call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from vision model")
	}

	return resp.Choices[0].Message.Content, nil
}
