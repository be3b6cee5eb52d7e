package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient implements Client using the OpenAI chat completion API
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
}

var _ Client = (*OpenAIClient)(nil)

// OpenAIClientOption configures the OpenAIClient
type OpenAIClientOption func(*OpenAIClient)

// WithChatModel overrides the chat model
func WithChatModel(model string) OpenAIClientOption {
	return func(c *OpenAIClient) {
		c.model = model
	}
}

// WithTemperature sets the sampling temperature
func WithTemperature(temperature float32) OpenAIClientOption {
	return func(c *OpenAIClient) {
		c.temperature = temperature
	}
}

// NewOpenAIClient creates a chat client using the given API key
func NewOpenAIClient(apiKey string, opts ...OpenAIClientOption) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	c := &OpenAIClient{
		client:      openai.NewClient(apiKey),
		model:       openai.GPT4oMini,
		temperature: 0.1,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Generate produces a completion for the prompt
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
