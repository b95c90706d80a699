package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIResponder answers unmatched messages with a chat completion.
type OpenAIResponder struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIResponder creates a responder. Model defaults to gpt-4o-mini and
// timeout to 10s when unset.
func NewOpenAIResponder(apiKey, model string, timeout time.Duration) (*OpenAIResponder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OpenAIResponder{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: timeout,
	}, nil
}

// Reply generates a grounded answer for the message.
func (r *OpenAIResponder) Reply(ctx context.Context, req ReplyRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     r.model,
		MaxTokens: 300,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildSystemPrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: req.Message},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty response")
	}
	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", fmt.Errorf("chat completion: blank reply")
	}
	return reply, nil
}
