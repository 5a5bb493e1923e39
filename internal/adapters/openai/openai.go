package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	Timeout      time.Duration
	SystemPrompt string
}

var ErrEmptyReply = errors.New("model returned no choices")

type OpenAIAdapter struct {
	client *openai.Client
	cfg    Config
	logger zerolog.Logger
}

func NewOpenAIAdapter(cfg Config, logger zerolog.Logger) *OpenAIAdapter {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4o
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = "You are a helpful assistant in a secure chat app."
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}

	return &OpenAIAdapter{
		client: openai.NewClientWithConfig(oc),
		cfg:    cfg,
		logger: logger.With().Str("component", "openai").Logger(),
	}
}

// Chat sends a plain text message under the configured system prompt.
func (o *OpenAIAdapter) Chat(ctx context.Context, message string) (string, error) {
	return o.complete(ctx, "chat", []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: o.cfg.SystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: message},
	})
}

// Annotate sends prompt together with an image data URL as one user message.
func (o *OpenAIAdapter) Annotate(ctx context.Context, prompt, imageDataURL string) (string, error) {
	return o.complete(ctx, "annotate", []openai.ChatCompletionMessage{
		{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    imageDataURL,
						Detail: openai.ImageURLDetailAuto,
					},
				},
			},
		},
	})
}

func (o *OpenAIAdapter) complete(ctx context.Context, kind string, msgs []openai.ChatCompletionMessage) (string, error) {
	// tie the model timeout to the incoming ctx
	callCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:    o.cfg.Model,
		Messages: msgs,
	})
	if err != nil {
		o.logger.Error().Err(err).Str("call", kind).Dur("latency", time.Since(start)).Msg("chat completion failed")
		return "", fmt.Errorf("%s completion: %w", kind, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}

	o.logger.Debug().
		Str("call", kind).
		Str("model", resp.Model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Dur("latency", time.Since(start)).
		Msg("chat completion")

	return resp.Choices[0].Message.Content, nil
}
