package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// DefaultOpenAIModel модель по умолчанию
const DefaultOpenAIModel = "gpt-3.5-turbo"

// OpenAIClient сокращение инструкций и голосовые обновления через OpenAI
type OpenAIClient struct {
	client *openai.Client
	model  string
	logger *logrus.Logger
}

// NewOpenAIClient создает клиент; baseURL нужен для совместимых API и тестов
func NewOpenAIClient(apiKey, model, baseURL string, logger *logrus.Logger) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY is required")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}, nil
}

// Condense сокращает инструкцию до maxWords слов
func (c *OpenAIClient) Condense(ctx context.Context, instruction string, maxWords int) (string, error) {
	return c.complete(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: CondensePrompt(instruction, maxWords)},
		},
		Temperature: condenseTemperature,
		TopP:        condenseTopP,
		MaxTokens:   condenseMaxTokens,
	})
}

// Reply отвечает на запрос непрерывного режима
func (c *OpenAIClient) Reply(ctx context.Context, system, user string) (string, error) {
	return c.complete(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: replyTemperature,
		TopP:        replyTopP,
		MaxTokens:   replyMaxTokens,
	})
}

func (c *OpenAIClient) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai: failed to create completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	c.logger.Debugf("OpenAI ответ (%d токенов): %s", resp.Usage.TotalTokens, text)
	return text, nil
}
