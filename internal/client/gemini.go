package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

// DefaultGeminiModel модель по умолчанию
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiClient сокращение инструкций и голосовые обновления через Gemini
type GeminiClient struct {
	client *genai.Client
	model  string
	logger *logrus.Logger
}

// NewGeminiClient создает клиент Gemini API
func NewGeminiClient(ctx context.Context, apiKey, model string, logger *logrus.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	return newGeminiClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}, model, logger)
}

func newGeminiClient(ctx context.Context, cfg *genai.ClientConfig, model string, logger *logrus.Logger) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{client: client, model: model, logger: logger}, nil
}

// Condense сокращает инструкцию до maxWords слов
func (g *GeminiClient) Condense(ctx context.Context, instruction string, maxWords int) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(condenseTemperature)),
		TopP:            genai.Ptr(float32(condenseTopP)),
		MaxOutputTokens: int32(condenseMaxTokens),
	}
	text, err := g.generate(ctx, CondensePrompt(instruction, maxWords), config)
	if err != nil {
		return "", err
	}
	// Разметка не нужна для синтеза речи
	return strings.TrimSpace(strings.ReplaceAll(text, "*", "")), nil
}

// Reply отвечает на запрос непрерывного режима. Ответ возвращается как есть, без пробелов по краям.
func (g *GeminiClient) Reply(ctx context.Context, system, user string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(float32(replyTemperature)),
		TopP:              genai.Ptr(float32(replyTopP)),
		MaxOutputTokens:   int32(replyMaxTokens),
	}
	return g.generate(ctx, user, config)
}

func (g *GeminiClient) generate(ctx context.Context, message string, config *genai.GenerateContentConfig) (string, error) {
	resp, err := g.client.Models.GenerateContent(
		ctx,
		g.model,
		[]*genai.Content{genai.NewContentFromText(message, genai.RoleUser)},
		config,
	)
	if err != nil {
		return "", fmt.Errorf("gemini: failed to generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	g.logger.Debugf("Gemini ответ: %s", text)
	return text, nil
}
