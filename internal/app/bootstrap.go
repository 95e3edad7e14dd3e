// Package app собирает зависимости сервиса из конфигурации.
// Используется сервером и утилитой отчета.
package app

import (
	"context"
	"fmt"

	"route-safety-go/internal/client"
	"route-safety-go/internal/config"
	"route-safety-go/internal/crash"
	"route-safety-go/internal/narration"
	"route-safety-go/internal/risk"
	"route-safety-go/internal/service"

	"github.com/sirupsen/logrus"
)

// NewLogger создает JSON логгер с уровнем из конфигурации
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logger.Warnf("Неизвестный уровень логирования %q, используется info", level)
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// OpenCrashSource открывает источник записей об авариях.
// Возвращаемую функцию нужно вызвать после загрузки.
func OpenCrashSource(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (crash.Source, func(), error) {
	switch cfg.Crash.Source {
	case "postgres":
		src, err := crash.NewPostgresSource(ctx, cfg.Crash.DatabaseURL, cfg.Crash.Table, logger)
		if err != nil {
			return nil, nil, err
		}
		return src, src.Close, nil
	case "sqlite":
		src, err := crash.NewSQLiteSource(ctx, cfg.Crash.SQLitePath, cfg.Crash.Table, logger)
		if err != nil {
			return nil, nil, err
		}
		return src, func() {
			if err := src.Close(); err != nil {
				logger.Warnf("Ошибка закрытия SQLite: %v", err)
			}
		}, nil
	default:
		return crash.NewCSVSource(cfg.Crash.CSVPath, logger), func() {}, nil
	}
}

// TrainModel загружает данные и обучает поверхность риска
func TrainModel(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*risk.Surface, error) {
	source, closeSource, err := OpenCrashSource(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open crash source: %w", err)
	}
	defer closeSource()

	opts := risk.Options{
		Trees:              cfg.Model.Trees,
		Seed:               cfg.Model.Seed,
		ValidationFraction: cfg.Model.ValidationFraction,
		MinSamplesLeaf:     cfg.Model.MinSamplesLeaf,
	}
	return service.TrainFromSource(ctx, source, cfg.Model.GridSize, opts, logger)
}

// TextService объединяет оба вида обращений к текстовому сервису
type TextService interface {
	narration.Condenser
	narration.Conversation
}

// NewTextService выбирает текстовый сервис по LLM_PROVIDER.
// Для "none" и при ошибке создания возвращается nil: подсказки работают без сокращения.
func NewTextService(ctx context.Context, cfg *config.Config, logger *logrus.Logger) TextService {
	var (
		svc TextService
		err error
	)

	switch cfg.LLM.Provider {
	case "openai":
		var c *client.OpenAIClient
		c, err = client.NewOpenAIClient(cfg.LLM.OpenAIKey, cfg.LLM.OpenAIModel, cfg.LLM.OpenAIBaseURL, logger)
		if err == nil {
			svc = c
		}
	case "gemini":
		var c *client.GeminiClient
		c, err = client.NewGeminiClient(ctx, cfg.LLM.GeminiKey, cfg.LLM.GeminiModel, logger)
		if err == nil {
			svc = c
		}
	default:
		logger.Info("Текстовый сервис отключен")
		return nil
	}

	if err != nil {
		logger.Warnf("Текстовый сервис %s недоступен: %v", cfg.LLM.Provider, err)
		return nil
	}
	logger.Infof("Текстовый сервис: %s", cfg.LLM.Provider)
	return svc
}

// NewNarrationEngine создает движок подсказок
func NewNarrationEngine(ctx context.Context, cfg *config.Config, fence narration.Geofence, logger *logrus.Logger) (*narration.Engine, error) {
	prompt, err := narration.LoadPromptTemplate(cfg.Narration.PromptPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load voice prompt: %w", err)
	}

	opts := narration.Options{
		WordBudget:    cfg.Narration.WordBudget,
		CondenseWords: cfg.Narration.CondenseWords,
		BufferMeters:  cfg.Hotspots.BufferMeters,
		Timeout:       cfg.LLM.Timeout,
	}

	text := NewTextService(ctx, cfg, logger)
	if text == nil {
		return narration.NewEngine(fence, nil, nil, prompt, opts, logger), nil
	}
	return narration.NewEngine(fence, text, text, prompt, opts, logger), nil
}
