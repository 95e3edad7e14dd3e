package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config структура конфигурации приложения
type Config struct {
	Server struct {
		Port        int
		Host        string
		Environment string
		HealthPort  int // порт gRPC health, 0 = выключен
	}
	Directions struct {
		APIKey  string
		BaseURL string
		Timeout time.Duration
	}
	Crash struct {
		Source      string // csv | postgres | sqlite
		CSVPath     string
		DatabaseURL string
		SQLitePath  string
		Table       string
	}
	Model struct {
		GridSize           float64
		Trees              int
		Seed               int64
		ValidationFraction float64
		MinSamplesLeaf     int
	}
	Hotspots struct {
		Source       string // путь или URL GeoJSON
		BufferMeters float64
		AxisOrder    string // latlng | lnglat
	}
	LLM struct {
		Provider      string // openai | gemini | none
		OpenAIKey     string
		OpenAIModel   string
		OpenAIBaseURL string
		GeminiKey     string
		GeminiModel   string
		Timeout       time.Duration
	}
	Narration struct {
		WordBudget    int
		CondenseWords int
		PromptPath    string
	}
	Database struct {
		Enabled  bool
		Host     string
		Port     string
		Name     string
		User     string
		Password string
		SSLMode  string
	}
	Logging struct {
		Level string
	}
}

// LoadConfig загружает конфигурацию из переменных окружения.
// Файлы .env подхватываются, если существуют; уже заданные переменные не перезаписываются.
func LoadConfig(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{}

	// Конфигурация сервера
	cfg.Server.Port = getEnvInt("SERVER_PORT", 8080)
	cfg.Server.Host = getEnv("SERVER_HOST", "0.0.0.0")
	cfg.Server.Environment = getEnv("ENVIRONMENT", "development")
	cfg.Server.HealthPort = getEnvInt("GRPC_HEALTH_PORT", 9090)

	// Провайдер маршрутов
	cfg.Directions.APIKey = getEnv("GOOGLE_MAPS_API_KEY", "")
	cfg.Directions.BaseURL = getEnv("DIRECTIONS_BASE_URL", "https://maps.googleapis.com/maps/api/directions/json")
	cfg.Directions.Timeout = getEnvSeconds("DIRECTIONS_TIMEOUT_SECONDS", 10*time.Second)

	// Исторические данные об авариях
	cfg.Crash.Source = strings.ToLower(getEnv("CRASH_SOURCE", "csv"))
	cfg.Crash.CSVPath = getEnv("CRASH_CSV_PATH", "data.csv")
	cfg.Crash.DatabaseURL = getEnv("CRASH_DATABASE_URL", "")
	cfg.Crash.SQLitePath = getEnv("CRASH_SQLITE_PATH", "crashes.db")
	cfg.Crash.Table = getEnv("CRASH_TABLE", "crashes")

	// Модель риска
	cfg.Model.GridSize = getEnvFloat("GRID_SIZE", 0.01)
	cfg.Model.Trees = getEnvInt("MODEL_TREES", 100)
	cfg.Model.Seed = int64(getEnvInt("MODEL_SEED", 42))
	cfg.Model.ValidationFraction = getEnvFloat("MODEL_VALIDATION_FRACTION", 0.2)
	cfg.Model.MinSamplesLeaf = getEnvInt("MODEL_MIN_SAMPLES_LEAF", 1)

	// Зоны с высокой аварийностью
	cfg.Hotspots.Source = getEnv("HOTSPOT_SOURCE", "output_files/high_crash_zones.geojson")
	cfg.Hotspots.BufferMeters = getEnvFloat("HOTSPOT_BUFFER_METERS", 50)
	cfg.Hotspots.AxisOrder = strings.ToLower(getEnv("HOTSPOT_AXIS_ORDER", "latlng"))

	// Текстовые сервисы
	cfg.LLM.Provider = strings.ToLower(getEnv("LLM_PROVIDER", "openai"))
	cfg.LLM.OpenAIKey = getEnv("OPENAI_API_KEY", "")
	cfg.LLM.OpenAIModel = getEnv("OPENAI_MODEL", "gpt-3.5-turbo")
	cfg.LLM.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", "")
	cfg.LLM.GeminiKey = getEnv("GEMINI_API_KEY", "")
	cfg.LLM.GeminiModel = getEnv("GEMINI_MODEL", "gemini-2.5-flash")
	cfg.LLM.Timeout = getEnvSeconds("LLM_TIMEOUT_SECONDS", 15*time.Second)

	// Подсказки
	cfg.Narration.WordBudget = getEnvInt("NARRATION_WORD_BUDGET", 28)
	cfg.Narration.CondenseWords = getEnvInt("NARRATION_CONDENSE_WORDS", 20)
	cfg.Narration.PromptPath = getEnv("VOICE_PROMPT_PATH", "")

	// История анализов
	cfg.Database.Enabled = getEnvBool("DB_ENABLED", false)
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnv("DB_PORT", "5432")
	cfg.Database.Name = getEnv("DB_NAME", "route_safety")
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.SSLMode = getEnv("DB_SSL_MODE", "disable")

	// Конфигурация логирования
	cfg.Logging.Level = getEnv("LOG_LEVEL", "info")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет допустимые значения
func (c *Config) Validate() error {
	switch c.Crash.Source {
	case "csv", "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown CRASH_SOURCE %q", c.Crash.Source)
	}
	if c.Crash.Source == "postgres" && c.Crash.DatabaseURL == "" {
		return fmt.Errorf("CRASH_DATABASE_URL is required for postgres crash source")
	}
	switch c.LLM.Provider {
	case "openai", "gemini", "none":
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider)
	}
	switch c.Hotspots.AxisOrder {
	case "latlng", "lnglat":
	default:
		return fmt.Errorf("unknown HOTSPOT_AXIS_ORDER %q", c.Hotspots.AxisOrder)
	}
	if c.Model.GridSize <= 0 {
		return fmt.Errorf("GRID_SIZE must be positive, got %v", c.Model.GridSize)
	}
	return nil
}

// DSN строка подключения gorm к базе истории анализов
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password, c.Database.Name, c.Database.SSLMode,
	)
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает int значение переменной окружения или возвращает значение по умолчанию
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvSeconds читает длительность в секундах
func getEnvSeconds(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil && f > 0 {
			return time.Duration(f * float64(time.Second))
		}
	}
	return defaultValue
}
