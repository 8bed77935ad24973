package common

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	LogLevel slog.Level
	Database DatabaseConfig
	OCR      OCRConfig
	LLM      LLMConfig
	Eval     EvalConfig
	Storage  StorageConfig
}

// DatabaseConfig holds database-related configuration. An empty DSN disables persistence.
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// OCRConfig holds text acquisition and page rendering configuration
type OCRConfig struct {
	Pdftoppm       string
	Tesseract      string
	TesseractLang  string
	TessdataDir    string
	OCRDPI         int
	VisionDPI      int
	MaxPages       int
	PDFTextBackend string // "native" | "docconv"
}

// LLMConfig holds extraction oracle configuration
type LLMConfig struct {
	Provider     string // "openai" | "gemini"
	Model        string
	APIKey       string
	BaseURL      string
	GeminiAPIKey string
	GeminiModel  string
	Temperature  float32
	Timeout      time.Duration
}

// EvalConfig holds evaluation harness configuration
type EvalConfig struct {
	Concurrency int
	Preference  string // "text" | "vision" | "text_then_vision"
	OutputPath  string
}

// StorageConfig holds report upload configuration
type StorageConfig struct {
	ReportDir    string
	ReportBucket string
	ReportPrefix string
	AwsRegion    string
	AwsAccessKey string
	AwsSecretKey string
}

// LoadConfig loads configuration from environment variables, reading an optional .env first.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		LogLevel: getEnvAsLevel("LOG_LEVEL", slog.LevelInfo),
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		OCR: OCRConfig{
			Pdftoppm:       getEnv("PDFTOPPM", "pdftoppm"),
			Tesseract:      getEnv("TESSERACT", "tesseract"),
			TesseractLang:  getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:    getEnv("TESSDATA_PREFIX", ""),
			OCRDPI:         getEnvAsInt("OCR_DPI", 300),
			VisionDPI:      getEnvAsInt("VISION_DPI", 150),
			MaxPages:       getEnvAsInt("MAX_PAGES", 0),
			PDFTextBackend: strings.ToLower(getEnv("PDF_TEXT_BACKEND", "native")),
		},
		LLM: LLMConfig{
			Provider:     strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
			Model:        getEnv("OPENAI_MODEL", "gpt-5-mini"),
			APIKey:       getEnv("OPENAI_API_KEY", ""),
			BaseURL:      getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
			GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
			Temperature:  getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:      getEnvAsDuration("LLM_TIMEOUT", 90*time.Second),
		},
		Eval: EvalConfig{
			Concurrency: getEnvAsInt("EVAL_CONCURRENCY", 1),
			Preference:  getEnv("EVAL_PREFERENCE", "text_then_vision"),
			OutputPath:  getEnv("EVAL_OUTPUT", "evaluation_results.json"),
		},
		Storage: StorageConfig{
			ReportDir:    getEnv("REPORT_DIR", ""),
			ReportBucket: getEnv("REPORT_BUCKET", ""),
			ReportPrefix: getEnv("REPORT_PREFIX", "evaluations/"),
			AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
			AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
			AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsLevel(key string, defaultValue slog.Level) slog.Level {
	if value := os.Getenv(key); value != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(value)); err == nil {
			return lvl
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("LLM_PROVIDER", c.LLM.Provider, OneOf("openai", "gemini")).
		Field("PDF_TEXT_BACKEND", c.OCR.PDFTextBackend, OneOf("native", "docconv")).
		Field("EVAL_PREFERENCE", c.Eval.Preference, OneOf("text", "vision", "text_then_vision")).
		Field("EVAL_CONCURRENCY", c.Eval.Concurrency, Positive)
	switch c.LLM.Provider {
	case "openai":
		v.Field("OPENAI_API_KEY", c.LLM.APIKey, Required)
	case "gemini":
		v.Field("GEMINI_API_KEY", c.LLM.GeminiAPIKey, Required)
	}
	if c.Storage.ReportBucket != "" {
		v.Field("AWS_REGION", c.Storage.AwsRegion, Required)
	}
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
