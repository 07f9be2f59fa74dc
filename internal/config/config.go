package config

import (
	"fmt"
	"os"
	"strconv"

	"pricescan/internal/logger"
)

type Config struct {
	// OCR.space Configuration
	OCRSpaceAPIKey   string
	OCRSpaceEndpoint string

	// Hugging Face Configuration
	HFAPIKey   string
	HFOCRModel string

	// Google Cloud Configuration
	GoogleCredentials        string
	GoogleCredentialsFile    string
	GoogleCloudProject       string
	GoogleCloudLocation      string
	DocumentAIProcessorID    string

	// Recognition Configuration
	OCRLanguage         string
	ConfidenceThreshold float64
	UseGoogleVision     bool
	UseDocumentAI       bool
	UseOCRSpace         bool
	UseTrOCR            bool
	UseTesseract        bool

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		OCRSpaceAPIKey:        getEnv("OCR_SPACE_API_KEY", ""),
		OCRSpaceEndpoint:      getEnv("OCR_SPACE_ENDPOINT", ""),
		HFAPIKey:              getEnv("HF_API_KEY", ""),
		HFOCRModel:            getEnv("HF_OCR_MODEL", ""),
		GoogleCredentials:     getEnv("GOOGLE_CREDENTIALS", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		GoogleCloudProject:    getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:   getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID: getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		OCRLanguage:           getEnv("OCR_LANGUAGE", "spa"),
		ConfidenceThreshold:   getFloatEnv("CONFIDENCE_THRESHOLD", 60),
		UseGoogleVision:       getBoolEnv("USE_GOOGLE_VISION", true),
		UseDocumentAI:         getBoolEnv("USE_DOCUMENT_AI", false),
		UseOCRSpace:           getBoolEnv("USE_OCR_SPACE", true),
		UseTrOCR:              getBoolEnv("USE_TROCR", false),
		UseTesseract:          getBoolEnv("USE_TESSERACT", true),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:         getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:             getEnv("LOG_OUTPUT", "stdout"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 100 {
		return fmt.Errorf("CONFIDENCE_THRESHOLD must be between 0 and 100")
	}
	if c.UseOCRSpace && c.OCRSpaceAPIKey == "" {
		return fmt.Errorf("OCR_SPACE_API_KEY is required when USE_OCR_SPACE is enabled")
	}
	if c.UseTrOCR && c.HFAPIKey == "" {
		return fmt.Errorf("HF_API_KEY is required when USE_TROCR is enabled")
	}
	if c.UseDocumentAI && (c.GoogleCloudProject == "" || c.DocumentAIProcessorID == "") {
		return fmt.Errorf("GOOGLE_CLOUD_PROJECT and DOCUMENT_AI_PROCESSOR_ID are required when USE_DOCUMENT_AI is enabled")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getFloatEnv(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}
