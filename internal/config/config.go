package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/plantguardian/garden-helper/internal/logger"
)

type Config struct {
	TelegramToken string
	GeminiAPIKey  string
	API           APIConfig
	DB            DBConfig
	Redis         RedisConfig
	Logger        LoggerConfig
	AutoCheck     AutoCheckConfig
}

// APIConfig points at the Plant Guardian backend.
type APIConfig struct {
	BaseURL  string
	Timeout  time.Duration
	Language string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Host string
	Port string
}

type LoggerConfig struct {
	Level      logger.LogLevel
	OutputPath string
	Format     string
}

// AutoCheckConfig controls the periodic re-diagnosis task.
type AutoCheckConfig struct {
	Interval time.Duration
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logger.LevelDebug
	case "info":
		return logger.LevelInfo
	case "warn", "warning":
		return logger.LevelWarn
	case "error":
		return logger.LevelError
	default:
		return logger.LevelInfo
	}
}

func Load() (*Config, error) {
	cfg := &Config{
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		API: APIConfig{
			BaseURL:  getEnvOrDefault("PLANT_API_URL", "http://localhost:8000"),
			Timeout:  getDurationOrDefault("PLANT_API_TIMEOUT_SECONDS", 30*time.Second),
			Language: getEnvOrDefault("PLANT_API_LANGUAGE", "en"),
		},
		DB: DBConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getEnvOrDefault("DB_PORT", "5432"),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrDefault("DB_NAME", "garden_helper"),
		},
		Redis: RedisConfig{
			Host: getEnvOrDefault("REDIS_HOST", ""),
			Port: getEnvOrDefault("REDIS_PORT", "6379"),
		},
		Logger: LoggerConfig{
			Level:      parseLogLevel(getEnvOrDefault("LOG_LEVEL", "info")),
			OutputPath: getEnvOrDefault("LOG_OUTPUT", "logs/app.log"),
			Format:     getEnvOrDefault("LOG_FORMAT", "json"),
		},
		AutoCheck: AutoCheckConfig{
			Interval: getDurationOrDefault("AUTO_CHECK_INTERVAL_SECONDS", 2*time.Second),
		},
	}

	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	return cfg, nil
}
