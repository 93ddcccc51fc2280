package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	Port        string
	StorageDir  string // directory the loader walks; uploads land here

	// Fallback model endpoints, used when no model_config row is active.
	ChatBaseURL  string
	ChatAPIKey   string
	ChatModel    string
	EmbedBaseURL string
	EmbedAPIKey  string
	EmbedModel   string
	GeminiAPIKey string

	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
}

// LoadConfig loads the environment variables and returns the config.
func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		Port:         getEnv("PORT", "8080"),
		StorageDir:   getEnv("STORAGE_DIR", "fileStorage"),
		ChatBaseURL:  getEnv("CHAT_BASE_URL", "https://dashscope.aliyuncs.com/compatible-mode/v1"),
		ChatAPIKey:   getEnv("CHAT_API_KEY", ""),
		ChatModel:    getEnv("CHAT_MODEL", "qwen-turbo"),
		EmbedBaseURL: getEnv("EMBED_BASE_URL", "https://dashscope.aliyuncs.com/compatible-mode/v1"),
		EmbedAPIKey:  getEnv("EMBED_API_KEY", ""),
		EmbedModel:   getEnv("EMBED_MODEL", "text-embedding-v3"),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		ChunkSize:    getEnvInt("CHUNK_SIZE", 800),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 150),
		BatchSize:    getEnvInt("BATCH_SIZE", 50),
	}

	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL not set")
		os.Exit(1)
	}
	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("env value is not an int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}
