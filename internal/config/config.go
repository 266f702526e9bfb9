package config

import (
	"fmt"
	"os"
	"time"
)

// Config 应用配置
type Config struct {
	Env         string
	AppSecret   string
	DatabaseURL string
	Port        string

	// 流媒体目录 API（RapidAPI）
	RapidAPIKey  string
	RapidAPIHost string

	// 生成式模型
	GeminiAPIKey string
	GeminiModel  string

	// 本地嵌入服务（Ollama）
	OllamaHost  string
	OllamaModel string

	// 缓存 TTL（按命名空间区分）
	DetailCacheTTL time.Duration // movie_<id> / search_<query>
	ListCacheTTL   time.Duration // popular_movies / top_movies_<service>

	TokenExpiry time.Duration
}

// Load 加载配置
func Load() *Config {
	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbName := getEnv("DB_NAME", "cinechat")
	dbSSL := getEnv("DB_SSLMODE", "disable")

	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPass, dbHost, dbPort, dbName, dbSSL)

	appSecret := getEnv("APP_SECRET", "your-secret-key-change-in-production")
	if getEnv("APP_ENV", "development") == "production" && appSecret == "your-secret-key-change-in-production" {
		fmt.Println("【严重警告】生产环境正在使用默认密钥！请立即设置 APP_SECRET 环境变量。")
	}

	return &Config{
		Env:            getEnv("APP_ENV", "development"),
		AppSecret:      appSecret,
		DatabaseURL:    dbURL,
		Port:           getEnv("PORT", "5005"),
		RapidAPIKey:    getEnv("RAPID_API_KEY", ""),
		RapidAPIHost:   getEnv("RAPID_API_HOST", "streaming-availability.p.rapidapi.com"),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OllamaHost:     getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:    getEnv("OLLAMA_MODEL", "nomic-embed-text"),
		DetailCacheTTL: 24 * time.Hour,
		ListCacheTTL:   1 * time.Hour,
		TokenExpiry:    30 * 24 * time.Hour,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
