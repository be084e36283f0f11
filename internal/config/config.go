package config

import (
	"log"
	"os"
	"strconv"

	"ai-recorder-be/internal/constant"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Auth       AuthConfig
	Capture    CaptureConfig
	Vision     VisionConfig
	Summarizer SummarizerConfig
	SMTP       SMTPConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type AuthConfig struct {
	// OperatorName labels the single operator account; the access key is
	// compared as a bcrypt hash. When only OPERATOR_ACCESS_KEY is set the
	// hash is derived at load time.
	OperatorName  string
	AccessKey     string
	AccessKeyHash string
}

type CaptureConfig struct {
	Prompt          string
	SummarizeTopic  string
	MediaGatewayURL string
}

type VisionConfig struct {
	Endpoint string
	APIKey   string
}

type SummarizerConfig struct {
	Endpoint          string
	APIKey            string
	Model             string
	RequestsPerMinute int
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
	DigestTo   string // session digest recipient, blank disables the digest
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Auth: AuthConfig{
			OperatorName:  getEnv("OPERATOR_NAME", "operator"),
			AccessKey:     getEnv("OPERATOR_ACCESS_KEY", ""),
			AccessKeyHash: getEnv("OPERATOR_ACCESS_KEY_HASH", ""),
		},
		Capture: CaptureConfig{
			Prompt:          getEnv("CAPTURE_PROMPT", constant.VisionDefaultPrompt),
			SummarizeTopic:  getEnv("SUMMARIZE_SESSION_TOPIC_NAME", "SUMMARIZE_SESSION"),
			MediaGatewayURL: getEnv("MEDIA_GATEWAY_URL", "http://localhost:8089"),
		},
		Vision: VisionConfig{
			Endpoint: getEnv("VISION_WS_ENDPOINT", "ws://localhost:8090/v1/realtime"),
			APIKey:   getEnv("VISION_API_KEY", ""),
		},
		Summarizer: SummarizerConfig{
			Endpoint:          getEnv("SUMMARIZER_ENDPOINT", "http://localhost:11434/v1/chat/completions"),
			APIKey:            getEnv("SUMMARIZER_API_KEY", ""),
			Model:             getEnv("SUMMARIZER_MODEL", "llama3.1:8b"),
			RequestsPerMinute: getEnvAsInt("SUMMARIZER_RPM", 20),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "AI Recorder"),
			DigestTo:   getEnv("SMTP_DIGEST_TO", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
