package services

import (
	"os"
	"strings"

	"tryonstudio/dbhelper"
)

func GetEnv(key, fallback string) string {
	value := os.Getenv(key)
	if len(value) == 0 {
		return fallback
	}
	return value
}

func StrPointer(str string) *string {
	if str == "" {
		return nil
	}
	return &str
}

func Int32Pointer(i int32) *int32 {
	return &i
}

func floatPointer(f float32) *float32 {
	return &f
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config is the process configuration gathered from the environment.
// The user's credential and quality preference are stored records, not config.
type Config struct {
	DB              dbhelper.DBConfig
	Provider        string
	OpenAIBaseURL   string
	GeminiBaseURL   string
	ListenAddr      string
	SentryDSN       string
	Env             string
	WhitenPackshots bool
}

func LoadConfig() Config {
	return Config{
		DB: dbhelper.DBConfig{
			Driver:   GetEnv("DB_DRIVER", "sqlite"),
			Path:     GetEnv("DB_PATH", "tryonstudio.db"),
			Host:     GetEnv("DB_HOST", "localhost"),
			Port:     GetEnv("DB_PORT", "5432"),
			Username: GetEnv("DB_USERNAME", "postgres"),
			Password: GetEnv("DB_PASSWORD", ""),
			Name:     GetEnv("DB_NAME", "tryonstudio"),
		},
		Provider:        strings.ToLower(GetEnv("PROVIDER", ProviderOpenAI)),
		OpenAIBaseURL:   GetEnv("OPENAI_BASE_URL", openAIEndpoint),
		GeminiBaseURL:   GetEnv("GEMINI_BASE_URL", ""),
		ListenAddr:      GetEnv("LISTEN_ADDR", "127.0.0.1:8083"),
		SentryDSN:       GetEnv("SENTRY_DSN", ""),
		Env:             GetEnv("ENV", "local"),
		WhitenPackshots: GetEnv("PACKSHOT_WHITEN", "false") == "true",
	}
}
