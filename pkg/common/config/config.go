package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers    []string
	KafkaAuditTopic string

	// LLM collaborator (OpenAI-compatible; DeepSeek works via base URL)
	LLMAPIKey      string
	LLMBaseURL     string
	LLMModelName   string
	LLMTemperature float64
	LLMMaxTokens   int
	AdviceTimeout  time.Duration

	// Knowledge base and safety rule files; empty means compiled-in defaults
	CatalogPath     string
	SafetyRulesPath string
	KeywordMapPath  string

	// Audit
	AuditFilePath     string
	AuditRedisKey     string
	AuditRedisMaxSize int64
	AuditRedisEnabled bool
	AuditKafkaEnabled bool
	HistoryDBEnabled  bool

	// Rate limiting
	RateLimitRPS   int
	RateLimitBurst int
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 1*1024*1024)),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "mediguide"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "mediguide123"),
		PostgresDB:       getEnv("POSTGRES_DB", "mediguide"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:    getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaAuditTopic: getEnv("KAFKA_AUDIT_TOPIC", "triage-events"),

		LLMAPIKey:      getEnv("LLM_API_KEY", ""),
		LLMBaseURL:     getEnv("LLM_BASE_URL", "https://api.deepseek.com/v1"),
		LLMModelName:   getEnv("LLM_MODEL_NAME", "deepseek-chat"),
		LLMTemperature: getFloatEnv("LLM_TEMPERATURE", 0.7),
		LLMMaxTokens:   getIntEnv("LLM_MAX_TOKENS", 512),
		AdviceTimeout:  getDuration("ADVICE_TIMEOUT", 20*time.Second),

		CatalogPath:     getEnv("CATALOG_PATH", ""),
		SafetyRulesPath: getEnv("SAFETY_RULES_PATH", ""),
		KeywordMapPath:  getEnv("KEYWORD_MAP_PATH", ""),

		AuditFilePath:     getEnv("AUDIT_FILE_PATH", "./data/query_history.json"),
		AuditRedisKey:     getEnv("AUDIT_REDIS_KEY", "triage:history"),
		AuditRedisMaxSize: int64(getIntEnv("AUDIT_REDIS_MAX_SIZE", 5000)),
		AuditRedisEnabled: getBoolEnv("AUDIT_REDIS_ENABLED", false),
		AuditKafkaEnabled: getBoolEnv("AUDIT_KAFKA_ENABLED", false),
		HistoryDBEnabled:  getBoolEnv("HISTORY_DB_ENABLED", true),

		RateLimitRPS:   getIntEnv("RATE_LIMIT_RPS", 50),
		RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 100),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return []string{value}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
