package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HttpPort     string
	AppEnv       string
	AllowOrigins string

	// conversation store: "postgres" or "memory"
	StoreType string

	// Postgres
	Host     string
	User     string
	Password string
	DBName   string
	Port     string

	// Redis, optional
	RedisURL string

	// LLM defaults, overridden by saved settings
	LLMAPIKey       string
	LLMBaseURL      string
	LLMModel        string
	LLMMaxTokens    int
	LLMTemperature  float64
	LLMTopP         float64
	LLMSystemPrompt string

	// time to let late deltas settle after a stop request
	StopGracePeriod time.Duration

	// S3/MinIO, optional; used for transcript export
	StorageType     string //"minio" or "s3"
	BucketEndpoint  string
	BucketAccessID  string
	BucketAccessKey string
	BucketName      string
	BucketRegion    string
	UseSSL          bool
	ExportURLTTL    time.Duration
}

func defaults(v *viper.Viper) {
	v.SetDefault("PORT", "3000")
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("ALLOWORIGINS", "*")
	v.SetDefault("STORE_TYPE", "memory")
	v.SetDefault("PG_PORT", "5432")
	v.SetDefault("LLM_BASE_URL", "https://api.openai.com/v1/")
	v.SetDefault("LLM_MODEL", "gpt-4o-mini")
	v.SetDefault("LLM_MAX_TOKENS", 2000)
	v.SetDefault("LLM_TEMPERATURE", 0.7)
	v.SetDefault("LLM_TOP_P", 1.0)
	v.SetDefault("LLM_SYSTEM_PROMPT", "You are a helpful assistant.")
	v.SetDefault("STOP_GRACE_PERIOD", 100*time.Millisecond)
	v.SetDefault("BUCKET_USE_SSL", false)
	v.SetDefault("EXPORT_URL_TTL", 24*time.Hour)
}

// LoadConfig reads .env (when present) and the environment.
func LoadConfig() *Config {
	_ = godotenv.Load()
	v := viper.New()
	defaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return fromViper(v)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		HttpPort:        v.GetString("PORT"),
		AppEnv:          v.GetString("APP_ENV"),
		AllowOrigins:    v.GetString("ALLOWORIGINS"),
		StoreType:       v.GetString("STORE_TYPE"),
		Host:            v.GetString("PG_HOST"),
		User:            v.GetString("PG_USER"),
		Password:        v.GetString("PG_PASSWORD"),
		DBName:          v.GetString("PG_DB"),
		Port:            v.GetString("PG_PORT"),
		RedisURL:        v.GetString("REDIS_URL"),
		LLMAPIKey:       v.GetString("LLM_API_KEY"),
		LLMBaseURL:      v.GetString("LLM_BASE_URL"),
		LLMModel:        v.GetString("LLM_MODEL"),
		LLMMaxTokens:    v.GetInt("LLM_MAX_TOKENS"),
		LLMTemperature:  v.GetFloat64("LLM_TEMPERATURE"),
		LLMTopP:         v.GetFloat64("LLM_TOP_P"),
		LLMSystemPrompt: v.GetString("LLM_SYSTEM_PROMPT"),
		StopGracePeriod: v.GetDuration("STOP_GRACE_PERIOD"),
		StorageType:     v.GetString("STORAGE_TYPE"),
		BucketEndpoint:  v.GetString("BUCKET_ENDPOINT"),
		BucketAccessID:  v.GetString("BUCKET_ACCESS_ID"),
		BucketAccessKey: v.GetString("BUCKET_ACCESS_KEY"),
		BucketName:      v.GetString("BUCKET_NAME"),
		BucketRegion:    v.GetString("BUCKET_REGION"),
		UseSSL:          v.GetBool("BUCKET_USE_SSL"),
		ExportURLTTL:    v.GetDuration("EXPORT_URL_TTL"),
	}
}
