package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Library   LibraryConfig
	Voice     VoiceConfig
	Effects   EffectsConfig
	Beat      BeatConfig
	R2        R2Config
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	ActionsPerMin int
	ReplayPerHour int
	UploadPerHour int
}

type LibraryConfig struct {
	// ActionTimeout bounds every item-store mutation in seconds so a
	// hung backend cannot leave a control busy forever. 0 disables.
	ActionTimeout int
}

type VoiceConfig struct {
	APIKey  string
	BaseURL string
}

type EffectsConfig struct {
	ServiceURL string
	Timeout    int // seconds
}

type BeatConfig struct {
	ServiceURL string
	Timeout    int // seconds
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("VOICE_API_KEY")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("library.action_timeout", "LIBRARY_ACTION_TIMEOUT")
	_ = viper.BindEnv("voice.api_key", "VOICE_API_KEY")
	_ = viper.BindEnv("voice.base_url", "VOICE_BASE_URL")
	_ = viper.BindEnv("effects.service_url", "EFFECTS_SERVICE_URL")
	_ = viper.BindEnv("effects.timeout", "EFFECTS_SERVICE_TIMEOUT")
	_ = viper.BindEnv("beat.service_url", "BEAT_SERVICE_URL")
	_ = viper.BindEnv("beat.timeout", "BEAT_SERVICE_TIMEOUT")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.public_url", "R2_PUBLIC_URL")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.actions_per_min", 60)
	viper.SetDefault("ratelimit.replay_per_hour", 10)
	viper.SetDefault("ratelimit.upload_per_hour", 50)
	viper.SetDefault("library.action_timeout", 30)

	// Voice service defaults
	viper.SetDefault("voice.base_url", "https://api.chromoxvoice.app")

	// Effects service defaults
	viper.SetDefault("effects.service_url", "http://localhost:8084")
	viper.SetDefault("effects.timeout", 120)

	// Beat service defaults
	viper.SetDefault("beat.service_url", "http://localhost:5012")
	viper.SetDefault("beat.timeout", 60)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			ActionsPerMin: viper.GetInt("ratelimit.actions_per_min"),
			ReplayPerHour: viper.GetInt("ratelimit.replay_per_hour"),
			UploadPerHour: viper.GetInt("ratelimit.upload_per_hour"),
		},
		Library: LibraryConfig{
			ActionTimeout: viper.GetInt("library.action_timeout"),
		},
		Voice: VoiceConfig{
			APIKey:  viper.GetString("voice.api_key"),
			BaseURL: viper.GetString("voice.base_url"),
		},
		Effects: EffectsConfig{
			ServiceURL: viper.GetString("effects.service_url"),
			Timeout:    viper.GetInt("effects.timeout"),
		},
		Beat: BeatConfig{
			ServiceURL: viper.GetString("beat.service_url"),
			Timeout:    viper.GetInt("beat.timeout"),
		},
		R2: R2Config{
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			BucketName:      viper.GetString("r2.bucket_name"),
			PublicURL:       viper.GetString("r2.public_url"),
		},
	}

	return cfg, nil
}
