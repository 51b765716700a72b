package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds everything the API process reads from the environment.
type Config struct {
	Port        string
	DatabaseURL string
	LogLevel    slog.Level

	JWTSecret    string
	JWTExpiresIn time.Duration

	CORSOrigins []string

	AdminEmail    string
	AdminPassword string

	RedisAddr string

	KafkaBrokers   []string
	KafkaVoteTopic string

	S3 S3Config

	OTelEndpoint    string
	OTelServiceName string

	GoogleTokenInfoURL string
}

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// Enabled reports whether image storage has been configured.
func (c S3Config) Enabled() bool {
	return c.Endpoint != "" && c.AccessKey != "" && c.SecretKey != ""
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (*Config, error) {
	get := func(name, def string) string {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := &Config{
		Port:               get("PORT", "8080"),
		JWTSecret:          get("JWT_SECRET", ""),
		AdminEmail:         strings.ToLower(get("ADMIN_EMAIL", "")),
		AdminPassword:      get("ADMIN_PASSWORD", ""),
		RedisAddr:          get("REDIS_ADDR", ""),
		KafkaBrokers:       splitList(get("KAFKA_BROKERS", "")),
		KafkaVoteTopic:     get("KAFKA_VOTE_TOPIC", "prompt-votes"),
		OTelEndpoint:       get("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTelServiceName:    get("OTEL_SERVICE_NAME", "prompt-board-api"),
		GoogleTokenInfoURL: get("GOOGLE_TOKENINFO_URL", "https://oauth2.googleapis.com/tokeninfo"),
		CORSOrigins:        splitList(get("CORS_ORIGINS", "*")),
		S3: S3Config{
			Endpoint:  get("S3_ENDPOINT", ""),
			AccessKey: get("S3_ACCESS_KEY", ""),
			SecretKey: get("S3_SECRET_KEY", ""),
			Bucket:    get("S3_BUCKET", "prompt-board"),
			PublicURL: get("S3_PUBLIC_URL", ""),
		},
	}

	cfg.DatabaseURL = get("DATABASE_URL", "")
	if cfg.DatabaseURL == "" && get("DB_HOST", "") != "" {
		cfg.DatabaseURL = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			get("DB_HOST", ""),
			get("DB_PORT", "5432"),
			get("DB_USER", ""),
			get("DB_PASSWORD", ""),
			get("DB_NAME", ""),
			get("DB_SSLMODE", "disable"),
		)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("missing required environment variable: DATABASE_URL (or DB_HOST)")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing required environment variable: JWT_SECRET")
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(get("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	expires, err := time.ParseDuration(get("JWT_EXPIRES_IN", "168h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRES_IN: %w", err)
	}
	cfg.JWTExpiresIn = expires

	useSSL, err := strconv.ParseBool(get("S3_USE_SSL", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid S3_USE_SSL: %w", err)
	}
	cfg.S3.UseSSL = useSSL

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
