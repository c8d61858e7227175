package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config contains runtime configuration values.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"development"`
	HTTPPort    string `envconfig:"HTTP_PORT" default:"8000"`
	ServiceName string `envconfig:"SERVICE_NAME" default:"homehealth-api"`
	ProjectName string `envconfig:"PROJECT_NAME" default:"HomeHealth"`
	APIPrefix   string `envconfig:"API_V1_STR" default:"/api/v1"`

	SupabaseURL            string        `envconfig:"SUPABASE_URL" required:"true"`
	SupabaseAnonKey        string        `envconfig:"SUPABASE_ANON_KEY"`
	SupabaseServiceRoleKey string        `envconfig:"SUPABASE_SERVICE_ROLE_KEY"`
	SupabaseJWTSecret      string        `envconfig:"SUPABASE_JWT_SECRET"`
	BaaSTimeout            time.Duration `envconfig:"BAAS_TIMEOUT" default:"10s"`

	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	UserCacheTTL  time.Duration `envconfig:"USER_CACHE_TTL" default:"30s"`

	RateLimitRPM     int `envconfig:"RATE_LIMIT_RPM" default:"600"`
	AuthRateLimitRPM int `envconfig:"AUTH_RATE_LIMIT_RPM" default:"60"`

	TelemetryEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	TelemetryInsecure bool   `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
	MetricsEnabled    bool   `envconfig:"METRICS_ENABLED" default:"true"`

	CORSAllowedOrigins   []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	CORSAllowedMethods   []string `envconfig:"CORS_ALLOWED_METHODS" default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	CORSAllowedHeaders   []string `envconfig:"CORS_ALLOWED_HEADERS" default:"Authorization,Content-Type,X-Request-ID"`
	CORSAllowCredentials bool     `envconfig:"CORS_ALLOW_CREDENTIALS" default:"true"`
}

// Load reads configuration from the environment, after loading .env when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// BaaSKey returns the key used for server-side BaaS calls. The service role
// key is preferred; the anon key is the fallback.
func (c Config) BaaSKey() string {
	if key := strings.TrimSpace(c.SupabaseServiceRoleKey); key != "" {
		return key
	}
	return strings.TrimSpace(c.SupabaseAnonKey)
}

// IsDevelopment reports whether the service runs in development mode.
func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) validate() error {
	parsed, err := url.Parse(strings.TrimSpace(c.SupabaseURL))
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("SUPABASE_URL must be an absolute http(s) URL")
	}
	c.SupabaseURL = strings.TrimRight(parsed.String(), "/")

	if c.BaaSKey() == "" {
		return fmt.Errorf("SUPABASE_SERVICE_ROLE_KEY or SUPABASE_ANON_KEY is required")
	}

	prefix := "/" + strings.Trim(strings.TrimSpace(c.APIPrefix), "/")
	if prefix == "/" {
		prefix = ""
	}
	c.APIPrefix = prefix

	if c.BaaSTimeout <= 0 {
		c.BaaSTimeout = 10 * time.Second
	}
	if c.UserCacheTTL < 0 {
		c.UserCacheTTL = 0
	}
	return nil
}
