package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port         string `envconfig:"PORT" default:"8080"`
	AllowOrigins string `envconfig:"ALLOW_ORIGINS" default:"*"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"LOG_FORMAT" default:"text"`

	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"finagent"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	RedisURL        string        `envconfig:"REDIS_URL"`
	CatalogCacheTTL time.Duration `envconfig:"CATALOG_CACHE_TTL" default:"10m"`

	JWTSecret   string        `envconfig:"JWT_SECRET" required:"true"`
	JWTExpiry   time.Duration `envconfig:"JWT_EXPIRY" default:"24h"`
	AdminBearer string        `envconfig:"ADMIN_BEARER"`

	FinlifeKey     string        `envconfig:"FINLIFE_API_KEY"`
	FinlifeBaseURL string        `envconfig:"FINLIFE_BASE_URL" default:"http://finlife.fss.or.kr/finlifeapi"`
	FinlifeGroups  []string      `envconfig:"FINLIFE_GROUPS" default:"020000"`
	FeedTimeout    time.Duration `envconfig:"FEED_TIMEOUT" default:"15s"`
	PreferIPv4     bool          `envconfig:"PREFER_IPV4" default:"true"`

	OpenAIKey      string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL  string `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	OpenAILlmModel string `envconfig:"OPENAI_LLM_MODEL" default:"gpt-4o-mini"`
	ReqTimeoutSec  int    `envconfig:"REQUEST_TIMEOUT_SECONDS" default:"30"`
}

// Load reads the optional .env files (first hit wins) and then the process
// environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err == nil {
			slog.Debug("loaded env file", "path", f)
			break
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.ReqTimeoutSec) * time.Second
}

// LogValue keeps secrets out of the startup log.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("port", c.Port),
		slog.String("db", fmt.Sprintf("%s@%s:%s/%s", c.DBUser, c.DBHost, c.DBPort, c.DBName)),
		slog.Bool("cache", c.RedisURL != ""),
		slog.String("finlife_url", c.FinlifeBaseURL),
		slog.String("finlife_key", mask(c.FinlifeKey)),
		slog.Any("finlife_groups", c.FinlifeGroups),
		slog.Duration("feed_timeout", c.FeedTimeout),
		slog.Bool("prefer_ipv4", c.PreferIPv4),
		slog.String("llm_model", c.OpenAILlmModel),
		slog.String("openai_key", mask(c.OpenAIKey)),
	)
}

func mask(v string) string {
	if len(v) <= 6 {
		return "****"
	}
	return v[:3] + "****" + v[len(v)-3:]
}
