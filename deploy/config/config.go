package config

import (
	"log"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	App        App
	HTTPServer HTTPServer
	Fetcher    Fetcher
	Cache      Cache
	Redis      Redis
}

type App struct {
	Title        string `env:"APP_TITLE" env-default:"CRNCY - USD FX Dashboard"`
	LogLevel     string `env:"LOG_LEVEL" env-default:"debug"`
	BuildTag     string `env:"BUILD_TAG" env-default:"dev"`
	GitSHA       string `env:"GIT_SHA" env-default:"unknown"`
	BuildTimeUTC string `env:"BUILD_TIME_UTC" env-default:"unknown"`
}

type HTTPServer struct {
	Port        string        `env:"HTTP_PORT" env-default:"8082"`
	Timeout     time.Duration `env:"HTTP_TIMEOUT" env-default:"2m"`
	IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

type Fetcher struct {
	BaseCurrency  string        `env:"FETCHER_BASE_CURRENCY" env-default:"USD"`
	Symbols       string        `env:"FETCHER_SYMBOLS" env-default:"USD,CLP,MXN,GTQ,HNL,CRC,BZD"`
	LatestURL     string        `env:"FETCHER_LATEST_URL" env-default:"https://api.frankfurter.dev/v1/latest"`
	CurrenciesURL string        `env:"FETCHER_CURRENCIES_URL" env-default:"https://api.frankfurter.dev/v1/currencies"`
	HistoryURL    string        `env:"FETCHER_HISTORY_URL" env-default:"https://api.frankfurter.app"`
	Timeout       time.Duration `env:"FETCHER_TIMEOUT" env-default:"15s"`
	RatesTTL      time.Duration `env:"FETCHER_RATES_TTL" env-default:"10m"`
	CurrenciesTTL time.Duration `env:"FETCHER_CURRENCIES_TTL" env-default:"24h"`
}

type Cache struct {
	Backend string `env:"CACHE_BACKEND" env-default:"memory"`
	Prefix  string `env:"CACHE_PREFIX" env-default:"fxdash"`
}

type Redis struct {
	Host           string        `env:"REDIS_HOST" env-default:"localhost:6379"`
	Password       string        `env:"REDIS_PASSWORD" env-default:""`
	DB             int           `env:"REDIS_DB" env-default:"0"`
	ConnectRetries uint64        `env:"REDIS_CONNECT_RETRIES" env-default:"3"`
	ConnectBackoff time.Duration `env:"REDIS_CONNECT_BACKOFF" env-default:"1s"`
}

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

func NewConfig() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatal("Error reading env: ", err)
	}

	return cfg
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	cfg := &Config{}

	_ = godotenv.Load(".env")

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, err
	}

	cfg.Fetcher.BaseCurrency = strings.ToUpper(strings.TrimSpace(cfg.Fetcher.BaseCurrency))

	return cfg, nil
}

// LogValue renders the config for logs. Secrets are reduced to whether they are set.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Group("app",
			"title", c.App.Title,
			"log_level", c.App.LogLevel,
			"build_tag", c.App.BuildTag,
			"git_sha", c.App.GitSHA,
		),
		slog.Group("http",
			"port", c.HTTPServer.Port,
			"timeout", c.HTTPServer.Timeout,
			"idle_timeout", c.HTTPServer.IdleTimeout,
		),
		slog.Group("fetcher",
			"base", c.Fetcher.BaseCurrency,
			"symbols", c.Fetcher.Symbols,
			"latest_url", c.Fetcher.LatestURL,
			"currencies_url", c.Fetcher.CurrenciesURL,
			"history_url", c.Fetcher.HistoryURL,
			"timeout", c.Fetcher.Timeout,
			"rates_ttl", c.Fetcher.RatesTTL,
			"currencies_ttl", c.Fetcher.CurrenciesTTL,
		),
		slog.Group("cache",
			"backend", c.Cache.Backend,
			"prefix", c.Cache.Prefix,
		),
		slog.Group("redis",
			"host", c.Redis.Host,
			"db", c.Redis.DB,
			"password_set", c.Redis.Password != "",
		),
	)
}

// Split returns the comma separated Fetcher field as a trimmed list.
func (c *Config) Split(fieldName string) []string {
	v := reflect.ValueOf(&c.Fetcher).Elem()
	f := v.FieldByName(fieldName)
	if !f.IsValid() || f.Kind() != reflect.String {
		return nil
	}
	str := f.String()
	if str == "" {
		return nil
	}

	parts := strings.Split(str, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
