package shared

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string

	CacheTTL        time.Duration
	ReserveRetries  int
	HorizonDays     int
	SeedWorkers     int
	RateLimitRPS    float64
	RateLimitBurst  int
	ShutdownTimeout time.Duration
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	atof := func(k string, def float64) float64 {
		if v := os.Getenv(k); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
		}
		return def
	}
	return Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/booking?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),

		CacheTTL:        time.Duration(atoi("CACHE_TTL_SECONDS", 30)) * time.Second,
		ReserveRetries:  atoi("RESERVE_RETRIES", 3),
		HorizonDays:     atoi("INVENTORY_HORIZON_DAYS", 365),
		SeedWorkers:     atoi("SEED_WORKERS", 8),
		RateLimitRPS:    atof("RATE_LIMIT_RPS", 20),
		RateLimitBurst:  atoi("RATE_LIMIT_BURST", 40),
		ShutdownTimeout: time.Duration(atoi("SHUTDOWN_TIMEOUT_SECONDS", 10)) * time.Second,
	}
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
