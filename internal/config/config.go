package config

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port int

	CassandraHosts []string
	Keyspace       string
	StoreTimeout   time.Duration
	ConnectTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	OTLPEndpoint string

	// BootstrapSchema runs the idempotent DDL + seed routine at start-up.
	BootstrapSchema bool

	// CASRetries bounds every compare-and-swap loop (capacity, balance).
	CASRetries int
}

func Load() Config {
	// optional .env for local dev, real deployments use the environment
	_ = godotenv.Load()

	return Config{
		Env:             getEnv("APP_ENV", "dev"),
		Port:            getEnvInt("PORT", 8080),
		CassandraHosts:  getEnvList("CASSANDRA_HOSTS", "127.0.0.1:9042"),
		Keyspace:        getEnv("CASSANDRA_KEYSPACE", "appsisted"),
		StoreTimeout:    getEnvDuration("STORE_TIMEOUT", 3*time.Second),
		ConnectTimeout:  getEnvDuration("STORE_CONNECT_TIMEOUT", 5*time.Second),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		CacheTTL:        getEnvDuration("SITE_CACHE_TTL", 5*time.Second),
		OTLPEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		BootstrapSchema: getEnvBool("BOOTSTRAP_SCHEMA", true),
		CASRetries:      getEnvInt("CAS_RETRIES", 8),
	}
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err == nil {
			return num
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)

		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)

		if err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	raw := getEnv(key, fallback)

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
