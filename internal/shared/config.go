package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string

	// Ledger
	NodeURL    string
	PackageID  string
	Module     string
	NodeRPS    int
	Simulation bool

	// AI suggestion
	GeminiKey   string
	GeminiModel string

	// Indexer
	Workers        int
	WatchAddresses []string

	CacheTTL   time.Duration
	SessionTTL time.Duration
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
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/roomledger?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),

		NodeURL:    env("LEDGER_NODE_URL", "https://api.testnet.iota.cafe"),
		PackageID:  env("LEDGER_PACKAGE_ID", ""),
		Module:     env("LEDGER_MODULE", "booking"),
		NodeRPS:    atoi("LEDGER_NODE_RPS", 5),
		Simulation: env("SIMULATION_MODE", "") == "true",

		GeminiKey:   env("GEMINI_API_KEY", ""),
		GeminiModel: env("GEMINI_MODEL", "models/gemini-1.5-pro"),

		Workers:        atoi("SYNC_WORKERS", 8),
		WatchAddresses: splitCSV(env("WATCH_ADDRESSES", "")),

		CacheTTL:   time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
		SessionTTL: time.Duration(atoi("SESSION_TTL_SECONDS", 86400)) * time.Second,
	}
	if c.PackageID == "" && !c.Simulation {
		log.Warn().Msg("LEDGER_PACKAGE_ID is empty")
	}
	if c.GeminiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is empty; image suggestions disabled")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
