package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"price-monitor/internal/compare/model"
)

const DefaultJWTSecret = "change-me-in-production"

type Config struct {
	Host         string
	Port         int
	AllowOrigins []string
	LogLevel     string
	LogFile      string
	MaxUploadMB  int

	DBPath          string
	JWTSecret       string
	TokenTTL        time.Duration
	LoginRatePerMin int

	Match          model.MatchConfig
	FeedSize       int // recent results fed to the matcher per request
	MaxCompareSize int // upper bound for ?limit on /api/comparisons
}

// Load reads the environment, after merging an optional .env file
// (existing variables win).
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Host:         getenv("HOST", "127.0.0.1"),
		Port:         getint("PORT", 8082),
		AllowOrigins: splitList(getenv("ALLOW_ORIGINS", "*")),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		LogFile:      getenv("LOG_FILE", "logs/price-monitor.log"),
		MaxUploadMB:  getint("MAX_UPLOAD_MB", 32),

		DBPath:          getenv("DB_PATH", "data/price-monitor.db"),
		JWTSecret:       getenv("JWT_SECRET", DefaultJWTSecret),
		TokenTTL:        getduration("TOKEN_TTL", 7*24*time.Hour),
		LoginRatePerMin: getint("LOGIN_RATE_PER_MIN", 10),

		Match: model.MatchConfig{
			Threshold:  getfloat("COMPARE_THRESHOLD", 0.85),
			StopTokens: splitList(os.Getenv("COMPARE_STOP_TOKENS")),
			Blocking:   getbool("COMPARE_BLOCKING", false),
		},
		FeedSize:       getint("COMPARE_FEED_SIZE", 500),
		MaxCompareSize: getint("COMPARE_MAX_LIMIT", 100),
	}
}

func (c Config) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	v, err := strconv.Atoi(getenv(k, ""))
	if err != nil {
		return def
	}
	return v
}

func getfloat(k string, def float64) float64 {
	v, err := strconv.ParseFloat(getenv(k, ""), 64)
	if err != nil {
		return def
	}
	return v
}

func getbool(k string, def bool) bool {
	v, err := strconv.ParseBool(getenv(k, ""))
	if err != nil {
		return def
	}
	return v
}

func getduration(k string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(getenv(k, ""))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// splitList splits a comma separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
