package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port   string
	Env    string
	DB     DBConfig
	Auth   AuthConfig
	HTTP   HTTPConfig
	Notify NotifyConfig
	Ledger LedgerConfig
	AI     AIConfig
}

type DBConfig struct {
	Driver string // mysql, postgres or sqlite
	DSN    string
}

type AuthConfig struct {
	JWTSecret         string
	TokenTTL          time.Duration
	AllowRegistration bool
}

type HTTPConfig struct {
	CORSOrigins []string
	RateLimit   string // ulule format, e.g. "120-M"
}

type NotifyConfig struct {
	ResendAPIKey      string
	From              string
	FallbackRecipient string
	DashboardURL      string
	Delay             time.Duration
	Workers           int
	QueueSize         int
	DrainOnShutdown   bool
}

type LedgerConfig struct {
	LowStockThreshold int
	StrictStock       bool
}

type AIConfig struct {
	GeminiAPIKey string
	Model        string
}

// Load reads .env (if present) and the process environment.
// Precedence: explicit env var > .env file > default.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("APP_ENV", "development"),
		DB: DBConfig{
			Driver: getEnv("DB_DRIVER", "mysql"),
			DSN:    os.Getenv("DB_DSN"),
		},
		Auth: AuthConfig{
			JWTSecret:         getEnv("JWT_SECRET", ""),
			TokenTTL:          getDuration("JWT_TTL", 24*time.Hour),
			AllowRegistration: getBool("ALLOW_REGISTRATION", false),
		},
		HTTP: HTTPConfig{
			CORSOrigins: getList("CORS_ORIGINS", []string{"http://localhost:5173"}),
			RateLimit:   getEnv("RATE_LIMIT", "300-M"),
		},
		Notify: NotifyConfig{
			ResendAPIKey:      os.Getenv("RESEND_API_KEY"),
			From:              getEnv("NOTIFY_FROM", "Inventory System <onboarding@resend.dev>"),
			FallbackRecipient: getEnv("NOTIFY_FALLBACK_RECIPIENT", "alerts@example.com"),
			DashboardURL:      getEnv("DASHBOARD_URL", "http://localhost:8080/dashboard/"),
			Delay:             getDuration("NOTIFY_DELAY", 600*time.Millisecond),
			Workers:           getInt("NOTIFY_WORKERS", 4),
			QueueSize:         getInt("NOTIFY_QUEUE", 256),
			DrainOnShutdown:   getBool("NOTIFY_DRAIN_ON_SHUTDOWN", true),
		},
		Ledger: LedgerConfig{
			LowStockThreshold: getInt("LOW_STOCK_THRESHOLD", 10),
			StrictStock:       getBool("LEDGER_STRICT_STOCK", false),
		},
		AI: AIConfig{
			GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
			Model:        getEnv("GEMINI_MODEL", "gemini-2.0-flash-001"),
		},
	}
}

// IsProduction reports whether APP_ENV is "production".
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("invalid boolean for %s: %s", key, v)
			return def
		}
		return b
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("invalid integer for %s: %s", key, v)
			return def
		}
		return n
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Printf("invalid duration for %s: %s", key, v)
			return def
		}
		return d
	}
	return def
}

func getList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
