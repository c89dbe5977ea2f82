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
	Port        string
	DBDriver    string // sqlite | postgres
	DBDSN       string
	DBMaxConns  int
	LogFile     string
	CORSOrigins string
	RateLimit   int // requests per minute per IP
	Seed        bool

	IndexStore         string // file | db
	IndexPath          string
	RecommendNeighbors int
	RecommendLimit     int
	RecommendMaxAge    time.Duration

	PricePolicy    string // verify | trust
	PaymentTimeout time.Duration
	PaymentRetries int

	NotifyWorkers int
	NotifyQueue   int
	NotifyOutbox  bool

	KafkaBrokers []string
	KafkaTopic   string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string
}

func Load() Config {
	// .env is optional; real environment wins.
	_ = godotenv.Load()

	cfg := Config{
		Port:        getEnv("PORT", "5000"),
		DBDriver:    strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBDSN:       getEnv("DB_DSN", "krishighor.db"),
		DBMaxConns:  getEnvInt("DB_MAX_OPEN_CONNS", 10),
		LogFile:     getEnv("LOG_FILE", "./krishighor.log"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		RateLimit:   getEnvInt("RATE_LIMIT", 120),
		Seed:        getEnvBool("SEED", true),

		IndexStore:         strings.ToLower(getEnv("INDEX_STORE", "file")),
		IndexPath:          getEnv("INDEX_PATH", "crop_index.json"),
		RecommendNeighbors: getEnvInt("RECOMMEND_NEIGHBORS", 5),
		RecommendLimit:     getEnvInt("RECOMMEND_LIMIT", 5),
		RecommendMaxAge:    getEnvDuration("RECOMMEND_MAX_AGE", 0),

		PricePolicy:    strings.ToLower(getEnv("ORDER_PRICE_POLICY", "verify")),
		PaymentTimeout: getEnvDuration("PAYMENT_TIMEOUT", 5*time.Second),
		PaymentRetries: getEnvInt("PAYMENT_RETRIES", 2),

		NotifyWorkers: getEnvInt("NOTIFY_WORKERS", 2),
		NotifyQueue:   getEnvInt("NOTIFY_QUEUE", 64),
		NotifyOutbox:  getEnvBool("NOTIFY_OUTBOX", true),

		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "order-confirmations"),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: getEnvInt("SMTP_PORT", 587),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		SMTPFrom: os.Getenv("SMTP_FROM"),
	}
	if cfg.RecommendNeighbors < 5 {
		cfg.RecommendNeighbors = 5
	}
	if cfg.RecommendLimit <= 0 {
		cfg.RecommendLimit = 5
	}

	log.Printf("[config] PORT=%s DB_DRIVER=%s DB_DSN=%s LOG_FILE=%s INDEX_STORE=%s PRICE_POLICY=%s",
		cfg.Port, cfg.DBDriver, redactDSN(cfg.DBDSN), cfg.LogFile, cfg.IndexStore, cfg.PricePolicy)
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// redactDSN hides the password part of a URL-style DSN before logging.
func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if i := strings.Index(creds, ":"); i >= 0 {
		return dsn[:scheme+3] + creds[:i] + ":***" + dsn[at:]
	}
	return dsn
}
