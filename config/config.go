package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var loadOnce sync.Once

// Config returns the value of key from the process environment, loading .env once.
func Config(key string) string {
	loadOnce.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Println("no .env file found, using system environment")
		}
	})
	return os.Getenv(key)
}

type Settings struct {
	HTTPAddr    string
	AppURL      string
	CORSOrigins string
	JWTSecret   string

	DBHost     string
	DBPort     uint64
	DBUser     string
	DBPassword string
	DBName     string

	RedisAddr     string
	RedisPassword string

	LocalDBPath   string
	SyncInterval  time.Duration
	ProbeInterval time.Duration
	DefaultLocale string
	SeedTables    int
}

func Load() Settings {
	return Settings{
		HTTPAddr:    withDefault(Config("HTTP_ADDR"), ":8002"),
		AppURL:      withDefault(Config("APP_URL"), "http://localhost:5173"),
		CORSOrigins: withDefault(Config("CORS_ORIGINS"), "http://localhost:5173"),
		JWTSecret:   Config("JWT_SECRET"),

		DBHost:     withDefault(Config("DB_HOST"), "localhost"),
		DBPort:     parseUint(Config("DB_PORT"), 5432),
		DBUser:     withDefault(Config("DB_USER"), "postgres"),
		DBPassword: Config("DB_PASSWORD"),
		DBName:     withDefault(Config("DB_NAME"), "restaurant"),

		RedisAddr:     withDefault(Config("REDIS_ADDR"), "localhost:6379"),
		RedisPassword: Config("REDIS_PASSWORD"),

		LocalDBPath:   withDefault(Config("LOCAL_DB_PATH"), "restaurant_cache.db"),
		SyncInterval:  parseDuration(Config("SYNC_INTERVAL"), 10*time.Second),
		ProbeInterval: parseDuration(Config("PROBE_INTERVAL"), 5*time.Second),
		DefaultLocale: strings.ToLower(withDefault(Config("DEFAULT_LOCALE"), "vi")),
		SeedTables:    int(parseUint(Config("SEED_TABLES"), 12)),
	}
}

func withDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func parseUint(v string, def uint64) uint64 {
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		log.Printf("invalid number %q, using %d", v, def)
		return def
	}
	return n
}

func parseDuration(v string, def time.Duration) time.Duration {
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("invalid duration %q, using %s", v, def)
		return def
	}
	return d
}
