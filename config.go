package main

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr string

	DBDriver   string
	DBPath     string
	DBUser     string
	DBPassword string
	DBHost     string
	DBName     string

	SessionSecret string
	SessionTTL    time.Duration
	SecureCookies bool
	LoginAttempts int

	AdminName     string
	AdminEmail    string
	AdminPassword string
}

func loadConfig() Config {
	_ = godotenv.Load()

	cfg := Config{
		Addr:          getEnv("ADDR", ":8080"),
		DBDriver:      strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBPath:        getEnv("DB_PATH", "cms.db"),
		DBUser:        getEnv("DB_USER", ""),
		DBPassword:    getEnv("DB_PASSWORD", ""),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBName:        getEnv("DB_NAME", ""),
		SessionSecret: getEnv("SESSION_SECRET", ""),
		SessionTTL:    getDuration("SESSION_TTL", 24*time.Hour),
		SecureCookies: getEnv("SECURE_COOKIES", "") == "true",
		LoginAttempts: getInt("LOGIN_ATTEMPTS", 5),
		AdminName:     getEnv("ADMIN_NAME", ""),
		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	return cfg
}

// DSN returns the database/sql driver name and data source for the
// configured store.
func (c Config) DSN() (driver, dsn string, err error) {
	switch c.DBDriver {
	case "sqlite", "sqlite3":
		return "sqlite", sqliteDSN(c.DBPath), nil
	case "postgres", "postgresql", "pgx":
		if c.DBUser == "" || c.DBName == "" {
			return "", "", fmt.Errorf("DB_USER and DB_NAME are required for %s", c.DBDriver)
		}
		u := url.URL{
			Scheme: "postgres",
			Host:   c.DBHost,
			Path:   "/" + c.DBName,
		}
		if c.DBPassword != "" {
			u.User = url.UserPassword(c.DBUser, c.DBPassword)
		} else {
			u.User = url.User(c.DBUser)
		}
		return "pgx", u.String(), nil
	default:
		return "", "", fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		log.Printf("WARNING: invalid %s %q, using %d", key, value, fallback)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Printf("WARNING: invalid %s %q, using %s", key, value, fallback)
		return fallback
	}
	return d
}
