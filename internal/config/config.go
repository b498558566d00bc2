package config // package config loads application configuration from environment variables

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration values. Each field corresponds to an
// environment variable. Every variable has a default that is usable for local
// development only; production deployments must override at least JWTSecret
// and the database credentials.
type Config struct {
	Env            string        // application environment (e.g. "dev", "prod")
	Port           string        // HTTP port to listen on
	DBUser         string        // database username
	DBPass         string        // database password (optional)
	DBHost         string        // database host address
	DBPort         string        // database port number
	DBName         string        // database name
	DBMaxOpen      int           // max open connections in the pool
	DBMaxIdle      int           // max idle connections in the pool
	DBTimeout      time.Duration // per-request timeout for store calls
	JWTSecret      string        // secret used to sign JWTs
	AccessTTLMin   int           // access token time-to-live in minutes
	RefreshTTLDays int           // refresh token time-to-live in days
	BcryptCost     int           // bcrypt cost for password hashing
	CORSOrigins    []string      // allowed front-end origins
	FilesDir       string        // directory holding installer artifacts
	AlertThreshold float64       // consensus score above which an alert event is published
}

// Load reads configuration values from environment variables and returns a
// Config. Missing variables fall back to local-development defaults.
func Load() Config {
	return Config{
		Env:            getenv("APP_ENV", "dev"),
		Port:           getenv("APP_PORT", "3000"),
		DBUser:         getenv("DB_USER", "root"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         getenv("DB_HOST", "localhost"),
		DBPort:         getenv("DB_PORT", "3306"),
		DBName:         getenv("DB_NAME", "myapp"),
		DBMaxOpen:      atoi(getenv("DB_MAX_OPEN_CONNS", "25")),
		DBMaxIdle:      atoi(getenv("DB_MAX_IDLE_CONNS", "25")),
		DBTimeout:      parseDur(getenv("DB_TIMEOUT", "5s")),
		JWTSecret:      getenv("JWT_SECRET", "your-secret-key"),
		AccessTTLMin:   atoi(getenv("ACCESS_TOKEN_TTL_MIN", "15")),
		RefreshTTLDays: atoi(getenv("REFRESH_TOKEN_TTL_DAYS", "7")),
		BcryptCost:     atoi(getenv("BCRYPT_COST", "10")),
		CORSOrigins:    splitList(getenv("CORS_ORIGINS", "http://localhost:4200,http://localhost,https://www.khabarovsk.site")),
		FilesDir:       getenv("FILES_DIR", "files"),
		AlertThreshold: atof(getenv("ANOMALY_ALERT_THRESHOLD", "0.8")),
	}
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

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(s string) int {
	i, _ := strconv.Atoi(s)
	return i
}

func atof(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 5 * time.Second
	}
	return d
}
