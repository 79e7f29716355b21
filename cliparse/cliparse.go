package cliparse

import (
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session backends
const (
	SessionBackendSQL   = "sql"
	SessionBackendRedis = "redis"
)

type MailConfig struct {
	Server   string
	Port     int
	Username string
	Password string
	Sender   string
	Timeout  time.Duration
}

// Enabled reports whether SMTP credentials were provided
func (m MailConfig) Enabled() bool {
	return m.Username != "" && m.Password != ""
}

type Config struct {
	Port           int
	DatabaseURL    string
	DatabaseType   string
	SecretKey      string
	SessionBackend string
	RedisURL       string
	SecureCookies  bool
	// CORSAllowedOrigins are the browser origins allowed to send credentialed requests
	CORSAllowedOrigins []string
	Mail               MailConfig
}

// LoadDotEnv loads variables from the given .env files (default ".env").
// A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ParseFlags validates flags and falls back to environment variables
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("votepro", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.SessionBackend, "sessions", "", "Session backend (sql or redis)")
	fs.StringVar(&cfg.RedisURL, "redis", "", "Redis URL for the redis session backend")
	cors := fs.String("cors", "", "Comma-separated allowed CORS origins")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.SecretKey, "secret", "", "Session signing secret (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, errors.New("database type must be sqlite or postgres")
	}

	if cfg.SecretKey == "" {
		cfg.SecretKey = os.Getenv("SECRET_KEY")
	}
	if cfg.SecretKey == "" {
		return Config{}, errors.New("SECRET_KEY required")
	}

	if cfg.SessionBackend == "" {
		cfg.SessionBackend = os.Getenv("SESSION_BACKEND")
		if cfg.SessionBackend == "" {
			cfg.SessionBackend = SessionBackendSQL
		}
	}
	switch cfg.SessionBackend {
	case SessionBackendSQL:
	case SessionBackendRedis:
		if cfg.RedisURL == "" {
			cfg.RedisURL = os.Getenv("REDIS_URL")
		}
		if cfg.RedisURL == "" {
			return Config{}, errors.New("REDIS_URL required for the redis session backend")
		}
	default:
		return Config{}, errors.New("session backend must be sql or redis")
	}

	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, errors.New("invalid COOKIE_SECURE env variable")
		}
		cfg.SecureCookies = secure
	}

	if *cors == "" {
		*cors = getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	}
	cfg.CORSAllowedOrigins = splitCSV(*cors)

	mail, err := parseMail()
	if err != nil {
		return Config{}, err
	}
	cfg.Mail = mail

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trim := strings.TrimSpace(p)
		if trim != "" {
			out = append(out, trim)
		}
	}
	return out
}

func parseMail() (MailConfig, error) {
	m := MailConfig{
		Server:   os.Getenv("MAIL_SERVER"),
		Port:     587,
		Username: os.Getenv("MAIL_USERNAME"),
		Password: os.Getenv("MAIL_PASSWORD"),
		Sender:   os.Getenv("MAIL_SENDER"),
		Timeout:  10 * time.Second,
	}
	if m.Server == "" {
		m.Server = "smtp.gmail.com"
	}
	if portStr := os.Getenv("MAIL_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return MailConfig{}, errors.New("invalid MAIL_PORT env variable")
		}
		m.Port = port
	}
	if t := os.Getenv("MAIL_TIMEOUT"); t != "" {
		d, err := time.ParseDuration(t)
		if err != nil {
			return MailConfig{}, errors.New("invalid MAIL_TIMEOUT env variable")
		}
		m.Timeout = d
	}
	if m.Sender == "" {
		m.Sender = m.Username
	}
	if !m.Enabled() {
		slog.Warn("email credentials not configured, verification codes will be shown to users")
	}
	return m, nil
}
