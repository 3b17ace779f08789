package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	GitHub   GitHubConfig
	AWS      AWSConfig
	Presence PresenceConfig
	Points   PointsConfig
	Chat     ChatConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all (e.g. http://localhost:3000)
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/bilda?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// GitHubConfig holds GitHub OAuth app settings for the code exchange endpoint.
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string // override for tests; default is GitHub's authorize URL
	TokenURL     string // override for tests; default is GitHub's token URL
}

// AWSConfig holds AWS credentials and the avatars bucket.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	AvatarsBucket        string
	PresignExpireMinutes int
}

// PresenceConfig holds live-session staleness and feed refresh settings.
type PresenceConfig struct {
	StaleAfter        time.Duration // sessions with no heartbeat for this long are reconciled away
	PollInterval      time.Duration // feed fallback poll cadence
	HeartbeatInterval time.Duration // expected streamer heartbeat cadence (returned to clients on start)
	SweepInterval     time.Duration // worker-side reconcile cadence
}

// PointsConfig holds channel point accrual settings.
type PointsConfig struct {
	SecondsPerPoint int // watch seconds needed to earn one point
}

// ChatConfig holds chat moderation settings.
type ChatConfig struct {
	BannedPhrases []string // comma-separated in env; matched case-insensitively
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env

	readTimeout, _ := strconv.Atoi(getEnv("READ_TIMEOUT_SEC", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("WRITE_TIMEOUT_SEC", "30"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	jwtExpire, _ := strconv.Atoi(getEnv("JWT_EXPIRE_HOURS", "24"))

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", "postgres://localhost:5432/bilda?sslmode=disable"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "bilda"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: jwtExpire,
		},
		GitHub: GitHubConfig{
			ClientID:     getEnv("GITHUB_CLIENT_ID", ""),
			ClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
			AuthURL:      getEnv("GITHUB_AUTH_URL", ""),
			TokenURL:     getEnv("GITHUB_TOKEN_URL", ""),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			AvatarsBucket:        getEnv("AWS_S3_AVATARS_BUCKET", "bilda-avatars"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Presence: PresenceConfig{
			StaleAfter:        getEnvDuration("PRESENCE_STALE_AFTER", 30*time.Minute),
			PollInterval:      getEnvDuration("PRESENCE_POLL_INTERVAL", 30*time.Second),
			HeartbeatInterval: getEnvDuration("PRESENCE_HEARTBEAT_INTERVAL", time.Minute),
			SweepInterval:     getEnvDuration("PRESENCE_SWEEP_INTERVAL", 5*time.Minute),
		},
		Points: PointsConfig{
			SecondsPerPoint: getEnvInt("POINTS_SECONDS_PER_POINT", 10),
		},
		Chat: ChatConfig{
			BannedPhrases: splitTrim(getEnv("CHAT_BANNED_PHRASES", ""), ","),
		},
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
