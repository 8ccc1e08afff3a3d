package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds runtime settings for the study group server.
type Config struct {
	Port           string `env:"PORT" envDefault:"8080"`
	Environment    string `env:"ENVIRONMENT" envDefault:"development"`
	AppName        string `env:"APP_NAME" envDefault:"Study Group Finder"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	WSDebug        bool   `env:"WS_DEBUG" envDefault:"false"`
	CSRFMode       string `env:"CSRF_MODE" envDefault:"token"`

	// PostgreSQL
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"study_groups"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	// Redis is optional; the server degrades to in-process locks and fan-out without it.
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	JWTSecret string        `env:"JWT_SECRET,required,notEmpty"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"168h"`

	// Media storage: "s3" (MinIO / S3 compatible) or "supabase".
	MediaBackend     string `env:"MEDIA_BACKEND" envDefault:"s3"`
	PublicAPIBaseURL string `env:"PUBLIC_API_BASE_URL"`
	S3Endpoint       string `env:"S3_ENDPOINT"`
	S3Region         string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Bucket         string `env:"S3_BUCKET" envDefault:"study-groups"`
	S3AccessKey      string `env:"S3_ACCESS_KEY"`
	S3SecretKey      string `env:"S3_SECRET_KEY"`
	S3UseSSL         bool   `env:"S3_USE_SSL" envDefault:"false"`
	SupabaseURL      string `env:"SUPABASE_URL"`
	SupabaseKey      string `env:"SUPABASE_KEY"`
	SupabaseBucket   string `env:"SUPABASE_BUCKET" envDefault:"uploads"`
	MaxUploadBytes   int64  `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`

	ResetTokenTTL time.Duration `env:"RESET_TOKEN_TTL" envDefault:"24h"`
	FrontendURL   string        `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
	SMTPHost      string        `env:"SMTP_HOST"`
	SMTPPort      int           `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername  string        `env:"SMTP_USERNAME"`
	SMTPPassword  string        `env:"SMTP_PASSWORD"`
	SMTPFrom      string        `env:"SMTP_FROM" envDefault:"no-reply@studygroups.local"`

	LockTTL     time.Duration `env:"GROUP_LOCK_TTL" envDefault:"10s"`
	SeedCourses bool          `env:"SEED_COURSES" envDefault:"true"`
}

// Load reads an optional .env file and parses the environment into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}
	cfg.MediaBackend = strings.ToLower(strings.TrimSpace(cfg.MediaBackend))
	switch cfg.MediaBackend {
	case "s3", "supabase":
	default:
		return nil, fmt.Errorf("config: unsupported MEDIA_BACKEND %q", cfg.MediaBackend)
	}
	return cfg, nil
}

// DSN builds the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}
