package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const defaultSessionTokenSecret = "dev_session_secret"

// Outbox backends.
const (
	OutboxInline = "inline"
	OutboxMemory = "memory"
	OutboxRedis  = "redis"
)

// Mail drivers.
const (
	MailDriverSMTP     = "smtp"
	MailDriverSendGrid = "sendgrid"
	MailDriverLog      = "log"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	// TrustedProxies lists proxy addresses allowed to set X-Forwarded-For.
	// Empty means the socket peer is the client.
	TrustedProxies []string

	Database   DatabaseConfig
	Redis      RedisConfig
	Session    SessionConfig
	CORS       CORSConfig
	Log        LogConfig
	Attendance AttendanceConfig
	Mirror     MirrorConfig
	Mail       MailConfig
	Cloudinary CloudinaryConfig
	Outbox     OutboxConfig
	School     SchoolConfig
	RateLimit  RateLimitConfig
}

type DatabaseConfig struct {
	Driver       string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// SessionConfig configures the kiosk unlock gate.
type SessionConfig struct {
	Secret      string
	SecretHash  string
	TokenSecret string
	TTL         time.Duration
	Issuer      string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AttendanceConfig holds the reporting timezone used for day boundaries and display.
type AttendanceConfig struct {
	Timezone string
	Location *time.Location
}

// MirrorConfig points at the spreadsheet holding the attendance mirror.
type MirrorConfig struct {
	Enabled         bool
	SpreadsheetID   string
	SheetName       string
	SheetID         int64
	CredentialsJSON string
	CredentialsFile string
}

// MailConfig selects and configures the notification transport.
type MailConfig struct {
	Driver         string
	Host           string
	Port           int
	Username       string
	Password       string
	SSL            bool
	From           string
	SendGridAPIKey string
	Timeout        time.Duration
}

// CloudinaryConfig holds image host credentials.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// OutboxConfig controls how post-check-in side effects are dispatched.
type OutboxConfig struct {
	Backend    string
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	RedisKey   string
}

// SchoolConfig carries branding used in emails and ID cards.
type SchoolConfig struct {
	Name    string
	Tagline string
}

// RateLimitConfig throttles unlock attempts per client IP.
type RateLimitConfig struct {
	UnlockPerMinute int
	UnlockBurst     int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.TrustedProxies = splitAndTrim(v.GetString("TRUSTED_PROXIES"))

	cfg.Database = DatabaseConfig{
		Driver:       v.GetString("DB_DRIVER"),
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Session = SessionConfig{
		Secret:      v.GetString("ACCESS_SECRET"),
		SecretHash:  v.GetString("ACCESS_SECRET_HASH"),
		TokenSecret: v.GetString("SESSION_TOKEN_SECRET"),
		TTL:         parseDuration(v.GetString("SESSION_TTL"), 12*time.Hour),
		Issuer:      v.GetString("SESSION_ISSUER"),
	}

	if cfg.Env == EnvProduction && (cfg.Session.TokenSecret == "" || cfg.Session.TokenSecret == defaultSessionTokenSecret) {
		return nil, errors.New("SESSION_TOKEN_SECRET must be set in production")
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	tz := v.GetString("ATTENDANCE_TIMEZONE")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load attendance timezone %q: %w", tz, err)
	}
	cfg.Attendance = AttendanceConfig{Timezone: tz, Location: loc}

	cfg.Mirror = MirrorConfig{
		Enabled:         v.GetBool("MIRROR_ENABLED"),
		SpreadsheetID:   v.GetString("SPREADSHEET_ID"),
		SheetName:       v.GetString("SHEET_NAME"),
		SheetID:         v.GetInt64("SHEET_ID"),
		CredentialsJSON: v.GetString("GOOGLE_CREDENTIALS"),
		CredentialsFile: v.GetString("GOOGLE_CREDENTIALS_FILE"),
	}

	cfg.Mail = MailConfig{
		Driver:         strings.ToLower(v.GetString("MAIL_DRIVER")),
		Host:           v.GetString("SMTP_HOST"),
		Port:           v.GetInt("SMTP_PORT"),
		Username:       v.GetString("SMTP_USER"),
		Password:       v.GetString("SMTP_PASS"),
		SSL:            v.GetBool("SMTP_SECURE"),
		From:           v.GetString("SMTP_FROM"),
		SendGridAPIKey: v.GetString("SENDGRID_API_KEY"),
		Timeout:        parseDuration(v.GetString("MAIL_TIMEOUT"), 10*time.Second),
	}

	cfg.Cloudinary = CloudinaryConfig{
		CloudName: v.GetString("CLOUDINARY_CLOUD_NAME"),
		APIKey:    v.GetString("CLOUDINARY_API_KEY"),
		APISecret: v.GetString("CLOUDINARY_API_SECRET"),
		Folder:    v.GetString("CLOUDINARY_FOLDER"),
	}

	cfg.Outbox = OutboxConfig{
		Backend:    strings.ToLower(v.GetString("OUTBOX_BACKEND")),
		Workers:    v.GetInt("OUTBOX_WORKERS"),
		BufferSize: v.GetInt("OUTBOX_BUFFER_SIZE"),
		MaxRetries: v.GetInt("OUTBOX_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("OUTBOX_RETRY_DELAY"), 5*time.Second),
		RedisKey:   v.GetString("OUTBOX_REDIS_KEY"),
	}

	cfg.School = SchoolConfig{
		Name:    v.GetString("SCHOOL_NAME"),
		Tagline: v.GetString("SCHOOL_TAGLINE"),
	}

	cfg.RateLimit = RateLimitConfig{
		UnlockPerMinute: v.GetInt("UNLOCK_RATE_PER_MIN"),
		UnlockBurst:     v.GetInt("UNLOCK_RATE_BURST"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")
	v.SetDefault("TRUSTED_PROXIES", "")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "kiosk_attendance")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ACCESS_SECRET", "")
	v.SetDefault("ACCESS_SECRET_HASH", "")
	v.SetDefault("SESSION_TOKEN_SECRET", defaultSessionTokenSecret)
	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("SESSION_ISSUER", "kiosk-attendance-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ATTENDANCE_TIMEZONE", "America/Bogota")

	v.SetDefault("MIRROR_ENABLED", false)
	v.SetDefault("SPREADSHEET_ID", "")
	v.SetDefault("SHEET_NAME", "Asistencias")
	v.SetDefault("SHEET_ID", 0)
	v.SetDefault("GOOGLE_CREDENTIALS", "")
	v.SetDefault("GOOGLE_CREDENTIALS_FILE", "")

	v.SetDefault("MAIL_DRIVER", MailDriverLog)
	v.SetDefault("SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", 465)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASS", "")
	v.SetDefault("SMTP_SECURE", true)
	v.SetDefault("SMTP_FROM", "noreply@localhost")
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("MAIL_TIMEOUT", "10s")

	v.SetDefault("CLOUDINARY_CLOUD_NAME", "")
	v.SetDefault("CLOUDINARY_API_KEY", "")
	v.SetDefault("CLOUDINARY_API_SECRET", "")
	v.SetDefault("CLOUDINARY_FOLDER", "")

	v.SetDefault("OUTBOX_BACKEND", OutboxInline)
	v.SetDefault("OUTBOX_WORKERS", 2)
	v.SetDefault("OUTBOX_BUFFER_SIZE", 64)
	v.SetDefault("OUTBOX_MAX_RETRIES", 0)
	v.SetDefault("OUTBOX_RETRY_DELAY", "5s")
	v.SetDefault("OUTBOX_REDIS_KEY", "attendance:outbox")

	v.SetDefault("SCHOOL_NAME", "Institución Educativa")
	v.SetDefault("SCHOOL_TAGLINE", "")

	v.SetDefault("UNLOCK_RATE_PER_MIN", 10)
	v.SetDefault("UNLOCK_RATE_BURST", 5)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
