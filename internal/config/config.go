package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Redis     RedisConfig     `json:"redis"`
	Auth      AuthConfig      `json:"auth"`
	Mail      MailConfig      `json:"mail"`
	Scheduler SchedulerConfig `json:"scheduler"`
	AI        AIConfig        `json:"ai"`
	RateLimit RateLimitConfig `json:"rate_limit"`
}

type ServerConfig struct {
	Host         string        `json:"host"`
	Port         string        `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
	Environment  string        `json:"environment"`
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Name     string `json:"name"`
	SSLMode  string `json:"ssl_mode"`
	// SQLitePath is used when no postgres host is configured.
	SQLitePath string `json:"sqlite_path"`
}

type RedisConfig struct {
	Host         string        `json:"host"`
	Port         string        `json:"port"`
	Password     string        `json:"password"`
	DB           int           `json:"db"`
	PoolSize     int           `json:"pool_size"`
	DialTimeout  time.Duration `json:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

type AuthConfig struct {
	JWTSecret       string        `json:"jwt_secret"`
	AccessTokenTTL  time.Duration `json:"access_token_ttl"`
	RefreshTokenTTL time.Duration `json:"refresh_token_ttl"`
}

// MailConfig holds the delivery-channel credentials. They are read once at
// startup; missing required values fail Validate, not the first send.
type MailConfig struct {
	SMTPHost       string `json:"smtp_host"`
	SMTPPort       int    `json:"smtp_port"`
	SMTPUser       string `json:"smtp_user"`
	SMTPPassword   string `json:"-"`
	SendGridAPIKey string `json:"-"`
	SenderEmail    string `json:"sender_email"`
	FrontendURL    string `json:"frontend_url"`
}

type SchedulerConfig struct {
	Enabled           bool           `json:"enabled"`
	ProximityInterval time.Duration  `json:"proximity_interval"`
	ProximityWindow   time.Duration  `json:"proximity_window"`
	DigestTime        string         `json:"digest_time"`
	DispatchTimeout   time.Duration  `json:"dispatch_timeout"`
	Timezone          *time.Location `json:"-"`
}

type AIConfig struct {
	ClassifierURL string        `json:"classifier_url"`
	OpenAIAPIKey  string        `json:"-"`
	Timeout       time.Duration `json:"timeout"`
}

type RateLimitConfig struct {
	Enabled        bool `json:"enabled"`
	RequestsPerMin int  `json:"requests_per_minute"`
	BurstSize      int  `json:"burst_size"`
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	tz, err := time.LoadLocation(getEnv("SCHEDULER_TIMEZONE", "Local"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_TIMEZONE: %w", err)
	}

	config := &Config{
		Server: ServerConfig{
			Host:         getEnv("HOST", "localhost"),
			Port:         getEnv("PORT", "3000"),
			ReadTimeout:  getEnvAsDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvAsDuration("WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
			Environment:  getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:       getEnv("DB_HOST", ""),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", ""),
			Name:       getEnv("DB_NAME", "task_manager"),
			SSLMode:    getEnv("DB_SSL_MODE", "disable"),
			SQLitePath: getEnv("SQLITE_PATH", "tasks.db"),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			DialTimeout:  getEnvAsDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvAsDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvAsDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("JWT_SECRET", "your-secret-key"),
			AccessTokenTTL:  getEnvAsDuration("ACCESS_TOKEN_TTL", time.Hour),
			RefreshTokenTTL: getEnvAsDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		},
		Mail: MailConfig{
			SMTPHost:       getEnv("SMTP_HOST", "smtp.sendgrid.net"),
			SMTPPort:       getEnvAsInt("SMTP_PORT", 587),
			SMTPUser:       getEnv("SMTP_USER", "apikey"),
			SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
			SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
			SenderEmail:    getEnv("SENDER_EMAIL", ""),
			FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:5173"),
		},
		Scheduler: SchedulerConfig{
			Enabled:           getEnvAsBool("SCHEDULER_ENABLED", true),
			ProximityInterval: getEnvAsDuration("SCHEDULER_PROXIMITY_INTERVAL", time.Minute),
			ProximityWindow:   getEnvAsDuration("SCHEDULER_PROXIMITY_WINDOW", 5*time.Minute),
			DigestTime:        getEnv("SCHEDULER_DIGEST_TIME", "09:00"),
			DispatchTimeout:   getEnvAsDuration("SCHEDULER_DISPATCH_TIMEOUT", 30*time.Second),
			Timezone:          tz,
		},
		AI: AIConfig{
			ClassifierURL: getEnv("CLASSIFIER_URL", "http://127.0.0.1:5000"),
			OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
			Timeout:       getEnvAsDuration("AI_TIMEOUT", 15*time.Second),
		},
		RateLimit: RateLimitConfig{
			Enabled:        getEnvAsBool("RATE_LIMIT_ENABLED", true),
			RequestsPerMin: getEnvAsInt("RATE_LIMIT_RPM", 100),
			BurstSize:      getEnvAsInt("RATE_LIMIT_BURST", 10),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate fails fast on configuration that would otherwise surface as an
// error at first send or first login.
func (c *Config) Validate() error {
	if c.Scheduler.Enabled {
		if c.Mail.SenderEmail == "" {
			return fmt.Errorf("SENDER_EMAIL is required when the reminder scheduler is enabled")
		}
		if c.Mail.SMTPPassword == "" && c.Mail.SendGridAPIKey == "" {
			return fmt.Errorf("at least one mail channel credential (SMTP_PASSWORD or SENDGRID_API_KEY) is required")
		}
		if _, _, err := ParseClock(c.Scheduler.DigestTime); err != nil {
			return fmt.Errorf("invalid SCHEDULER_DIGEST_TIME: %w", err)
		}
		if c.Scheduler.ProximityWindow <= 0 {
			return fmt.Errorf("SCHEDULER_PROXIMITY_WINDOW must be positive")
		}
	}

	if c.IsProduction() {
		if c.Auth.JWTSecret == "your-secret-key" {
			return fmt.Errorf("JWT secret must be set in production")
		}
		if c.Database.Host != "" && c.Database.Password == "" {
			return fmt.Errorf("database password is required in production")
		}
	}

	return nil
}

// ParseClock parses an "HH:MM" time-of-day string. The whole value must be
// the clock reading; trailing text like "09:00pm" is rejected.
func ParseClock(value string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", value)
	}
	return t.Hour(), t.Minute(), nil
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
