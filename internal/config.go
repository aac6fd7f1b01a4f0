package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security" validate:"required"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Scorer        ScorerConfig        `mapstructure:"scorer"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Notification  NotificationConfig  `mapstructure:"notification"`
	Realtime      RealtimeConfig      `mapstructure:"realtime"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"required,min=1m"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	AccessTokenSecret    string        `mapstructure:"access_token_secret" validate:"required,min=32"`
	RefreshTokenSecret   string        `mapstructure:"refresh_token_secret" validate:"required,min=32"`
	AccessTokenDuration  time.Duration `mapstructure:"access_token_duration" validate:"required,min=1m,max=1h"`
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration" validate:"required,min=1h"`
	BCryptCost           int           `mapstructure:"bcrypt_cost" validate:"required,min=10,max=15"`
	PasswordResetURL     string        `mapstructure:"password_reset_url"`
	PasswordResetTTL     time.Duration `mapstructure:"password_reset_ttl"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// ScorerConfig points at an OpenAI compatible chat completions endpoint.
// An empty APIKey keeps the scorer in fallback mode.
type ScorerConfig struct {
	APIURL            string        `mapstructure:"api_url"`
	APIKey            string        `mapstructure:"api_key"`
	Model             string        `mapstructure:"model"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Burst             int           `mapstructure:"burst"`
	TokenSecret       string        `mapstructure:"token_secret"`
	TokenTTL          time.Duration `mapstructure:"token_ttl"`
}

type StorageConfig struct {
	URL            string        `mapstructure:"url"`
	APIKey         string        `mapstructure:"api_key"`
	Bucket         string        `mapstructure:"bucket"`
	Public         bool          `mapstructure:"public"`
	SignedURLTTL   time.Duration `mapstructure:"signed_url_ttl"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type NotificationConfig struct {
	MaxWorkers     int `mapstructure:"max_workers"`
	JobQueueSize   int `mapstructure:"job_queue_size"`
	WorkerPoolSize int `mapstructure:"worker_pool_size"`
}

type RealtimeConfig struct {
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	Channel       string        `mapstructure:"channel"`
	PingInterval  time.Duration `mapstructure:"ping_interval"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	SendBuffer    int           `mapstructure:"send_buffer"`
}

// LoadConfigFromEnv builds the configuration for container deployments where
// no config file is mounted.
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("HTTP_SERVER_PORT", 8080),
			BaseURL:           getEnv("HTTP_SERVER_BASE_URL", "http://localhost:8080"),
			AllowedOrigins:    getEnv("HTTP_SERVER_ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("HTTP_SERVER_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("HTTP_SERVER_READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("HTTP_SERVER_IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("HTTP_SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DATABASE_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DATABASE_SOURCE", ""),
		},
		Security: SecurityConfig{
			AccessTokenSecret:    getEnv("SECURITY_ACCESS_TOKEN_SECRET", ""),
			RefreshTokenSecret:   getEnv("SECURITY_REFRESH_TOKEN_SECRET", ""),
			AccessTokenDuration:  getEnvAsDuration("SECURITY_ACCESS_TOKEN_DURATION", 15*time.Minute),
			RefreshTokenDuration: getEnvAsDuration("SECURITY_REFRESH_TOKEN_DURATION", 7*24*time.Hour),
			BCryptCost:           getEnvAsInt("SECURITY_BCRYPT_COST", 12),
			PasswordResetURL:     getEnv("SECURITY_PASSWORD_RESET_URL", "http://localhost:5173/reset-password"),
			PasswordResetTTL:     getEnvAsDuration("SECURITY_PASSWORD_RESET_TTL", time.Hour),
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: getEnvAsBool("OBSERVABILITY_METRICS_ENABLED", true),
				Path:    getEnv("OBSERVABILITY_METRICS_PATH", "/metrics"),
			},
			Logging: LoggingConfig{
				Level:  getEnv("OBSERVABILITY_LOGGING_LEVEL", "info"),
				Format: getEnv("OBSERVABILITY_LOGGING_FORMAT", "json"),
			},
		},
		Scorer: ScorerConfig{
			APIURL:            getEnv("SCORER_API_URL", "https://api.openai.com"),
			APIKey:            getEnv("SCORER_API_KEY", ""),
			Model:             getEnv("SCORER_MODEL", "gpt-4o-mini"),
			Timeout:           getEnvAsDuration("SCORER_TIMEOUT", 25*time.Second),
			RequestsPerMinute: getEnvAsInt("SCORER_REQUESTS_PER_MINUTE", 30),
			Burst:             getEnvAsInt("SCORER_BURST", 5),
			TokenSecret:       getEnv("SCORER_TOKEN_SECRET", ""),
			TokenTTL:          getEnvAsDuration("SCORER_TOKEN_TTL", time.Hour),
		},
		Storage: StorageConfig{
			URL:            getEnv("STORAGE_URL", ""),
			APIKey:         getEnv("STORAGE_API_KEY", ""),
			Bucket:         getEnv("STORAGE_BUCKET", "audit-attachments"),
			Public:         getEnvAsBool("STORAGE_PUBLIC", false),
			SignedURLTTL:   getEnvAsDuration("STORAGE_SIGNED_URL_TTL", time.Hour),
			MaxUploadBytes: int64(getEnvAsInt("STORAGE_MAX_UPLOAD_BYTES", 10<<20)),
			Timeout:        getEnvAsDuration("STORAGE_TIMEOUT", 30*time.Second),
		},
		Notification: NotificationConfig{
			MaxWorkers:     getEnvAsInt("NOTIFICATION_MAX_WORKERS", 4),
			JobQueueSize:   getEnvAsInt("NOTIFICATION_JOB_QUEUE_SIZE", 100),
			WorkerPoolSize: getEnvAsInt("NOTIFICATION_WORKER_POOL_SIZE", 4),
		},
		Realtime: RealtimeConfig{
			RedisAddr:     getEnv("REALTIME_REDIS_ADDR", ""),
			RedisPassword: getEnv("REALTIME_REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REALTIME_REDIS_DB", 0),
			Channel:       getEnv("REALTIME_CHANNEL", "audit-workflow.events"),
			PingInterval:  getEnvAsDuration("REALTIME_PING_INTERVAL", 30*time.Second),
			WriteTimeout:  getEnvAsDuration("REALTIME_WRITE_TIMEOUT", 10*time.Second),
			SendBuffer:    getEnvAsInt("REALTIME_SEND_BUFFER", 32),
		},
	}
	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Observability.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("observability config: %v", err))
	}

	if err := c.Scorer.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("scorer config: %v", err))
	}

	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("storage config: %v", err))
	}

	if err := c.Notification.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("notification config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		for _, origin := range c.Origins() {
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

// Origins splits the comma separated allowed origins list.
func (c *ServerConfig) Origins() []string {
	var out []string
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	return out
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if len(c.AccessTokenSecret) < 32 {
		return errors.New("access_token_secret must be at least 32 characters")
	}
	if len(c.RefreshTokenSecret) < 32 {
		return errors.New("refresh_token_secret must be at least 32 characters")
	}
	if c.AccessTokenDuration <= 0 || c.RefreshTokenDuration <= 0 {
		return errors.New("token durations must be positive")
	}
	if c.BCryptCost != 0 && (c.BCryptCost < 10 || c.BCryptCost > 15) {
		return errors.New("bcrypt_cost must be between 10 and 15")
	}
	return nil
}

func (c *ObservabilityConfig) Validate() error {
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return errors.New("metrics.path must start with / when metrics are enabled")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text":
	default:
		return fmt.Errorf("unsupported logging format %q", c.Logging.Format)
	}
	return nil
}

func (c *ScorerConfig) Validate() error {
	if c.APIKey != "" && c.APIURL == "" {
		return errors.New("api_url is required when api_key is set")
	}
	if len(c.TokenSecret) < 32 {
		return errors.New("token_secret must be at least 32 characters")
	}
	if c.RequestsPerMinute < 0 {
		return errors.New("requests_per_minute cannot be negative")
	}
	return nil
}

func (c *StorageConfig) Validate() error {
	if c.URL != "" {
		if _, err := url.ParseRequestURI(c.URL); err != nil {
			return fmt.Errorf("invalid url: %w", err)
		}
	}
	if c.Bucket == "" {
		return errors.New("bucket is required")
	}
	if c.MaxUploadBytes < 0 {
		return errors.New("max_upload_bytes cannot be negative")
	}
	return nil
}

func (c *NotificationConfig) Validate() error {
	if c.MaxWorkers < 0 || c.JobQueueSize < 0 || c.WorkerPoolSize < 0 {
		return errors.New("worker settings cannot be negative")
	}
	return nil
}
