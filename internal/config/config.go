package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	defaultJWTSecret = "your-secret-key"
	defaultEnvFile   = ".env"
)

type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Redis     RedisConfig     `json:"redis"`
	Worker    WorkerConfig    `json:"worker"`
	Auth      AuthConfig      `json:"auth"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Log       LogConfig       `json:"log"`
}

type ServerConfig struct {
	Host            string        `json:"host" env:"HOST" env-default:"localhost"`
	Port            string        `json:"port" env:"PORT" env-default:"8080"`
	ReadTimeout     time.Duration `json:"read_timeout" env:"READ_TIMEOUT" env-default:"30s"`
	WriteTimeout    time.Duration `json:"write_timeout" env:"WRITE_TIMEOUT" env-default:"30s"`
	IdleTimeout     time.Duration `json:"idle_timeout" env:"IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"5s"`
	Environment     string        `json:"environment" env:"ENVIRONMENT" env-default:"development"`
	AllowedOrigins  []string      `json:"allowed_origins" env:"ALLOWED_ORIGINS" env-default:"*" env-separator:","`
}

type DatabaseConfig struct {
	Driver          string        `json:"driver" env:"DB_DRIVER" env-default:"sqlite"`
	Path            string        `json:"path" env:"DB_PATH" env-default:"tasks.db"`
	Host            string        `json:"host" env:"DB_HOST" env-default:"localhost"`
	Port            string        `json:"port" env:"DB_PORT" env-default:"5432"`
	User            string        `json:"user" env:"DB_USER" env-default:"postgres"`
	Password        string        `json:"-" env:"DB_PASSWORD"`
	Name            string        `json:"name" env:"DB_NAME" env-default:"task_tracker"`
	SSLMode         string        `json:"ssl_mode" env:"DB_SSL_MODE" env-default:"disable"`
	MaxOpenConns    int           `json:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	MaxIdleConns    int           `json:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" env-default:"1h"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" env:"DB_CONN_MAX_IDLE_TIME" env-default:"30m"`
}

type RedisConfig struct {
	Enabled      bool          `json:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Host         string        `json:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port         string        `json:"port" env:"REDIS_PORT" env-default:"6379"`
	Password     string        `json:"-" env:"REDIS_PASSWORD"`
	DB           int           `json:"db" env:"REDIS_DB" env-default:"0"`
	PoolSize     int           `json:"pool_size" env:"REDIS_POOL_SIZE" env-default:"10"`
	MinIdleConns int           `json:"min_idle_conns" env:"REDIS_MIN_IDLE_CONNS" env-default:"5"`
	MaxRetries   int           `json:"max_retries" env:"REDIS_MAX_RETRIES" env-default:"3"`
	DialTimeout  time.Duration `json:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" env-default:"5s"`
	ReadTimeout  time.Duration `json:"read_timeout" env:"REDIS_READ_TIMEOUT" env-default:"3s"`
	WriteTimeout time.Duration `json:"write_timeout" env:"REDIS_WRITE_TIMEOUT" env-default:"3s"`
	TaskListTTL  time.Duration `json:"task_list_ttl" env:"REDIS_TASK_LIST_TTL" env-default:"15m"`
}

type WorkerConfig struct {
	Enabled         bool          `json:"enabled" env:"WORKER_ENABLED" env-default:"false"`
	Concurrency     int           `json:"concurrency" env:"WORKER_CONCURRENCY" env-default:"2"`
	PollInterval    time.Duration `json:"poll_interval" env:"WORKER_POLL_INTERVAL" env-default:"5s"`
	CleanupInterval time.Duration `json:"cleanup_interval" env:"WORKER_CLEANUP_INTERVAL" env-default:"1h"`
	Queues          []string      `json:"queues" env:"WORKER_QUEUES" env-default:"default,maintenance" env-separator:","`
}

type AuthConfig struct {
	JWTSecret         string        `json:"-" env:"JWT_SECRET" env-default:"your-secret-key"`
	Issuer            string        `json:"issuer" env:"JWT_ISSUER" env-default:"task-tracker"`
	AccessTokenTTL    time.Duration `json:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL   time.Duration `json:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"168h"`
	BCryptCost        int           `json:"bcrypt_cost" env:"BCRYPT_COST" env-default:"10"`
	MinPasswordLength int           `json:"min_password_length" env:"MIN_PASSWORD_LENGTH" env-default:"6"`
}

type RateLimitConfig struct {
	Enabled         bool          `json:"enabled" env:"RATE_LIMIT_ENABLED" env-default:"true"`
	RequestsPerMin  int           `json:"requests_per_minute" env:"RATE_LIMIT_RPM" env-default:"100"`
	BurstSize       int           `json:"burst_size" env:"RATE_LIMIT_BURST" env-default:"10"`
	CleanupInterval time.Duration `json:"cleanup_interval" env:"RATE_LIMIT_CLEANUP" env-default:"10m"`
}

type LogConfig struct {
	Level string `json:"level" env:"LOG_LEVEL" env-default:"info"`
}

// LoadConfig reads the environment. A .env file in the working directory,
// or the file named by ENV_FILE, is merged first; variables already set in
// the process win over the file.
func LoadConfig() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	config := new(Config)
	if err := cleanenv.ReadEnv(config); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	config.normalize()

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func loadEnvFile() error {
	path, explicit := os.LookupEnv("ENV_FILE")
	if !explicit || path == "" {
		path, explicit = defaultEnvFile, false
	}

	err := godotenv.Load(path)
	if err == nil || (!explicit && errors.Is(err, fs.ErrNotExist)) {
		return nil
	}
	return fmt.Errorf("load env file %s: %w", path, err)
}

func (c *Config) normalize() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Server.AllowedOrigins = compact(c.Server.AllowedOrigins, "*")
	c.Worker.Queues = compact(c.Worker.Queues, "default")
}

// compact trims entries and drops blanks, falling back to a single entry.
func compact(list []string, fallback string) []string {
	out := list[:0]
	for _, item := range list {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return []string{fallback}
	}
	return out
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if !c.IsProduction() {
		return nil
	}
	if c.Database.Driver == DriverPostgres && c.Database.Password == "" {
		return errors.New("database password is required in production")
	}
	if c.Auth.JWTSecret == defaultJWTSecret {
		return errors.New("JWT secret must be set in production")
	}
	return nil
}

// GetDatabaseDSN returns the connection string for the configured driver.
func (c *Config) GetDatabaseDSN() string {
	if c.Database.Driver == DriverSQLite {
		return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", c.Database.Path)
	}
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
	return net.JoinHostPort(c.Redis.Host, c.Redis.Port)
}

func (c *Config) GetServerAddr() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
