package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every parameter a service process needs.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Database  DatabaseConfig  `yaml:"database"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	Redis     RedisConfig     `yaml:"redis"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
	Kitchen   KitchenConfig   `yaml:"kitchen"`
	Delivery  DeliveryConfig  `yaml:"delivery"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

type ServiceConfig struct {
	Name          string `yaml:"name"`
	Port          int    `yaml:"port"`
	AdvertiseHost string `yaml:"advertise_host"`
	Version       string `yaml:"version"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"`
}

// DSN renders the pgx connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode)
}

type RabbitMQConfig struct {
	Host       string        `yaml:"host"`
	Port       int           `yaml:"port"`
	User       string        `yaml:"user"`
	Password   string        `yaml:"password"`
	VHost      string        `yaml:"vhost"`
	UseTLS     bool          `yaml:"use_tls"`
	Prefetch   int           `yaml:"prefetch"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	TTL       time.Duration `yaml:"ttl"`
	Heartbeat time.Duration `yaml:"heartbeat"`
}

type TelemetryConfig struct {
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type KitchenConfig struct {
	PrepDelay time.Duration `yaml:"prep_delay"`
}

type Driver struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Available bool   `yaml:"available"`
}

type DeliveryConfig struct {
	TransitMin time.Duration `yaml:"transit_min"`
	TransitMax time.Duration `yaml:"transit_max"`
	ETAMin     time.Duration `yaml:"eta_min"`
	ETAMax     time.Duration `yaml:"eta_max"`
	Drivers    []Driver      `yaml:"drivers"`
}

type SchedulerConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	BatchSize    int           `yaml:"batch_size"`
	StaleAfter   time.Duration `yaml:"stale_after"`
}

// Default ports per service mode.
var DefaultPorts = map[string]int{
	"order-service":     8080,
	"inventory-service": 8081,
	"kitchen-service":   8082,
	"delivery-service":  8083,

	"notification-subscriber": 8084,
}

// Default returns a configuration usable against a local docker-compose stack.
func Default() Config {
	return Config{
		Service: ServiceConfig{Version: "1.0.0"},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "postgres",
			SSLMode:  "disable",
			MaxConns: 10,
		},
		RabbitMQ: RabbitMQConfig{
			Host:       "localhost",
			Port:       5672,
			User:       "guest",
			Password:   "guest",
			VHost:      "/",
			Prefetch:   10,
			MaxRetries: 5,
			RetryDelay: time.Second,
		},
		Redis: RedisConfig{
			TTL:       30 * time.Second,
			Heartbeat: 10 * time.Second,
		},
		Log:     LogConfig{Level: "info"},
		Kitchen: KitchenConfig{PrepDelay: 5 * time.Second},
		Delivery: DeliveryConfig{
			TransitMin: 5 * time.Second,
			TransitMax: 10 * time.Second,
			ETAMin:     15 * time.Minute,
			ETAMax:     30 * time.Minute,
			Drivers: []Driver{
				{ID: "DRIVER-1", Name: "John Doe", Available: true},
				{ID: "DRIVER-2", Name: "Jane Smith", Available: true},
				{ID: "DRIVER-3", Name: "Bob Johnson", Available: false},
			},
		},
		Scheduler: SchedulerConfig{
			PollInterval: 500 * time.Millisecond,
			BatchSize:    20,
			StaleAfter:   time.Minute,
		},
	}
}

// Load reads the YAML file at path on top of Default and applies environment
// overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

// FindConfig returns the first existing candidate config file.
func FindConfig() (string, error) {
	candidates := []string{"config.yaml", "deploy/config.example.yaml"}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fs.ErrNotExist
}

func applyEnv(cfg *Config) {
	cfg.Service.Port = getIntEnv("PORT", cfg.Service.Port)
	cfg.Service.AdvertiseHost = getEnv("SERVICE_ADVERTISE_HOST", cfg.Service.AdvertiseHost)

	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getIntEnv("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Database = getEnv("DB_NAME", cfg.Database.Database)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)

	cfg.RabbitMQ.Host = getEnv("RABBITMQ_HOST", cfg.RabbitMQ.Host)
	cfg.RabbitMQ.Port = getIntEnv("RABBITMQ_PORT", cfg.RabbitMQ.Port)
	cfg.RabbitMQ.User = getEnv("RABBITMQ_USER", cfg.RabbitMQ.User)
	cfg.RabbitMQ.Password = getEnv("RABBITMQ_PASSWORD", cfg.RabbitMQ.Password)
	cfg.RabbitMQ.VHost = getEnv("RABBITMQ_VHOST", cfg.RabbitMQ.VHost)
	cfg.RabbitMQ.MaxRetries = getIntEnv("RABBITMQ_MAX_RETRIES", cfg.RabbitMQ.MaxRetries)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)

	cfg.Telemetry.Endpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.Insecure = getBoolEnv("OTEL_EXPORTER_OTLP_INSECURE", cfg.Telemetry.Insecure)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)

	cfg.Kitchen.PrepDelay = getDurationEnv("KITCHEN_PREP_DELAY", cfg.Kitchen.PrepDelay)
	cfg.Scheduler.PollInterval = getDurationEnv("SCHEDULER_POLL_INTERVAL", cfg.Scheduler.PollInterval)
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.Service.Name == "" {
		errs = append(errs, errors.New("service.name is required"))
	}
	if c.Service.Port <= 0 || c.Service.Port > 65535 {
		errs = append(errs, fmt.Errorf("service.port %d out of range", c.Service.Port))
	}
	if c.Database.Host == "" || c.Database.User == "" || c.Database.Database == "" {
		errs = append(errs, errors.New("database host, user and database are required"))
	}
	if c.RabbitMQ.Host == "" || c.RabbitMQ.User == "" {
		errs = append(errs, errors.New("rabbitmq host and user are required"))
	}
	if c.RabbitMQ.MaxRetries < 0 {
		errs = append(errs, errors.New("rabbitmq.max_retries must not be negative"))
	}
	if c.Delivery.TransitMax < c.Delivery.TransitMin {
		errs = append(errs, errors.New("delivery.transit_max must be >= transit_min"))
	}
	if c.Delivery.ETAMax < c.Delivery.ETAMin {
		errs = append(errs, errors.New("delivery.eta_max must be >= eta_min"))
	}
	if c.Scheduler.PollInterval <= 0 {
		errs = append(errs, errors.New("scheduler.poll_interval must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
