package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const configPathEnv = "ABANDONED_CART_CONFIG"

const (
	StoreDriverMongo    = "mongo"
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

type Config struct {
	AppEnv   string `yaml:"appEnv"`
	LogLevel string `yaml:"logLevel"`

	HTTPPort        string        `yaml:"httpPort"`
	GRPCPort        string        `yaml:"grpcPort"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	Mongo       MongoConfig     `yaml:"mongo"`
	StoreDriver string          `yaml:"storeDriver"`
	Postgres    PostgresConfig  `yaml:"postgres"`
	SQLite      SQLiteConfig    `yaml:"sqlite"`
	Redis       RedisConfig     `yaml:"redis"`
	Kafka       KafkaConfig     `yaml:"kafka"`
	Scheduler   SchedulerConfig `yaml:"scheduler"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type PostgresConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	Database       string `yaml:"database"`
	MigrationsPath string `yaml:"migrationsPath"`
}

type SQLiteConfig struct {
	Path           string `yaml:"path"`
	MigrationsPath string `yaml:"migrationsPath"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
}

// KafkaConfig with no brokers disables event publishing.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type SchedulerConfig struct {
	Tick       time.Duration `yaml:"tick"`
	RunTimeout time.Duration `yaml:"runTimeout"`
	PageSize   int           `yaml:"pageSize"`
}

// Load starts from defaults, applies the YAML file named by
// ABANDONED_CART_CONFIG if set, then environment overrides.
func Load() (Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: cannot read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: cannot parse %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaultConfig() Config {
	return Config{
		AppEnv:          "dev",
		LogLevel:        "info",
		HTTPPort:        "8080",
		GRPCPort:        "50057",
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "cartdb",
		},
		StoreDriver: StoreDriverMongo,
		Postgres: PostgresConfig{
			Host:           "localhost",
			Port:           5432,
			User:           "postgres",
			Password:       "postgres",
			Database:       "abandoned_carts",
			MigrationsPath: "internal/customobject/migrations/postgres",
		},
		SQLite: SQLiteConfig{
			Path:           "abandoned-carts.db",
			MigrationsPath: "internal/customobject/migrations/sqlite",
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Kafka: KafkaConfig{Topic: "abandoned-carts"},
		Scheduler: SchedulerConfig{
			Tick:       time.Minute,
			RunTimeout: 10 * time.Minute,
			PageSize:   100,
		},
	}
}

func (c *Config) applyEnvOverrides() {
	c.AppEnv = getEnv("APP_ENV", c.AppEnv)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.HTTPPort = getEnv("HTTP_PORT", c.HTTPPort)
	c.GRPCPort = getEnv("GRPC_PORT", c.GRPCPort)
	c.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", c.RequestTimeout)
	c.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)

	c.Mongo.URI = getEnv("MONGO_URI", c.Mongo.URI)
	c.Mongo.Database = getEnv("MONGO_DB_NAME", c.Mongo.Database)

	c.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", c.StoreDriver))
	c.Postgres.Host = getEnv("DB_HOST", c.Postgres.Host)
	c.Postgres.Port = getEnvInt("DB_PORT", c.Postgres.Port)
	c.Postgres.User = getEnv("DB_USER", c.Postgres.User)
	c.Postgres.Password = getEnv("DB_PASSWORD", c.Postgres.Password)
	c.Postgres.Database = getEnv("DB_NAME", c.Postgres.Database)
	c.Postgres.MigrationsPath = getEnv("MIGRATIONS_PATH", c.Postgres.MigrationsPath)
	c.SQLite.Path = getEnv("SQLITE_PATH", c.SQLite.Path)
	c.SQLite.MigrationsPath = getEnv("SQLITE_MIGRATIONS_PATH", c.SQLite.MigrationsPath)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)

	if v, ok := os.LookupEnv("KAFKA_BROKERS"); ok {
		c.Kafka.Brokers = splitList(v)
	}
	c.Kafka.Topic = getEnv("KAFKA_TOPIC", c.Kafka.Topic)

	c.Scheduler.Tick = getEnvDuration("SCHEDULER_TICK", c.Scheduler.Tick)
	c.Scheduler.RunTimeout = getEnvDuration("RUN_TIMEOUT", c.Scheduler.RunTimeout)
	c.Scheduler.PageSize = getEnvInt("PAGE_SIZE", c.Scheduler.PageSize)
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverMongo, StoreDriverPostgres, StoreDriverSQLite:
	default:
		return fmt.Errorf("config: unknown store driver %q", c.StoreDriver)
	}
	if c.Scheduler.Tick <= 0 {
		return fmt.Errorf("config: scheduler tick must be positive, got %s", c.Scheduler.Tick)
	}
	if c.Scheduler.PageSize <= 0 {
		return fmt.Errorf("config: page size must be positive, got %d", c.Scheduler.PageSize)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
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

func getEnvDuration(key string, def time.Duration) time.Duration {
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

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
