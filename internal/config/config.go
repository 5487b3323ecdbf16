package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	HTTPPort int `yaml:"httpPort"`
	GRPCPort int `yaml:"grpcPort"`
}

type WorkerConfig struct {
	Count           int `yaml:"count"`
	DrainIntervalMs int `yaml:"drainIntervalMs"`
}

type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

type Config struct {
	ServiceName string       `yaml:"serviceName"`
	LogLevel    string       `yaml:"logLevel"`
	HistoryFile string       `yaml:"historyFile"`
	Server      ServerConfig `yaml:"server"`
	Worker      WorkerConfig `yaml:"worker"`
	NATS        NATSConfig   `yaml:"nats"`
}

func Default() *Config {
	return &Config{
		ServiceName: "job-system",
		LogLevel:    "info",
		Server: ServerConfig{
			HTTPPort: 8080,
			GRPCPort: 8081,
		},
		Worker: WorkerConfig{
			Count:           3,
			DrainIntervalMs: 10,
		},
		NATS: NATSConfig{
			URL: "nats://localhost:4222",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order. A .env file in the working directory is read
// first if present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config file: %w", err)
		}
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if cfg.Worker.Count < 0 {
		return nil, fmt.Errorf("worker count must not be negative, got %d", cfg.Worker.Count)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.ServiceName = getEnv("SERVICE_NAME", c.ServiceName)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.HistoryFile = getEnv("HISTORY_FILE", c.HistoryFile)
	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)

	var err error
	if c.Server.HTTPPort, err = getEnvInt("HTTP_PORT", c.Server.HTTPPort); err != nil {
		return err
	}
	if c.Server.GRPCPort, err = getEnvInt("GRPC_PORT", c.Server.GRPCPort); err != nil {
		return err
	}
	if c.Worker.Count, err = getEnvInt("WORKER_COUNT", c.Worker.Count); err != nil {
		return err
	}
	if c.Worker.DrainIntervalMs, err = getEnvInt("DRAIN_INTERVAL_MS", c.Worker.DrainIntervalMs); err != nil {
		return err
	}
	c.NATS.Enabled = getEnvBool("USE_NATS", c.NATS.Enabled)
	return nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.Server.HTTPPort)
}

func (c *Config) GRPCAddr() string {
	return fmt.Sprintf(":%d", c.Server.GRPCPort)
}

func (c *Config) DrainInterval() time.Duration {
	return time.Duration(c.Worker.DrainIntervalMs) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return i, nil
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return fallback
}
