package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"RestAPIPlatform/pkg/validation"
)

// ReservedAPIPort порт основного API. Не настраивается через конфигурацию,
// поэтому admin и gRPC листенеры не могут его занимать.
const ReservedAPIPort = 8000

// ReservedAdminPaths маршруты служебного листенера, которые не может занять metrics.path
var ReservedAdminPaths = []string{"/health", "/ready", "/live"}

// Config представляет конфигурацию сервиса. Порт основного API сюда намеренно не входит.
type Config struct {
	Environment     string        `json:"environment" yaml:"environment"`
	Server          ServerConfig  `json:"server" yaml:"server"`
	Admin           AdminConfig   `json:"admin" yaml:"admin"`
	GRPC            GRPCConfig    `json:"grpc" yaml:"grpc"`
	Logger          LoggerConfig  `json:"logger" yaml:"logger"`
	Metrics         MetricsConfig `json:"metrics" yaml:"metrics"`
	Tracing         TracingConfig `json:"tracing" yaml:"tracing"`
	ShutdownTimeout string        `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// ServerConfig представляет конфигурацию основного HTTP-сервера. Задается только хост.
type ServerConfig struct {
	Host string `json:"host" yaml:"host"`
}

// AdminConfig представляет конфигурацию служебного листенера (health, metrics)
type AdminConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Host    string `json:"host" yaml:"host"`
	Port    int    `json:"port" yaml:"port"`
}

// GRPCConfig представляет конфигурацию gRPC health сервиса
type GRPCConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Port    int  `json:"port" yaml:"port"`
}

// LoggerConfig представляет конфигурацию логгера. Определяет уровень логирования и формат вывода логов.
type LoggerConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// MetricsConfig представляет конфигурацию Prometheus метрик
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// TracingConfig представляет конфигурацию OpenTelemetry
type TracingConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	SampleRatio float64 `json:"sample_ratio" yaml:"sample_ratio"`
}

// Default возвращает конфигурацию со значениями по умолчанию
func Default() *Config {
	return &Config{
		Environment: "dev",
		Server: ServerConfig{
			Host: "0.0.0.0",
		},
		Admin: AdminConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8081,
		},
		GRPC: GRPCConfig{
			Enabled: false,
			Port:    50051,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Tracing: TracingConfig{
			Enabled:     true,
			SampleRatio: 1.0,
		},
		ShutdownTimeout: "30s",
	}
}

// LoadConfig загружает конфигурацию в следующем порядке приоритета:
// 1. Загрузка значений по умолчанию
// 2. Загрузка из файла (если указан)
// 3. Переопределение значениями из переменных окружения
// 4. Валидация конфигурации
// Возвращает готовую конфигурацию или ошибку.
func LoadConfig(configFile string) (*Config, error) {
	config := Default()

	// Load from file if specified
	if configFile != "" {
		if err := loadConfigFromFile(config, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Load from environment variables
	if err := loadConfigFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func loadConfigFromFile(config *Config, filename string) error {
	// Expand environment variables in the file path
	filename = os.ExpandEnv(filename)

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist: %s", filename)
	}

	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	// Try to unmarshal as YAML first, then JSON
	if err := yaml.Unmarshal(content, config); err != nil {
		if jsonErr := json.Unmarshal(content, config); jsonErr != nil {
			return fmt.Errorf("failed to unmarshal config file as YAML or JSON: %w", err)
		}
	}

	return nil
}

func loadConfigFromEnv(config *Config) error {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		config.Environment = env
	}

	// Server config
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Admin config
	if err := envBool("ADMIN_ENABLED", &config.Admin.Enabled); err != nil {
		return err
	}
	if host := os.Getenv("ADMIN_HOST"); host != "" {
		config.Admin.Host = host
	}
	if err := envInt("ADMIN_PORT", &config.Admin.Port); err != nil {
		return err
	}

	// gRPC config
	if err := envBool("GRPC_ENABLED", &config.GRPC.Enabled); err != nil {
		return err
	}
	if err := envInt("GRPC_PORT", &config.GRPC.Port); err != nil {
		return err
	}

	// Logger config
	if level := os.Getenv("LOGGER_LEVEL"); level != "" {
		config.Logger.Level = level
	}
	if format := os.Getenv("LOGGER_FORMAT"); format != "" {
		config.Logger.Format = format
	}

	// Metrics & tracing
	if err := envBool("METRICS_ENABLED", &config.Metrics.Enabled); err != nil {
		return err
	}
	if path := os.Getenv("METRICS_PATH"); path != "" {
		config.Metrics.Path = path
	}
	if err := envBool("TRACING_ENABLED", &config.Tracing.Enabled); err != nil {
		return err
	}
	if ratio := os.Getenv("TRACING_SAMPLE_RATIO"); ratio != "" {
		v, err := strconv.ParseFloat(ratio, 64)
		if err != nil {
			return fmt.Errorf("invalid TRACING_SAMPLE_RATIO: %s", ratio)
		}
		config.Tracing.SampleRatio = v
	}

	if timeout := os.Getenv("SHUTDOWN_TIMEOUT"); timeout != "" {
		config.ShutdownTimeout = timeout
	}

	return nil
}

func envInt(key string, dst *int) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	if _, err := fmt.Sscanf(raw, "%d", dst); err != nil {
		return fmt.Errorf("invalid %s: %s", key, raw)
	}
	return nil
}

func envBool(key string, dst *bool) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %s", key, raw)
	}
	*dst = v
	return nil
}

func validateConfig(config *Config) error {
	v := validation.NewValidator()

	// Поддерживаются только окружения: dev, staging, prod
	if err := v.ValidateEnum(config.Environment, []string{"dev", "staging", "prod"}, "environment"); err != nil {
		return err
	}

	if err := v.ValidateHost(config.Server.Host, "server.host"); err != nil {
		return err
	}

	if config.Admin.Enabled {
		if err := v.ValidateHost(config.Admin.Host, "admin.host"); err != nil {
			return err
		}
		if err := v.ValidatePort(config.Admin.Port, "admin.port", ReservedAPIPort); err != nil {
			return err
		}
	}
	if config.GRPC.Enabled {
		if err := v.ValidatePort(config.GRPC.Port, "grpc.port", ReservedAPIPort); err != nil {
			return err
		}
	}
	if config.Admin.Enabled && config.GRPC.Enabled && config.Admin.Port == config.GRPC.Port {
		return fmt.Errorf("admin.port and grpc.port must differ")
	}

	if err := v.ValidateRequired(config.Logger.Level, "logger.level"); err != nil {
		return err
	}
	if err := v.ValidateRequired(config.Logger.Format, "logger.format"); err != nil {
		return err
	}

	if config.Metrics.Enabled {
		if err := v.ValidatePath(config.Metrics.Path, "metrics.path", ReservedAdminPaths...); err != nil {
			return err
		}
	}
	if err := v.ValidateRange(config.Tracing.SampleRatio, 0, 1, "tracing.sample_ratio"); err != nil {
		return err
	}

	if _, err := v.ValidateDuration(config.ShutdownTimeout, "shutdown_timeout"); err != nil {
		return err
	}

	return nil
}

// GetShutdownTimeout возвращает таймаут graceful shutdown.
// Значение уже проверено при загрузке, поэтому ошибка парсинга сводится к значению по умолчанию.
func (c *Config) GetShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// Save сохраняет конфигурацию в файл в формате YAML.
// Автоматически создает директорию, если она не существует.
func (c *Config) Save(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	content, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(filename, content, 0644)
}
