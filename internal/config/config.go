package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the coverage service.
type Config struct {
	Server          ServerConfig          `yaml:"server"`
	HTTP            HTTPConfig            `yaml:"http"`
	Clients         ClientsConfig         `yaml:"clients"`
	CustomerMetrics CustomerMetricsConfig `yaml:"customerMetrics"`
	Catalog         CatalogConfig         `yaml:"catalog"`
	Docs            DocsConfig            `yaml:"docs"`
	Analysis        AnalysisConfig        `yaml:"analysis"`
	Logging         LoggingConfig         `yaml:"logging"`
}

// ServerConfig controls gRPC listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// HTTPConfig controls the REST listener. An empty address disables it.
type HTTPConfig struct {
	Address      string        `yaml:"address"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

// ClientsConfig groups monitoring backend integrations.
type ClientsConfig struct {
	Datadog DatadogClientConfig `yaml:"datadog"`
}

// DatadogClientConfig configures access to the Datadog API.
type DatadogClientConfig struct {
	BaseURL           string        `yaml:"baseURL"`
	APIKey            string        `yaml:"apiKey"`
	AppKey            string        `yaml:"appKey"`
	ActiveMetricsPath string        `yaml:"activeMetricsPath"`
	ActiveWindow      time.Duration `yaml:"activeWindow"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"maxRetries"`
	RateLimit         float64       `yaml:"rateLimit"`
	RateBurst         int           `yaml:"rateBurst"`
}

// CustomerMetricsConfig controls how collected metrics are fetched and cached.
type CustomerMetricsConfig struct {
	EndpointTemplate string        `yaml:"endpointTemplate"`
	EndpointTimeout  time.Duration `yaml:"endpointTimeout"`
	CacheTTL         time.Duration `yaml:"cacheTTL"`
	CleanupInterval  time.Duration `yaml:"cleanupInterval"`
}

// CatalogConfig points at the directory of integration metric tables.
type CatalogConfig struct {
	Dir            string        `yaml:"dir"`
	ReloadInterval time.Duration `yaml:"reloadInterval"`
}

// DocsConfig points at the integration documentation pack.
type DocsConfig struct {
	Path string `yaml:"path"`
}

// AnalysisConfig tunes documentation fan-out during analysis.
type AnalysisConfig struct {
	DocTimeout     time.Duration `yaml:"docTimeout"`
	DocConcurrency int           `yaml:"docConcurrency"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("MIRADOR_COVERAGE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadEnvFile exports the variables of a dotenv file into the process
// environment. Variables already set win. An empty path is a no-op.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50052",
			MetricsAddress:  ":2113",
			GracefulTimeout: 10 * time.Second,
		},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Clients: ClientsConfig{
			Datadog: DatadogClientConfig{
				BaseURL:           "https://api.datadoghq.com",
				ActiveMetricsPath: "/api/v2/metrics",
				ActiveWindow:      time.Hour,
				Timeout:           30 * time.Second,
				MaxRetries:        2,
				RateLimit:         10,
				RateBurst:         5,
			},
		},
		CustomerMetrics: CustomerMetricsConfig{
			EndpointTimeout: 30 * time.Second,
			CacheTTL:        300 * time.Second,
			CleanupInterval: time.Minute,
		},
		Catalog:  CatalogConfig{Dir: "metrics"},
		Docs:     DocsConfig{Path: "configs/integrations.yaml"},
		Analysis: AnalysisConfig{DocTimeout: 10 * time.Second, DocConcurrency: 8},
		Logging:  LoggingConfig{Level: "info", JSON: false},
	}
}

func (c *Config) validate() error {
	if t := c.CustomerMetrics.EndpointTemplate; t != "" && !strings.Contains(t, "{customer_id}") {
		return fmt.Errorf("customerMetrics.endpointTemplate must contain the {customer_id} placeholder")
	}
	if c.CustomerMetrics.CacheTTL < 0 {
		return fmt.Errorf("customerMetrics.cacheTTL must not be negative")
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MIRADOR_COVERAGE_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("MIRADOR_COVERAGE_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v, ok := os.LookupEnv("MIRADOR_COVERAGE_HTTP_ADDRESS"); ok {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("DATADOG_BASE_URL"); v != "" {
		cfg.Clients.Datadog.BaseURL = v
	}
	if v := os.Getenv("DATADOG_API_KEY"); v != "" {
		cfg.Clients.Datadog.APIKey = v
	}
	if v := os.Getenv("DATADOG_APP_KEY"); v != "" {
		cfg.Clients.Datadog.AppKey = v
	}
	if v := os.Getenv("MIRADOR_COVERAGE_DATADOG_MAX_RETRIES"); v != "" {
		if retry, err := strconv.Atoi(v); err == nil {
			cfg.Clients.Datadog.MaxRetries = retry
		}
	}
	if v := os.Getenv("CUSTOMER_METRICS_ENDPOINT"); v != "" {
		cfg.CustomerMetrics.EndpointTemplate = v
	}
	if v := os.Getenv("MIRADOR_COVERAGE_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CustomerMetrics.CacheTTL = d
		}
	}
	if v := os.Getenv("MIRADOR_COVERAGE_CATALOG_DIR"); v != "" {
		cfg.Catalog.Dir = v
	}
	if v := os.Getenv("MIRADOR_COVERAGE_CATALOG_RELOAD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Catalog.ReloadInterval = d
		}
	}
	if v := os.Getenv("MIRADOR_COVERAGE_DOCS_PATH"); v != "" {
		cfg.Docs.Path = v
	}
	if v := os.Getenv("MIRADOR_COVERAGE_DOC_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Analysis.DocTimeout = d
		}
	}
	if v := os.Getenv("MIRADOR_COVERAGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MIRADOR_COVERAGE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
}
