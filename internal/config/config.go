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

// Config captures the settings required to boot the incident engine.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
	Archive      ArchiveConfig      `yaml:"archive"`
	Thresholds   ThresholdsConfig   `yaml:"thresholds"`
	Inference    InferenceConfig    `yaml:"inference"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Summarizer   SummarizerConfig   `yaml:"summarizer"`
	Logging      LoggingConfig      `yaml:"logging"`
	Rules        RulesConfig        `yaml:"rules"`
	Cache        CacheConfig        `yaml:"cache"`
}

// ServerConfig controls the HTTP API, ops gRPC, and metrics listeners.
type ServerConfig struct {
	HTTPAddress     string        `yaml:"httpAddress"`
	GRPCAddress     string        `yaml:"grpcAddress"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// TelemetryConfig configures access to the telemetry aggregation APIs.
type TelemetryConfig struct {
	BaseURL     string        `yaml:"baseURL"`
	LogsPath    string        `yaml:"logsPath"`
	MetricsPath string        `yaml:"metricsPath"`
	LogGroup    string        `yaml:"logGroup"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ArchiveConfig configures the incident archive service.
type ArchiveConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"apiKey"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ThresholdsConfig holds the anomaly detection thresholds.
type ThresholdsConfig struct {
	LatencyMS        float64 `yaml:"latencyMS"`
	ErrorRate        float64 `yaml:"errorRate"`
	CPUPct           float64 `yaml:"cpuPct"`
	MemoryMB         float64 `yaml:"memoryMB"`
	EscalationFactor float64 `yaml:"escalationFactor"`
}

// InferenceConfig tunes the root-cause scoring.
type InferenceConfig struct {
	HighLatencyMS int `yaml:"highLatencyMS"`
}

// OrchestratorConfig controls the detection poll loop.
type OrchestratorConfig struct {
	PollInterval    time.Duration `yaml:"pollInterval"`
	BaselineWindow  time.Duration `yaml:"baselineWindow"`
	EscalatedWindow time.Duration `yaml:"escalatedWindow"`
	AlertThreshold  string        `yaml:"alertThreshold"`
	Service         string        `yaml:"service"`
}

// SummarizerConfig controls the model-backed incident summaries.
type SummarizerConfig struct {
	Enabled         bool          `yaml:"enabled"`
	APIKey          string        `yaml:"apiKey"`
	Model           string        `yaml:"model"`
	MaxTokens       int           `yaml:"maxTokens"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxTrailEntries int           `yaml:"maxTrailEntries"`
	MaxSummaryChars int           `yaml:"maxSummaryChars"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// RulesConfig controls rule-pack loading for the recommender.
type RulesConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig controls Valkey-backed caching of telemetry windows and
// archive listings.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	TelemetryTTL time.Duration `yaml:"telemetryTTL"`
	IncidentsTTL time.Duration `yaml:"incidentsTTL"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("VIGIL_CONFIG")
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
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			HTTPAddress:     ":8080",
			GRPCAddress:     ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Telemetry: TelemetryConfig{
			LogsPath:    "/api/v1/telemetry/logs",
			MetricsPath: "/api/v1/telemetry/metrics",
			LogGroup:    "/aws/lambda/payment-processor",
			Timeout:     10 * time.Second,
		},
		Archive: ArchiveConfig{Timeout: 5 * time.Second},
		Thresholds: ThresholdsConfig{
			LatencyMS:        1500,
			ErrorRate:        0.1,
			CPUPct:           80,
			MemoryMB:         200,
			EscalationFactor: 2.0,
		},
		Inference: InferenceConfig{HighLatencyMS: 2000},
		Orchestrator: OrchestratorConfig{
			PollInterval:    60 * time.Second,
			BaselineWindow:  10 * time.Minute,
			EscalatedWindow: 15 * time.Minute,
			AlertThreshold:  "warning",
			Service:         "payment-processor",
		},
		Summarizer: SummarizerConfig{
			MaxTokens:       800,
			Timeout:         20 * time.Second,
			MaxTrailEntries: 10,
			MaxSummaryChars: 4000,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Rules:   RulesConfig{Path: "configs/rules/default.yaml"},
		Cache: CacheConfig{
			Enabled:      false,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
			TelemetryTTL: time.Minute,
			IncidentsTTL: 5 * time.Minute,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VIGIL_HTTP_ADDRESS"); v != "" {
		cfg.Server.HTTPAddress = v
	}
	if v := os.Getenv("VIGIL_GRPC_ADDRESS"); v != "" {
		cfg.Server.GRPCAddress = v
	}
	if v := os.Getenv("VIGIL_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("VIGIL_TELEMETRY_BASE_URL"); v != "" {
		cfg.Telemetry.BaseURL = v
	}
	if v := os.Getenv("VIGIL_TELEMETRY_LOGS_PATH"); v != "" {
		cfg.Telemetry.LogsPath = v
	}
	if v := os.Getenv("VIGIL_TELEMETRY_METRICS_PATH"); v != "" {
		cfg.Telemetry.MetricsPath = v
	}
	if v := os.Getenv("VIGIL_TELEMETRY_LOG_GROUP"); v != "" {
		cfg.Telemetry.LogGroup = v
	}
	if v := os.Getenv("VIGIL_ARCHIVE_ENDPOINT"); v != "" {
		cfg.Archive.Endpoint = v
	}
	if v := os.Getenv("VIGIL_ARCHIVE_API_KEY"); v != "" {
		cfg.Archive.APIKey = v
	}
	if v := os.Getenv("VIGIL_SERVICE"); v != "" {
		cfg.Orchestrator.Service = v
	}
	if v := os.Getenv("VIGIL_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Orchestrator.PollInterval = d
		}
	}
	if v := os.Getenv("VIGIL_ALERT_THRESHOLD"); v != "" {
		cfg.Orchestrator.AlertThreshold = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Summarizer.APIKey = v
		cfg.Summarizer.Enabled = true
	}
	if v := os.Getenv("VIGIL_SUMMARIZER_MODEL"); v != "" {
		cfg.Summarizer.Model = v
	}
	if v := os.Getenv("VIGIL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("VIGIL_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("VIGIL_RULES_PATH"); v != "" {
		cfg.Rules.Path = v
	}
	if v := os.Getenv("VIGIL_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("VIGIL_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("VIGIL_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("VIGIL_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("VIGIL_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("VIGIL_CACHE_TLS"); strings.EqualFold(v, "true") || strings.EqualFold(v, "1") {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("VIGIL_CACHE_TELEMETRY_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TelemetryTTL = d
		}
	}
	if v := os.Getenv("VIGIL_CACHE_INCIDENTS_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.IncidentsTTL = d
		}
	}
}
