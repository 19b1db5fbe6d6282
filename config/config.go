package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/xzhou2018/FleetSim/core/simulation"
	"github.com/xzhou2018/FleetSim/data"
)

// Config is the full configuration of a simulation run.
type Config struct {
	Simulation simulation.Config `json:"simulation" yaml:"simulation"`
	Data       data.Config       `json:"data" yaml:"data"`
	Metrics    MetricsConfig     `json:"metrics" yaml:"metrics"`
}

// MetricsConfig gates the optional observability sinks.
type MetricsConfig struct {
	PrometheusEnabled bool   `json:"prometheus_enabled" yaml:"prometheus_enabled"`
	PrometheusPort    int    `json:"prometheus_port" yaml:"prometheus_port"`
	InfluxEnabled     bool   `json:"influx_enabled" yaml:"influx_enabled"`
	InfluxURL         string `json:"influx_url" yaml:"influx_url"`
	InfluxToken       string `json:"influx_token" yaml:"influx_token"`
	InfluxOrg         string `json:"influx_org" yaml:"influx_org"`
	InfluxBucket      string `json:"influx_bucket" yaml:"influx_bucket"`
}

// Load reads the configuration from a YAML or JSON file, applies FS_-prefixed
// environment overrides, fills defaults and validates.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides, e.g. FS_SIMULATION__CHARGING_STRATEGY.
	if err := k.Load(env.Provider("FS_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "fs_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Simulation.SetDefaults()
	if err := cfg.Simulation.Validate(); err != nil {
		return nil, err
	}
	if cfg.Metrics.PrometheusEnabled && cfg.Metrics.PrometheusPort <= 0 {
		return nil, fmt.Errorf("metrics: prometheus_port must be positive when prometheus is enabled")
	}
	if cfg.Metrics.InfluxEnabled && cfg.Metrics.InfluxURL == "" {
		return nil, fmt.Errorf("metrics: influx_url must be set when influx is enabled")
	}
	return &cfg, nil
}
