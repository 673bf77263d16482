package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Selector SelectorConfig `yaml:"selector"`
	Cache    CacheConfig    `yaml:"cache"`
	Server   ServerConfig   `yaml:"server"`
}

type SelectorConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Workload     string `yaml:"workload"` // job / ceb / stack / tpcds
	LogDecisions bool   `yaml:"log_decisions"`
}

type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Populating bool   `yaml:"populating"`
	Path       string `yaml:"path"`        // persisted decision cache
	SourcePath string `yaml:"source_path"` // benchmark results for bootstrap seeding
	QueryDir   string `yaml:"query_dir"`   // SQL files the source rows refer to
	Storage    string `yaml:"storage"`     // csv or sqlite
}

type ServerConfig struct {
	Addr string `yaml:"addr"` // HTTP Listen Address (e.g. :8080)
}

func Load(configPath string) (*Config, error) {
	cfg := &Config{
		Selector: SelectorConfig{
			Enabled:      true,
			Workload:     "tpcds",
			LogDecisions: true,
		},
		Cache: CacheConfig{
			Enabled:    true,
			Populating: false,
			Path:       "optsel_cache.csv",
			Storage:    "csv",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}

	if configPath == "" {
		for _, p := range []string{"configs/optsel.yaml", "optsel.yaml"} {
			data, err := os.ReadFile(p)
			if err == nil {
				if err := yaml.Unmarshal(data, cfg); err != nil {
					return cfg, err
				}
				applyDefaults(cfg)
				return cfg, nil
			}
		}
		applyDefaults(cfg)
		return cfg, nil // no file found: use defaults
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, err
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Selector.Workload == "" {
		cfg.Selector.Workload = "tpcds"
	}
	if cfg.Cache.Path == "" {
		cfg.Cache.Path = "optsel_cache.csv"
	}
	if cfg.Cache.Storage != "csv" && cfg.Cache.Storage != "sqlite" {
		cfg.Cache.Storage = "csv"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
}
