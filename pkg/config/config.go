package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Sort     SortConfig     `yaml:"sort"`
	Currency CurrencyConfig `yaml:"currency"`
}

type StorageConfig struct {
	Path    string `yaml:"path"`     // data dir: catalog and generated outputs
	TempDir string `yaml:"temp_dir"` // temporary list files ("" = os.TempDir())
	Catalog string `yaml:"catalog"`  // catalog file name, relative to Path
}

type SortConfig struct {
	Algorithm      string `yaml:"algorithm"`
	MaxMergePasses int    `yaml:"max_merge_passes"`
	ProgressEvery  int64  `yaml:"progress_every"`
}

type CurrencyConfig struct {
	RatesFile string `yaml:"rates_file"`
}

func Load(configPath string) (*Config, error) {
	cfg := &Config{
		Storage: StorageConfig{
			Path:    "sortdb_data",
			Catalog: "catalog.db",
		},
		Sort: SortConfig{
			Algorithm:      "merge",
			MaxMergePasses: 64,
			ProgressEvery:  100,
		},
	}

	if configPath == "" {
		for _, p := range []string{"configs/sortdb.yaml", "sortdb.yaml"} {
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
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "sortdb_data"
	}
	if cfg.Storage.Catalog == "" {
		cfg.Storage.Catalog = "catalog.db"
	}
	if cfg.Sort.Algorithm == "" {
		cfg.Sort.Algorithm = "merge"
	}
	if cfg.Sort.MaxMergePasses <= 0 {
		cfg.Sort.MaxMergePasses = 64
	}
	if cfg.Sort.ProgressEvery < 0 {
		cfg.Sort.ProgressEvery = 0
	}
}
