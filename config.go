package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/scambier/omnisearch/search"
)

type Config struct {
	LogFile       string `yaml:"log"`
	DocRoot       string `yaml:"doc_root"`
	CacheDir      string `yaml:"cache_dir"`
	ServerAddr    string `yaml:"server_addr"`
	MergeEventsMs int    `yaml:"write_debounce_ms"`

	Weights struct {
		Basename  float64 `yaml:"basename"`
		Directory float64 `yaml:"directory"`
		H1        float64 `yaml:"h1"`
		H2        float64 `yaml:"h2"`
		H3        float64 `yaml:"h3"`
		Tags      float64 `yaml:"tags"`
	} `yaml:"weights"`
	PropertyWeights []search.PropertyWeight `yaml:"property_weights"`

	Fuzziness         string   `yaml:"fuzziness"`
	Recency           string   `yaml:"recency_boost"`
	SimpleSearch      bool     `yaml:"simple_search"`
	IgnoreDiacritics  bool     `yaml:"ignore_diacritics"`
	ExcludedPaths     []string `yaml:"excluded_paths"`
	HideExcluded      bool     `yaml:"hide_excluded"`
	DownrankedFolders []string `yaml:"downranked_folders"`

	CompressCache      bool   `yaml:"compress_cache"`
	CjkDictionary      string `yaml:"cjk_dictionary"`
	ExtractionWorkers  int    `yaml:"extraction_workers"`
	ExtractionTimeoutS int    `yaml:"extraction_timeout_s"`

	OpenAI *struct {
		Model  string `yaml:"model"`
		ApiKey string `yaml:"api_key"`
	} `yaml:"open_ai"`
}

func readConfig(cfgPath string) (*Config, error) {
	cfgFile, err := os.Open(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("unable to open config file: %w", err)
	}
	defer cfgFile.Close()

	cfg := &Config{}
	dec := yaml.NewDecoder(cfgFile)
	err = dec.Decode(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to parse config file: %w", err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Weights.Basename == 0 {
		cfg.Weights.Basename = 10
	}
	if cfg.Weights.Directory == 0 {
		cfg.Weights.Directory = 7
	}
	if cfg.Weights.H1 == 0 {
		cfg.Weights.H1 = 6
	}
	if cfg.Weights.H2 == 0 {
		cfg.Weights.H2 = 5
	}
	if cfg.Weights.H3 == 0 {
		cfg.Weights.H3 = 4
	}
	if cfg.Weights.Tags == 0 {
		cfg.Weights.Tags = 2
	}
	if cfg.MergeEventsMs == 0 {
		cfg.MergeEventsMs = 1000
	}
	if cfg.ServerAddr == "" {
		cfg.ServerAddr = "localhost:8123"
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = ".omnisearch"
	}
}

func (cfg *Config) fieldWeights() search.FieldWeights {
	return search.FieldWeights{
		"basename":  cfg.Weights.Basename,
		"directory": cfg.Weights.Directory,
		"headings1": cfg.Weights.H1,
		"headings2": cfg.Weights.H2,
		"headings3": cfg.Weights.H3,
		"tags":      cfg.Weights.Tags,
	}
}

func (cfg *Config) fuzziness() search.Fuzziness {
	switch cfg.Fuzziness {
	case "off", "0":
		return search.FuzzinessOff
	case "high", "2":
		return search.FuzzinessHigh
	default:
		return search.FuzzinessLow
	}
}

func (cfg *Config) recency() search.RecencyCutoff {
	switch cfg.Recency {
	case "day":
		return search.RecencyDay
	case "week":
		return search.RecencyWeek
	case "month":
		return search.RecencyMonth
	default:
		return search.RecencyDisabled
	}
}
