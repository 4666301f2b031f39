package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Source struct {
		BaseURL         string   `yaml:"base_url"`
		UserAgent       string   `yaml:"user_agent"`
		MaxPages        int      `yaml:"max_pages"`
		MaxRecords      int      `yaml:"max_records"`
		BackfillDays    int      `yaml:"backfill_days"`
		BaseDelayMs     int      `yaml:"base_delay_ms"`
		MaxDelayMs      int      `yaml:"max_delay_ms"`
		TimeoutSeconds  int      `yaml:"timeout_seconds"`
		DisallowedPaths []string `yaml:"disallowed_paths"`
	} `yaml:"source"`

	Load struct {
		BatchSize int `yaml:"batch_size"`
	} `yaml:"load"`

	Scheduler struct {
		Enabled         bool `yaml:"enabled"`
		IntervalSeconds int  `yaml:"interval_seconds"`
	} `yaml:"scheduler"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

func (c Config) BaseDelay() time.Duration {
	return time.Duration(c.Source.BaseDelayMs) * time.Millisecond
}

func (c Config) MaxDelay() time.Duration {
	return time.Duration(c.Source.MaxDelayMs) * time.Millisecond
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.Source.TimeoutSeconds) * time.Second
}

func (c Config) SchedulerInterval() time.Duration {
	return time.Duration(c.Scheduler.IntervalSeconds) * time.Second
}
