package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

func Validate(cfg Config) error {
	var errs []string

	if cfg.App.Port <= 0 || cfg.App.Port > 65535 {
		errs = append(errs, "app.port must be 1..65535")
	}

	if strings.TrimSpace(cfg.Source.BaseURL) == "" {
		errs = append(errs, "source.base_url is required")
	} else if u, err := url.Parse(cfg.Source.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("source.base_url is not an absolute URL: %q", cfg.Source.BaseURL))
	}

	if cfg.Source.MaxPages <= 0 {
		errs = append(errs, "source.max_pages must be > 0")
	}
	if cfg.Source.MaxRecords <= 0 {
		errs = append(errs, "source.max_records must be > 0")
	}
	if cfg.Source.BackfillDays <= 0 {
		errs = append(errs, "source.backfill_days must be > 0")
	}
	if cfg.Source.BaseDelayMs < 0 {
		errs = append(errs, "source.base_delay_ms must be >= 0")
	}
	if cfg.Source.MaxDelayMs < cfg.Source.BaseDelayMs {
		errs = append(errs, "source.max_delay_ms must be >= source.base_delay_ms")
	}
	if cfg.Source.TimeoutSeconds <= 0 {
		errs = append(errs, "source.timeout_seconds must be > 0")
	}

	for i, p := range cfg.Source.DisallowedPaths {
		if !strings.HasPrefix(p, "/") {
			errs = append(errs, fmt.Sprintf("source.disallowed_paths[%d] must start with '/': %q", i, p))
		}
	}

	if cfg.Load.BatchSize <= 0 {
		errs = append(errs, "load.batch_size must be > 0")
	}
	if cfg.Scheduler.Enabled && cfg.Scheduler.IntervalSeconds < 60 {
		errs = append(errs, "scheduler.interval_seconds must be >= 60 when enabled")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}
