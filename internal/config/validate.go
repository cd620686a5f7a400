package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dudenheryana1994/deliverable-approval-submitted/internal/schedule"
	logx "github.com/dudenheryana1994/deliverable-approval-submitted/pkg/logx"
)

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

// LoadLocation resolves an IANA timezone name; empty means nil (no conversion).
func LoadLocation(path, name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return loc, nil
}

// Validate checks everything a run needs. All problems are reported at once.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	req := func(v, name string) {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}
	req(cfg.Notion.APIKey, "notion.api_key (or "+EnvNotionAPIKey+")")
	req(cfg.Notion.DatabaseID, "notion.database_id (or "+EnvNotionDatabaseID+")")
	req(cfg.Telegram.Token, "telegram.token (or "+EnvTelegramToken+")")

	if cfg.Notion.PageSize < 0 || cfg.Notion.PageSize > 100 {
		errs = append(errs, fmt.Errorf("notion.page_size must be within 1..100"))
	}
	if cfg.Notion.MaxPages < 0 {
		errs = append(errs, fmt.Errorf("notion.max_pages must be >= 0"))
	}
	if len(cfg.Notion.Filter) > 0 && !json.Valid(cfg.Notion.Filter) {
		errs = append(errs, fmt.Errorf("notion.filter is not valid JSON"))
	}
	// Message rendering escapes for legacy Markdown only.
	switch strings.ToLower(strings.TrimSpace(cfg.Telegram.ParseMode)) {
	case "", "markdown", "none":
	default:
		errs = append(errs, fmt.Errorf("telegram.parse_mode: %q not supported (want Markdown or none)", cfg.Telegram.ParseMode))
	}
	if cfg.Telegram.RatePerSec < 0 {
		errs = append(errs, fmt.Errorf("telegram.rate_per_sec must be >= 0"))
	}

	for _, d := range []struct{ path, raw string }{
		{"notion.timeout", cfg.Notion.Timeout},
		{"telegram.timeout", cfg.Telegram.Timeout},
		{"storage.busy_timeout", cfg.Storage.BusyTimeout},
	} {
		if _, err := ParseDurationField(d.path, d.raw); err != nil {
			errs = append(errs, err)
		}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "", "file", "sqlite", "sqlite3":
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver: %s (want file or sqlite)", cfg.Storage.Driver))
	}

	if _, err := LoadLocation("display.timezone", cfg.Display.Timezone); err != nil {
		errs = append(errs, err)
	}
	if _, err := LoadLocation("schedule.timezone", cfg.Schedule.Timezone); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(cfg.Schedule.Spec) != "" {
		if _, err := schedule.ParseSchedule(cfg.Schedule.Spec); err != nil {
			errs = append(errs, fmt.Errorf("schedule.spec: %w", err))
		}
	}
	if !logx.ValidLevel(cfg.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", cfg.Logging.Level))
	}
	return errors.Join(errs...)
}

// ValidateHook adapts Validate to SetValidator.
func ValidateHook(ctx context.Context, cfg *Config) error {
	_ = ctx
	return Validate(cfg)
}
