package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/dudenheryana1994/deliverable-approval-submitted/internal/config"
	"github.com/dudenheryana1994/deliverable-approval-submitted/internal/record"
	"github.com/dudenheryana1994/deliverable-approval-submitted/internal/schedule"
	"github.com/dudenheryana1994/deliverable-approval-submitted/internal/source/notion"
	"github.com/dudenheryana1994/deliverable-approval-submitted/internal/storage"
	kit "github.com/dudenheryana1994/deliverable-approval-submitted/internal/transport"
	telegram "github.com/dudenheryana1994/deliverable-approval-submitted/internal/transport/telegram/adapter"
	logx "github.com/dudenheryana1994/deliverable-approval-submitted/pkg/logx"
)

const defaultParseMode = "Markdown"

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	path := strings.TrimSpace(sc.Path)

	switch driver {
	case "", "file":
		return storage.Config{Driver: "file", Path: path}, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, err
		}
		return storage.Config{Driver: "sqlite", Path: path, BusyTimeout: busy}, nil
	default:
		return storage.Config{}, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapNotionConfig(cfg *config.Config) (notion.Config, error) {
	nc := cfg.Notion
	timeout, err := config.ParseDurationOrDefault("notion.timeout", nc.Timeout, 30*time.Second)
	if err != nil {
		return notion.Config{}, err
	}
	return notion.Config{
		BaseURL:    nc.BaseURL,
		Version:    nc.Version,
		APIKey:     nc.APIKey,
		DatabaseID: nc.DatabaseID,
		PageSize:   nc.PageSize,
		MaxPages:   nc.MaxPages,
		Filter:     nc.Filter,
		Sorts:      nc.Sorts,
		Timeout:    timeout,
	}, nil
}

func mapTelegramConfig(cfg *config.Config) (telegram.Config, kit.SendOptions, error) {
	tc := cfg.Telegram
	timeout, err := config.ParseDurationOrDefault("telegram.timeout", tc.Timeout, 15*time.Second)
	if err != nil {
		return telegram.Config{}, kit.SendOptions{}, err
	}
	mode := strings.TrimSpace(tc.ParseMode)
	switch strings.ToLower(mode) {
	case "":
		mode = defaultParseMode
	case "none":
		mode = ""
	}
	tg := telegram.Config{
		Token:          tc.Token,
		APIURL:         tc.APIURL,
		Timeout:        timeout,
		RatePerSec:     tc.RatePerSec,
		ThreadID:       tc.ThreadID,
		DisablePreview: tc.DisablePreview,
	}
	return tg, kit.SendOptions{ParseMode: mode, DisablePreview: tc.DisablePreview}, nil
}

func mapExtractor(cfg *config.Config) (record.Extractor, error) {
	loc, err := config.LoadLocation("display.timezone", cfg.Display.Timezone)
	if err != nil {
		return record.Extractor{}, err
	}
	f := cfg.Fields
	m := record.Mapping{
		ActivityName:    f.ActivityName,
		DeliverableName: f.DeliverableName,
		ActivityLink:    f.ActivityLink,
		ApprovalLink:    f.ApprovalLink,
		ProjectName:     f.ProjectName,
		WorkPackage:     f.WorkPackage,
		ActivityID:      f.ActivityID,
		Uploader:        f.Uploader,
		UploadedAt:      f.UploadedAt,
		Target:          f.Target,
	}
	return record.Extractor{Mapping: m.WithDefaults(), Location: loc}, nil
}

func mapLoggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapScheduleOptions(cfg *config.Config) (schedule.Options, error) {
	sp, err := schedule.ParseSchedule(cfg.Schedule.Spec)
	if err != nil {
		return schedule.Options{}, fmt.Errorf("schedule.spec: %w", err)
	}
	loc, err := config.LoadLocation("schedule.timezone", cfg.Schedule.Timezone)
	if err != nil {
		return schedule.Options{}, err
	}
	return schedule.Options{Spec: sp, Location: loc, RunOnStart: cfg.Schedule.RunOnStart}, nil
}
