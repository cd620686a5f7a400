package config

import (
	"encoding/json"
)

// Config is the relay configuration. JSON or YAML; unknown keys are rejected.
//
// Secrets are usually left out of the file and supplied through the
// environment (see ApplyEnv).
type Config struct {
	Notion   NotionConfig   `json:"notion"`
	Telegram TelegramConfig `json:"telegram"`
	Fields   FieldsConfig   `json:"fields,omitempty"`
	Display  DisplayConfig  `json:"display,omitempty"`
	Storage  StorageConfig  `json:"storage"`
	Logging  LoggingConfig  `json:"logging"`
	Schedule ScheduleConfig `json:"schedule,omitempty"`
}

// NotionConfig controls the database query.
//
// Filter and Sorts are passed to the query endpoint verbatim, e.g.
//
//	filter: { property: "Status", status: { equals: "Submitted" } }
type NotionConfig struct {
	APIKey     string `json:"api_key,omitempty"` // do not log
	DatabaseID string `json:"database_id"`
	BaseURL    string `json:"base_url,omitempty"` // default: https://api.notion.com
	Version    string `json:"version,omitempty"`  // default: 2022-06-28
	PageSize   int    `json:"page_size,omitempty"`
	MaxPages   int    `json:"max_pages,omitempty"`
	// Timeout is a Go duration string (e.g. "30s").
	Timeout string          `json:"timeout,omitempty"`
	Filter  json.RawMessage `json:"filter,omitempty"`
	Sorts   json.RawMessage `json:"sorts,omitempty"`
}

type TelegramConfig struct {
	Token  string `json:"token,omitempty"`   // do not log
	APIURL string `json:"api_url,omitempty"` // default: https://api.telegram.org
	// Timeout is a Go duration string (e.g. "15s").
	Timeout        string  `json:"timeout,omitempty"`
	RatePerSec     float64 `json:"rate_per_sec,omitempty"`
	ThreadID       int     `json:"thread_id,omitempty"`
	DisablePreview bool    `json:"disable_preview,omitempty"`
	// ParseMode defaults to "Markdown"; "none" sends plain text.
	ParseMode string `json:"parse_mode,omitempty"`
}

// FieldsConfig maps each notification field to a database property name.
// Empty entries keep the default column names.
type FieldsConfig struct {
	ActivityName    string `json:"activity_name,omitempty"`
	DeliverableName string `json:"deliverable_name,omitempty"`
	ActivityLink    string `json:"activity_link,omitempty"`
	ApprovalLink    string `json:"approval_link,omitempty"`
	ProjectName     string `json:"project_name,omitempty"`
	WorkPackage     string `json:"work_package,omitempty"`
	ActivityID      string `json:"activity_id,omitempty"`
	Uploader        string `json:"uploader,omitempty"`
	UploadedAt      string `json:"uploaded_at,omitempty"`
	Target          string `json:"target,omitempty"`
}

type DisplayConfig struct {
	// Timezone (IANA, e.g. "Asia/Jakarta") used to render upload timestamps.
	// Empty keeps each timestamp's own offset.
	Timezone string `json:"timezone,omitempty"`
}

// StorageConfig controls where sent record ids are kept.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./id_sent.json" }
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"` // file (default) | sqlite
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type LoggingConfig struct {
	Level   string      `json:"level,omitempty"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// ScheduleConfig is used by the long-running "schedule" command only.
//
// Spec accepts cron ("*/5 * * * *", "@hourly"), durations ("10m"),
// HH:MM intervals ("01:30") and the "cron:" / "interval:" / "every:" prefixes.
type ScheduleConfig struct {
	Spec       string `json:"spec,omitempty"`
	Timezone   string `json:"timezone,omitempty"`
	RunOnStart bool   `json:"run_on_start,omitempty"`
}
