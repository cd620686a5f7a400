package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override file values. Names match existing .env
// files so deployments keep working.
const (
	EnvNotionAPIKey     = "NOTION_API_KEY"
	EnvNotionDatabaseID = "NOTION_DATABASE_ID"
	EnvTelegramToken    = "TELEGRAM_BOT_TOKEN"
	EnvSentIDsFile      = "SENT_IDS_FILE"
)

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// Variables already set win. A missing file is not an error.
func LoadEnvFile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// ApplyEnv overrides secrets and the sent-ids path from the environment.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if cfg == nil {
		return
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(&cfg.Notion.APIKey, EnvNotionAPIKey)
	set(&cfg.Notion.DatabaseID, EnvNotionDatabaseID)
	set(&cfg.Telegram.Token, EnvTelegramToken)
	set(&cfg.Storage.Path, EnvSentIDsFile)
}
