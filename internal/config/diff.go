package config

import (
	"bytes"
	"strings"

	logx "github.com/dudenheryana1994/deliverable-approval-submitted/pkg/logx"
)

// SummarizeConfigChange returns the changed sections and safe structured
// attrs for logging. Secrets are reported only as "set" booleans.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	changed := make([]string, 0, 7)
	attrs := make([]logx.Field, 0, 16)

	on, nn := oldCfg.Notion, newCfg.Notion
	if on.APIKey != nn.APIKey ||
		on.DatabaseID != nn.DatabaseID ||
		on.BaseURL != nn.BaseURL ||
		on.Version != nn.Version ||
		on.PageSize != nn.PageSize ||
		on.MaxPages != nn.MaxPages ||
		strings.TrimSpace(on.Timeout) != strings.TrimSpace(nn.Timeout) ||
		!bytes.Equal(on.Filter, nn.Filter) ||
		!bytes.Equal(on.Sorts, nn.Sorts) {
		changed = append(changed, "notion")
		attrs = append(attrs,
			logx.String("notion.database_id", nn.DatabaseID),
			logx.Bool("notion.api_key_set", strings.TrimSpace(nn.APIKey) != ""),
			logx.Bool("notion.filter_set", len(nn.Filter) > 0),
			logx.Int("notion.page_size", nn.PageSize),
		)
	}

	if oldCfg.Telegram != newCfg.Telegram {
		t := newCfg.Telegram
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.Bool("telegram.token_set", strings.TrimSpace(t.Token) != ""),
			logx.Int("telegram.thread_id", t.ThreadID),
			logx.String("telegram.parse_mode", t.ParseMode),
		)
	}

	if oldCfg.Fields != newCfg.Fields {
		changed = append(changed, "fields")
		attrs = append(attrs, logx.String("fields.target", newCfg.Fields.Target))
	}

	if oldCfg.Display != newCfg.Display {
		changed = append(changed, "display")
		attrs = append(attrs, logx.String("display.timezone", newCfg.Display.Timezone))
	}

	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", newCfg.Storage.Driver),
			logx.String("storage.path", newCfg.Storage.Path),
		)
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if oldCfg.Schedule != newCfg.Schedule {
		changed = append(changed, "schedule")
		attrs = append(attrs,
			logx.String("schedule.spec", newCfg.Schedule.Spec),
			logx.String("schedule.timezone", newCfg.Schedule.Timezone),
		)
	}

	return changed, attrs
}
