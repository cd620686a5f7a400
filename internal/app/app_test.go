package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dudenheryana1994/deliverable-approval-submitted/internal/config"
	"github.com/dudenheryana1994/deliverable-approval-submitted/internal/relay"
	"github.com/dudenheryana1994/deliverable-approval-submitted/internal/schedule"
)

func noEnv(string) (string, bool) { return "", false }

func TestMapStorageConfig(t *testing.T) {
	tests := []struct {
		name    string
		in      config.StorageConfig
		driver  string
		busy    time.Duration
		wantErr bool
	}{
		{name: "default file", in: config.StorageConfig{}, driver: "file"},
		{name: "sqlite", in: config.StorageConfig{Driver: "SQLite3", Path: "x.db"}, driver: "sqlite", busy: time.Second},
		{name: "sqlite busy", in: config.StorageConfig{Driver: "sqlite", Path: "x.db", BusyTimeout: "3s"}, driver: "sqlite", busy: 3 * time.Second},
		{name: "sqlite without path", in: config.StorageConfig{Driver: "sqlite"}, wantErr: true},
		{name: "unknown", in: config.StorageConfig{Driver: "redis"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mapStorageConfig(&config.Config{Storage: tt.in})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("error: %v", err)
			}
			if got.Driver != tt.driver || got.BusyTimeout != tt.busy {
				t.Fatalf("got %+v", got)
			}
		})
	}
}

func TestMapTelegramConfigParseMode(t *testing.T) {
	for raw, want := range map[string]string{"": "Markdown", "none": "", "MarkdownV2": "MarkdownV2", "HTML": "HTML"} {
		cfg := &config.Config{}
		cfg.Telegram.ParseMode = raw
		_, opt, err := mapTelegramConfig(cfg)
		if err != nil {
			t.Fatalf("%q: %v", raw, err)
		}
		if opt.ParseMode != want {
			t.Errorf("parse_mode %q -> %q, want %q", raw, opt.ParseMode, want)
		}
	}
}

func TestMapExtractor(t *testing.T) {
	cfg := &config.Config{}
	cfg.Fields.Target = "Chat"
	cfg.Display.Timezone = "Asia/Jakarta"
	x, err := mapExtractor(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if x.Mapping.Target != "Chat" || x.Mapping.ActivityName == "" {
		t.Fatalf("mapping = %+v", x.Mapping)
	}
	if x.Location == nil || x.Location.String() != "Asia/Jakarta" {
		t.Fatalf("location = %v", x.Location)
	}
}

func TestMapScheduleOptions(t *testing.T) {
	cfg := &config.Config{}
	cfg.Schedule.Spec = "10m"
	cfg.Schedule.RunOnStart = true
	opt, err := mapScheduleOptions(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if opt.Spec.Kind != schedule.SpecInterval || opt.Spec.Every != 10*time.Minute || !opt.RunOnStart {
		t.Fatalf("opt = %+v", opt)
	}
	cfg.Schedule.Spec = ""
	if _, err := mapScheduleOptions(cfg); err == nil {
		t.Fatal("empty spec must fail")
	}
}

// fakeNotion serves a single page of results.
func fakeNotion(t *testing.T, results string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"object":"error","status":401,"code":"unauthorized","message":"bad key"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","results":` + results + `,"has_more":false,"next_cursor":null}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

type fakeBot struct {
	mu    sync.Mutex
	chats []string
	texts []string
}

func (b *fakeBot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	b.mu.Lock()
	b.chats = append(b.chats, toString(body["chat_id"]))
	b.texts = append(b.texts, toString(body["text"]))
	n := len(b.chats)
	b.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok": true,
		"result": map[string]any{
			"message_id": n,
			"date":       0,
			"chat":       map[string]any{"id": 1, "type": "group"},
		},
	})
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return ""
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

const pages = `[
  {"id":"p1","properties":{
    "Activities Name":{"type":"title","title":[{"plain_text":"Review"}]},
    "ID Telegram (Us)":{"type":"rich_text","rich_text":[{"plain_text":"-1001"}]}
  }},
  {"id":"p2","properties":{}},
  {"id":"p3","properties":{
    "ID Telegram (Us)":{"type":"rich_text","rich_text":[{"plain_text":"@chan"}]}
  }}
]`

func newTestApp(t *testing.T, notionURL, botURL string) (*App, string) {
	t.Helper()
	dir := t.TempDir()
	sentPath := filepath.Join(dir, "id_sent.json")
	cfg := map[string]any{
		"notion":   map[string]any{"api_key": "key", "database_id": "db", "base_url": notionURL},
		"telegram": map[string]any{"token": "tok", "api_url": botURL, "rate_per_sec": 1000},
		"storage":  map[string]any{"driver": "file", "path": sentPath},
		"logging":  map[string]any{"level": "error", "console": true},
	}
	b, _ := json.Marshal(cfg)
	cfgPath := filepath.Join(dir, "config.json")
	if err := os.WriteFile(cfgPath, b, 0o600); err != nil {
		t.Fatal(err)
	}
	a, err := New(Options{ConfigPath: cfgPath, Lookup: noEnv})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a, sentPath
}

func TestRunOnceEndToEnd(t *testing.T) {
	bot := &fakeBot{}
	botSrv := httptest.NewServer(bot)
	t.Cleanup(botSrv.Close)
	a, sentPath := newTestApp(t, fakeNotion(t, pages).URL, botSrv.URL)

	res, err := a.RunOnce(context.Background(), false)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if res.State != relay.StateDone || res.Sent != 2 || res.NoTarget != 1 {
		t.Fatalf("result = %+v", res)
	}
	if strings.Join(bot.chats, ",") != "-1001,@chan" {
		t.Fatalf("chats = %v", bot.chats)
	}
	if !strings.Contains(bot.texts[0], "Review") {
		t.Fatalf("text = %q", bot.texts[0])
	}
	b, err := os.ReadFile(sentPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(b, []byte(`"p1"`)) || !bytes.Contains(b, []byte(`"p3"`)) || bytes.Contains(b, []byte(`"p2"`)) {
		t.Fatalf("sent file = %s", b)
	}

	// second invocation sends nothing new
	res, err = a.RunOnce(context.Background(), false)
	if err != nil {
		t.Fatalf("RunOnce #2: %v", err)
	}
	if res.Sent != 0 || res.AlreadySent != 2 || len(bot.chats) != 2 {
		t.Fatalf("second run = %+v, deliveries=%d", res, len(bot.chats))
	}

	var out bytes.Buffer
	n, err := a.SentList(context.Background(), &out)
	if err != nil || n != 2 || out.String() != "p1\np3\n" {
		t.Fatalf("SentList = %d %q %v", n, out.String(), err)
	}
	ok, err := a.SentForget(context.Background(), "p1")
	if err != nil || !ok {
		t.Fatalf("SentForget = %v %v", ok, err)
	}
	res, _ = a.RunOnce(context.Background(), false)
	if res.Sent != 1 || len(bot.chats) != 3 {
		t.Fatalf("after forget = %+v", res)
	}
}

func TestRunOnceFetchFailureIsNotSetupError(t *testing.T) {
	bot := &fakeBot{}
	botSrv := httptest.NewServer(bot)
	t.Cleanup(botSrv.Close)
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(down.Close)
	a, _ := newTestApp(t, down.URL, botSrv.URL)

	res, err := a.RunOnce(context.Background(), false)
	if err != nil {
		t.Fatalf("fetch failure must not be a setup error: %v", err)
	}
	if !res.NothingToDo() || len(bot.chats) != 0 {
		t.Fatalf("result = %+v", res)
	}
}

func TestRunOnceCorruptStoreIsSetupError(t *testing.T) {
	bot := &fakeBot{}
	botSrv := httptest.NewServer(bot)
	t.Cleanup(botSrv.Close)
	a, sentPath := newTestApp(t, fakeNotion(t, pages).URL, botSrv.URL)
	if err := os.WriteFile(sentPath, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := a.RunOnce(context.Background(), false)
	if !errors.Is(err, ErrSetup) || !errors.Is(err, relay.ErrStoreLoad) {
		t.Fatalf("err = %v", err)
	}
	if len(bot.chats) != 0 {
		t.Fatal("nothing may be delivered when the store cannot be read")
	}
}

func TestNewRejectsMissingSecrets(t *testing.T) {
	_, err := New(Options{ConfigPath: filepath.Join(t.TempDir(), "none.yaml"), Lookup: noEnv})
	if !errors.Is(err, ErrSetup) {
		t.Fatalf("err = %v", err)
	}
}

func TestNewStoreOnlySkipsSecrets(t *testing.T) {
	dir := t.TempDir()
	a, err := New(Options{
		ConfigPath: filepath.Join(dir, "none.yaml"),
		Lookup: func(k string) (string, bool) {
			if k == config.EnvSentIDsFile {
				return filepath.Join(dir, "sent.json"), true
			}
			return "", false
		},
		StoreOnly: true,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()
	var out bytes.Buffer
	if n, err := a.SentList(context.Background(), &out); err != nil || n != 0 {
		t.Fatalf("SentList = %d %v", n, err)
	}
}
