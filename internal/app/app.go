package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dudenheryana1994/deliverable-approval-submitted/internal/config"
	"github.com/dudenheryana1994/deliverable-approval-submitted/internal/relay"
	"github.com/dudenheryana1994/deliverable-approval-submitted/internal/schedule"
	"github.com/dudenheryana1994/deliverable-approval-submitted/internal/source/notion"
	"github.com/dudenheryana1994/deliverable-approval-submitted/internal/storage"
	telegram "github.com/dudenheryana1994/deliverable-approval-submitted/internal/transport/telegram/adapter"
	logx "github.com/dudenheryana1994/deliverable-approval-submitted/pkg/logx"
)

// ErrSetup marks failures outside the dispatch logic (bad config, store
// cannot be opened). The CLI maps it to a non-zero exit status.
var ErrSetup = errors.New("setup failed")

type Options struct {
	ConfigPath string
	EnvFile    string
	// Lookup overrides os.LookupEnv (tests).
	Lookup func(string) (string, bool)
	// StoreOnly skips the notion/telegram requirements (sent sub-commands).
	StoreOnly bool
}

type App struct {
	cfgm *config.ConfigManager
	logs *logx.Service
	log  logx.Logger
}

func New(opt Options) (*App, error) {
	if err := config.LoadEnvFile(opt.EnvFile); err != nil {
		return nil, fmt.Errorf("%w: env file %s: %w", ErrSetup, opt.EnvFile, err)
	}

	cfgm := config.NewConfigManager(opt.ConfigPath)
	cfgm.SetLookup(opt.Lookup)
	if opt.StoreOnly {
		cfgm.SetValidator(validateStoreOnly)
	} else {
		cfgm.SetValidator(config.ValidateHook)
	}
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("%w: config: %w", ErrSetup, err)
	}

	logs, log := logx.New(mapLoggingConfig(cfg))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	return &App{cfgm: cfgm, logs: logs, log: log.With(logx.String("comp", "app"))}, nil
}

// validateStoreOnly checks only what the sent sub-commands touch.
func validateStoreOnly(_ context.Context, cfg *config.Config) error {
	_, err := mapStorageConfig(cfg)
	return err
}

func (a *App) Logger() logx.Logger { return a.log }

func (a *App) Config() *config.Config { return a.cfgm.Get() }

func (a *App) Close() error {
	if a.logs == nil {
		return nil
	}
	return a.logs.Close()
}

// pipeline is everything one run needs, built from one config snapshot.
type pipeline struct {
	relay *relay.Relay
	store storage.Store
}

func (a *App) build(cfg *config.Config, dryRun bool) (*pipeline, error) {
	nc, err := mapNotionConfig(cfg)
	if err != nil {
		return nil, err
	}
	src, err := notion.New(nc, a.log.With(logx.String("comp", "notion")))
	if err != nil {
		return nil, err
	}

	tc, sendOpt, err := mapTelegramConfig(cfg)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(tc, a.log.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	x, err := mapExtractor(cfg)
	if err != nil {
		return nil, err
	}

	store, err := a.openStore(cfg)
	if err != nil {
		return nil, err
	}

	r := relay.New(src, relay.TransportSink{Sender: ad, Options: sendOpt}, store,
		relay.Options{Extractor: x, DryRun: dryRun, PlainText: sendOpt.ParseMode == ""},
		a.log.With(logx.String("comp", "relay")))
	return &pipeline{relay: r, store: store}, nil
}

func (a *App) openStore(cfg *config.Config) (storage.Store, error) {
	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	st, err := storage.Open(sc, a.log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}
	a.log.Debug("storage opened", logx.String("driver", sc.Driver), logx.String("path", sc.Path))
	return st, nil
}

// RunOnce executes one batch against the committed config. The error is
// non-nil only for setup failures; run outcomes are in the Result.
func (a *App) RunOnce(ctx context.Context, dryRun bool) (relay.Result, error) {
	p, err := a.build(a.cfgm.Get(), dryRun)
	if err != nil {
		return relay.Result{}, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	defer func() {
		if err := p.store.Close(); err != nil {
			a.log.Warn("storage close failed", logx.Err(err))
		}
	}()

	res := p.relay.Run(ctx)
	if errors.Is(res.Err, relay.ErrStoreLoad) {
		return res, fmt.Errorf("%w: %w", ErrSetup, res.Err)
	}
	return res, nil
}

// Schedule runs a batch per tick until ctx is done. Config edits are picked
// up between ticks; a changed schedule needs a restart.
func (a *App) Schedule(ctx context.Context) error {
	cfg := a.cfgm.Get()
	if cfg.Schedule.Spec == "" {
		return fmt.Errorf("%w: schedule.spec is required for the schedule command", ErrSetup)
	}
	opt, err := mapScheduleOptions(cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSetup, err)
	}

	updates := a.cfgm.Subscribe(1)
	defer a.cfgm.Unsubscribe(updates)
	go a.followConfig(ctx, updates, cfg.Schedule)
	go func() {
		if err := a.cfgm.Watch(ctx); err != nil {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	}()

	runner, err := schedule.NewRunner(opt, a.tick, a.log.With(logx.String("comp", "schedule")))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSetup, err)
	}
	return runner.Run(ctx)
}

func (a *App) tick(ctx context.Context) string {
	res, err := a.RunOnce(ctx, false)
	if err != nil {
		a.log.Error("run setup failed", logx.Err(err))
		return "last run: setup failed"
	}
	return fmt.Sprintf("last run: %s sent=%d failed=%d", res.State, res.Sent, res.DeliveryFailed+res.PersistFailed)
}

func (a *App) followConfig(ctx context.Context, updates <-chan *config.Config, sched config.ScheduleConfig) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-updates:
			if !ok {
				return
			}
			a.logs.Apply(mapLoggingConfig(cfg))
			if cfg.Schedule != sched {
				a.log.Warn("schedule changed; restart to apply",
					logx.String("running", sched.Spec), logx.String("configured", cfg.Schedule.Spec))
			}
		}
	}
}

// SentList writes every persisted id, one per line, in insertion order.
func (a *App) SentList(ctx context.Context, w io.Writer) (int, error) {
	st, err := a.openStore(a.cfgm.Get())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	defer st.Close()

	set, err := st.Load(ctx)
	if err != nil {
		return 0, err
	}
	for _, id := range set.IDs() {
		if _, err := fmt.Fprintln(w, id); err != nil {
			return 0, err
		}
	}
	return set.Len(), nil
}

// SentForget removes id so the next run may notify it again.
func (a *App) SentForget(ctx context.Context, id string) (bool, error) {
	st, err := a.openStore(a.cfgm.Get())
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	defer st.Close()

	ok, err := st.Forget(ctx, id)
	if err != nil {
		return false, err
	}
	a.log.Info("sent id forgotten", logx.String("record_id", id), logx.Bool("found", ok))
	return ok, nil
}
