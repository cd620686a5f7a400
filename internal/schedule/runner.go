package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"

	logx "github.com/dudenheryana1994/deliverable-approval-submitted/pkg/logx"
)

// Job runs one tick and returns a one-line status for the service manager.
type Job func(ctx context.Context) string

type Options struct {
	Spec       Spec
	Location   *time.Location
	RunOnStart bool
	// Notify reports state to the service manager. Defaults to sd_notify;
	// a no-op when not started by systemd.
	Notify func(state string)
}

// Runner fires Job on a schedule. Ticks never overlap: a tick that comes
// due while the previous one is still running is skipped.
type Runner struct {
	opt   Options
	job   Job
	log   logx.Logger
	sched cron.Schedule
}

func NewRunner(opt Options, job Job, log logx.Logger) (*Runner, error) {
	if job == nil {
		return nil, fmt.Errorf("schedule: job is nil")
	}
	sched, err := opt.Spec.Schedule()
	if err != nil {
		return nil, err
	}
	if opt.Location == nil {
		opt.Location = time.Local
	}
	if opt.Notify == nil {
		opt.Notify = func(state string) { sdNotify(log, state) }
	}
	return &Runner{opt: opt, job: job, log: log, sched: sched}, nil
}

// Run blocks until ctx is done, then waits for an in-flight tick to finish.
func (r *Runner) Run(ctx context.Context) error {
	c := cron.New(
		cron.WithLocation(r.opt.Location),
		cron.WithChain(cron.Recover(cronLogger{r.log}), cron.SkipIfStillRunning(cronLogger{r.log})),
	)
	c.Schedule(r.sched, cron.FuncJob(func() { r.tick(ctx) }))

	r.opt.Notify(daemon.SdNotifyReady)
	r.log.Info("scheduler started",
		logx.String("schedule", r.opt.Spec.String()),
		logx.String("tz", r.opt.Location.String()),
		logx.Time("next", r.sched.Next(time.Now().In(r.opt.Location))),
	)

	if r.opt.RunOnStart {
		r.tick(ctx)
	}
	c.Start()

	<-ctx.Done()
	r.opt.Notify(daemon.SdNotifyStopping)
	<-c.Stop().Done()
	r.log.Info("scheduler stopped")
	return nil
}

func (r *Runner) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	status := r.job(ctx)
	if status != "" {
		r.opt.Notify("STATUS=" + status)
	}
}

func sdNotify(log logx.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		log.Debug("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if sent {
		log.Trace("sd_notify", logx.String("state", state))
	}
}

// cronLogger adapts logx to cron.Logger.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.Debug("cron: "+msg, kvFields(kv)...)
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Error("cron: "+msg, append(kvFields(kv), logx.Err(err))...)
}

func kvFields(kv []any) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, logx.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
