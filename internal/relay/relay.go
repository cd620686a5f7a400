// Package relay ties the pipeline together: fetch the batch, skip records
// already notified or without a target, deliver the rest in source order and
// persist each successful delivery before moving on.
package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dudenheryana1994/deliverable-approval-submitted/internal/message"
	"github.com/dudenheryana1994/deliverable-approval-submitted/internal/record"
	"github.com/dudenheryana1994/deliverable-approval-submitted/internal/storage"
	logx "github.com/dudenheryana1994/deliverable-approval-submitted/pkg/logx"
)

type Options struct {
	Extractor record.Extractor
	// DryRun extracts and formats but neither delivers nor persists.
	DryRun bool
	// PlainText renders without Markdown (sink sends with no parse mode).
	PlainText bool
}

type Relay struct {
	src   Source
	sink  Sink
	store Store
	opts  Options
	log   logx.Logger

	now   func() time.Time
	newID func() string
}

func New(src Source, sink Sink, store Store, opts Options, log logx.Logger) *Relay {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Relay{
		src:   src,
		sink:  sink,
		store: store,
		opts:  opts,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Run executes one batch. It never panics on bad data and never returns an
// error: the outcome, including an early abort, is carried by Result.
func (r *Relay) Run(ctx context.Context) (res Result) {
	res = Result{RunID: r.newID(), State: StateFetching, StartedAt: r.now()}
	log := r.log.With(logx.String("run_id", res.RunID))
	defer func() {
		res.FinishedAt = r.now()
		fields := []logx.Field{
			logx.String("state", string(res.State)),
			logx.Int("fetched", res.Fetched),
			logx.Int("sent", res.Sent),
			logx.Int("already_sent", res.AlreadySent),
			logx.Int("no_target", res.NoTarget),
			logx.Int("no_id", res.NoID),
			logx.Int("delivery_failed", res.DeliveryFailed),
			logx.Int("persist_failed", res.PersistFailed),
			logx.Duration("took", res.FinishedAt.Sub(res.StartedAt)),
			logx.Err(res.Err),
		}
		if res.PersistFailed > 0 {
			log.Error("run finished with persistence failures", fields...)
			return
		}
		log.Info("run finished", fields...)
	}()

	abort := func(err error) Result {
		res.State = StateAborted
		res.Err = err
		return res
	}

	recs, err := r.src.Fetch(ctx)
	if err != nil {
		log.Error("fetch failed; nothing to do this run", logx.Err(err))
		return abort(fmt.Errorf("%w: %w", ErrSourceFetch, err))
	}
	res.Fetched = len(recs)
	if len(recs) == 0 {
		log.Info("no records returned; nothing to do this run")
		return abort(ErrNoRecords)
	}

	sent, err := r.store.Load(ctx)
	if err != nil {
		log.Error("dedup store load failed", logx.Err(err))
		return abort(fmt.Errorf("%w: %w", ErrStoreLoad, err))
	}
	if sent == nil {
		sent = storage.NewSet()
	}

	res.State = StateDispatching
	log.Debug("dispatching", logx.Int("records", len(recs)), logx.Int("known_sent", sent.Len()))
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			log.Warn("run cancelled", logx.Err(err))
			return abort(err)
		}
		res.add(r.dispatch(ctx, log, sent, rec))
	}

	res.State = StateDone
	return res
}

func (r *Relay) dispatch(ctx context.Context, log logx.Logger, sent *storage.Set, rec record.Record) RecordResult {
	rr := RecordResult{ID: rec.ID}
	log = log.With(logx.String("record_id", rec.ID))

	if rec.ID == "" {
		rr.Outcome = OutcomeNoID
		rr.Err = errors.New("record has no id")
		log.Warn("record without id skipped")
		return rr
	}
	if sent.Has(rec.ID) {
		rr.Outcome = OutcomeAlreadySent
		log.Trace("already notified")
		return rr
	}

	rr.Target = r.opts.Extractor.TargetOf(rec)
	if !record.HasTarget(rr.Target) {
		rr.Outcome = OutcomeNoTarget
		log.Debug("no delivery target; left for a later run")
		return rr
	}

	render := message.Render
	if r.opts.PlainText {
		render = message.RenderPlain
	}
	text := render(r.opts.Extractor.Extract(rec))
	log = log.With(logx.String("target", rr.Target))

	if r.opts.DryRun {
		rr.Outcome = OutcomeDryRun
		log.Info("dry run: would send", logx.String("text", text))
		return rr
	}

	log.Info("sending notification")
	if err := r.sink.Deliver(ctx, rr.Target, text); err != nil {
		rr.Outcome = OutcomeDeliveryFailed
		rr.Err = err
		log.Error("delivery failed; will retry next run", logx.Err(err))
		return rr
	}

	if err := r.store.MarkAndPersist(ctx, sent, rec.ID); err != nil {
		rr.Outcome = OutcomePersistFailed
		rr.Err = err
		log.Error("delivered but not persisted; may be redelivered next run", logx.Err(err))
		return rr
	}

	rr.Outcome = OutcomeSent
	log.Info("notification sent")
	return rr
}
