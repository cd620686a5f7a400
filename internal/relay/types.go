package relay

import (
	"context"
	"errors"
	"time"

	"github.com/dudenheryana1994/deliverable-approval-submitted/internal/record"
	"github.com/dudenheryana1994/deliverable-approval-submitted/internal/storage"
)

var (
	ErrSourceFetch = errors.New("record source fetch failed")
	ErrNoRecords   = errors.New("record source returned no records")
	ErrStoreLoad   = errors.New("dedup store load failed")
)

// Source fetches the full current batch of records.
type Source interface {
	Fetch(ctx context.Context) ([]record.Record, error)
}

// Sink delivers one formatted message to an address. One call, one attempt.
type Sink interface {
	Deliver(ctx context.Context, address, text string) error
}

// Store is the dedup store as seen by the relay.
type Store interface {
	Load(ctx context.Context) (*storage.Set, error)
	MarkAndPersist(ctx context.Context, set *storage.Set, id string) error
}

// State is the run state: Fetching -> Dispatching -> Done, or Aborted.
type State string

const (
	StateFetching    State = "fetching"
	StateDispatching State = "dispatching"
	StateDone        State = "done"
	StateAborted     State = "aborted"
)

// Outcome is what happened to one record.
type Outcome string

const (
	OutcomeSent           Outcome = "sent"
	OutcomeAlreadySent    Outcome = "already_sent"
	OutcomeNoTarget       Outcome = "no_target"
	OutcomeNoID           Outcome = "no_id"
	OutcomeDeliveryFailed Outcome = "delivery_failed"
	OutcomePersistFailed  Outcome = "persist_failed"
	OutcomeDryRun         Outcome = "dry_run"
)

type RecordResult struct {
	ID      string
	Target  string
	Outcome Outcome
	Err     error
}

// Result summarizes one run. Err is set only when State is Aborted.
type Result struct {
	RunID string
	State State
	Err   error

	Fetched        int
	Sent           int
	AlreadySent    int
	NoTarget       int
	NoID           int
	DeliveryFailed int
	PersistFailed  int
	Records        []RecordResult

	StartedAt  time.Time
	FinishedAt time.Time
}

func (r *Result) add(rr RecordResult) {
	r.Records = append(r.Records, rr)
	switch rr.Outcome {
	case OutcomeSent:
		r.Sent++
	case OutcomeAlreadySent:
		r.AlreadySent++
	case OutcomeNoTarget:
		r.NoTarget++
	case OutcomeNoID:
		r.NoID++
	case OutcomeDeliveryFailed:
		r.DeliveryFailed++
	case OutcomePersistFailed:
		r.PersistFailed++
	}
}

// NothingToDo reports an early end because the source had nothing (or failed).
func (r Result) NothingToDo() bool {
	return r.State == StateAborted && (errors.Is(r.Err, ErrSourceFetch) || errors.Is(r.Err, ErrNoRecords))
}
