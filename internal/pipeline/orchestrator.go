// Package pipeline serializes full ETL runs — fetch, normalize, load,
// cursor advance — behind a run lock so at most one executes at a time.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"gradtrack-engine/internal/cursor"
	"gradtrack-engine/internal/domain"
	"gradtrack-engine/internal/events"
	"gradtrack-engine/internal/normalize"
)

// Source streams raw records newer than since. Satisfied by *scrape.Fetcher.
type Source interface {
	Fetch(ctx context.Context, since time.Time, emit func(domain.RawRecord) error) (int, error)
}

// Loader commits one batch atomically. Satisfied by store.Loader.
type Loader interface {
	Load(ctx context.Context, recs []domain.Record) (inserted, skipped int, err error)
}

type Orchestrator struct {
	Lock      RunLock
	Cursor    cursor.Cursor
	Source    Source
	Loader    Loader
	Hub       *events.Hub
	BatchSize int
	Backfill  time.Duration // first-run lookback when no watermark exists

	status atomic.Value // domain.RunStatus
}

// Status returns the latest run snapshot.
func (o *Orchestrator) Status() domain.RunStatus {
	if v := o.status.Load(); v != nil {
		return v.(domain.RunStatus)
	}
	return domain.RunStatus{State: "idle"}
}

// Run executes one full pipeline pass. A second caller while one is in
// flight gets ErrBusy immediately. The cursor only advances after every
// batch has committed; any failure leaves it at the last good watermark.
func (o *Orchestrator) Run(ctx context.Context) (domain.RunSummary, error) {
	ok, err := o.Lock.TryAcquire()
	if err != nil {
		return domain.RunSummary{}, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return domain.RunSummary{}, ErrBusy
	}
	defer func() {
		if rerr := o.Lock.Release(); rerr != nil {
			log.Printf("[pipeline] release lock: %v", rerr)
		}
	}()

	// keep the previous run's counts visible while this one is in flight
	st := o.Status()
	st.State = "running"
	st.Running = true
	st.LastRunAt = time.Now().UTC().Format(time.RFC3339)
	o.setStatus(st)
	o.publish(events.TypeRunStarted, nil)

	summary, err := o.run(ctx)
	if err != nil {
		st = o.Status()
		st.State = "failed"
		st.Running = false
		st.LastError = err.Error()
		o.setStatus(st)
		o.publish(events.TypeRunFailed, map[string]string{"error": err.Error()})
		return summary, err
	}

	st = o.Status()
	st.State = "completed"
	st.Running = false
	st.LastError = ""
	st.LastOkAt = time.Now().UTC().Format(time.RFC3339)
	st.Fetched = summary.Fetched
	st.Inserted = summary.Inserted
	st.Skipped = summary.Skipped
	o.setStatus(st)
	o.publish(events.TypeRunCompleted, summary)
	log.Printf("[pipeline] ok fetched=%d inserted=%d skipped=%d watermark=%s",
		summary.Fetched, summary.Inserted, summary.Skipped, summary.NewWatermark)
	return summary, nil
}

func (o *Orchestrator) run(ctx context.Context) (domain.RunSummary, error) {
	var summary domain.RunSummary

	since, haveMark, err := o.Cursor.Read()
	if err != nil {
		return summary, &RunError{Stage: StageCursor, Err: err}
	}
	if !haveMark {
		since = time.Now().Add(-o.Backfill)
		log.Printf("[pipeline] no watermark, backfilling since %s", since.Format("2006-01-02"))
	}

	batchSize := o.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}

	var (
		batch   []domain.Record
		maxMark time.Time
		loadErr error
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		ins, skip, err := o.Loader.Load(ctx, batch)
		if err != nil {
			return err
		}
		summary.Inserted += ins
		summary.Skipped += skip
		o.publish(events.TypeBatchLoaded, map[string]int{"inserted": ins, "skipped": skip})
		batch = batch[:0]
		return nil
	}

	fetched, err := o.Source.Fetch(ctx, since, func(raw domain.RawRecord) error {
		if unknown := normalize.UnknownLabels(raw.Fields); len(unknown) > 0 {
			log.Printf("[pipeline] ignoring unknown labels %v on %s", unknown, raw.DetailURL)
		}
		rec := normalize.Normalize(raw)
		if mark := rec.Watermark(); mark != nil && mark.After(maxMark) {
			maxMark = *mark
		}
		batch = append(batch, rec)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				loadErr = err
				return err
			}
		}
		return nil
	})
	summary.Fetched = fetched
	if loadErr != nil {
		return summary, &RunError{Stage: StageLoad, Err: loadErr}
	}
	if err != nil {
		return summary, &RunError{Stage: StageFetch, Err: err}
	}

	if err := flush(); err != nil {
		return summary, &RunError{Stage: StageLoad, Err: err}
	}

	// Advance the watermark only now that every batch is durable. A crash
	// before this point re-fetches an overlapping tail into the idempotent
	// loader on the next run.
	if !maxMark.IsZero() {
		if err := o.Cursor.Write(maxMark); err != nil {
			return summary, &RunError{Stage: StageCursor, Err: err}
		}
		summary.NewWatermark = maxMark.Format("2006-01-02")
	} else if cur, ok, _ := o.Cursor.Read(); ok {
		summary.NewWatermark = cur.Format("2006-01-02")
	}

	return summary, nil
}

func (o *Orchestrator) setStatus(st domain.RunStatus) {
	o.status.Store(st)
}

func (o *Orchestrator) publish(typ string, data any) {
	if o.Hub != nil {
		o.Hub.Publish(typ, data)
	}
}
