package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gradtrack-engine/internal/cursor"
	"gradtrack-engine/internal/domain"
	"gradtrack-engine/internal/store"
)

// fakeSource emits a fixed set of raw records regardless of since.
type fakeSource struct {
	records  []domain.RawRecord
	err      error
	gotSince time.Time
}

func (s *fakeSource) Fetch(_ context.Context, since time.Time, emit func(domain.RawRecord) error) (int, error) {
	s.gotSince = since
	n := 0
	for _, r := range s.records {
		if err := emit(r); err != nil {
			return n, err
		}
		n++
	}
	return n, s.err
}

type failingLoader struct{}

func (failingLoader) Load(context.Context, []domain.Record) (int, int, error) {
	return 0, 0, errors.New("disk full")
}

func rawRecord(i int, added time.Time) domain.RawRecord {
	return domain.RawRecord{
		DetailURL: fmt.Sprintf("https://example.org/result/%d", i),
		AddedOn:   &added,
		Fields: map[string]string{
			"Institution": "Somewhere State University",
			"Program":     "Computer Science",
			"Decision":    "Accepted on March 14, 2025",
		},
	}
}

func testLoader(t *testing.T) (store.Loader, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db))
	return store.Loader{DB: db}, db
}

func TestRunHappyPath(t *testing.T) {
	loader, db := testLoader(t)
	cur := &cursor.MemCursor{}
	src := &fakeSource{records: []domain.RawRecord{
		rawRecord(1, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)),
		rawRecord(2, time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC)),
	}}
	o := &Orchestrator{
		Lock:     &MutexRunLock{},
		Cursor:   cur,
		Source:   src,
		Loader:   loader,
		Backfill: 7 * 24 * time.Hour,
	}

	sum, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, sum.Fetched)
	require.Equal(t, 2, sum.Inserted)
	require.Equal(t, 0, sum.Skipped)
	require.Equal(t, "2025-03-16", sum.NewWatermark)

	mark, ok, err := cur.Read()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2025-03-16", mark.Format("2006-01-02"))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM applicants;`).Scan(&n))
	require.Equal(t, 2, n)

	st := o.Status()
	require.Equal(t, "completed", st.State)
	require.False(t, st.Running)
	require.Empty(t, st.LastError)
}

func TestRunBackfillWhenNoWatermark(t *testing.T) {
	loader, _ := testLoader(t)
	src := &fakeSource{}
	o := &Orchestrator{
		Lock:     &MutexRunLock{},
		Cursor:   &cursor.MemCursor{},
		Source:   src,
		Loader:   loader,
		Backfill: 7 * 24 * time.Hour,
	}

	_, err := o.Run(context.Background())
	require.NoError(t, err)

	want := time.Now().Add(-7 * 24 * time.Hour)
	require.WithinDuration(t, want, src.gotSince, time.Minute)
}

func TestRunBusy(t *testing.T) {
	loader, _ := testLoader(t)
	lock := &MutexRunLock{}
	held, err := lock.TryAcquire()
	require.NoError(t, err)
	require.True(t, held)

	cur := &cursor.MemCursor{}
	require.NoError(t, cur.Write(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))

	o := &Orchestrator{Lock: lock, Cursor: cur, Source: &fakeSource{}, Loader: loader}
	_, err = o.Run(context.Background())
	require.ErrorIs(t, err, ErrBusy)

	// a busy rejection must not touch the watermark
	mark, ok, err := cur.Read()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2025-03-01", mark.Format("2006-01-02"))
}

func TestRunLoadFailureLeavesCursorAndReleasesLock(t *testing.T) {
	cur := &cursor.MemCursor{}
	require.NoError(t, cur.Write(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))

	src := &fakeSource{records: []domain.RawRecord{
		rawRecord(1, time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)),
	}}
	o := &Orchestrator{
		Lock:   &MutexRunLock{},
		Cursor: cur,
		Source: src,
		Loader: failingLoader{},
	}

	_, err := o.Run(context.Background())
	require.Error(t, err)

	var rerr *RunError
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, StageLoad, rerr.Stage)

	mark, _, err := cur.Read()
	require.NoError(t, err)
	require.Equal(t, "2025-03-01", mark.Format("2006-01-02"), "cursor must not advance past a failed load")

	st := o.Status()
	require.Equal(t, "failed", st.State)
	require.NotEmpty(t, st.LastError)

	// the lock is released after a failed run, so the next attempt proceeds
	loader, _ := testLoader(t)
	o.Loader = loader
	sum, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, sum.Inserted)
	require.Equal(t, "2025-03-20", sum.NewWatermark)
}

func TestRunFetchFailureKeepsCommittedBatches(t *testing.T) {
	loader, db := testLoader(t)
	cur := &cursor.MemCursor{}

	var recs []domain.RawRecord
	for i := 1; i <= 3; i++ {
		recs = append(recs, rawRecord(i, time.Date(2025, 3, 10+i, 0, 0, 0, 0, time.UTC)))
	}
	src := &fakeSource{records: recs, err: errors.New("connection reset")}
	o := &Orchestrator{
		Lock:      &MutexRunLock{},
		Cursor:    cur,
		Source:    src,
		Loader:    loader,
		BatchSize: 2,
		Backfill:  24 * time.Hour,
	}

	_, err := o.Run(context.Background())
	var rerr *RunError
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, StageFetch, rerr.Stage)

	// the first batch of two committed before the fetch error surfaced
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM applicants;`).Scan(&n))
	require.Equal(t, 2, n)

	// but the cursor stayed put, so the next run re-fetches the tail
	_, ok, err := cur.Read()
	require.NoError(t, err)
	require.False(t, ok)
}

// sourceFn adapts a closure to the Source interface, so a test can observe
// orchestrator state from inside a run.
type sourceFn func(context.Context, time.Time, func(domain.RawRecord) error) (int, error)

func (f sourceFn) Fetch(ctx context.Context, since time.Time, emit func(domain.RawRecord) error) (int, error) {
	return f(ctx, since, emit)
}

func TestRunningStatusKeepsPriorCounts(t *testing.T) {
	loader, _ := testLoader(t)
	o := &Orchestrator{
		Lock:   &MutexRunLock{},
		Cursor: &cursor.MemCursor{},
		Source: &fakeSource{records: []domain.RawRecord{
			rawRecord(1, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)),
			rawRecord(2, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)),
		}},
		Loader:   loader,
		Backfill: 24 * time.Hour,
	}

	_, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, o.Status().Fetched)

	var during domain.RunStatus
	o.Source = sourceFn(func(context.Context, time.Time, func(domain.RawRecord) error) (int, error) {
		during = o.Status()
		return 0, nil
	})
	_, err = o.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, "running", during.State)
	require.True(t, during.Running)
	require.Equal(t, 2, during.Fetched, "the last run's counts stay visible while a new run is in flight")
	require.Equal(t, 2, during.Inserted)
}

func TestRunEmptyFetchKeepsWatermark(t *testing.T) {
	loader, _ := testLoader(t)
	cur := &cursor.MemCursor{}
	require.NoError(t, cur.Write(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))

	o := &Orchestrator{Lock: &MutexRunLock{}, Cursor: cur, Source: &fakeSource{}, Loader: loader}
	sum, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, sum.Fetched)
	require.Equal(t, "2025-03-01", sum.NewWatermark)

	mark, ok, err := cur.Read()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2025-03-01", mark.Format("2006-01-02"))
}
