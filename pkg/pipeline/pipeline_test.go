package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/nzotov/shortscout/internal/store"
	"github.com/nzotov/shortscout/pkg/source"
)

// fakeStrategy yields a fixed candidate slice, optionally with a
// trailing error, like a strategy whose provider cut it off.
type fakeStrategy struct {
	name       source.SourceType
	candidates []source.Candidate
	err        error
}

func (f *fakeStrategy) Name() source.SourceType { return f.name }

func (f *fakeStrategy) Scrape(ctx context.Context, limit int) ([]source.Candidate, error) {
	c := f.candidates
	if limit > 0 && limit < len(c) {
		c = c[:limit]
	}
	return c, f.err
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func trendingCandidate(id string, views, likes, comments float64) source.Candidate {
	return source.Candidate{
		Source:      source.SourceTrending,
		ExternalID:  id,
		Title:       "candidate " + id,
		Tags:        []string{"shorts"},
		PublishedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		CollectedAt: time.Date(2026, 8, 11, 0, 0, 0, 0, time.UTC),
		RawMetrics: map[string]float64{
			"view_count":    views,
			"like_count":    likes,
			"comment_count": comments,
			"duration":      45,
			"aspect":        0.56,
		},
	}
}

func TestRunInsertsAndReports(t *testing.T) {
	st := newTestStore(t)
	strat := &fakeStrategy{
		name: source.SourceTrending,
		candidates: []source.Candidate{
			trendingCandidate("v1", 1000, 50, 10),
			trendingCandidate("v2", 500, 5, 0),
			trendingCandidate("v3", 0, 0, 0),
		},
	}
	orch := New(st, strat)
	ctx := context.Background()

	summary, err := orch.Run(ctx, 10)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if summary.Attempted != 3 || summary.Inserted != 3 || summary.Duplicates != 0 || summary.Failed != 0 {
		t.Errorf("summary = %+v, want 3 attempted, 3 inserted", summary)
	}
	if summary.RunID == "" {
		t.Error("RunID empty")
	}
	if orch.State() != StateIdle {
		t.Errorf("state = %s, want idle after run", orch.State())
	}

	// Normalized metrics landed in the store.
	rec, err := st.GetRecord(ctx, "trending", "v1")
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if rec.EngagementRate != 0.06 {
		t.Errorf("EngagementRate = %v, want 0.06", rec.EngagementRate)
	}
	if rec.Views != 1000 {
		t.Errorf("Views = %d, want 1000", rec.Views)
	}

	// The run summary was persisted.
	runs, err := st.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != summary.RunID || runs[0].Inserted != 3 {
		t.Errorf("persisted runs = %+v, want one run %s with 3 inserts", runs, summary.RunID)
	}
}

func TestRunQuotaKeepsPartialResults(t *testing.T) {
	st := newTestStore(t)
	strat := &fakeStrategy{
		name: source.SourceAPISearch,
		candidates: []source.Candidate{
			trendingCandidate("q1", 100, 1, 0),
			trendingCandidate("q2", 200, 2, 0),
			trendingCandidate("q3", 300, 3, 0),
		},
		err: fmt.Errorf("search status 403: %w", source.ErrQuotaExceeded),
	}
	// Strategy yielded 3 of the requested 10 before the quota died.
	summary, err := New(st, strat).Run(context.Background(), 10)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if !summary.QuotaHit {
		t.Error("QuotaHit = false, want true")
	}
	if summary.Attempted != 3 || summary.Inserted != 3 {
		t.Errorf("summary = %+v, want attempted=3 inserted=3", summary)
	}
	if summary.Failed != 0 {
		t.Errorf("Failed = %d, quota must not count as a failure", summary.Failed)
	}
}

func TestRunCountsDuplicates(t *testing.T) {
	st := newTestStore(t)
	strat := &fakeStrategy{
		name: source.SourceTrending,
		candidates: []source.Candidate{
			trendingCandidate("d1", 100, 1, 0),
			trendingCandidate("d2", 200, 2, 0),
		},
	}
	ctx := context.Background()

	if _, err := New(st, strat).Run(ctx, 10); err != nil {
		t.Fatalf("first run: %v", err)
	}
	summary, err := New(st, strat).Run(ctx, 10)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if summary.Inserted != 0 || summary.Duplicates != 2 {
		t.Errorf("summary = %+v, want 0 inserted, 2 duplicates", summary)
	}
	if summary.Failed != 0 {
		t.Errorf("Failed = %d, duplicates are not failures", summary.Failed)
	}
}

func TestRunValidationFailureDoesNotAbort(t *testing.T) {
	bad := trendingCandidate("bad1", 100, 1, 0)
	bad.Title = ""

	st := newTestStore(t)
	strat := &fakeStrategy{
		name: source.SourceTrending,
		candidates: []source.Candidate{
			trendingCandidate("ok1", 100, 1, 0),
			bad,
			trendingCandidate("ok2", 200, 2, 0),
		},
	}

	summary, err := New(st, strat).Run(context.Background(), 10)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if summary.Attempted != 3 || summary.Inserted != 2 || summary.Failed != 1 {
		t.Errorf("summary = %+v, want attempted=3 inserted=2 failed=1", summary)
	}
	if len(summary.FailureReasons) != 1 {
		t.Errorf("FailureReasons = %v, want 1 entry", summary.FailureReasons)
	}
}

func TestRunStrategyErrorYieldsEmptySummary(t *testing.T) {
	st := newTestStore(t)
	strat := &fakeStrategy{
		name: source.SourceChannel,
		err:  &source.PermanentError{Err: fmt.Errorf("channel gone")},
	}

	summary, err := New(st, strat).Run(context.Background(), 10)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if summary.Attempted != 0 || summary.Inserted != 0 {
		t.Errorf("summary = %+v, want empty counts", summary)
	}
	if summary.Failed != 1 || len(summary.FailureReasons) != 1 {
		t.Errorf("summary = %+v, want the strategy failure recorded", summary)
	}
	if summary.QuotaHit {
		t.Error("QuotaHit = true for non-quota failure")
	}
}
