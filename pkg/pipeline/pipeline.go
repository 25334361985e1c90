// Package pipeline drives one acquisition strategy through
// normalization, deduplicated persistence, and run reporting.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nzotov/shortscout/internal/store"
	"github.com/nzotov/shortscout/pkg/metrics"
	"github.com/nzotov/shortscout/pkg/source"
)

// State is the orchestrator's current phase.
type State string

const (
	StateIdle        State = "idle"
	StateFetching    State = "fetching"
	StateNormalizing State = "normalizing"
	StatePersisting  State = "persisting"
	StateReporting   State = "reporting"
)

// Summary aggregates the outcome of one run. Candidate-level failures
// never abort a run; they are counted here instead.
type Summary struct {
	RunID      string            `json:"run_id"`
	Source     source.SourceType `json:"source"`
	Limit      int               `json:"limit"`
	Attempted  int               `json:"attempted"`
	Inserted   int               `json:"inserted"`
	Duplicates int               `json:"duplicates"`
	Failed     int               `json:"failed"`
	// QuotaHit is set when the strategy ended the run early on
	// ErrQuotaExceeded; the counts above cover the partial results.
	QuotaHit       bool      `json:"quota_hit"`
	FailureReasons []string  `json:"failure_reasons,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// Orchestrator binds one strategy to the shared store. Multiple
// orchestrators (one per source) may run concurrently against the same
// store; the store's atomic insert is the only shared mutable state.
type Orchestrator struct {
	store    store.Store
	strategy source.Strategy

	mu    sync.Mutex
	state State
}

// New creates an orchestrator for one strategy.
func New(st store.Store, strategy source.Strategy) *Orchestrator {
	return &Orchestrator{
		store:    st,
		strategy: strategy,
		state:    StateIdle,
	}
}

// State returns the current phase.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Run executes one full pass: fetch up to limit candidates, normalize
// their metrics, attempt deduplicated inserts in yield order, and
// persist the summary. The returned summary is always non-nil; the
// error covers only summary persistence, never candidate failures.
func (o *Orchestrator) Run(ctx context.Context, limit int) (*Summary, error) {
	summary := &Summary{
		RunID:     uuid.NewString(),
		Source:    o.strategy.Name(),
		Limit:     limit,
		StartedAt: time.Now().UTC(),
	}
	defer o.setState(StateIdle)

	o.setState(StateFetching)
	candidates, err := o.strategy.Scrape(ctx, limit)
	switch {
	case err == nil:
	case errors.Is(err, source.ErrQuotaExceeded):
		// Terminal for this run, not for the process: keep what the
		// strategy already yielded.
		summary.QuotaHit = true
	default:
		summary.Failed++
		summary.FailureReasons = append(summary.FailureReasons,
			fmt.Sprintf("%s: %v", o.strategy.Name(), err))
	}

	o.setState(StateNormalizing)
	records := make([]store.Record, 0, len(candidates))
	for i := range candidates {
		records = append(records, recordFromCandidate(candidates[i]))
	}

	o.setState(StatePersisting)
	for i := range records {
		summary.Attempted++
		result, err := o.store.Insert(ctx, &records[i])
		if err != nil {
			summary.Failed++
			summary.FailureReasons = append(summary.FailureReasons,
				fmt.Sprintf("%s/%s: %v", records[i].Source, records[i].ExternalID, err))
			continue
		}
		switch result {
		case store.Inserted:
			summary.Inserted++
		case store.Duplicate:
			summary.Duplicates++
		}
	}

	o.setState(StateReporting)
	summary.FinishedAt = time.Now().UTC()
	run := &store.Run{
		ID:             summary.RunID,
		Source:         string(summary.Source),
		Attempted:      summary.Attempted,
		Inserted:       summary.Inserted,
		Duplicates:     summary.Duplicates,
		Failed:         summary.Failed,
		QuotaHit:       summary.QuotaHit,
		FailureReasons: summary.FailureReasons,
		StartedAt:      summary.StartedAt,
		FinishedAt:     summary.FinishedAt,
	}
	if err := o.store.AddRun(ctx, run); err != nil {
		fmt.Fprintf(os.Stderr, "  run %s report error: %v\n", summary.RunID, err)
		return summary, err
	}
	return summary, nil
}

// recordFromCandidate normalizes a candidate's metrics and lays it out
// as a storable record.
func recordFromCandidate(c source.Candidate) store.Record {
	n := metrics.Normalize(c.Source, c.RawMetrics, c.PublishedAt, c.CollectedAt)
	return store.Record{
		Source:      string(c.Source),
		ExternalID:  c.ExternalID,
		Title:       c.Title,
		Description: c.Description,
		Tags:        c.Tags,
		PublishedAt: c.PublishedAt,
		CollectedAt: c.CollectedAt,
		Subtitles:   c.Subtitles,

		Views:            n.Views,
		Likes:            n.Likes,
		Comments:         n.Comments,
		DurationSec:      n.DurationSec,
		AspectRatio:      n.AspectRatio,
		ViewsPerDay:      n.ViewsPerDay,
		ViewsPerHour:     n.ViewsPerHour,
		EngagementRate:   n.EngagementRate,
		LikeViewRatio:    n.LikeViewRatio,
		CommentViewRatio: n.CommentViewRatio,

		Metrics: n.Map(),
	}
}
