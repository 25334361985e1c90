package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/nzotov/shortscout/internal/store"
	"github.com/nzotov/shortscout/pkg/alert"
	"github.com/nzotov/shortscout/pkg/idea"
	"github.com/nzotov/shortscout/pkg/pipeline"
)

// Job binds an orchestrator to its per-run candidate limit.
type Job struct {
	Orchestrator *pipeline.Orchestrator
	Limit        int
}

// Scheduler runs the scrape pipelines periodically and sends idea
// digests for high-engagement finds.
type Scheduler struct {
	store         store.Store
	jobs          []Job
	alertMgr      *alert.Manager
	interval      time.Duration
	minEngagement float64
}

// New creates a new scheduler.
func New(s store.Store, jobs []Job, alertMgr *alert.Manager, interval time.Duration, minEngagement float64) *Scheduler {
	if interval == 0 {
		interval = time.Hour
	}
	if minEngagement == 0 {
		minEngagement = 0.05
	}
	return &Scheduler{
		store:         s,
		jobs:          jobs,
		alertMgr:      alertMgr,
		interval:      interval,
		minEngagement: minEngagement,
	}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on start.
	fmt.Fprintln(os.Stderr, "scheduler: initial scrape...")
	s.scrapeAll(ctx)

	fmt.Fprintf(os.Stderr, "scheduler: running (scrape every %s)\n", s.interval)

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "scheduler: stopped")
			return ctx.Err()
		case <-ticker.C:
			fmt.Fprintln(os.Stderr, "scheduler: scraping...")
			s.scrapeAll(ctx)
		}
	}
}

func (s *Scheduler) scrapeAll(ctx context.Context) {
	for _, job := range s.jobs {
		summary, err := job.Orchestrator.Run(ctx, job.Limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s report error: %v\n", summary.Source, err)
		}

		fmt.Fprintf(os.Stderr, "  %s: attempted=%d inserted=%d duplicates=%d failed=%d",
			summary.Source, summary.Attempted, summary.Inserted, summary.Duplicates, summary.Failed)
		if summary.QuotaHit {
			fmt.Fprint(os.Stderr, " (quota exceeded)")
		}
		fmt.Fprintln(os.Stderr)

		if summary.Inserted > 0 {
			s.notifyNewIdeas(ctx, summary)
		}
	}
}

// notifyNewIdeas sends a digest of this run's inserts that cleared the
// engagement threshold.
func (s *Scheduler) notifyNewIdeas(ctx context.Context, summary *pipeline.Summary) {
	if !s.alertMgr.HasNotifiers() {
		return
	}

	recs, err := s.store.ListRecords(ctx, store.ListOpts{
		Source:        string(summary.Source),
		Since:         summary.StartedAt,
		MinEngagement: s.minEngagement,
		Limit:         summary.Inserted,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "  %s digest query error: %v\n", summary.Source, err)
		return
	}
	if len(recs) == 0 {
		return
	}

	ideas := idea.FromRecords(recs)
	top := ideas[0].Score
	for _, id := range ideas {
		if id.Score > top {
			top = id.Score
		}
	}

	notification := &alert.Notification{
		Title:    fmt.Sprintf("%d new short-form ideas", len(ideas)),
		Body:     fmt.Sprintf("Run %s inserted %d records; %d above engagement %.3f", summary.RunID, summary.Inserted, len(ideas), s.minEngagement),
		Source:   string(summary.Source),
		TopScore: top,
		Ideas:    ideas,
	}

	if err := s.alertMgr.Broadcast(ctx, notification); err != nil {
		fmt.Fprintf(os.Stderr, "  alert error for %s: %v\n", summary.Source, err)
		return
	}
	fmt.Fprintf(os.Stderr, "  alerted: %d ideas (top: %.3f)\n", len(ideas), top)
}
