package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/nzotov/shortscout/internal/config"
	"github.com/nzotov/shortscout/internal/scheduler"
	"github.com/nzotov/shortscout/internal/store"
	"github.com/nzotov/shortscout/pkg/alert"
	"github.com/nzotov/shortscout/pkg/idea"
	"github.com/nzotov/shortscout/pkg/pipeline"
	"github.com/nzotov/shortscout/pkg/server"
	"github.com/nzotov/shortscout/pkg/source"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

// strategyLimit pairs a strategy with its configured per-run limit.
type strategyLimit struct {
	strategy source.Strategy
	limit    int
}

func buildStrategies(cfg *config.Config) []strategyLimit {
	var out []strategyLimit

	filter := source.NewFilter(cfg.Shorts.MaxDurationSec, cfg.Shorts.MinAspectRatio)

	if cfg.Sources.Search.Enabled {
		out = append(out, strategyLimit{
			strategy: source.NewAPISearch(cfg.Sources.Search.APIKey, cfg.Sources.Search.Queries),
			limit:    cfg.Sources.Search.Limit,
		})
	}
	if cfg.Sources.Channel.Enabled {
		out = append(out, strategyLimit{
			strategy: source.NewChannel(cfg.Sources.Channel.APIKey, cfg.Sources.Channel.ChannelIDs, filter),
			limit:    cfg.Sources.Channel.Limit,
		})
	}
	if cfg.Sources.Trending.Enabled {
		out = append(out, strategyLimit{
			strategy: source.NewTrending(cfg.Sources.Trending.APIKey, cfg.Sources.Trending.Region),
			limit:    cfg.Sources.Trending.Limit,
		})
	}

	return out
}

func buildPipelines(db store.Store, strategies []strategyLimit) map[source.SourceType]*pipeline.Orchestrator {
	pipelines := make(map[source.SourceType]*pipeline.Orchestrator, len(strategies))
	for _, sl := range strategies {
		pipelines[sl.strategy.Name()] = pipeline.New(db, sl.strategy)
	}
	return pipelines
}

func buildAlertManager(cfg *config.Config) *alert.Manager {
	var notifiers []alert.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewSlack(cfg.Alerts.Slack.WebhookURL))
	}
	if cfg.Alerts.Discord.Enabled && cfg.Alerts.Discord.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewDiscord(cfg.Alerts.Discord.WebhookURL))
	}
	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alert.NewWebhook(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Secret))
	}

	return alert.NewManager(notifiers)
}

func runScrape(filterSources []string, limitOverride int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	all := buildStrategies(cfg)

	// Filter to requested sources only.
	var strategies []strategyLimit
	if len(filterSources) > 0 {
		wanted := make(map[string]bool)
		for _, s := range filterSources {
			wanted[strings.ToLower(strings.TrimSpace(s))] = true
		}
		for _, sl := range all {
			if wanted[string(sl.strategy.Name())] {
				strategies = append(strategies, sl)
			}
		}
		if len(strategies) == 0 {
			return fmt.Errorf("no matching sources for: %s", strings.Join(filterSources, ", "))
		}
	} else {
		strategies = all
	}

	ctx := context.Background()
	totalInserted := 0

	for _, sl := range strategies {
		limit := sl.limit
		if limitOverride > 0 {
			limit = limitOverride
		}

		fmt.Fprintf(os.Stderr, "scraping %s...\n", sl.strategy.Name())
		summary, err := pipeline.New(db, sl.strategy).Run(ctx, limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  report error: %v\n", err)
		}

		fmt.Fprintf(os.Stderr, "  attempted=%d inserted=%d duplicates=%d failed=%d",
			summary.Attempted, summary.Inserted, summary.Duplicates, summary.Failed)
		if summary.QuotaHit {
			fmt.Fprint(os.Stderr, " (quota exceeded)")
		}
		fmt.Fprintln(os.Stderr)

		for _, reason := range summary.FailureReasons {
			fmt.Fprintf(os.Stderr, "    failure: %s\n", reason)
		}
		totalInserted += summary.Inserted
	}

	fmt.Fprintf(os.Stderr, "\ntotal: %d new records from %d sources\n", totalInserted, len(strategies))
	return nil
}

func runIdeas(jsonOutput bool, srcFilter string, minScore float64, limit int, outFile string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	recs, err := db.ListRecords(context.Background(), store.ListOpts{
		Source:        srcFilter,
		MinEngagement: minScore,
		Limit:         limit,
	})
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}

	ideas := idea.FromRecords(recs)

	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return fmt.Errorf("create %s: %w", outFile, err)
		}
		defer f.Close()
		if err := idea.WriteJSONL(f, ideas); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "exported %d ideas to %s\n", len(ideas), outFile)
		return nil
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ideas)
	}

	if len(ideas) == 0 {
		fmt.Println("no ideas found (try scraping first: shortscout scrape)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tSOURCE\tTITLE\tPUBLISHED")
	for _, id := range ideas {
		fmt.Fprintf(w, "%.3f\t%s\t%s\t%s\n",
			id.Score, id.Source, id.Title,
			id.PublishedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func runStats() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	counts, err := db.CountBySource(context.Background())
	if err != nil {
		return fmt.Errorf("count by source: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tRECORDS")
	total := 0
	for _, st := range source.AllSourceTypes() {
		fmt.Fprintf(w, "%s\t%d\n", st, counts[string(st)])
		total += counts[string(st)]
	}
	fmt.Fprintf(w, "total\t%d\n", total)
	return w.Flush()
}

func runRuns(limit int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	runs, err := db.ListRuns(context.Background(), limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("no runs recorded yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tSOURCE\tATTEMPTED\tINSERTED\tDUPES\tFAILED\tQUOTA")
	for _, run := range runs {
		quota := ""
		if run.QuotaHit {
			quota = "hit"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			run.StartedAt.Format(time.RFC3339), run.Source,
			run.Attempted, run.Inserted, run.Duplicates, run.Failed, quota)
	}
	return w.Flush()
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	pipelines := buildPipelines(db, buildStrategies(cfg))
	srv := server.New(db, pipelines, port)
	return srv.ListenAndServe()
}

func runDaemon(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	strategies := buildStrategies(cfg)
	pipelines := buildPipelines(db, strategies)
	alertMgr := buildAlertManager(cfg)

	jobs := make([]scheduler.Job, 0, len(strategies))
	for _, sl := range strategies {
		jobs = append(jobs, scheduler.Job{
			Orchestrator: pipelines[sl.strategy.Name()],
			Limit:        sl.limit,
		})
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(db, jobs, alertMgr,
		cfg.Schedule.ParseScrapeInterval(),
		cfg.Alerts.MinEngagement,
	)

	// Start scheduler in background.
	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "scheduler error: %v\n", err)
		}
	}()

	srv := server.New(db, pipelines, port)
	go func() {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nshutting down...")
	}()

	return srv.ListenAndServe()
}
