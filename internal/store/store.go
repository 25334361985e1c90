package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Record is the persisted form of a candidate plus its normalized
// metrics, keyed uniquely by (source, external_id). Rows are never
// updated after insert.
type Record struct {
	ID          int64     `db:"id"`
	Source      string    `db:"source"`
	ExternalID  string    `db:"external_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	PublishedAt time.Time `db:"published_at"`
	CollectedAt time.Time `db:"collected_at"`
	Subtitles   string    `db:"subtitles"`

	Views            int64   `db:"views"`
	Likes            int64   `db:"likes"`
	Comments         int64   `db:"comments"`
	DurationSec      float64 `db:"duration_sec"`
	AspectRatio      float64 `db:"aspect_ratio"`
	ViewsPerDay      float64 `db:"views_per_day"`
	ViewsPerHour     float64 `db:"views_per_hour"`
	EngagementRate   float64 `db:"engagement_rate"`
	LikeViewRatio    float64 `db:"like_view_ratio"`
	CommentViewRatio float64 `db:"comment_view_ratio"`

	Tags     []string           `json:"tags" db:"-"`
	Metrics  map[string]float64 `json:"metrics" db:"-"`
	TagsJSON string             `json:"-" db:"tags"`
	// MetricsJSON is the full normalized-metrics dictionary, kept for
	// audit and forward-compatible fields.
	MetricsJSON string `json:"-" db:"metrics"`
}

// Run is a persisted pipeline run summary.
type Run struct {
	ID         string    `db:"id"`
	Source     string    `db:"source"`
	Attempted  int       `db:"attempted"`
	Inserted   int       `db:"inserted"`
	Duplicates int       `db:"duplicates"`
	Failed     int       `db:"failed"`
	QuotaHit   bool      `db:"quota_hit"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`

	FailureReasons []string `db:"-"`
	FailuresJSON   string   `db:"failure_reasons"`
}

// InsertResult reports the outcome of an insert attempt.
type InsertResult int

const (
	// Inserted means the record is newly stored.
	Inserted InsertResult = iota
	// Duplicate means a record with the same (source, external_id)
	// already exists; the stored row is untouched.
	Duplicate
)

func (r InsertResult) String() string {
	if r == Inserted {
		return "inserted"
	}
	return "duplicate"
}

// ValidationError marks a record rejected before insert because a
// required field is missing. Distinct from Duplicate.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("record missing required field %q", e.Field)
}

// ListOpts controls record listing.
type ListOpts struct {
	Source        string
	Since         time.Time
	MinEngagement float64
	Limit         int
}

// Store is the persistence interface.
type Store interface {
	Insert(ctx context.Context, rec *Record) (InsertResult, error)
	Exists(ctx context.Context, source, externalID string) (bool, error)
	GetRecord(ctx context.Context, source, externalID string) (*Record, error)
	ListRecords(ctx context.Context, opts ListOpts) ([]Record, error)
	CountBySource(ctx context.Context) (map[string]int, error)

	AddRun(ctx context.Context, run *Run) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	// SQLite serializes writes anyway; one connection keeps concurrent
	// inserts from surfacing busy errors instead of Duplicate results.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Insert stores a record unless its (source, external_id) pair already
// exists. The uniqueness check and the write are one statement, so two
// concurrent inserts for the same key resolve to exactly one Inserted
// and one Duplicate.
func (s *SQLiteStore) Insert(ctx context.Context, rec *Record) (InsertResult, error) {
	switch {
	case rec.Source == "":
		return Duplicate, &ValidationError{Field: "source"}
	case rec.ExternalID == "":
		return Duplicate, &ValidationError{Field: "external_id"}
	case rec.Title == "":
		return Duplicate, &ValidationError{Field: "title"}
	}

	tagsJSON, _ := json.Marshal(rec.Tags)
	metricsJSON, _ := json.Marshal(rec.Metrics)
	rec.TagsJSON = string(tagsJSON)
	rec.MetricsJSON = string(metricsJSON)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO records (
			source, external_id, title, description, tags,
			published_at, collected_at, subtitles,
			views, likes, comments, duration_sec, aspect_ratio,
			views_per_day, views_per_hour, engagement_rate,
			like_view_ratio, comment_view_ratio, metrics
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source, external_id) DO NOTHING
	`, rec.Source, rec.ExternalID, rec.Title, rec.Description, rec.TagsJSON,
		rec.PublishedAt, rec.CollectedAt, rec.Subtitles,
		rec.Views, rec.Likes, rec.Comments, rec.DurationSec, rec.AspectRatio,
		rec.ViewsPerDay, rec.ViewsPerHour, rec.EngagementRate,
		rec.LikeViewRatio, rec.CommentViewRatio, rec.MetricsJSON)
	if err != nil {
		return Duplicate, fmt.Errorf("insert record %s/%s: %w", rec.Source, rec.ExternalID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return Duplicate, fmt.Errorf("insert record %s/%s: %w", rec.Source, rec.ExternalID, err)
	}
	if n == 0 {
		return Duplicate, nil
	}
	rec.ID, _ = res.LastInsertId()
	return Inserted, nil
}

func (s *SQLiteStore) Exists(ctx context.Context, source, externalID string) (bool, error) {
	var one int
	err := s.db.GetContext(ctx, &one,
		"SELECT 1 FROM records WHERE source = ? AND external_id = ?", source, externalID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists %s/%s: %w", source, externalID, err)
	}
	return true, nil
}

func (s *SQLiteStore) GetRecord(ctx context.Context, source, externalID string) (*Record, error) {
	var rec Record
	err := s.db.GetContext(ctx, &rec,
		"SELECT * FROM records WHERE source = ? AND external_id = ?", source, externalID)
	if err != nil {
		return nil, fmt.Errorf("get record %s/%s: %w", source, externalID, err)
	}
	decodeRecord(&rec)
	return &rec, nil
}

func (s *SQLiteStore) ListRecords(ctx context.Context, opts ListOpts) ([]Record, error) {
	query := "SELECT * FROM records WHERE 1=1"
	var args []any

	if opts.Source != "" {
		query += " AND source = ?"
		args = append(args, opts.Source)
	}
	if !opts.Since.IsZero() {
		query += " AND collected_at >= ?"
		args = append(args, opts.Since)
	}
	if opts.MinEngagement > 0 {
		query += " AND engagement_rate >= ?"
		args = append(args, opts.MinEngagement)
	}

	query += " ORDER BY collected_at DESC, id DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	var recs []Record
	if err := s.db.SelectContext(ctx, &recs, query, args...); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	for i := range recs {
		decodeRecord(&recs[i])
	}
	return recs, nil
}

func (s *SQLiteStore) CountBySource(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT source, COUNT(*) as cnt FROM records GROUP BY source")
	if err != nil {
		return nil, fmt.Errorf("count records by source: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var src string
		var cnt int
		if err := rows.Scan(&src, &cnt); err != nil {
			return nil, err
		}
		counts[src] = cnt
	}
	return counts, rows.Err()
}

func (s *SQLiteStore) AddRun(ctx context.Context, run *Run) error {
	failuresJSON, _ := json.Marshal(run.FailureReasons)
	run.FailuresJSON = string(failuresJSON)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, source, attempted, inserted, duplicates, failed, quota_hit, failure_reasons, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Source, run.Attempted, run.Inserted, run.Duplicates,
		run.Failed, run.QuotaHit, run.FailuresJSON, run.StartedAt, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("add run %s: %w", run.ID, err)
	}
	return nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []Run
	err := s.db.SelectContext(ctx, &runs,
		"SELECT * FROM runs ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	for i := range runs {
		json.Unmarshal([]byte(runs[i].FailuresJSON), &runs[i].FailureReasons)
	}
	return runs, nil
}

func decodeRecord(rec *Record) {
	json.Unmarshal([]byte(rec.TagsJSON), &rec.Tags)
	json.Unmarshal([]byte(rec.MetricsJSON), &rec.Metrics)
}
