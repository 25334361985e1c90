package source

import (
	"context"
	"time"
)

// SourceType identifies which acquisition strategy a candidate came from.
type SourceType string

const (
	SourceAPISearch SourceType = "api-search"
	SourceChannel   SourceType = "channel"
	SourceTrending  SourceType = "trending"
)

// Candidate is a raw video yielded by a strategy before normalization
// and storage. Immutable once yielded.
type Candidate struct {
	Source      SourceType
	ExternalID  string
	Title       string
	Description string
	Tags        []string
	PublishedAt time.Time
	CollectedAt time.Time

	// RawMetrics holds the provider's numeric fields under the field
	// names that provider uses. The metrics normalizer resolves them
	// per source.
	RawMetrics map[string]float64

	// Subtitles is raw subtitle text when the provider supplies it.
	// Stored verbatim, never analyzed here.
	Subtitles string

	// Rank is the position in a ranked listing (trending only).
	// Advisory: not persisted, but insert attempts follow yield order
	// so the stored sequence reflects it.
	Rank int
}

// Strategy is the interface every acquisition strategy implements.
//
// Scrape yields up to limit candidates. On quota exhaustion it returns
// the candidates collected so far together with ErrQuotaExceeded so the
// caller keeps the partial results.
type Strategy interface {
	Name() SourceType
	Scrape(ctx context.Context, limit int) ([]Candidate, error)
}

// AllSourceTypes returns all known source types.
func AllSourceTypes() []SourceType {
	return []SourceType{
		SourceAPISearch,
		SourceChannel,
		SourceTrending,
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
