package source

import (
	"context"
	"time"
)

// Trending snapshots the provider's ranked trending listing. The
// provider's ordering is preserved as the candidate sequence order and
// recorded on each candidate's Rank.
type Trending struct {
	api         *apiClient
	region      string
	maxAttempts int
	backoff     time.Duration
}

// NewTrending creates a trending-discovery strategy for a region
// (ISO 3166-1 code, default "US").
func NewTrending(apiKey, region string) *Trending {
	if region == "" {
		region = "US"
	}
	return &Trending{
		api:         newAPIClient(apiKey, ""),
		region:      region,
		maxAttempts: 3,
		backoff:     time.Second,
	}
}

func (t *Trending) Name() SourceType { return SourceTrending }

func (t *Trending) Scrape(ctx context.Context, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 50 {
		limit = 50
	}

	var details []videoDetail
	err := withRetry(ctx, t.maxAttempts, t.backoff, func() error {
		var err error
		details, err = t.api.mostPopular(ctx, t.region, limit)
		return err
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	candidates := make([]Candidate, 0, len(details))
	for i, d := range details {
		candidates = append(candidates, Candidate{
			Source:      SourceTrending,
			ExternalID:  d.ID,
			Title:       d.Title,
			Description: truncate(d.Description, 500),
			Tags:        d.Tags,
			PublishedAt: d.PublishedAt,
			CollectedAt: now,
			Rank:        i + 1,
			RawMetrics: map[string]float64{
				"view_count":    d.ViewCount,
				"like_count":    d.LikeCount,
				"comment_count": d.CommentCount,
				"duration":      d.DurationSec,
				"aspect":        d.AspectRatio,
			},
		})
	}
	return candidates, nil
}
