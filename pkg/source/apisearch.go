package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/time/rate"
)

// APISearch scrapes candidates by keyword search against the data API.
// Bounded by the provider's daily quota: when the quota runs out it
// returns the candidates already yielded together with ErrQuotaExceeded.
type APISearch struct {
	api         *apiClient
	queries     []string
	limiter     *rate.Limiter
	maxAttempts int
	backoff     time.Duration
}

// NewAPISearch creates a keyword-search strategy.
func NewAPISearch(apiKey string, queries []string) *APISearch {
	if len(queries) == 0 {
		queries = []string{"shorts"}
	}
	return &APISearch{
		api:     newAPIClient(apiKey, ""),
		queries: queries,
		// Search requests are the expensive quota unit; pace them.
		limiter:     rate.NewLimiter(rate.Every(time.Second), 2),
		maxAttempts: 3,
		backoff:     time.Second,
	}
}

func (s *APISearch) Name() SourceType { return SourceAPISearch }

func (s *APISearch) Scrape(ctx context.Context, limit int) ([]Candidate, error) {
	if s.api.key == "" {
		return nil, &PermanentError{Err: errors.New("api-search: API key required")}
	}
	if limit <= 0 {
		limit = 50
	}

	var candidates []Candidate
	for _, query := range s.queries {
		if len(candidates) >= limit {
			break
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return candidates, err
		}

		batch, err := s.searchQuery(ctx, query, limit-len(candidates))
		if err != nil && !errors.Is(err, ErrQuotaExceeded) {
			fmt.Fprintf(os.Stderr, "  api-search query %q error: %v\n", query, err)
			continue
		}
		candidates = append(candidates, batch...)
		if errors.Is(err, ErrQuotaExceeded) {
			return candidates, err
		}
	}
	return candidates, nil
}

func (s *APISearch) searchQuery(ctx context.Context, query string, max int) ([]Candidate, error) {
	if max > 50 {
		max = 50
	}

	var hits []searchHit
	err := withRetry(ctx, s.maxAttempts, s.backoff, func() error {
		var err error
		hits, err = s.api.searchVideos(ctx, query, max)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.VideoID
	}

	var details map[string]videoDetail
	err = withRetry(ctx, s.maxAttempts, s.backoff, func() error {
		var err error
		details, err = s.api.videoDetails(ctx, ids)
		return err
	})
	if err != nil && !errors.Is(err, ErrQuotaExceeded) {
		return nil, err
	}

	now := time.Now().UTC()
	candidates := make([]Candidate, 0, len(hits))
	for _, h := range hits {
		d, ok := details[h.VideoID]
		if !ok {
			d = videoDetail{ID: h.VideoID, Title: h.Title, Description: h.Description, PublishedAt: h.PublishedAt}
		}
		candidates = append(candidates, Candidate{
			Source:      SourceAPISearch,
			ExternalID:  h.VideoID,
			Title:       d.Title,
			Description: truncate(d.Description, 500),
			Tags:        d.Tags,
			PublishedAt: d.PublishedAt,
			CollectedAt: now,
			RawMetrics: map[string]float64{
				"viewCount":       d.ViewCount,
				"likeCount":       d.LikeCount,
				"commentCount":    d.CommentCount,
				"durationSeconds": d.DurationSec,
				"aspectRatio":     d.AspectRatio,
			},
		})
	}
	// Quota may have died between search and enrichment; the hits are
	// still usable, so hand them back with the terminal error.
	return candidates, err
}
