package source

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

const defaultFeedBase = "https://www.youtube.com/feeds/videos.xml?channel_id="

// Channel enumerates a channel's uploads in reverse-chronological order
// via the channel's Atom feed, enriches them through the data API, and
// keeps only items passing the short-form filter. Items failing the
// filter are silently excluded.
type Channel struct {
	api        *apiClient
	client     *http.Client
	parser     *gofeed.Parser
	channelIDs []string
	filter     *Filter
	feedBase   string
}

// NewChannel creates a channel-enumeration strategy.
func NewChannel(apiKey string, channelIDs []string, filter *Filter) *Channel {
	if filter == nil {
		filter = NewFilter(0, 0)
	}
	return &Channel{
		api:        newAPIClient(apiKey, ""),
		client:     &http.Client{Timeout: 30 * time.Second},
		parser:     gofeed.NewParser(),
		channelIDs: channelIDs,
		filter:     filter,
		feedBase:   defaultFeedBase,
	}
}

func (c *Channel) Name() SourceType { return SourceChannel }

func (c *Channel) Scrape(ctx context.Context, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = 50
	}

	var candidates []Candidate
	for _, channelID := range c.channelIDs {
		if len(candidates) >= limit {
			break
		}
		batch, err := c.scrapeChannel(ctx, channelID, limit-len(candidates))
		if err != nil {
			fmt.Fprintf(os.Stderr, "  channel %s error: %v\n", channelID, err)
			continue
		}
		candidates = append(candidates, batch...)
	}
	return candidates, nil
}

func (c *Channel) scrapeChannel(ctx context.Context, channelID string, max int) ([]Candidate, error) {
	feed, err := c.fetchFeed(ctx, channelID)
	if err != nil {
		return nil, err
	}

	// Uploads feeds are newest-first already; keep that order.
	var ids []string
	for _, entry := range feed.Items {
		if id := videoIDFromGUID(entry.GUID); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	details, err := c.api.videoDetails(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var candidates []Candidate
	for _, id := range ids {
		if len(candidates) >= max {
			break
		}
		d, ok := details[id]
		if !ok {
			continue
		}
		if !c.filter.Allows(d.DurationSec, d.AspectRatio) {
			continue
		}
		candidates = append(candidates, Candidate{
			Source:      SourceChannel,
			ExternalID:  id,
			Title:       d.Title,
			Description: truncate(d.Description, 500),
			Tags:        d.Tags,
			PublishedAt: d.PublishedAt,
			CollectedAt: now,
			RawMetrics: map[string]float64{
				"views":        d.ViewCount,
				"likes":        d.LikeCount,
				"comments":     d.CommentCount,
				"duration_sec": d.DurationSec,
				"aspect_ratio": d.AspectRatio,
			},
		})
	}
	return candidates, nil
}

func (c *Channel) fetchFeed(ctx context.Context, channelID string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedBase+channelID, nil)
	if err != nil {
		return nil, &PermanentError{Err: fmt.Errorf("create feed request %s: %w", channelID, err)}
	}
	req.Header.Set("User-Agent", "shortscout/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransientError{Err: fmt.Errorf("fetch feed %s: %w", channelID, err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, &PermanentError{Err: fmt.Errorf("channel %s not found", channelID)}
	case resp.StatusCode >= 500:
		return nil, &TransientError{Err: fmt.Errorf("feed %s status %d", channelID, resp.StatusCode)}
	default:
		return nil, &PermanentError{Err: fmt.Errorf("feed %s status %d", channelID, resp.StatusCode)}
	}

	feed, err := c.parser.Parse(resp.Body)
	if err != nil {
		return nil, &PermanentError{Err: fmt.Errorf("parse feed %s: %w", channelID, err)}
	}
	return feed, nil
}

// videoIDFromGUID extracts the video id from an uploads-feed GUID of
// the form "yt:video:VIDEOID".
func videoIDFromGUID(guid string) string {
	if id, ok := strings.CutPrefix(guid, "yt:video:"); ok {
		return id
	}
	return ""
}
