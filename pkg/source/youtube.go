package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultAPIBase = "https://www.googleapis.com/youtube/v3"

// apiClient is a thin client for the video platform's data API, shared
// by the strategies. baseURL is overridable for tests.
type apiClient struct {
	client  *http.Client
	key     string
	baseURL string
}

func newAPIClient(apiKey, baseURL string) *apiClient {
	if baseURL == "" {
		baseURL = defaultAPIBase
	}
	return &apiClient{
		client:  &http.Client{Timeout: 30 * time.Second},
		key:     apiKey,
		baseURL: baseURL,
	}
}

// videoDetail is the enriched per-video payload from the videos endpoint.
type videoDetail struct {
	ID           string
	Title        string
	Description  string
	ChannelTitle string
	Tags         []string
	PublishedAt  time.Time
	ViewCount    float64
	LikeCount    float64
	CommentCount float64
	DurationSec  float64
	AspectRatio  float64
}

type searchHit struct {
	VideoID     string
	Title       string
	Description string
	PublishedAt time.Time
}

// get performs one API request and maps failures onto the error
// taxonomy: 403 means the daily quota is gone, 4xx payload problems
// are permanent, everything else is worth a retry.
func (c *apiClient) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	params.Set("key", c.key)
	reqURL := c.baseURL + "/" + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &PermanentError{Err: fmt.Errorf("create %s request: %w", endpoint, err)}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &TransientError{Err: fmt.Errorf("fetch %s: %w", endpoint, err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s status 403: %w", endpoint, ErrQuotaExceeded)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &PermanentError{Err: fmt.Errorf("%s status %d", endpoint, resp.StatusCode)}
	default:
		return &TransientError{Err: fmt.Errorf("%s status %d", endpoint, resp.StatusCode)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &PermanentError{Err: fmt.Errorf("decode %s response: %w", endpoint, err)}
	}
	return nil
}

// searchVideos queries the search endpoint for short vertical videos.
func (c *apiClient) searchVideos(ctx context.Context, query string, max int) ([]searchHit, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("videoDuration", "short")
	params.Set("order", "viewCount")
	params.Set("maxResults", strconv.Itoa(max))

	var result ytSearchResult
	if err := c.get(ctx, "search", params, &result); err != nil {
		return nil, err
	}

	var hits []searchHit
	for _, item := range result.Items {
		if item.ID.VideoID == "" {
			continue
		}
		hits = append(hits, searchHit{
			VideoID:     item.ID.VideoID,
			Title:       item.Snippet.Title,
			Description: item.Snippet.Description,
			PublishedAt: item.Snippet.PublishedAt,
		})
	}
	return hits, nil
}

// videoDetails batch-fetches statistics and content details
// (max 50 ids per request).
func (c *apiClient) videoDetails(ctx context.Context, ids []string) (map[string]videoDetail, error) {
	details := make(map[string]videoDetail, len(ids))

	for start := 0; start < len(ids); start += 50 {
		end := start + 50
		if end > len(ids) {
			end = len(ids)
		}

		params := url.Values{}
		params.Set("part", "snippet,statistics,contentDetails")
		params.Set("id", strings.Join(ids[start:end], ","))

		var result ytVideoResult
		if err := c.get(ctx, "videos", params, &result); err != nil {
			return details, err
		}
		for _, v := range result.Items {
			details[v.ID] = v.toDetail()
		}
	}
	return details, nil
}

// mostPopular snapshots the ranked trending listing for a region.
// Provider order is preserved.
func (c *apiClient) mostPopular(ctx context.Context, region string, max int) ([]videoDetail, error) {
	params := url.Values{}
	params.Set("part", "snippet,statistics,contentDetails")
	params.Set("chart", "mostPopular")
	params.Set("regionCode", region)
	params.Set("maxResults", strconv.Itoa(max))

	var result ytVideoResult
	if err := c.get(ctx, "videos", params, &result); err != nil {
		return nil, err
	}

	details := make([]videoDetail, 0, len(result.Items))
	for _, v := range result.Items {
		details = append(details, v.toDetail())
	}
	return details, nil
}

type ytSearchResult struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet ytSnippet `json:"snippet"`
	} `json:"items"`
}

type ytSnippet struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ChannelTitle string    `json:"channelTitle"`
	Tags         []string  `json:"tags"`
	PublishedAt  time.Time `json:"publishedAt"`
	Thumbnails   struct {
		High struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"high"`
	} `json:"thumbnails"`
}

type ytVideoResult struct {
	Items []ytVideo `json:"items"`
}

type ytVideo struct {
	ID         string    `json:"id"`
	Snippet    ytSnippet `json:"snippet"`
	Statistics struct {
		ViewCount    int64 `json:"viewCount,string"`
		LikeCount    int64 `json:"likeCount,string"`
		CommentCount int64 `json:"commentCount,string"`
	} `json:"statistics"`
	ContentDetails struct {
		Duration string `json:"duration"`
	} `json:"contentDetails"`
}

func (v ytVideo) toDetail() videoDetail {
	d := videoDetail{
		ID:           v.ID,
		Title:        v.Snippet.Title,
		Description:  v.Snippet.Description,
		ChannelTitle: v.Snippet.ChannelTitle,
		Tags:         v.Snippet.Tags,
		PublishedAt:  v.Snippet.PublishedAt,
		ViewCount:    float64(v.Statistics.ViewCount),
		LikeCount:    float64(v.Statistics.LikeCount),
		CommentCount: float64(v.Statistics.CommentCount),
		DurationSec:  parseISODuration(v.ContentDetails.Duration),
	}
	// Thumbnail dimensions track the frame orientation, which is all
	// the vertical-format check needs.
	if w, h := v.Snippet.Thumbnails.High.Width, v.Snippet.Thumbnails.High.Height; w > 0 && h > 0 {
		d.AspectRatio = float64(w) / float64(h)
	}
	return d
}

// parseISODuration converts an ISO 8601 duration ("PT1M5S") to seconds.
// Returns 0 for anything it cannot parse.
func parseISODuration(s string) float64 {
	s, ok := strings.CutPrefix(s, "PT")
	if !ok {
		return 0
	}
	var total, cur float64
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			cur = cur*10 + float64(r-'0')
		case r == 'H':
			total += cur * 3600
			cur = 0
		case r == 'M':
			total += cur * 60
			cur = 0
		case r == 'S':
			total += cur
			cur = 0
		default:
			return 0
		}
	}
	return total
}
