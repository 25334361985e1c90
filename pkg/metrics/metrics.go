// Package metrics converts source-specific raw metric payloads into one
// platform-agnostic record so candidates from any strategy compare on
// the same scale.
package metrics

import (
	"time"

	"github.com/nzotov/shortscout/pkg/source"
)

// Normalized is the platform-agnostic metrics record with derived
// ratios. Derived fields are always recomputed from the raw counts by
// Normalize; nothing else ever writes them.
type Normalized struct {
	Views       int64
	Likes       int64
	Comments    int64
	DurationSec float64
	AspectRatio float64

	ViewsPerDay      float64
	ViewsPerHour     float64
	EngagementRate   float64
	LikeViewRatio    float64
	CommentViewRatio float64
}

// fieldNames maps canonical metric names to the field names each
// provider payload uses. Unknown sources fall back to the canonical
// names themselves.
var fieldNames = map[source.SourceType]map[string]string{
	source.SourceAPISearch: {
		"views":    "viewCount",
		"likes":    "likeCount",
		"comments": "commentCount",
		"duration": "durationSeconds",
		"aspect":   "aspectRatio",
	},
	source.SourceChannel: {
		"views":    "views",
		"likes":    "likes",
		"comments": "comments",
		"duration": "duration_sec",
		"aspect":   "aspect_ratio",
	},
	source.SourceTrending: {
		"views":    "view_count",
		"likes":    "like_count",
		"comments": "comment_count",
		"duration": "duration",
		"aspect":   "aspect",
	},
}

// Normalize converts a source-tagged raw payload into a Normalized
// record. Pure and deterministic: identical inputs always yield an
// identical record.
//
// Missing numeric fields are zero-filled rather than rejected; absence
// is lossy but never an error. Ratio denominators substitute 1 for zero.
func Normalize(src source.SourceType, raw map[string]float64, publishedAt, collectedAt time.Time) Normalized {
	names, ok := fieldNames[src]
	if !ok {
		names = map[string]string{
			"views": "views", "likes": "likes", "comments": "comments",
			"duration": "duration", "aspect": "aspect",
		}
	}

	field := func(canonical string) float64 {
		return raw[names[canonical]] // missing keys read as 0
	}

	n := Normalized{
		Views:       nonNegative(field("views")),
		Likes:       nonNegative(field("likes")),
		Comments:    nonNegative(field("comments")),
		DurationSec: field("duration"),
		AspectRatio: field("aspect"),
	}

	days := collectedAt.Sub(publishedAt).Hours() / 24
	if days <= 0 {
		days = 1
	}
	hours := collectedAt.Sub(publishedAt).Hours()
	if hours <= 0 {
		hours = 1
	}

	views := float64(n.Views)
	viewsDenom := views
	if viewsDenom == 0 {
		viewsDenom = 1
	}

	n.ViewsPerDay = views / days
	n.ViewsPerHour = views / hours
	n.EngagementRate = float64(n.Likes+n.Comments) / viewsDenom
	n.LikeViewRatio = float64(n.Likes) / viewsDenom
	n.CommentViewRatio = float64(n.Comments) / viewsDenom
	return n
}

// Map returns the full normalized record as a flat dictionary, the form
// persisted alongside the columns for audit and forward compatibility.
func (n Normalized) Map() map[string]float64 {
	return map[string]float64{
		"views":              float64(n.Views),
		"likes":              float64(n.Likes),
		"comments":           float64(n.Comments),
		"duration_sec":       n.DurationSec,
		"aspect_ratio":       n.AspectRatio,
		"views_per_day":      n.ViewsPerDay,
		"views_per_hour":     n.ViewsPerHour,
		"engagement_rate":    n.EngagementRate,
		"like_view_ratio":    n.LikeViewRatio,
		"comment_view_ratio": n.CommentViewRatio,
	}
}

func nonNegative(v float64) int64 {
	if v < 0 {
		return 0
	}
	return int64(v)
}
