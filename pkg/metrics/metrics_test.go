package metrics

import (
	"reflect"
	"testing"
	"time"

	"github.com/nzotov/shortscout/pkg/source"
)

var (
	published = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	collected = time.Date(2026, 8, 11, 12, 0, 0, 0, time.UTC) // 10 days later
)

func TestNormalizeFieldDispatch(t *testing.T) {
	tests := []struct {
		name string
		src  source.SourceType
		raw  map[string]float64
	}{
		{
			name: "api-search field names",
			src:  source.SourceAPISearch,
			raw: map[string]float64{
				"viewCount": 1000, "likeCount": 50, "commentCount": 10,
				"durationSeconds": 45, "aspectRatio": 0.56,
			},
		},
		{
			name: "channel field names",
			src:  source.SourceChannel,
			raw: map[string]float64{
				"views": 1000, "likes": 50, "comments": 10,
				"duration_sec": 45, "aspect_ratio": 0.56,
			},
		},
		{
			name: "trending field names",
			src:  source.SourceTrending,
			raw: map[string]float64{
				"view_count": 1000, "like_count": 50, "comment_count": 10,
				"duration": 45, "aspect": 0.56,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Normalize(tt.src, tt.raw, published, collected)
			if n.Views != 1000 || n.Likes != 50 || n.Comments != 10 {
				t.Errorf("counts = %d/%d/%d, want 1000/50/10", n.Views, n.Likes, n.Comments)
			}
			if n.DurationSec != 45 {
				t.Errorf("DurationSec = %v, want 45", n.DurationSec)
			}
			if n.AspectRatio != 0.56 {
				t.Errorf("AspectRatio = %v, want 0.56", n.AspectRatio)
			}
			// Structurally identical output regardless of source.
			if n.EngagementRate != 0.06 {
				t.Errorf("EngagementRate = %v, want 0.06", n.EngagementRate)
			}
			if n.ViewsPerDay != 100 {
				t.Errorf("ViewsPerDay = %v, want 100", n.ViewsPerDay)
			}
		})
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	raw := map[string]float64{
		"view_count": 123456, "like_count": 789, "comment_count": 42,
		"duration": 59, "aspect": 0.5625,
	}

	first := Normalize(source.SourceTrending, raw, published, collected)
	second := Normalize(source.SourceTrending, raw, published, collected)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("normalize not deterministic:\nfirst  = %+v\nsecond = %+v", first, second)
	}
	if !reflect.DeepEqual(first.Map(), second.Map()) {
		t.Error("Map() not deterministic for identical input")
	}
}

func TestNormalizeEngagementFormula(t *testing.T) {
	tests := []struct {
		name                   string
		views, likes, comments float64
		want                   float64
	}{
		{"typical short", 1000, 50, 10, 0.06},
		{"zero views no division failure", 0, 0, 0, 0},
		{"zero views with likes", 0, 3, 2, 5}, // denominator substitutes 1
		{"single view", 1, 1, 0, 1},
		{"large counts", 1000000, 20000, 5000, 0.025},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := map[string]float64{
				"view_count": tt.views, "like_count": tt.likes, "comment_count": tt.comments,
			}
			n := Normalize(source.SourceTrending, raw, published, collected)
			if n.EngagementRate != tt.want {
				t.Errorf("EngagementRate = %v, want %v", n.EngagementRate, tt.want)
			}
			if n.EngagementRate < 0 {
				t.Errorf("EngagementRate = %v, must be non-negative", n.EngagementRate)
			}
		})
	}
}

func TestNormalizeMissingFieldsDefaultToZero(t *testing.T) {
	n := Normalize(source.SourceAPISearch, map[string]float64{"viewCount": 500}, published, collected)

	if n.Likes != 0 || n.Comments != 0 {
		t.Errorf("missing counts = %d/%d, want 0/0", n.Likes, n.Comments)
	}
	if n.EngagementRate != 0 {
		t.Errorf("EngagementRate = %v, want 0", n.EngagementRate)
	}

	// A nil payload behaves like an all-absent one.
	n = Normalize(source.SourceAPISearch, nil, published, collected)
	if n.Views != 0 || n.EngagementRate != 0 {
		t.Errorf("nil payload: views=%d engagement=%v, want zeros", n.Views, n.EngagementRate)
	}
}

func TestNormalizeNegativeCountsClamped(t *testing.T) {
	raw := map[string]float64{"view_count": -10, "like_count": -1}
	n := Normalize(source.SourceTrending, raw, published, collected)
	if n.Views != 0 || n.Likes != 0 {
		t.Errorf("negative counts = %d/%d, want clamped to 0", n.Views, n.Likes)
	}
}

func TestNormalizeAgeDenominators(t *testing.T) {
	raw := map[string]float64{"view_count": 2400}

	// 10 days old: 240/day, 10/hour.
	n := Normalize(source.SourceTrending, raw, published, collected)
	if n.ViewsPerDay != 240 {
		t.Errorf("ViewsPerDay = %v, want 240", n.ViewsPerDay)
	}
	if n.ViewsPerHour != 10 {
		t.Errorf("ViewsPerHour = %v, want 10", n.ViewsPerHour)
	}

	// Published at collection time: denominators substitute 1.
	n = Normalize(source.SourceTrending, raw, collected, collected)
	if n.ViewsPerDay != 2400 || n.ViewsPerHour != 2400 {
		t.Errorf("zero-age ratios = %v/%v, want 2400/2400", n.ViewsPerDay, n.ViewsPerHour)
	}
}

func TestMapCarriesAllFields(t *testing.T) {
	raw := map[string]float64{
		"view_count": 1000, "like_count": 50, "comment_count": 10,
		"duration": 45, "aspect": 0.56,
	}
	m := Normalize(source.SourceTrending, raw, published, collected).Map()

	for _, key := range []string{
		"views", "likes", "comments", "duration_sec", "aspect_ratio",
		"views_per_day", "views_per_hour", "engagement_rate",
		"like_view_ratio", "comment_view_ratio",
	} {
		if _, ok := m[key]; !ok {
			t.Errorf("Map() missing %q", key)
		}
	}
	if m["engagement_rate"] != 0.06 {
		t.Errorf("engagement_rate = %v, want 0.06", m["engagement_rate"])
	}
}
