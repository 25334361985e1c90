package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"PT45S", 45},
		{"PT1M5S", 65},
		{"PT1H2M3S", 3723},
		{"PT3M", 180},
		{"PT0S", 0},
		{"", 0},
		{"P1D", 0},
		{"garbage", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseISODuration(tt.in); got != tt.want {
				t.Errorf("parseISODuration(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestAPIClientErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"quota on 403", http.StatusForbidden, func(err error) bool { return errors.Is(err, ErrQuotaExceeded) }},
		{"permanent on 404", http.StatusNotFound, IsPermanent},
		{"permanent on 400", http.StatusBadRequest, IsPermanent},
		{"transient on 500", http.StatusInternalServerError, IsTransient},
		{"transient on 503", http.StatusServiceUnavailable, IsTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := newAPIClient("test-key", srv.URL)
			var out struct{}
			err := c.get(context.Background(), "videos", url.Values{}, &out)
			if err == nil {
				t.Fatal("err = nil, want classified error")
			}
			if !tt.check(err) {
				t.Errorf("err = %v, wrong classification", err)
			}
		})
	}
}

func TestAPIClientDecodeFailureIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := newAPIClient("test-key", srv.URL)
	var out struct{}
	err := c.get(context.Background(), "videos", url.Values{}, &out)
	if !IsPermanent(err) {
		t.Errorf("err = %v, want permanent", err)
	}
}

func TestVideoDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("key = %q, want test-key", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"items": [{
				"id": "vid1",
				"snippet": {
					"title": "Tiny kitchen hacks",
					"description": "three hacks",
					"channelTitle": "cookfast",
					"tags": ["cooking", "shorts"],
					"publishedAt": "2026-08-01T12:00:00Z",
					"thumbnails": {"high": {"width": 480, "height": 853}}
				},
				"statistics": {"viewCount": "1000", "likeCount": "50", "commentCount": "10"},
				"contentDetails": {"duration": "PT45S"}
			}]
		}`))
	}))
	defer srv.Close()

	c := newAPIClient("test-key", srv.URL)
	details, err := c.videoDetails(context.Background(), []string{"vid1"})
	if err != nil {
		t.Fatalf("video details: %v", err)
	}

	d, ok := details["vid1"]
	if !ok {
		t.Fatalf("details missing vid1: %v", details)
	}
	if d.ViewCount != 1000 || d.LikeCount != 50 || d.CommentCount != 10 {
		t.Errorf("counts = %v/%v/%v, want 1000/50/10", d.ViewCount, d.LikeCount, d.CommentCount)
	}
	if d.DurationSec != 45 {
		t.Errorf("DurationSec = %v, want 45", d.DurationSec)
	}
	if d.AspectRatio >= 1 {
		t.Errorf("AspectRatio = %v, want vertical (< 1)", d.AspectRatio)
	}
	if len(d.Tags) != 2 {
		t.Errorf("Tags = %v, want 2 entries", d.Tags)
	}
}
