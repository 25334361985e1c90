package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func searchAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"items": [
				{"id": {"videoId": "s1"}, "snippet": {"title": "first", "publishedAt": "2026-08-01T12:00:00Z"}},
				{"id": {"videoId": "s2"}, "snippet": {"title": "second", "publishedAt": "2026-08-02T12:00:00Z"}}
			]
		}`))
	})
	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"items": [
				{
					"id": "s1",
					"snippet": {"title": "first", "publishedAt": "2026-08-01T12:00:00Z",
						"thumbnails": {"high": {"width": 480, "height": 853}}},
					"statistics": {"viewCount": "1000", "likeCount": "50", "commentCount": "10"},
					"contentDetails": {"duration": "PT45S"}
				},
				{
					"id": "s2",
					"snippet": {"title": "second", "publishedAt": "2026-08-02T12:00:00Z",
						"thumbnails": {"high": {"width": 480, "height": 853}}},
					"statistics": {"viewCount": "200", "likeCount": "4", "commentCount": "2"},
					"contentDetails": {"duration": "PT59S"}
				}
			]
		}`))
	})
	return httptest.NewServer(mux)
}

func newTestAPISearch(baseURL string) *APISearch {
	s := NewAPISearch("test-key", []string{"cooking shorts"})
	s.api.baseURL = baseURL
	s.backoff = time.Millisecond
	return s
}

func TestAPISearchScrape(t *testing.T) {
	srv := searchAPIServer(t)
	defer srv.Close()

	s := newTestAPISearch(srv.URL)
	candidates, err := s.Scrape(context.Background(), 10)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}

	if len(candidates) != 2 {
		t.Fatalf("len(candidates) = %d, want 2", len(candidates))
	}

	c := candidates[0]
	if c.Source != SourceAPISearch || c.ExternalID != "s1" {
		t.Errorf("identity = %s/%s, want api-search/s1", c.Source, c.ExternalID)
	}
	// Raw metrics keep the provider's field names.
	if c.RawMetrics["viewCount"] != 1000 {
		t.Errorf("viewCount = %v, want 1000", c.RawMetrics["viewCount"])
	}
	if c.RawMetrics["durationSeconds"] != 45 {
		t.Errorf("durationSeconds = %v, want 45", c.RawMetrics["durationSeconds"])
	}
}

func TestAPISearchScrapeRespectsLimit(t *testing.T) {
	srv := searchAPIServer(t)
	defer srv.Close()

	candidates, err := newTestAPISearch(srv.URL).Scrape(context.Background(), 1)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	if len(candidates) != 1 {
		t.Errorf("len(candidates) = %d, want 1", len(candidates))
	}
}

func TestAPISearchQuotaExceeded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	candidates, err := newTestAPISearch(srv.URL).Scrape(context.Background(), 10)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded", err)
	}
	if len(candidates) != 0 {
		t.Errorf("len(candidates) = %d, want 0 when quota dies on the first call", len(candidates))
	}
}

func TestAPISearchMissingKey(t *testing.T) {
	s := NewAPISearch("", nil)
	_, err := s.Scrape(context.Background(), 10)
	if !IsPermanent(err) {
		t.Errorf("err = %v, want permanent", err)
	}
}
