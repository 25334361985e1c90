package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/nzotov/shortscout/internal/store"
	"github.com/nzotov/shortscout/pkg/idea"
	"github.com/nzotov/shortscout/pkg/pipeline"
	"github.com/nzotov/shortscout/pkg/source"
)

// Server provides the HTTP API over the record store and pipelines.
type Server struct {
	store     store.Store
	pipelines map[source.SourceType]*pipeline.Orchestrator
	port      int
}

// New creates a new HTTP server.
func New(s store.Store, pipelines map[source.SourceType]*pipeline.Orchestrator, port int) *Server {
	if port == 0 {
		port = 8080
	}
	return &Server{
		store:     s,
		pipelines: pipelines,
		port:      port,
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/v1/records", s.handleRecords)
	mux.HandleFunc("/api/v1/ideas", s.handleIdeas)
	mux.HandleFunc("/api/v1/sources", s.handleSources)
	mux.HandleFunc("/api/v1/runs", s.handleRuns)
	mux.HandleFunc("/api/v1/scrape", s.handleScrape)

	addr := fmt.Sprintf(":%d", s.port)
	fmt.Printf("shortscout server listening on %s\n", addr)
	return http.ListenAndServe(addr, mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func listOptsFromQuery(r *http.Request) store.ListOpts {
	opts := store.ListOpts{Limit: 100}
	if src := r.URL.Query().Get("source"); src != "" {
		opts.Source = src
	}
	if since := r.URL.Query().Get("since"); since != "" {
		if t, err := time.Parse(time.RFC3339, since); err == nil {
			opts.Since = t
		}
	}
	if min := r.URL.Query().Get("min_score"); min != "" {
		if v, err := strconv.ParseFloat(min, 64); err == nil {
			opts.MinEngagement = v
		}
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if v, err := strconv.Atoi(limit); err == nil {
			opts.Limit = v
		}
	}
	return opts
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	recs, err := s.store.ListRecords(r.Context(), listOptsFromQuery(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  recs,
		"count": len(recs),
	})
}

func (s *Server) handleIdeas(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	recs, err := s.store.ListRecords(r.Context(), listOptsFromQuery(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	ideas := idea.FromRecords(recs)
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  ideas,
		"count": len(ideas),
	})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	counts, err := s.store.CountBySource(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	type sourceInfo struct {
		Name    string `json:"name"`
		Enabled bool   `json:"enabled"`
		Records int    `json:"records"`
		State   string `json:"state"`
	}

	var infos []sourceInfo
	for _, st := range source.AllSourceTypes() {
		info := sourceInfo{Name: string(st), Records: counts[string(st)]}
		if orch, ok := s.pipelines[st]; ok {
			info.Enabled = true
			info.State = string(orch.State())
		}
		infos = append(infos, info)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  infos,
		"count": len(infos),
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  runs,
		"count": len(runs),
	})
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	want := r.URL.Query().Get("source")
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	ctx := r.Context()
	var summaries []*pipeline.Summary
	var errs []string

	for st, orch := range s.pipelines {
		if want != "" && want != string(st) {
			continue
		}
		summary, err := orch.Run(ctx, limit)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", st, err))
		}
		summaries = append(summaries, summary)
	}

	if want != "" && len(summaries) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown source " + want})
		return
	}

	resp := map[string]any{"runs": summaries}
	if len(errs) > 0 {
		resp["errors"] = errs
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
