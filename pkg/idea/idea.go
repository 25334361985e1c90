// Package idea maps stored records into the canonical output schema
// consumed downstream.
package idea

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nzotov/shortscout/internal/store"
)

// Idea is the canonical representation of a stored record: field names
// independent of source, one comparable score, and the full normalized
// metrics dictionary for audit.
type Idea struct {
	Source      string             `json:"source"`
	VideoID     string             `json:"video_id"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Tags        []string           `json:"tags,omitempty"`
	PublishedAt time.Time          `json:"published_at"`
	CollectedAt time.Time          `json:"collected_at"`
	Score       float64            `json:"score"`
	Metrics     map[string]float64 `json:"metrics"`
}

// Transform maps a stored record into its canonical idea. Deterministic
// and pure; it never fails for a record that was successfully inserted.
//
// Score is the stored engagement rate; records whose metrics blob lacks
// one fall back to 0.0.
func Transform(rec store.Record) Idea {
	score := 0.0
	if v, ok := rec.Metrics["engagement_rate"]; ok {
		score = v
	}
	return Idea{
		Source:      rec.Source,
		VideoID:     rec.ExternalID,
		Title:       rec.Title,
		Description: rec.Description,
		Tags:        NormalizeTags(rec.Tags),
		PublishedAt: rec.PublishedAt,
		CollectedAt: rec.CollectedAt,
		Score:       score,
		Metrics:     rec.Metrics,
	}
}

// FromRecords transforms records in order.
func FromRecords(recs []store.Record) []Idea {
	ideas := make([]Idea, len(recs))
	for i, rec := range recs {
		ideas[i] = Transform(rec)
	}
	return ideas
}

// NormalizeTags lower-cases and trims tags, drops empties, and removes
// duplicates keeping the first occurrence. Order is preserved and the
// operation is idempotent.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// WriteJSONL writes ideas as newline-delimited JSON, one self-describing
// record per line.
func WriteJSONL(w io.Writer, ideas []Idea) error {
	enc := json.NewEncoder(w)
	for i := range ideas {
		if err := enc.Encode(ideas[i]); err != nil {
			return fmt.Errorf("encode idea %s/%s: %w", ideas[i].Source, ideas[i].VideoID, err)
		}
	}
	return nil
}
