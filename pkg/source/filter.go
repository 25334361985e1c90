package source

// Filter applies short-form constraints to candidates. Items failing a
// constraint are excluded from the yielded sequence, not reported as
// errors.
type Filter struct {
	// MaxDurationSec is the longest a short-form video may run.
	MaxDurationSec float64
	// MinAspectRatio is the vertical-format cutoff: candidates whose
	// width/height ratio exceeds it are landscape and excluded.
	MinAspectRatio float64
}

// NewFilter creates a filter with defaults for zero values
// (180s, 1.0 — i.e. at most square).
func NewFilter(maxDurationSec, minAspectRatio float64) *Filter {
	if maxDurationSec <= 0 {
		maxDurationSec = 180
	}
	if minAspectRatio <= 0 {
		minAspectRatio = 1.0
	}
	return &Filter{
		MaxDurationSec: maxDurationSec,
		MinAspectRatio: minAspectRatio,
	}
}

// Allows reports whether a video with the given duration and aspect
// ratio qualifies as short-form. Zero aspect (unknown) is allowed;
// duration must always be known and within bounds.
func (f *Filter) Allows(durationSec, aspectRatio float64) bool {
	if durationSec <= 0 || durationSec > f.MaxDurationSec {
		return false
	}
	if aspectRatio > f.MinAspectRatio {
		return false
	}
	return true
}
