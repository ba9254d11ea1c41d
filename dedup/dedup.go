// Package dedup gates produced artifacts on similarity against a
// bounded window of recent content fingerprints, so the pipeline does
// not archive near-duplicates back to back.
package dedup

import (
	"log/slog"
)

// Index applies the uniqueness policy. The fingerprint window itself
// lives on the orchestration state; the Index only reads and rewrites
// it.
type Index struct {
	// WindowSize bounds the fingerprint window (FIFO, oldest evicted).
	WindowSize int

	// Threshold rejects a fingerprint whose maximum similarity against
	// the window reaches this value. Strict inequality is required to
	// accept: a tie at exactly the threshold is rejected.
	Threshold float64

	// AcceptUnknown admits artifacts whose fingerprint is missing or
	// error-flagged. The default (false) discards them: an artifact
	// that cannot be evaluated is treated as a possible duplicate.
	AcceptUnknown bool

	Logger *slog.Logger
}

// NewIndex creates an Index with the given window bound and threshold.
func NewIndex(windowSize int, threshold float64) *Index {
	return &Index{
		WindowSize: windowSize,
		Threshold:  threshold,
		Logger:     slog.Default(),
	}
}

// Acceptable reports whether fp is sufficiently different from every
// fingerprint in the window. An empty fp means the fingerprint was
// missing or error-flagged; the AcceptUnknown policy decides.
func (x *Index) Acceptable(fp string, window []string) bool {
	if fp == "" {
		x.logger().Warn("fingerprint unavailable, applying unknown-fingerprint policy",
			slog.Bool("accept", x.AcceptUnknown),
		)
		return x.AcceptUnknown
	}

	maxSim := 0.0
	for _, prev := range window {
		if sim := Similarity(fp, prev); sim > maxSim {
			maxSim = sim
		}
	}
	if maxSim >= x.Threshold {
		x.logger().Warn("fingerprint too similar to recent output",
			slog.Float64("max_similarity", maxSim),
			slog.Float64("threshold", x.Threshold),
		)
		return false
	}
	return true
}

// Admit appends fp to the window and truncates to the configured bound,
// evicting oldest first. Recency of production, not of access, drives
// eviction.
func (x *Index) Admit(window []string, fp string) []string {
	window = append(window, fp)
	if x.WindowSize > 0 && len(window) > x.WindowSize {
		window = window[len(window)-x.WindowSize:]
	}
	return window
}

func (x *Index) logger() *slog.Logger {
	if x.Logger != nil {
		return x.Logger
	}
	return slog.Default()
}

// Similarity scores two fingerprints in [0, 1]: 1 for identical
// fingerprints, the Jaccard index of their 4-gram shingles otherwise.
// Fingerprints shorter than a shingle compare by equality only.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	const n = 4
	sa := shingles(a, n)
	sb := shingles(b, n)
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}

	inter := 0
	for sh := range sa {
		if sb[sh] {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

func shingles(s string, n int) map[string]bool {
	if len(s) < n {
		return nil
	}
	out := make(map[string]bool, len(s)-n+1)
	for i := 0; i+n <= len(s); i++ {
		out[s[i:i+n]] = true
	}
	return out
}
