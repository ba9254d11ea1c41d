package promptgen

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// maxHistory bounds the rolling BPM and key windows in the profile.
const maxHistory = 20

// Profile accumulates the stylistic feedback that biases future
// prompts: how often each word was part of a successfully archived
// track, and the recent tempo and key history from analysis metadata.
type Profile struct {
	GenreCounts      map[string]int `json:"genre_counts"`
	InstrumentCounts map[string]int `json:"instrument_counts"`
	MoodCounts       map[string]int `json:"mood_counts"`
	RecentBPMs       []int          `json:"recent_bpms"`
	RecentKeys       []string       `json:"recent_keys"`
	LastResetTracks  int            `json:"last_reset_track_count"`
	LastUpdated      time.Time      `json:"last_updated"`
}

// NewProfile returns an empty profile.
func NewProfile() *Profile {
	return &Profile{
		GenreCounts:      make(map[string]int),
		InstrumentCounts: make(map[string]int),
		MoodCounts:       make(map[string]int),
	}
}

// Observe records one archived track's stylistic components. A zero
// bpm or empty key is skipped.
func (p *Profile) Observe(genre, instrument, mood string, bpm int, key string, now time.Time) {
	if genre != "" {
		p.GenreCounts[genre]++
	}
	if instrument != "" {
		p.InstrumentCounts[instrument]++
	}
	if mood != "" {
		p.MoodCounts[mood]++
	}
	if bpm > 0 {
		p.RecentBPMs = append(p.RecentBPMs, bpm)
		if len(p.RecentBPMs) > maxHistory {
			p.RecentBPMs = p.RecentBPMs[len(p.RecentBPMs)-maxHistory:]
		}
	}
	if key != "" {
		p.RecentKeys = append(p.RecentKeys, key)
		if len(p.RecentKeys) > maxHistory {
			p.RecentKeys = p.RecentKeys[len(p.RecentKeys)-maxHistory:]
		}
	}
	p.LastUpdated = now
}

// Reset clears all accumulated bias so the generator drifts back to a
// uniform distribution. totalTracks marks where the reset happened.
func (p *Profile) Reset(totalTracks int, now time.Time) {
	p.GenreCounts = make(map[string]int)
	p.InstrumentCounts = make(map[string]int)
	p.MoodCounts = make(map[string]int)
	p.RecentBPMs = nil
	p.RecentKeys = nil
	p.LastResetTracks = totalTracks
	p.LastUpdated = now
}

// averageBPM returns the mean of the recent BPM window and whether
// enough samples exist to use it as a bias signal.
func (p *Profile) averageBPM() (float64, bool) {
	if len(p.RecentBPMs) < 5 {
		return 0, false
	}
	sum := 0
	for _, b := range p.RecentBPMs {
		sum += b
	}
	return float64(sum) / float64(len(p.RecentBPMs)), true
}

// LoadProfile reads a profile from disk. A missing or unreadable file
// yields a fresh profile rather than an error: the profile is advisory
// and losing it only flattens the bias.
func LoadProfile(path string) *Profile {
	raw, err := os.ReadFile(path)
	if err != nil {
		return NewProfile()
	}
	p := NewProfile()
	if err := json.Unmarshal(raw, p); err != nil {
		return NewProfile()
	}
	if p.GenreCounts == nil {
		p.GenreCounts = make(map[string]int)
	}
	if p.InstrumentCounts == nil {
		p.InstrumentCounts = make(map[string]int)
	}
	if p.MoodCounts == nil {
		p.MoodCounts = make(map[string]int)
	}
	return p
}

// SaveProfile writes the profile atomically via a temp file rename.
func SaveProfile(path string, p *Profile) error {
	raw, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("promptgen: encode profile: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("promptgen: write profile: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("promptgen: replace profile: %w", err)
	}
	return nil
}
