// Package promptgen produces generation parameters for the next track.
//
// Word choice is weighted by the style profile (words that appeared in
// successfully archived tracks are picked more often) with a small
// exploration chance that ignores the weights entirely, so the
// generator exploits what works without collapsing onto it. Trending
// keywords from an optional TrendSource boost matching words further.
package promptgen

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/platform"
)

const (
	// explorationChance is the probability, per word slot, of ignoring
	// profile weights and sampling uniformly.
	explorationChance = 0.15

	// fallbackPrompt is used when the vocabulary is unusable.
	fallbackPrompt = "ambient synth music"

	trendKeywordLimit = 10

	defaultInferenceSteps = 50
	defaultGuidanceScale  = 7.0
)

// highTempoMoods and lowTempoMoods get a weight boost when the recent
// BPM average indicates the profile is trending fast or slow.
var (
	highTempoMoods = map[string]bool{
		"energetic": true, "upbeat": true, "driving": true,
		"happy": true, "intense": true,
	}
	lowTempoMoods = map[string]bool{
		"chill": true, "relaxing": true, "ambient": true, "calm": true,
		"peaceful": true, "atmospheric": true, "dreamy": true,
	}
)

// Generator assembles prompts and run parameters.
type Generator struct {
	vocab       Vocabulary
	profilePath string
	resetEvery  int // completed tracks between profile resets, 0 disables
	trends      platform.TrendSource
	rng         *rand.Rand
	logger      *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithVocabulary replaces the built-in word pool.
func WithVocabulary(v Vocabulary) Option {
	return func(g *Generator) { g.vocab = v }
}

// WithTrendSource biases word choice toward currently trending
// keywords.
func WithTrendSource(src platform.TrendSource) Option {
	return func(g *Generator) { g.trends = src }
}

// WithStyleReset clears the style profile every n completed tracks.
func WithStyleReset(n int) Option {
	return func(g *Generator) { g.resetEvery = n }
}

// WithRand sets the random source. Used by tests for determinism.
func WithRand(rng *rand.Rand) Option {
	return func(g *Generator) { g.rng = rng }
}

// WithLogger sets the generator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

// New creates a Generator whose style profile persists at profilePath.
func New(profilePath string, opts ...Option) *Generator {
	g := &Generator{
		vocab:       DefaultVocabulary(),
		profilePath: profilePath,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var _ platform.ParameterGenerator = (*Generator)(nil)

// Generate produces the next run's parameters. Trend lookup failures
// are logged and ignored; prompt generation never fails outright, it
// falls back to a static prompt instead.
func (g *Generator) Generate(ctx context.Context, totalCompleted int) (platform.Parameters, error) {
	params := platform.Parameters{
		Seed:           g.rng.Int63(),
		InferenceSteps: defaultInferenceSteps,
		GuidanceScale:  defaultGuidanceScale,
	}

	if !g.vocab.complete() {
		g.logger.Warn("promptgen: incomplete vocabulary, using fallback prompt")
		params.Prompt = fallbackPrompt
		return params, nil
	}

	profile := LoadProfile(g.profilePath)
	if g.resetEvery > 0 && totalCompleted-profile.LastResetTracks >= g.resetEvery {
		g.logger.Info("promptgen: resetting style profile",
			slog.Int("total_completed", totalCompleted),
			slog.Int("last_reset", profile.LastResetTracks))
		profile.Reset(totalCompleted, time.Now().UTC())
		if err := SaveProfile(g.profilePath, profile); err != nil {
			g.logger.Warn("promptgen: save profile after reset failed", slog.String("error", err.Error()))
		}
	}

	trending := g.trendingKeywords(ctx)

	genre := g.pick(g.vocab.Genres, profile.GenreCounts, trending, 1.5, nil)
	instrument := g.pick(g.vocab.Instruments, profile.InstrumentCounts, trending, 1.2, nil)
	mood := g.pick(g.vocab.Moods, profile.MoodCounts, trending, 1.2, g.tempoBias(profile))

	template := g.vocab.Templates[g.rng.Intn(len(g.vocab.Templates))]
	params.Prompt = strings.NewReplacer(
		"{genre}", genre,
		"{instrument}", instrument,
		"{mood}", mood,
	).Replace(template)

	g.logger.Info("promptgen: generated prompt",
		slog.String("prompt", params.Prompt),
		slog.Int64("seed", params.Seed))
	return params, nil
}

// RecordSuccess feeds one archived track back into the style profile.
// bpm and key come from the track's analysis metadata; zero values are
// skipped.
func (g *Generator) RecordSuccess(prompt string, bpm int, key string) {
	profile := LoadProfile(g.profilePath)

	lower := strings.ToLower(prompt)
	genre := firstContained(lower, g.vocab.Genres)
	instrument := firstContained(lower, g.vocab.Instruments)
	mood := firstContained(lower, g.vocab.Moods)

	profile.Observe(genre, instrument, mood, bpm, key, time.Now().UTC())
	if err := SaveProfile(g.profilePath, profile); err != nil {
		g.logger.Warn("promptgen: save profile failed", slog.String("error", err.Error()))
	}
}

// pick samples one word. With probability explorationChance the sample
// is uniform; otherwise each word's weight is its profile count plus
// one, multiplied by trendBoost when trending. extra applies an
// additional per-word multiplier when non-nil.
func (g *Generator) pick(words []string, counts map[string]int, trending map[string]bool, trendBoost float64, extra func(string) float64) string {
	if g.rng.Float64() < explorationChance {
		return words[g.rng.Intn(len(words))]
	}

	weights := make([]float64, len(words))
	total := 0.0
	for i, w := range words {
		weight := float64(counts[w]) + 1.0
		if trending[w] && counts[w] > 0 {
			weight *= trendBoost
		}
		if extra != nil {
			weight *= extra(w)
		}
		weights[i] = weight
		total += weight
	}

	r := g.rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r < 0 {
			return words[i]
		}
	}
	return words[len(words)-1]
}

// tempoBias returns a mood multiplier derived from the recent BPM
// average, or nil when there is not enough history.
func (g *Generator) tempoBias(profile *Profile) func(string) float64 {
	avg, ok := profile.averageBPM()
	if !ok {
		return nil
	}
	switch {
	case avg > 115:
		return func(mood string) float64 {
			if highTempoMoods[mood] {
				return 1.5
			}
			return 1.0
		}
	case avg < 90:
		return func(mood string) float64 {
			if lowTempoMoods[mood] {
				return 1.5
			}
			return 1.0
		}
	default:
		return nil
	}
}

func (g *Generator) trendingKeywords(ctx context.Context) map[string]bool {
	if g.trends == nil {
		return nil
	}
	kws, err := g.trends.TrendingKeywords(ctx, trendKeywordLimit)
	if err != nil {
		g.logger.Warn("promptgen: trend lookup failed", slog.String("error", err.Error()))
		return nil
	}
	set := make(map[string]bool, len(kws))
	for _, kw := range kws {
		set[strings.ToLower(kw)] = true
	}
	return set
}

// firstContained returns the longest vocabulary word contained in s, so
// "acoustic guitar" wins over "guitar" when both appear.
func firstContained(s string, words []string) string {
	best := ""
	for _, w := range words {
		if strings.Contains(s, w) && len(w) > len(best) {
			best = w
		}
	}
	return best
}
