package promptgen

// Vocabulary is the word pool prompts are assembled from. Templates use
// {genre}, {instrument} and {mood} placeholders.
type Vocabulary struct {
	Genres      []string `yaml:"genres"`
	Instruments []string `yaml:"instruments"`
	Moods       []string `yaml:"moods"`
	Templates   []string `yaml:"templates"`
}

// DefaultVocabulary returns the built-in word pool.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Genres: []string{
			"pop", "rock", "jazz", "classical", "electronic", "hip hop", "ambient",
			"techno", "house", "disco", "funk", "blues", "reggae", "country",
			"cinematic", "orchestral", "lofi", "synthwave", "chiptune", "folk",
			"metal", "punk", "soul", "gospel", "latin", "world music",
		},
		Instruments: []string{
			"piano", "guitar", "acoustic guitar", "electric guitar", "bass guitar", "drums",
			"synthesizer", "synth pads", "arp synth", "lead synth", "violin", "cello",
			"strings section", "flute", "saxophone", "trumpet", "brass section",
			"organ", "electric piano", "vibraphone", "marimba", "bells", "choir",
			"percussion", "tabla", "sitar",
		},
		Moods: []string{
			"upbeat", "chill", "relaxing", "energetic", "driving", "melancholic", "sad",
			"happy", "ethereal", "atmospheric", "dark", "mysterious", "epic", "intense",
			"calm", "peaceful", "groovy", "funky", "dreamy", "nostalgic", "romantic",
			"suspenseful", "minimalist", "experimental", "aggressive", "smooth",
		},
		Templates: []string{
			"{genre} track with {instrument}",
			"{mood} {genre} featuring {instrument}",
			"A {mood} piece based on {instrument} in a {genre} style",
			"{instrument} solo over a {genre} beat",
			"Atmospheric {genre} with {mood} {instrument}",
			"{genre}",
			"{instrument}",
			"{mood} {genre}",
			"{mood} {instrument}",
		},
	}
}

// complete reports whether every word pool has at least one entry.
func (v Vocabulary) complete() bool {
	return len(v.Genres) > 0 && len(v.Instruments) > 0 &&
		len(v.Moods) > 0 && len(v.Templates) > 0
}
