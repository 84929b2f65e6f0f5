package service

import (
	"context"
	"math/rand/v2"
	"strings"
	"unicode/utf8"

	"harfzaar/internal/models"
	"harfzaar/internal/repository"

	"github.com/agnivade/levenshtein"
)

// girahCompared is how many trailing words are compared.
const girahCompared = 3

// fuzzyTolerance is the edit distance allowed per rune of the longer word.
const fuzzyTolerance = 0.3

var girahFeedback = map[string][]string{
	"zero": {
		"The ending does not rhyme with the misra yet. Try again!",
		"No rhyme found. Listen to the last words of the misra once more.",
		"Keep practising, the qaafia and radeef are missing.",
	},
	"low": {
		"A start! One of the final words echoes the misra.",
		"You caught a sound, now chase the qaafia.",
		"Close in spirit, but the rhyme needs more work.",
	},
	"mid": {
		"Good girah! Most of the ending fits.",
		"Nicely tied, one more word and it sings.",
		"The radeef is there, polish the qaafia.",
	},
	"high": {
		"Wah wah! A perfect girah.",
		"Beautiful, the misra is complete.",
		"Mukarrar! Your line rhymes flawlessly.",
	},
}

// Randomizer supplies the random score and feedback picks. *rand.Rand satisfies it.
type Randomizer interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// GirahResult is the outcome of scoring one line.
type GirahResult struct {
	Matches  int    `json:"matches"`
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

// ScoreGirah compares the last three words of line and reference, aligned
// from the end. The first compared word matches on its last rune; the final
// two match by fuzzy equality.
func ScoreGirah(line, reference string, rng Randomizer) GirahResult {
	user := lastWords(line, girahCompared)
	ref := lastWords(reference, girahCompared)

	matches := 0
	for i := 0; i < girahCompared; i++ {
		u, r := user[i], ref[i]
		if u == "" || r == "" {
			continue
		}
		if i == 0 {
			if lastRune(u) == lastRune(r) {
				matches++
			}
			continue
		}
		if fuzzyMatch(u, r) {
			matches++
		}
	}

	var score int
	var band string
	switch matches {
	case 0:
		score, band = 0, "zero"
	case 1:
		score, band = 40, "low"
	case 2:
		score, band = 60, "mid"
	default:
		score, band = 60+rng.IntN(31), "high"
	}

	pool := girahFeedback[band]
	return GirahResult{Matches: matches, Score: score, Feedback: pool[rng.IntN(len(pool))]}
}

// lastWords returns the final n words of s, padded with "" at the front when
// s is shorter. Index 0 is the n-th word from the end.
func lastWords(s string, n int) []string {
	words := strings.Fields(s)
	out := make([]string, n)
	for i := 0; i < n; i++ {
		src := len(words) - n + i
		if src >= 0 {
			out[i] = words[src]
		}
	}
	return out
}

func lastRune(s string) rune {
	r, _ := utf8.DecodeLastRuneInString(strings.ToLower(s))
	return r
}

func fuzzyMatch(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return true
	}
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	allowed := int(float64(longest) * fuzzyTolerance)
	return levenshtein.ComputeDistance(a, b) <= allowed
}

// GirahService serves reference lines and scores attempts.
type GirahService struct {
	lines repository.GirahLineRepository
	rng   Randomizer
}

// NewGirahService returns a GirahService. A nil rng uses the goroutine-safe
// package source; a supplied one must not be shared across goroutines.
func NewGirahService(lines repository.GirahLineRepository, rng Randomizer) *GirahService {
	if rng == nil {
		rng = globalRand{}
	}
	return &GirahService{lines: lines, rng: rng}
}

// RandomLine returns a random reference verse.
func (s *GirahService) RandomLine(ctx context.Context) (*models.GirahLine, error) {
	return s.lines.Random(ctx)
}

// Score validates the input and scores line against reference.
func (s *GirahService) Score(line, reference string) (GirahResult, error) {
	if strings.TrimSpace(line) == "" || strings.TrimSpace(reference) == "" {
		return GirahResult{}, models.NewValidationError("Both line and reference are required")
	}
	return ScoreGirah(line, reference, s.rng), nil
}
