package service

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"harfzaar/internal/models"
	"harfzaar/internal/observability"
	"harfzaar/internal/repository"

	"github.com/agnivade/levenshtein"
)

const (
	// SearchThreshold is the minimum similarity a ghazal needs to be returned.
	SearchThreshold = 0.6
	// MaxSearchResults caps the ghazals returned for one query.
	MaxSearchResults = 10
	// contentWeight scales matches found in the body below title matches.
	contentWeight = 0.9
)

// SearchService performs fuzzy search over the ghazal corpus.
type SearchService struct {
	ghazals repository.GhazalRepository
}

// NewSearchService returns a SearchService.
func NewSearchService(ghazals repository.GhazalRepository) *SearchService {
	return &SearchService{ghazals: ghazals}
}

type scoredGhazal struct {
	ghazal models.Ghazal
	score  float64
}

// Search returns up to MaxSearchResults ghazals whose title or content is
// similar to query, best first, with at most one entry per title.
func (s *SearchService) Search(ctx context.Context, query string) (results []models.Ghazal, err error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []models.Ghazal{}, nil
	}

	ctx, span := observability.StartServiceSpan(ctx, "SearchService", "Search")
	defer func() { observability.EndSpan(span, err) }()

	corpus, err := s.ghazals.All(ctx)
	if err != nil {
		return nil, err
	}

	return rank(q, corpus), nil
}

func rank(q string, corpus []models.Ghazal) []models.Ghazal {
	scored := make([]scoredGhazal, 0, len(corpus))
	for _, g := range corpus {
		score := max(
			Similarity(q, g.PoetryTitle),
			Similarity(q, g.PoetryContent)*contentWeight,
		)
		if score >= SearchThreshold {
			scored = append(scored, scoredGhazal{ghazal: g, score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	seen := make(map[string]struct{}, len(scored))
	out := make([]models.Ghazal, 0, min(len(scored), MaxSearchResults))
	for _, sg := range scored {
		if _, dup := seen[sg.ghazal.PoetryTitle]; dup {
			continue
		}
		seen[sg.ghazal.PoetryTitle] = struct{}{}
		out = append(out, sg.ghazal)
		if len(out) == MaxSearchResults {
			break
		}
	}
	return out
}

// Similarity scores how well query (already lowercased and trimmed) matches
// text in [0, 1]. A substring hit scores 1. Otherwise it is the best
// normalised edit-distance similarity over word windows of the query's length.
func Similarity(query, text string) float64 {
	t := strings.ToLower(strings.TrimSpace(text))
	if query == "" || t == "" {
		return 0
	}
	if strings.Contains(t, query) {
		return 1
	}

	qWords := strings.Fields(query)
	tWords := strings.Fields(t)
	size := len(qWords)
	if size > len(tWords) {
		return ratio(query, strings.Join(tWords, " "))
	}

	best := 0.0
	for i := 0; i+size <= len(tWords); i++ {
		if r := ratio(query, strings.Join(tWords[i:i+size], " ")); r > best {
			best = r
			if best == 1 {
				break
			}
		}
	}
	return best
}

// ratio is 1 - distance / longest length, measured in runes.
func ratio(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
