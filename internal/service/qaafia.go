// Package service provides application business logic (qaafia, search, chat, poets, etc.).
package service

import (
	"context"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"harfzaar/internal/cache"
	"harfzaar/internal/database"
	"harfzaar/internal/models"
	"harfzaar/internal/observability"
	"harfzaar/internal/repository"
)

// Client-facing qaafia messages.
const (
	MsgEmptyPattern    = "Enter the Ravi Pattern"
	MsgPatternTooLarge = "Your Ravi Pattern is too large to be used"
	MsgNoQaafia        = "Sorry, we dont have any qaafia right now which contains your pattern"
	MsgServerDown      = "Server Not Responding"
	MsgNoCommonRavi    = "No common ravi pattern found"
)

// MaxQaafiaResults caps the words returned for one pattern.
const MaxQaafiaResults = 9

// MaxRaviLength is the longest pattern with a precomputed column.
const MaxRaviLength = 5

// QaafiaService finds rhyming words by their trailing ravi pattern.
type QaafiaService struct {
	words repository.WordRepository
	ttl   time.Duration
}

// NewQaafiaService returns a QaafiaService. A non-positive ttl uses cache.QaafiaTTL.
func NewQaafiaService(words repository.WordRepository, ttl time.Duration) *QaafiaService {
	if ttl <= 0 {
		ttl = cache.QaafiaTTL
	}
	return &QaafiaService{words: words, ttl: ttl}
}

// RaviColumn maps a pattern length to its dictionary column.
func RaviColumn(n int) (string, bool) {
	if n < 1 || n > MaxRaviLength {
		return "", false
	}
	return database.RaviColumns[n-1], true
}

// Search returns up to MaxQaafiaResults distinct words whose ravi column equals
// the pattern, in store order.
func (s *QaafiaService) Search(ctx context.Context, raw string) (words []string, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "QaafiaService", "Search")
	defer func() { observability.EndSpan(span, err) }()

	pattern := decodePattern(raw)
	if pattern == "" {
		return nil, models.NewValidationError(MsgEmptyPattern)
	}
	column, ok := RaviColumn(utf8.RuneCountInString(pattern))
	if !ok {
		return nil, models.NewValidationError(MsgPatternTooLarge)
	}

	key := cache.QaafiaKey(column, strings.ToLower(pattern))
	err = cache.Aside(ctx, "qaafia", key, &words, s.ttl, func() error {
		found, err := s.words.FindByRavi(ctx, column, pattern)
		if err != nil {
			return models.NewInternalMessage(MsgServerDown, err)
		}
		words = dedupe(found, MaxQaafiaResults)
		if len(words) == 0 {
			return models.NewNotFoundMessage(MsgNoQaafia)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return words, nil
}

// SuggestFromPair derives the ravi pattern shared by two qaafia words and searches it.
func (s *QaafiaService) SuggestFromPair(ctx context.Context, first, second string) ([]string, error) {
	first, second = strings.TrimSpace(first), strings.TrimSpace(second)
	if first == "" || second == "" {
		return nil, models.NewValidationError(MsgEmptyPattern)
	}
	suffix := CommonSuffix(first, second, MaxRaviLength)
	if suffix == "" {
		return nil, models.NewValidationError(MsgNoCommonRavi)
	}
	return s.Search(ctx, suffix)
}

// CommonSuffix returns the longest shared rune suffix of a and b, compared
// case-insensitively and keeping at most limit runes of a.
func CommonSuffix(a, b string, limit int) string {
	ra, rb := []rune(a), []rune(b)
	la, lb := []rune(strings.ToLower(a)), []rune(strings.ToLower(b))
	if len(la) != len(ra) || len(lb) != len(rb) {
		// Lowercasing changed the rune count; compare the originals.
		la, lb = ra, rb
	}

	n := 0
	for n < len(la) && n < len(lb) && n < limit && la[len(la)-1-n] == lb[len(lb)-1-n] {
		n++
	}
	return string(ra[len(ra)-n:])
}

// decodePattern trims and percent-decodes once. Undecodable input is kept as is.
func decodePattern(raw string) string {
	p := strings.TrimSpace(raw)
	if decoded, err := url.PathUnescape(p); err == nil {
		p = strings.TrimSpace(decoded)
	}
	return p
}

// dedupe keeps the first occurrence of each word, up to limit entries.
func dedupe(words []string, limit int) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, min(len(words), limit))
	for _, w := range words {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
		if len(out) == limit {
			break
		}
	}
	return out
}
