package service

import (
	"context"
	"errors"
	"testing"

	"harfzaar/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreGirah_Bands(t *testing.T) {
	ref := "dil-e-nadaan tujhe hua kya hai"

	cases := []struct {
		name    string
		line    string
		matches int
		score   int
		band    string
	}{
		{"none", "kuch bhi nahin", 0, 0, "zero"},
		{"radeef only", "ham ne dekha hai", 1, 40, "low"},
		{"qaafia and radeef", "kaun roye kya hai", 2, 60, "mid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := ScoreGirah(tc.line, ref, &seqRand{})
			assert.Equal(t, tc.matches, res.Matches)
			assert.Equal(t, tc.score, res.Score)
			assert.Contains(t, girahFeedback[tc.band], res.Feedback)
		})
	}
}

func TestScoreGirah_PerfectUsesRandomizer(t *testing.T) {
	rng := &seqRand{vals: []int{10, 2}}
	res := ScoreGirah("aaj bhi hua kya hai", "tujhe hua kya hai", rng)

	assert.Equal(t, 3, res.Matches)
	assert.Equal(t, 70, res.Score)
	assert.Equal(t, girahFeedback["high"][2], res.Feedback)
}

func TestScoreGirah_FirstWordComparesLastRune(t *testing.T) {
	// "sanam" and "gham" end on the same rune.
	res := ScoreGirah("mera sanam hai yahan", "tera gham hai yahan", &seqRand{})
	assert.Equal(t, 3, res.Matches)
}

func TestScoreGirah_FuzzyAndShortLines(t *testing.T) {
	// One missing rune is within tolerance.
	res := ScoreGirah("x mohabat hai", "y mohabbat hai", &seqRand{})
	assert.Equal(t, 2, res.Matches)

	res = ScoreGirah("hai", "kya hai", &seqRand{})
	assert.Equal(t, 1, res.Matches)
	assert.Equal(t, 40, res.Score)
}

func TestLastWords(t *testing.T) {
	assert.Equal(t, []string{"b", "c", "d"}, lastWords("a b c d", 3))
	assert.Equal(t, []string{"", "x", "y"}, lastWords("  x   y ", 3))
	assert.Equal(t, []string{"", "", ""}, lastWords("", 3))
}

func TestGirahService(t *testing.T) {
	repo := &girahRepoStub{randomFn: func(context.Context) (*models.GirahLine, error) {
		return &models.GirahLine{Line: "dil hi to hai na sang-o-khisht"}, nil
	}}
	svc := NewGirahService(repo, &seqRand{})

	line, err := svc.RandomLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dil hi to hai na sang-o-khisht", line.Line)

	_, err = svc.Score(" ", "ref")
	require.Error(t, err)
	assert.Equal(t, models.CodeValidation, appCode(t, err))

	res, err := svc.Score("a b c", "a b c")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Matches)

	repo.randomFn = func(context.Context) (*models.GirahLine, error) { return nil, errors.New("down") }
	_, err = svc.RandomLine(context.Background())
	assert.Error(t, err)
}
