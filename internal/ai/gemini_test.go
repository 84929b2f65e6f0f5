package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

func TestNewGemini_RequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), "", "", "")
	assert.Error(t, err)
}

func TestText(t *testing.T) {
	_, err := text(nil)
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, err = text(&genai.GenerateContentResponse{})
	assert.ErrorIs(t, err, ErrEmptyResponse)

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: genai.NewContentFromText("  Romantic \n", genai.RoleModel),
		}},
	}
	got, err := text(resp)
	assert.NoError(t, err)
	assert.Equal(t, "Romantic", got)
}

func TestDisabled(t *testing.T) {
	var g Generator = Disabled{}
	_, err := g.GenerateText(context.Background(), "x", Options{})
	assert.ErrorIs(t, err, ErrDisabled)
	_, err = g.GenerateFromImage(context.Background(), nil, "image/png", "x")
	assert.ErrorIs(t, err, ErrDisabled)
}
