package service

import (
	"context"
	"errors"
	"testing"

	"harfzaar/internal/ai"
	"harfzaar/internal/featureflags"
	"harfzaar/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	text      string
	err       error
	prompt    string
	opts      ai.Options
	imageMIME string
}

func (g *fakeGenerator) GenerateText(_ context.Context, prompt string, opts ai.Options) (string, error) {
	g.prompt, g.opts = prompt, opts
	return g.text, g.err
}

func (g *fakeGenerator) GenerateFromImage(_ context.Context, _ []byte, mimeType, prompt string) (string, error) {
	g.prompt, g.imageMIME = prompt, mimeType
	return g.text, g.err
}

const validQuiz = `{"questions":[{"question":"Who wrote Diwan-e-Ghalib?","options":["Ghalib","Mir","Faiz","Iqbal"],"answer":"Ghalib"}]}`

func TestAIService_Quiz(t *testing.T) {
	gen := &fakeGenerator{text: "```json\n" + validQuiz + "\n```"}
	svc := NewAIService(gen, &ghazalRepoStub{}, nil)

	quiz, err := svc.Quiz(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, quiz.Questions, 1)
	assert.Equal(t, "Ghalib", quiz.Questions[0].Answer)
	assert.True(t, gen.opts.JSON)

	for _, bad := range []string{
		"not json",
		`{"questions":[]}`,
		`{"questions":[{"question":"q","options":[],"answer":"a"}]}`,
		`{"questions":[{"question":"","options":["a"],"answer":"a"}]}`,
	} {
		gen.text = bad
		_, err := svc.Quiz(context.Background(), "")
		require.Error(t, err, bad)
		assert.Equal(t, "Failed to fetch quiz questions", err.(*models.AppError).Message)
	}
}

func TestAIService_Chat(t *testing.T) {
	gen := &fakeGenerator{text: "**غالب** ایک عظیم شاعر تھے"}
	svc := NewAIService(gen, &ghazalRepoStub{}, nil)

	reply, err := svc.Chat(context.Background(), "", "Ghalib kaun the?")
	require.NoError(t, err)
	assert.Equal(t, "غالب ایک عظیم شاعر تھے", reply)
	assert.Contains(t, gen.prompt, "Ghalib kaun the?")
	assert.Contains(t, gen.opts.SystemInstruction, "Harfzaar AI")

	_, err = svc.Chat(context.Background(), "", "  ")
	assert.Equal(t, "Message is required", err.Error())

	gen.err = errors.New("quota")
	_, err = svc.Chat(context.Background(), "", "hi")
	assert.Equal(t, models.CodeInternal, appCode(t, err))
}

func TestAIService_DisabledAndFlags(t *testing.T) {
	off := NewAIService(nil, &ghazalRepoStub{}, nil)
	_, err := off.Quiz(context.Background(), "")
	assert.Equal(t, models.CodeUnavailable, appCode(t, err))

	flags := featureflags.NewManager("ai_chatbot=off")
	svc := NewAIService(&fakeGenerator{text: "ok"}, &ghazalRepoStub{}, flags)
	_, err = svc.Chat(context.Background(), "", "hi")
	assert.Equal(t, models.CodeUnavailable, appCode(t, err))
}

func TestAIService_ClassifyImage(t *testing.T) {
	var poetQuery string
	repo := &ghazalRepoStub{
		listByGenre: func(_ context.Context, genre string) ([]models.Ghazal, error) {
			if genre == "Romantic" {
				return []models.Ghazal{{PoetryTitle: "t", PoetryContent: "c"}}, nil
			}
			return nil, nil
		},
		listByPoetFn: func(_ context.Context, name string) ([]models.Ghazal, error) {
			poetQuery = name
			if name == "ahmad-faraz" {
				return []models.Ghazal{{PoetryTitle: "Ranjish hi sahi", PoetryContent: "dil hi dukhane ke liye aa"}}, nil
			}
			return nil, nil
		},
	}
	gen := &fakeGenerator{text: "Romantic\n"}
	svc := NewAIService(gen, repo, nil)
	ctx := context.Background()
	img := []byte{0x89, 'P', 'N', 'G'}

	match, err := svc.ClassifyImage(ctx, "", img, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "Romantic", match.Genre)
	assert.Equal(t, []PoemExcerpt{{Title: "t", Content: "c"}}, match.Poetry)
	assert.Equal(t, "image/png", gen.imageMIME)

	gen.text = "Nature"
	_, err = svc.ClassifyImage(ctx, "", img, "image/png")
	assert.Equal(t, "No poetry found for the detected genre", err.Error())

	gen.text = "Ahmed Faraz"
	match, err = svc.ClassifyImage(ctx, "", img, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "ahmad-faraz", match.Poet)
	assert.Empty(t, match.Genre)

	gen.text = "Jon Elia"
	_, err = svc.ClassifyImage(ctx, "", img, "image/png")
	assert.Equal(t, "No poetry found for poet jaun-eliya", err.Error())
	assert.Equal(t, "jaun-eliya", poetQuery)

	gen.err = errors.New("model down")
	_, err = svc.ClassifyImage(ctx, "", img, "image/png")
	assert.Equal(t, "Failed to process image", err.(*models.AppError).Message)

	_, err = svc.ClassifyImage(ctx, "", nil, "")
	assert.Equal(t, "No file uploaded", err.Error())
}

func TestNormalizePoetName(t *testing.T) {
	assert.Equal(t, "ahmad-faraz", NormalizePoetName("Ahmed  Faraz"))
	assert.Equal(t, "allama-iqbal", NormalizePoetName("Muhammad Iqbal"))
	assert.Equal(t, "jaun-eliya", NormalizePoetName("jon-elia"))
	assert.Equal(t, "mirza-ghalib", NormalizePoetName(" Mirza Ghalib "))
}
