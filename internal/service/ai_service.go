package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"harfzaar/internal/ai"
	"harfzaar/internal/featureflags"
	"harfzaar/internal/middleware"
	"harfzaar/internal/models"
	"harfzaar/internal/observability"
	"harfzaar/internal/repository"
)

// Feature flag names gating the AI endpoints.
const (
	FlagQuiz        = "ai_quiz"
	FlagChatbot     = "ai_chatbot"
	FlagImageSearch = "ai_image_search"
)

const quizPrompt = `Generate 10 quiz questions related to Urdu literature, novels, poetry, poems, ghazals, history, and famous authors. The questions should cover a variety of topics, and each request must produce a different set of questions.
Return the response in strict JSON format as shown below:
{
  "questions": [
    { "question": "What is the question?", "options": ["A", "B", "C", "D"], "answer": "A" },
    { "question": "Next question?", "options": ["A", "B", "C", "D"], "answer": "B" }
  ]
}`

const chatbotPersona = `You are Harfzaar AI, an expert assistant in Urdu poetry, ghazals, literary figures, and cultural history.
Always reply in an elegant yet simple tone. When possible, use poetic references to enhance responses. Only respond in Urdu.
Avoid casual internet slang.`

const classifyPrompt = "Based on the image, suggest one genre from: Nature, Philosophical, Humorous, Inspirational, Melancholic, Mystical, Romantic and Social. Only respond with one word like (Nature). If it is an image of a person (a poet), do not return any genre, return only the poet's name in the format: 'Ahmed Faraz'."

// ImageGenres are the genres the image classifier may answer with.
var ImageGenres = []string{
	"Nature", "Philosophical", "Humorous", "Inspirational",
	"Melancholic", "Mystical", "Romantic", "Social",
}

// Common transliteration variants mapped to the spelling used in poet names.
var poetNameCorrections = map[string]string{
	"ahmed":    "ahmad",
	"jon":      "jaun",
	"elia":     "eliya",
	"muhammad": "allama",
}

var boldMarkers = regexp.MustCompile(`\*\*(.*?)\*\*`)

// QuizQuestion is one multiple-choice question.
type QuizQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

// Quiz is the quiz payload returned to clients.
type Quiz struct {
	Questions []QuizQuestion `json:"questions"`
}

// PoemExcerpt is a ghazal reduced to title and content.
type PoemExcerpt struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ImageMatch is the outcome of image search. Exactly one of Genre and Poet is set.
type ImageMatch struct {
	Genre  string        `json:"genre,omitempty"`
	Poet   string        `json:"poet,omitempty"`
	Poetry []PoemExcerpt `json:"poetry"`
}

// AIService fronts the generative model.
type AIService struct {
	gen     ai.Generator
	ghazals repository.GhazalRepository
	flags   *featureflags.Manager
}

// NewAIService returns an AIService. A nil gen disables every AI feature;
// a nil flags manager leaves them all on.
func NewAIService(gen ai.Generator, ghazals repository.GhazalRepository, flags *featureflags.Manager) *AIService {
	if gen == nil {
		gen = ai.Disabled{}
	}
	return &AIService{gen: gen, ghazals: ghazals, flags: flags}
}

func (s *AIService) allowed(flag, userID string) error {
	_, off := s.gen.(ai.Disabled)
	if off || (s.flags != nil && !s.flags.Enabled(flag, userID)) {
		return models.NewUnavailableError("This feature is currently unavailable")
	}
	return nil
}

// Quiz asks the model for ten questions and rejects malformed ones.
func (s *AIService) Quiz(ctx context.Context, userID string) (quiz *Quiz, err error) {
	if err := s.allowed(FlagQuiz, userID); err != nil {
		return nil, err
	}
	ctx, span := observability.StartServiceSpan(ctx, "AIService", "Quiz")
	done := observability.TrackAI("quiz")
	defer func() {
		done(err)
		observability.EndSpan(span, err)
	}()

	raw, err := s.gen.GenerateText(ctx, quizPrompt, ai.Options{JSON: true})
	if err == nil {
		quiz, err = parseQuiz(raw)
	}
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "quiz generation failed", "error", err)
		return nil, models.NewInternalMessage("Failed to fetch quiz questions", err)
	}
	return quiz, nil
}

func parseQuiz(raw string) (*Quiz, error) {
	var q Quiz
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &q); err != nil {
		return nil, fmt.Errorf("decode quiz: %w", err)
	}
	if len(q.Questions) == 0 {
		return nil, errors.New("quiz has no questions")
	}
	for i, item := range q.Questions {
		if strings.TrimSpace(item.Question) == "" || len(item.Options) == 0 || strings.TrimSpace(item.Answer) == "" {
			return nil, fmt.Errorf("question %d is malformed", i)
		}
	}
	return &q, nil
}

// stripCodeFence removes a ```json fence some model versions wrap around JSON.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Chat answers a question in the Harfzaar persona.
func (s *AIService) Chat(ctx context.Context, userID, message string) (reply string, err error) {
	if strings.TrimSpace(message) == "" {
		return "", models.NewValidationError("Message is required")
	}
	if err := s.allowed(FlagChatbot, userID); err != nil {
		return "", err
	}
	ctx, span := observability.StartServiceSpan(ctx, "AIService", "Chat")
	done := observability.TrackAI("chatbot")
	defer func() {
		done(err)
		observability.EndSpan(span, err)
	}()

	out, err := s.gen.GenerateText(ctx, "User: "+message+"\n\nReply:", ai.Options{SystemInstruction: chatbotPersona})
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "chatbot generation failed", "error", err)
		return "", models.NewInternalMessage("Failed to get response from Gemini API", err)
	}
	return boldMarkers.ReplaceAllString(out, "$1"), nil
}

// ClassifyImage asks the model for a genre or a poet and returns matching poetry.
func (s *AIService) ClassifyImage(ctx context.Context, userID string, image []byte, mimeType string) (match *ImageMatch, err error) {
	if len(image) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if err := s.allowed(FlagImageSearch, userID); err != nil {
		return nil, err
	}
	ctx, span := observability.StartServiceSpan(ctx, "AIService", "ClassifyImage")
	done := observability.TrackAI("image_search")
	defer func() {
		done(err)
		observability.EndSpan(span, err)
	}()

	out, err := s.gen.GenerateFromImage(ctx, image, mimeType, classifyPrompt)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "image classification failed", "error", err)
		return nil, models.NewInternalMessage("Failed to process image", err)
	}
	label := strings.Trim(strings.TrimSpace(out), `.'"`)

	if slices.Contains(ImageGenres, label) {
		list, err := s.ghazals.ListByGenre(ctx, label)
		if err != nil {
			return nil, models.NewInternalMessage("Failed to process image", err)
		}
		if len(list) == 0 {
			return nil, models.NewNotFoundMessage("No poetry found for the detected genre")
		}
		return &ImageMatch{Genre: label, Poetry: excerpts(list)}, nil
	}

	poet := NormalizePoetName(label)
	list, err := s.ghazals.ListByPoet(ctx, poet)
	if err != nil {
		return nil, models.NewInternalMessage("Failed to process image", err)
	}
	if len(list) == 0 {
		return nil, models.NewNotFoundMessage("No poetry found for poet " + poet)
	}
	return &ImageMatch{Poet: poet, Poetry: excerpts(list)}, nil
}

// NormalizePoetName turns "Ahmed Faraz" into "ahmad-faraz".
func NormalizePoetName(name string) string {
	parts := strings.Fields(strings.ReplaceAll(strings.ToLower(name), "-", " "))
	for i, p := range parts {
		if fixed, ok := poetNameCorrections[p]; ok {
			parts[i] = fixed
		}
	}
	return strings.Join(parts, "-")
}

func excerpts(list []models.Ghazal) []PoemExcerpt {
	out := make([]PoemExcerpt, 0, len(list))
	for _, g := range list {
		out = append(out, PoemExcerpt{Title: g.PoetryTitle, Content: g.PoetryContent})
	}
	return out
}
