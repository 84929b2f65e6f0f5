package server

import (
	"harfzaar/internal/models"

	"github.com/gofiber/fiber/v2"
)

// flagSubject identifies the caller for percentage rollouts.
// Anonymous callers are bucketed by IP.
func (s *Server) flagSubject(c *fiber.Ctx) string {
	if id := s.optionalUserID(c); id != "" {
		return id
	}
	return c.IP()
}

// StartQuiz handles GET /api/quiz/start-quiz
// @Summary Generate an Urdu literature quiz
// @Tags ai
// @Produce json
// @Success 200 {object} service.Quiz
// @Failure 500 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /quiz/start-quiz [get]
func (s *Server) StartQuiz(c *fiber.Ctx) error {
	quiz, err := s.aiService.Quiz(c.UserContext(), s.flagSubject(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(quiz)
}

// Chatbot handles POST /api/chatbot
// @Summary Ask the Urdu poetry assistant
// @Tags ai
// @Accept json
// @Produce json
// @Param request body object{message=string} true "Question"
// @Success 200 {object} object{reply=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /chatbot [post]
func (s *Server) Chatbot(c *fiber.Ctx) error {
	var req struct {
		Message string `json:"message"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	reply, err := s.aiService.Chat(c.UserContext(), s.flagSubject(c), req.Message)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"reply": reply})
}

// ImageSearch handles POST /api/deepseek
// @Summary Find poetry matching an image
// @Description Classifies the image into a genre or a poet and returns matching poetry
// @Tags ai
// @Accept mpfd
// @Produce json
// @Param image formData file true "Image"
// @Success 200 {object} service.ImageMatch
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /deepseek [post]
func (s *Server) ImageSearch(c *fiber.Ctx) error {
	_, contentType, data, _, err := readFormFile(c, "image")
	if err != nil {
		return models.Respond(c, err)
	}

	match, err := s.aiService.ClassifyImage(c.UserContext(), s.flagSubject(c), data, contentType)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(match)
}

// GetFeatureFlags handles GET /api/feature-flags
// @Summary Configured flags and their value for the caller
// @Tags ai
// @Produce json
// @Success 200 {object} object{raw=map[string]string,evaluated=map[string]bool}
// @Router /feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(s.flagSubject(c)),
	})
}
