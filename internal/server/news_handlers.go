package server

import (
	"harfzaar/internal/models"
	"harfzaar/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateNews handles POST /api/news
// @Summary Post a news item
// @Tags news
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param description formData string true "Headline"
// @Param content formData string true "Body"
// @Param image formData file false "Illustration"
// @Success 201 {object} object{message=string,news=models.News}
// @Failure 400 {object} models.ErrorResponse
// @Router /news [post]
func (s *Server) CreateNews(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return models.Respond(c, err)
	}

	in := service.NewsInput{
		Author:      models.NewsAuthor{UserID: user.ID, Username: user.Username},
		Description: c.FormValue("description"),
		Content:     c.FormValue("content"),
	}

	name, contentType, data, ok, err := readFormFile(c, "image")
	if err != nil {
		return models.Respond(c, err)
	}
	if ok {
		in.Image = &service.UploadInput{Filename: name, ContentType: contentType, Data: data}
	}

	news, err := s.newsService.Create(c.UserContext(), in)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "News created",
		"news":    news,
	})
}

// GetNews handles GET /api/news/all
// @Summary All news, newest first
// @Tags news
// @Produce json
// @Success 200 {array} models.News
// @Router /news/all [get]
func (s *Server) GetNews(c *fiber.Ctx) error {
	list, err := s.newsService.List(c.UserContext())
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(list)
}

// SubmitFeedback handles POST /api/feedback
// @Summary Send contact-form feedback
// @Tags feedback
// @Accept json
// @Produce json
// @Param request body object{name=string,email=string,message=string} true "Feedback"
// @Success 201 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /feedback [post]
func (s *Server) SubmitFeedback(c *fiber.Ctx) error {
	var req struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Message string `json:"message"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	if _, err := s.newsService.SubmitFeedback(c.UserContext(), req.Name, req.Email, req.Message); err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Feedback submitted successfully"})
}
