package server

import (
	"harfzaar/internal/models"
	"harfzaar/internal/service"

	"github.com/gofiber/fiber/v2"
)

// poetSubmissionRequest is the body shared by become-poet and poets/submit.
// The user always comes from the token, never from the body.
type poetSubmissionRequest struct {
	PoetName      string `json:"poetName"`
	PoetryDomain  string `json:"poetryDomain"`
	PoetryTitle   string `json:"poetryTitle"`
	PoetryContent string `json:"poetryContent"`
	Genre         string `json:"genre"`
	Biography     string `json:"biography"`
	Couplet       string `json:"couplet"`
	Image         string `json:"image"`
}

func (s *Server) poetSubmission(c *fiber.Ctx) (service.PoetSubmission, error) {
	userID, err := currentUserID(c)
	if err != nil {
		_ = models.Respond(c, err)
		return service.PoetSubmission{}, errResponseWritten
	}
	var req poetSubmissionRequest
	if err := bindJSON(c, &req); err != nil {
		return service.PoetSubmission{}, err
	}
	return service.PoetSubmission{
		UserID:        userID,
		PoetName:      req.PoetName,
		PoetryDomain:  req.PoetryDomain,
		PoetryTitle:   req.PoetryTitle,
		PoetryContent: req.PoetryContent,
		Genre:         req.Genre,
		Biography:     req.Biography,
		Couplet:       req.Couplet,
		Image:         req.Image,
	}, nil
}

// BecomePoet handles POST /api/become-poet
// @Summary Apply to become a poet
// @Description Stores the submission for review. image is a data URL.
// @Tags poets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body poetSubmissionRequest true "Submission"
// @Success 201 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /become-poet [post]
func (s *Server) BecomePoet(c *fiber.Ctx) error {
	in, err := s.poetSubmission(c)
	if err != nil {
		return nil
	}
	if _, err := s.poetService.BecomePoet(c.UserContext(), in); err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Submission successful and under review.",
	})
}

// SubmitPoet handles POST /api/poets/submit
// @Summary Register as a poet
// @Description Creates the poet, their first ghazal and promotes the account
// @Tags poets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body poetSubmissionRequest true "Submission"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /poets/submit [post]
func (s *Server) SubmitPoet(c *fiber.Ctx) error {
	in, err := s.poetSubmission(c)
	if err != nil {
		return nil
	}
	if _, err := s.poetService.Submit(c.UserContext(), in); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Poet registered and role updated!"})
}

// GetPoetProfile handles GET /api/poets/:name
// @Summary Poet profile with their poetry
// @Tags poets
// @Produce json
// @Param name path string true "Poet name"
// @Success 200 {object} service.PoetProfile
// @Failure 404 {object} models.ErrorResponse
// @Router /poets/{name} [get]
func (s *Server) GetPoetProfile(c *fiber.Ctx) error {
	profile, err := s.poetService.Profile(c.UserContext(), c.Params("name"))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(profile)
}
