package server

import (
	"harfzaar/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SearchQaafia handles GET /api/qaafia/search
// @Summary Find qaafia by ravi pattern
// @Description Returns up to nine words whose trailing letters match the pattern
// @Tags qaafia
// @Produce json
// @Param raviPattern query string true "Ravi pattern (1-5 letters)"
// @Success 200 {array} string
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /qaafia/search [get]
func (s *Server) SearchQaafia(c *fiber.Ctx) error {
	words, err := s.qaafiaService.Search(c.UserContext(), c.Query("raviPattern"))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(words)
}

// SuggestQaafia handles GET /api/qaafia/suggest
// @Summary Find qaafia from two sample words
// @Tags qaafia
// @Produce json
// @Param firstQaafia query string true "First qaafia"
// @Param secondQaafia query string true "Second qaafia"
// @Success 200 {array} string
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /qaafia/suggest [get]
func (s *Server) SuggestQaafia(c *fiber.Ctx) error {
	words, err := s.qaafiaService.SuggestFromPair(c.UserContext(), c.Query("firstQaafia"), c.Query("secondQaafia"))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(words)
}

// SearchPoetry handles GET /api/search
// @Summary Fuzzy search over titles and verses
// @Tags poetry
// @Produce json
// @Param query query string true "Search text"
// @Success 200 {array} models.Ghazal
// @Failure 500 {object} models.ErrorResponse
// @Router /search [get]
func (s *Server) SearchPoetry(c *fiber.Ctx) error {
	results, err := s.searchService.Search(c.UserContext(), c.Query("query"))
	if err != nil {
		return models.Respond(c, err)
	}
	if results == nil {
		results = []models.Ghazal{}
	}
	return c.JSON(results)
}

// GetGirahLine handles GET /api/girah/girah
// @Summary Random reference line for the girah game
// @Tags girah
// @Produce json
// @Success 200 {object} object{line=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /girah/girah [get]
func (s *Server) GetGirahLine(c *fiber.Ctx) error {
	line, err := s.girahService.RandomLine(c.UserContext())
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"line": line.Line})
}

// ScoreGirah handles POST /api/girah/score
// @Summary Score a completed girah
// @Tags girah
// @Accept json
// @Produce json
// @Param request body object{line=string,reference=string} true "Attempt"
// @Success 200 {object} service.GirahResult
// @Failure 400 {object} models.ErrorResponse
// @Router /girah/score [post]
func (s *Server) ScoreGirah(c *fiber.Ctx) error {
	var req struct {
		Line      string `json:"line"`
		Reference string `json:"reference"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	result, err := s.girahService.Score(req.Line, req.Reference)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(result)
}
