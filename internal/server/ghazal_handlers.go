package server

import (
	"harfzaar/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetGhazalFacet serves GET /api/ghazals/poets, /genres and /domains
// @Summary Distinct poets, genres or domains
// @Tags ghazals
// @Produce json
// @Success 200 {array} string
// @Router /ghazals/poets [get]
// @Router /ghazals/genres [get]
// @Router /ghazals/domains [get]
func (s *Server) GetGhazalFacet(facet string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		values, err := s.ghazalService.Facet(c.UserContext(), facet)
		if err != nil {
			return models.Respond(c, err)
		}
		return c.JSON(values)
	}
}

// FilterGhazals handles GET /api/ghazals/search
// @Summary List ghazal titles by poet, genre and domain
// @Tags ghazals
// @Produce json
// @Param poet query string false "Poet name"
// @Param genre query string false "Genre"
// @Param domain query string false "Poetry domain"
// @Success 200 {array} models.GhazalTitle
// @Router /ghazals/search [get]
func (s *Server) FilterGhazals(c *fiber.Ctx) error {
	titles, err := s.ghazalService.Filter(c.UserContext(), models.GhazalFilter{
		PoetName:     c.Query("poet"),
		Genre:        c.Query("genre"),
		PoetryDomain: c.Query("domain"),
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(titles)
}

// GetPoetry handles GET /api/ghazals/poetry/:key
// @Summary One ghazal by id or exact title
// @Tags ghazals
// @Produce json
// @Param key path string true "Ghazal id or title"
// @Success 200 {object} models.Ghazal
// @Failure 404 {object} models.ErrorResponse
// @Router /ghazals/poetry/{key} [get]
func (s *Server) GetPoetry(c *fiber.Ctx) error {
	g, err := s.ghazalService.Poetry(c.UserContext(), c.Params("key"))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(g)
}

// GetPoetryByPoet handles GET /api/ghazals/by-poet/:poetName and /api/poetry/by-poet/:poetName
// @Summary A poet's ghazals
// @Tags ghazals
// @Produce json
// @Param poetName path string true "Poet name"
// @Success 200 {array} service.GhazalSummary
// @Failure 404 {object} models.ErrorResponse
// @Router /ghazals/by-poet/{poetName} [get]
func (s *Server) GetPoetryByPoet(c *fiber.Ctx) error {
	list, err := s.ghazalService.ByPoet(c.UserContext(), c.Params("poetName"))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(list)
}

// AddPoetry handles POST /api/addpoetry
// @Summary Add a ghazal
// @Tags ghazals
// @Accept json
// @Produce json
// @Param request body object{poetName=string,poetryDomain=string,poetryTitle=string,poetryContent=string,genre=string} true "Ghazal"
// @Success 201 {object} object{message=string,ghazal=models.Ghazal}
// @Failure 400 {object} models.ErrorResponse
// @Router /addpoetry [post]
func (s *Server) AddPoetry(c *fiber.Ctx) error {
	var req models.Ghazal
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	g, err := s.ghazalService.Add(c.UserContext(), req)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Ghazal created",
		"ghazal":  g,
	})
}

// GetFavorites handles GET /api/favorites
// @Summary The caller's bookmarked ghazals
// @Tags favorites
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Ghazal
// @Router /favorites [get]
func (s *Server) GetFavorites(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return models.Respond(c, err)
	}
	list, err := s.ghazalService.Favorites(c.UserContext(), userID)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(list)
}

// AddFavorite handles POST /api/favorites/:ghazalId
// @Summary Bookmark a ghazal
// @Tags favorites
// @Produce json
// @Security BearerAuth
// @Param ghazalId path string true "Ghazal ID"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /favorites/{ghazalId} [post]
func (s *Server) AddFavorite(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return models.Respond(c, err)
	}
	if err := s.ghazalService.AddFavorite(c.UserContext(), userID, c.Params("ghazalId")); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Added to favorites"})
}

// RemoveFavorite handles DELETE /api/favorites/:ghazalId
// @Summary Remove a bookmark
// @Tags favorites
// @Produce json
// @Security BearerAuth
// @Param ghazalId path string true "Ghazal ID"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /favorites/{ghazalId} [delete]
func (s *Server) RemoveFavorite(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return models.Respond(c, err)
	}
	if err := s.ghazalService.RemoveFavorite(c.UserContext(), userID, c.Params("ghazalId")); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Removed from favorites"})
}
