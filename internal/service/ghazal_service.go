package service

import (
	"context"
	"strings"

	"harfzaar/internal/cache"
	"harfzaar/internal/models"
	"harfzaar/internal/observability"
	"harfzaar/internal/repository"
	"harfzaar/internal/validation"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Facets that can be listed with distinct values, keyed by URL segment.
var ghazalFacets = map[string]string{
	"poets":   "poetName",
	"genres":  "genre",
	"domains": "poetryDomain",
}

// GhazalSummary is the by-poet listing projection.
type GhazalSummary struct {
	ID            bson.ObjectID `json:"_id"`
	PoetryTitle   string        `json:"poetryTitle"`
	PoetryContent string        `json:"poetryContent"`
}

// GhazalService serves browsing, adding and favouriting poetry.
type GhazalService struct {
	ghazals repository.GhazalRepository
	users   repository.UserRepository
}

// NewGhazalService returns a GhazalService.
func NewGhazalService(ghazals repository.GhazalRepository, users repository.UserRepository) *GhazalService {
	return &GhazalService{ghazals: ghazals, users: users}
}

// Facet returns the distinct values of one facet (poets, genres or domains), cached in Redis.
func (s *GhazalService) Facet(ctx context.Context, facet string) (values []string, err error) {
	field, ok := ghazalFacets[facet]
	if !ok {
		return nil, models.NewNotFoundMessage("Unknown facet")
	}
	err = cache.Aside(ctx, "ghazal_facet", cache.GhazalFacetKey(facet), &values, cache.GhazalFacetTTL, func() error {
		found, err := s.ghazals.Distinct(ctx, field)
		if err != nil {
			return err
		}
		values = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

// Filter lists titles matching every non-empty field of f.
func (s *GhazalService) Filter(ctx context.Context, f models.GhazalFilter) ([]models.GhazalTitle, error) {
	titles, err := s.ghazals.ListTitles(ctx, f)
	if err != nil {
		return nil, err
	}
	if titles == nil {
		titles = []models.GhazalTitle{}
	}
	return titles, nil
}

// Poetry looks a ghazal up by id when key is a valid hex id, otherwise by exact title.
func (s *GhazalService) Poetry(ctx context.Context, key string) (*models.Ghazal, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, models.NewValidationError("Poetry key is required")
	}
	if id, err := bson.ObjectIDFromHex(key); err == nil {
		g, err := s.ghazals.GetByID(ctx, id)
		if err == nil || !models.IsNotFound(err) {
			return g, err
		}
	}
	return s.ghazals.GetByTitle(ctx, key)
}

// ByPoet lists a poet's ghazals.
func (s *GhazalService) ByPoet(ctx context.Context, poetName string) ([]GhazalSummary, error) {
	list, err := s.ghazals.ListByPoet(ctx, strings.TrimSpace(poetName))
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, models.NewNotFoundMessage("No ghazals found for this poet")
	}
	out := make([]GhazalSummary, 0, len(list))
	for _, g := range list {
		out = append(out, GhazalSummary{ID: g.ID, PoetryTitle: g.PoetryTitle, PoetryContent: g.PoetryContent})
	}
	return out, nil
}

// Add stores a new ghazal.
func (s *GhazalService) Add(ctx context.Context, g models.Ghazal) (out *models.Ghazal, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "GhazalService", "Add")
	defer func() { observability.EndSpan(span, err) }()

	if validation.Required(
		validation.Field{Name: "poetName", Value: g.PoetName},
		validation.Field{Name: "poetryDomain", Value: g.PoetryDomain},
		validation.Field{Name: "poetryTitle", Value: g.PoetryTitle},
		validation.Field{Name: "poetryContent", Value: g.PoetryContent},
		validation.Field{Name: "genre", Value: g.Genre},
	) != "" {
		return nil, models.NewValidationError("All fields are required")
	}
	g.ID = bson.NilObjectID
	g.PoetName = strings.TrimSpace(g.PoetName)
	if err := s.ghazals.Create(ctx, &g); err != nil {
		return nil, err
	}
	cache.InvalidateGhazalFacets(ctx)
	return &g, nil
}

// AddFavorite bookmarks a ghazal for the user.
func (s *GhazalService) AddFavorite(ctx context.Context, userID bson.ObjectID, ghazalHex string) error {
	id, err := repository.ParseID(ghazalHex, "ghazal id")
	if err != nil {
		return err
	}
	if _, err := s.ghazals.GetByID(ctx, id); err != nil {
		return err
	}
	return s.users.AddFavorite(ctx, userID, id)
}

// RemoveFavorite drops a bookmark. Removing one that does not exist is not an error.
func (s *GhazalService) RemoveFavorite(ctx context.Context, userID bson.ObjectID, ghazalHex string) error {
	id, err := repository.ParseID(ghazalHex, "ghazal id")
	if err != nil {
		return err
	}
	return s.users.RemoveFavorite(ctx, userID, id)
}

// Favorites returns the user's bookmarked ghazals in bookmark order.
func (s *GhazalService) Favorites(ctx context.Context, userID bson.ObjectID) ([]models.Ghazal, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(user.Favorites) == 0 {
		return []models.Ghazal{}, nil
	}
	list, err := s.ghazals.GetByIDs(ctx, user.Favorites)
	if err != nil {
		return nil, err
	}
	return orderByIDs(list, user.Favorites), nil
}

// orderByIDs arranges list to follow ids, dropping ids with no match.
func orderByIDs(list []models.Ghazal, ids []bson.ObjectID) []models.Ghazal {
	byID := make(map[bson.ObjectID]models.Ghazal, len(list))
	for _, g := range list {
		byID[g.ID] = g
	}
	out := make([]models.Ghazal, 0, len(list))
	for _, id := range ids {
		if g, ok := byID[id]; ok {
			out = append(out, g)
		}
	}
	return out
}
