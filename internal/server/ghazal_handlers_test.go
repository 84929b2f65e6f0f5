package server

import (
	"net/http"
	"net/url"
	"testing"

	"harfzaar/internal/models"
	"harfzaar/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedGhazals(t *testing.T, env *testEnv) []models.Ghazal {
	t.Helper()
	list := []models.Ghazal{
		{PoetName: "ahmad-faraz", PoetryDomain: "Ghazal", PoetryTitle: "Ranjish hi sahi", PoetryContent: "ranjish hi sahi dil hi dukhane ke liye aa", Genre: "Romantic"},
		{PoetName: "ahmad-faraz", PoetryDomain: "Nazm", PoetryTitle: "Mohasra", PoetryContent: "mera qalam to amanat hai mere logon ki", Genre: "Social"},
		{PoetName: "mirza-ghalib", PoetryDomain: "Ghazal", PoetryTitle: "Hazaron khwahishen", PoetryContent: "hazaron khwahishen aisi ke har khwahish pe dam nikle", Genre: "Philosophical"},
	}
	for i := range list {
		require.NoError(t, env.db.Repos().Ghazals.Create(t.Context(), &list[i]))
	}
	return list
}

func TestGhazalFacets(t *testing.T) {
	env := newTestEnv(t)
	seedGhazals(t, env)

	tests := []struct {
		path string
		want []string
	}{
		{"/api/ghazals/poets", []string{"ahmad-faraz", "mirza-ghalib"}},
		{"/api/ghazals/genres", []string{"Philosophical", "Romantic", "Social"}},
		{"/api/ghazals/domains", []string{"Ghazal", "Nazm"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp := env.do(t, http.MethodGet, tt.path, nil, "")
			require.Equal(t, fiber.StatusOK, resp.StatusCode)
			assert.ElementsMatch(t, tt.want, decode[[]string](t, resp))
		})
	}
}

func TestFilterGhazals(t *testing.T) {
	env := newTestEnv(t)
	seedGhazals(t, env)

	q := url.Values{"poet": {"ahmad-faraz"}, "domain": {"Nazm"}}
	resp := env.do(t, http.MethodGet, "/api/ghazals/search?"+q.Encode(), nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	titles := decode[[]models.GhazalTitle](t, resp)
	require.Len(t, titles, 1)
	assert.Equal(t, "Mohasra", titles[0].PoetryTitle)

	resp = env.do(t, http.MethodGet, "/api/ghazals/search?genre=Humorous", nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]models.GhazalTitle](t, resp))
}

func TestGetPoetry(t *testing.T) {
	env := newTestEnv(t)
	list := seedGhazals(t, env)

	resp := env.do(t, http.MethodGet, "/api/ghazals/poetry/"+list[2].ID.Hex(), nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Hazaron khwahishen", decode[models.Ghazal](t, resp).PoetryTitle)

	resp = env.do(t, http.MethodGet, "/api/ghazals/poetry/"+url.PathEscape("Ranjish hi sahi"), nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, list[0].ID, decode[models.Ghazal](t, resp).ID)

	resp = env.do(t, http.MethodGet, "/api/ghazals/poetry/missing", nil, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Poetry not found", decode[models.ErrorResponse](t, resp).Message)
}

func TestGetPoetryByPoet(t *testing.T) {
	env := newTestEnv(t)
	seedGhazals(t, env)

	for _, path := range []string{"/api/ghazals/by-poet/ahmad-faraz", "/api/poetry/by-poet/ahmad-faraz"} {
		resp := env.do(t, http.MethodGet, path, nil, "")
		require.Equal(t, fiber.StatusOK, resp.StatusCode, path)
		list := decode[[]service.GhazalSummary](t, resp)
		assert.Len(t, list, 2)
	}

	resp := env.do(t, http.MethodGet, "/api/poetry/by-poet/nobody", nil, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAddPoetry(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/addpoetry", map[string]string{
		"poetName":      "parveen-shakir",
		"poetryDomain":  "Ghazal",
		"poetryTitle":   "Khushbu",
		"poetryContent": "wo to khushbu hai hawaon mein bikhar jayega",
		"genre":         "Romantic",
	}, "")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	body := decode[struct {
		Message string        `json:"message"`
		Ghazal  models.Ghazal `json:"ghazal"`
	}](t, resp)
	assert.Equal(t, "Ghazal created", body.Message)
	assert.False(t, body.Ghazal.ID.IsZero())
	assert.Len(t, env.db.Ghazals, 1)

	resp = env.do(t, http.MethodPost, "/api/addpoetry", map[string]string{"poetName": "x"}, "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "All fields are required", decode[models.ErrorResponse](t, resp).Message)
}

func TestFavorites(t *testing.T) {
	env := newTestEnv(t)
	list := seedGhazals(t, env)
	user, token := env.createUser(t, "reader")

	resp := env.do(t, http.MethodGet, "/api/favorites", nil, token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]models.Ghazal](t, resp))

	for _, g := range []models.Ghazal{list[2], list[0]} {
		resp = env.do(t, http.MethodPost, "/api/favorites/"+g.ID.Hex(), nil, token)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/api/favorites", nil, token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	favs := decode[[]models.Ghazal](t, resp)
	require.Len(t, favs, 2)
	assert.Equal(t, list[2].ID, favs[0].ID, "bookmark order is kept")

	resp = env.do(t, http.MethodDelete, "/api/favorites/"+list[2].ID.Hex(), nil, token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{list[0].ID.Hex()}, hexes(env.db.User(user.ID).Favorites))

	resp = env.do(t, http.MethodPost, "/api/favorites/not-an-id", nil, token)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/favorites/65a000000000000000000000", nil, token)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/favorites", nil, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func hexes[T interface{ Hex() string }](ids []T) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Hex())
	}
	return out
}
