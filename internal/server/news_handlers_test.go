package server

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"harfzaar/internal/models"
	"harfzaar/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type newsResponse struct {
	Message string      `json:"message"`
	News    models.News `json:"news"`
}

func TestCreateNews(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.createUser(t, "mudeer")

	resp := env.doMultipart(t, "/api/news", map[string]string{
		"description": "Mushaira in Lahore",
		"content":     "The annual mushaira is on Saturday.",
	}, nil, token)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	body := decode[newsResponse](t, resp)
	assert.Equal(t, "News created", body.Message)
	assert.Equal(t, user.Username, body.News.CreatedBy.Username)
	assert.Empty(t, body.News.Image)

	resp = env.doMultipart(t, "/api/news", map[string]string{
		"description": "New diwan",
		"content":     "A new diwan was published.",
	}, &formFile{field: "image", name: "cover.png", contentType: "image/png", data: testutil.TinyPNG(t, 8, 8)}, token)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	body = decode[newsResponse](t, resp)
	assert.True(t, strings.HasPrefix(body.News.Image, "https://cdn.test/news/"))
	assert.Equal(t, 1, env.store.Len())

	t.Run("fake image", func(t *testing.T) {
		resp := env.doMultipart(t, "/api/news", map[string]string{
			"description": "x", "content": "y",
		}, &formFile{field: "image", name: "cover.png", contentType: "image/png", data: []byte("not a png")}, token)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Len(t, env.db.News, 2)
	})

	t.Run("missing content", func(t *testing.T) {
		resp := env.doMultipart(t, "/api/news", map[string]string{"description": "x"}, nil, token)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "All fields are required", decode[models.ErrorResponse](t, resp).Message)
	})

	t.Run("anonymous", func(t *testing.T) {
		resp := env.doMultipart(t, "/api/news", map[string]string{"description": "x", "content": "y"}, nil, "")
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})
}

func TestGetNews(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/news/all", nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]models.News](t, resp))

	now := time.Now().UTC()
	env.db.News = []models.News{
		{Description: "older", Content: "a", CreatedAt: now.Add(-time.Hour)},
		{Description: "newer", Content: "b", CreatedAt: now},
	}
	resp = env.do(t, http.MethodGet, "/api/news/all", nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	list := decode[[]models.News](t, resp)
	require.Len(t, list, 2)
	assert.Equal(t, "newer", list[0].Description)
}

func TestSubmitFeedback(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		body   map[string]string
		status int
	}{
		{"ok", map[string]string{"name": "Sana", "email": "sana@example.com", "message": "Bohat khoob"}, fiber.StatusCreated},
		{"missing message", map[string]string{"name": "Sana", "email": "sana@example.com"}, fiber.StatusBadRequest},
		{"bad email", map[string]string{"name": "Sana", "email": "sana", "message": "hi"}, fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/feedback", tt.body, "")
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
	require.Len(t, env.db.Feedback, 1)
	assert.Equal(t, "Bohat khoob", env.db.Feedback[0].Message)
}
