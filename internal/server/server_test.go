package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"harfzaar/internal/ai"
	"harfzaar/internal/cache"
	"harfzaar/internal/config"
	"harfzaar/internal/models"
	"harfzaar/internal/storage"
	"harfzaar/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "Harfzaar123"

type sentMail struct {
	To, Subject, Body string
}

type stubMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *stubMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

type stubGenerator struct {
	text    string
	textErr error
	image   string
}

func (g *stubGenerator) GenerateText(context.Context, string, ai.Options) (string, error) {
	return g.text, g.textErr
}

func (g *stubGenerator) GenerateFromImage(context.Context, []byte, string, string) (string, error) {
	return g.image, nil
}

type testEnv struct {
	srv   *Server
	app   *fiber.App
	db    *testutil.MemoryDB
	store *testutil.MemoryStore
	mail  *stubMailer
	gen   *stubGenerator
}

func testConfig() *config.Config {
	return &config.Config{
		Env:            "test",
		JWTSecret:      "test-secret",
		JWTTTL:         time.Hour,
		UploadMaxMB:    10,
		QaafiaCacheTTL: time.Minute,
		FeatureFlags:   "ai_quiz=on,ai_chatbot=on,ai_image_search=on",
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	prev := cache.GetClient()
	cache.SetClient(nil)
	t.Cleanup(func() { cache.SetClient(prev) })

	db := testutil.NewMemoryDB()
	repos := db.Repos()
	env := &testEnv{
		db:    db,
		store: testutil.NewMemoryStore(),
		mail:  &stubMailer{},
		gen:   &stubGenerator{},
	}
	env.srv = NewServerWithDeps(testConfig(), Deps{
		Users:     repos.Users,
		Words:     repos.Words,
		Ghazals:   repos.Ghazals,
		Girah:     repos.Girah,
		Chats:     repos.Chats,
		Poets:     repos.Poets,
		Pending:   repos.Pending,
		News:      repos.News,
		Feedback:  repos.Feedback,
		Store:     env.store,
		Generator: env.gen,
		Mailer:    env.mail,
	})
	t.Cleanup(func() {
		env.srv.aiLimiter.Stop()
		env.srv.presence.Stop()
	})
	env.app = env.srv.NewApp()
	return env
}

// useRedis installs a miniredis-backed client as the shared cache client.
func useRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	prev := cache.GetClient()
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(prev)
		_ = rdb.Close()
	})
	return mr
}

// createUser stores a user with testPassword and returns it with a fresh token.
func (e *testEnv) createUser(t *testing.T, username string) (*models.User, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{Username: username, Email: username + "@example.com", Password: string(hash)}
	require.NoError(t, e.db.Repos().Users.Create(context.Background(), user))

	token, _, err := e.srv.tokens.Issue(user.ID.Hex())
	require.NoError(t, err)
	return user, token
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestLivenessCheck(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "up", body["status"])
}

func TestReadinessCheck_NoDatabase(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, "unhealthy", body["status"])
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "unavailable", checks["database"])
	assert.Equal(t, "unavailable", checks["redis"])
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/health/live", nil, "")
	assert.NotEmpty(t, resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/nope", nil, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	body := decode[models.ErrorResponse](t, resp)
	assert.NotEmpty(t, body.Error)
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "ghalib")

	t.Run("missing token", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/auth/user-info", nil, "")
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "No token provided", decode[models.ErrorResponse](t, resp).Message)
	})

	t.Run("garbage token", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/auth/user-info", nil, "not-a-jwt")
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("deleted user", func(t *testing.T) {
		ghost, ghostToken := env.createUser(t, "ghost")
		env.db.DeleteUser(ghost.ID)
		resp := env.do(t, http.MethodGet, "/api/auth/user-info", nil, ghostToken)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "User not found", decode[models.ErrorResponse](t, resp).Message)
	})

	t.Run("valid token records activity", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/auth/user-info", nil, token)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		body := decode[map[string]string](t, resp)
		assert.Equal(t, "ghalib", body["username"])
		assert.Equal(t, "ghalib@example.com", body["email"])
	})
}

func TestBazmSocket_RequiresUpgrade(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "mir")

	resp := env.do(t, http.MethodGet, "/api/ws/bazm?token="+token, nil, "")
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/ws/bazm", nil, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestFeatureFlags(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/feature-flags", nil, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decode[struct {
		Raw       map[string]string `json:"raw"`
		Evaluated map[string]bool   `json:"evaluated"`
	}](t, resp)
	assert.Equal(t, "on", body.Raw["ai_quiz"])
	assert.True(t, body.Evaluated["ai_chatbot"])
}

func TestServeUploads_BlocksActiveContent(t *testing.T) {
	dir := t.TempDir()
	local := storage.NewLocalStore(dir, "/uploads/")
	require.NoError(t, local.Put(context.Background(), "chat_files/1-abcd1234.mp3", "audio/mpeg", []byte("ID3\x03\x00\x00\x00")))

	srv := &Server{config: testConfig()}
	app := fiber.New()
	srv.serveUploads(app, local)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/uploads/chat_files/1-abcd1234.mp3", nil), -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get(fiber.HeaderXContentTypeOptions))
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentSecurityPolicy), "sandbox")
	assert.NotContains(t, resp.Header.Get(fiber.HeaderContentType), "text/html")
}
