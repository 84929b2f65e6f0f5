// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	_ "harfzaar/docs" // swagger docs
	"harfzaar/internal/ai"
	"harfzaar/internal/bootstrap"
	"harfzaar/internal/config"
	"harfzaar/internal/database"
	"harfzaar/internal/featureflags"
	"harfzaar/internal/mailer"
	"harfzaar/internal/middleware"
	"harfzaar/internal/models"
	"harfzaar/internal/notifications"
	"harfzaar/internal/repository"
	"harfzaar/internal/service"
	"harfzaar/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Locals keys set by AuthRequired.
const (
	localUserID = "userID"
	localUser   = "user"
	localClaims = "claims"
)

// Deps are the already-initialised dependencies a Server is built from.
// DB may be nil in tests; Redis may be nil whenever Redis is unreachable.
type Deps struct {
	DB    *database.Client
	Redis *redis.Client

	Users    repository.UserRepository
	Words    repository.WordRepository
	Ghazals  repository.GhazalRepository
	Girah    repository.GirahLineRepository
	Chats    repository.ChatRepository
	Poets    repository.PoetRepository
	Pending  repository.PendingPoetRepository
	News     repository.NewsRepository
	Feedback repository.FeedbackRepository

	Store     storage.Store
	Generator ai.Generator
	Mailer    mailer.Mailer
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *database.Client
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	users        repository.UserRepository
	tokens       *middleware.TokenManager
	store        storage.Store
	featureFlags *featureflags.Manager
	aiLimiter    *middleware.LimiterStore

	notifier *notifications.Notifier
	presence *notifications.ConnectionManager
	bazmHub  *notifications.BazmHub
	reaper   *service.ActivityReaper

	authService   *service.AuthService
	qaafiaService *service.QaafiaService
	searchService *service.SearchService
	girahService  *service.GirahService
	chatService   *service.ChatService
	poetService   *service.PoetService
	ghazalService *service.GhazalService
	newsService   *service.NewsService
	aiService     *service.AIService
	uploader      *service.Uploader
}

// NewServer connects to the datastores and builds a server from them.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SeedSample: !cfg.IsProduction()})
	if err != nil {
		return nil, err
	}

	store, err := storage.New(ctx, cfg)
	if err != nil {
		_ = db.Close(context.Background())
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	var gen ai.Generator
	if cfg.AIEnabled() {
		gemini, err := ai.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiVisionModel)
		if err != nil {
			log.Printf("Gemini init failed, AI features disabled: %v", err)
		} else {
			gen = gemini
		}
	}

	return NewServerWithDeps(cfg, Deps{
		DB:        db,
		Redis:     rdb,
		Users:     repository.NewUserRepository(db.Collection(database.UsersCollection)),
		Words:     repository.NewWordRepository(db.Collection(database.WordsCollection)),
		Ghazals:   repository.NewGhazalRepository(db.Collection(database.GhazalsCollection)),
		Girah:     repository.NewGirahLineRepository(db.Collection(database.GirahLinesCollection)),
		Chats:     repository.NewChatRepository(db.Collection(database.ChatsCollection)),
		Poets:     repository.NewPoetRepository(db.Collection(database.PoetsCollection)),
		Pending:   repository.NewPendingPoetRepository(db.Collection(database.PendingPoetsCollection)),
		News:      repository.NewNewsRepository(db.Collection(database.NewsCollection)),
		Feedback:  repository.NewFeedbackRepository(db.Collection(database.FeedbackCollection)),
		Store:     store,
		Generator: gen,
		Mailer:    mailer.New(cfg),
	}), nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes the datastores.
func NewServerWithDeps(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		config:         cfg,
		db:             deps.DB,
		redis:          deps.Redis,
		promMiddleware: middleware.InitMetrics("harfzaar-api"),
		users:          deps.Users,
		tokens:         middleware.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL),
		store:          deps.Store,
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		aiLimiter:      middleware.NewLimiterStore(20, 5, time.Minute),
	}

	s.notifier = notifications.NewNotifier(deps.Redis)
	s.presence = notifications.NewConnectionManager(deps.Redis, notifications.PresenceConfig{
		OnUserOnline:  s.markOnline,
		OnUserOffline: s.markOffline,
	})
	s.bazmHub = notifications.NewBazmHub(s.notifier, s.presence)
	s.reaper = service.NewActivityReaper(deps.Users, cfg.ActivitySweepInterval, cfg.ActivityIdleAfter)

	s.uploader = service.NewUploader(deps.Store, cfg.UploadMaxMB)
	s.authService = service.NewAuthService(deps.Users, s.tokens, deps.Mailer)
	s.qaafiaService = service.NewQaafiaService(deps.Words, cfg.QaafiaCacheTTL)
	s.searchService = service.NewSearchService(deps.Ghazals)
	s.girahService = service.NewGirahService(deps.Girah, nil)
	s.chatService = service.NewChatService(deps.Chats, deps.Users, s.bazmHub)
	s.poetService = service.NewPoetService(deps.Poets, deps.Pending, deps.Ghazals, deps.Users, s.uploader)
	s.ghazalService = service.NewGhazalService(deps.Ghazals, deps.Users)
	s.newsService = service.NewNewsService(deps.News, deps.Feedback, s.uploader)
	s.aiService = service.NewAIService(deps.Generator, deps.Ghazals, s.featureFlags)

	return s
}

// NewApp builds the Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Harfzaar API",
		BodyLimit: (s.config.UploadMaxMB + 1) << 20,
		// Poet names and titles arrive percent-encoded in the path.
		UnescapePath: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return models.RespondWithError(c, fe.Code, errors.New(fe.Message))
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "path", c.Path(), "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{CrossOriginResourcePolicy: "cross-origin"}))
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	if local, ok := s.store.(*storage.LocalStore); ok {
		s.serveUploads(app, local)
	}

	api := app.Group("/api")
	api.Get("/", s.HealthCheck)
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{Title: "Harfzaar Backend Metrics"}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, 5, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/forgot-password", middleware.RateLimit(s.redis, 3, 10*time.Minute, "forgot_password"), s.ForgotPassword)
	auth.Post("/verify-otp", middleware.RateLimit(s.redis, 10, 10*time.Minute, "verify_otp"), s.VerifyOTP)
	auth.Post("/change-password", s.ChangePassword)
	auth.Post("/change-passwordviapassword", s.ChangePasswordViaPassword)
	auth.Post("/verify-email", s.VerifyEmail)
	auth.Get("/user-info", s.AuthRequired(), s.UserInfo)
	auth.Post("/logout", s.AuthRequired(), s.Logout)

	qaafia := api.Group("/qaafia")
	qaafia.Get("/search", s.SearchQaafia)
	qaafia.Get("/suggest", s.SuggestQaafia)

	api.Get("/search", middleware.RateLimit(s.redis, 30, time.Minute, "search"), s.SearchPoetry)

	girah := api.Group("/girah")
	girah.Get("/girah", s.GetGirahLine)
	girah.Post("/score", s.ScoreGirah)

	ghazals := api.Group("/ghazals")
	ghazals.Get("/search", s.FilterGhazals)
	ghazals.Get("/poetry/:key", s.GetPoetry)
	ghazals.Get("/by-poet/:poetName", s.GetPoetryByPoet)
	for _, facet := range []string{"poets", "genres", "domains"} {
		ghazals.Get("/"+facet, s.GetGhazalFacet(facet))
	}
	api.Get("/poetry/by-poet/:poetName", s.GetPoetryByPoet)
	api.Post("/addpoetry", s.AddPoetry)

	api.Get("/poets/:name", s.GetPoetProfile)
	api.Post("/poets/submit", s.AuthRequired(), s.SubmitPoet)
	api.Post("/become-poet", s.AuthRequired(), s.BecomePoet)

	favorites := api.Group("/favorites", s.AuthRequired())
	favorites.Get("/", s.GetFavorites)
	favorites.Post("/:ghazalId", s.AddFavorite)
	favorites.Delete("/:ghazalId", s.RemoveFavorite)

	news := api.Group("/news")
	news.Get("/all", s.GetNews)
	news.Post("/", s.AuthRequired(), s.CreateNews)
	api.Post("/feedback", middleware.RateLimit(s.redis, 5, 10*time.Minute, "feedback"), s.SubmitFeedback)

	api.Get("/quiz/start-quiz", middleware.LocalRateLimit(s.aiLimiter, "quiz"), s.StartQuiz)
	api.Post("/chatbot", middleware.LocalRateLimit(s.aiLimiter, "chatbot"), s.Chatbot)
	api.Post("/deepseek", middleware.LocalRateLimit(s.aiLimiter, "image_search"), s.ImageSearch)
	api.Get("/feature-flags", s.GetFeatureFlags)

	bc := api.Group("/bc", s.AuthRequired())
	bc.Post("/room", s.CreateChatRoom)
	bc.Get("/history/:roomId", s.GetChatHistory)
	bc.Post("/message", middleware.RateLimit(s.redis, 30, time.Minute, "send_chat"), s.SaveChatMessage)
	bc.Get("/activeusers", s.GetActiveUsers)
	bc.Post("/upload", s.UploadChatFile)

	ws := api.Group("/ws", s.AuthRequired())
	ws.Get("/bazm", s.BazmWebSocketHandler())
}

// serveUploads exposes locally stored files. They are user content, so the
// browser must not sniff them or run them as a document on this origin.
func (s *Server) serveUploads(app *fiber.App, local *storage.LocalStore) {
	prefix := s.uploadsPrefix()
	app.Use(prefix, func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
		c.Set(fiber.HeaderContentSecurityPolicy, "default-src 'none'; sandbox")
		return c.Next()
	})
	app.Static(prefix, local.Root())
}

func (s *Server) uploadsPrefix() string {
	prefix := s.config.UploadBaseURL
	if prefix == "" || strings.Contains(prefix, "://") {
		prefix = "/uploads"
	}
	return prefix
}

// HealthCheck is a simple alias for ReadinessCheck
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	return s.ReadinessCheck(c)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.db == nil {
		dbStatus = "unavailable"
	} else if err := s.db.Ping(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis backs caching and fan-out only; the API still serves without it.
	redisStatus := "healthy"
	if s.redis == nil {
		redisStatus = "unavailable"
	} else if err := s.redis.Ping(ctx).Err(); err != nil {
		redisStatus = "unhealthy"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	switch {
	case dbStatus != "healthy":
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	case redisStatus != "healthy":
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"message": "Harfzaar",
		"version": "1.0.0",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired validates the bearer token, loads the user and records activity.
// Browsers cannot set headers on WebSocket upgrades, so /api/ws also accepts ?token=.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := middleware.BearerToken(c)
		if token == "" && strings.HasPrefix(c.Path(), "/api/ws") {
			token = c.Query("token")
		}

		user, claims, err := s.authService.Authenticate(c.UserContext(), token)
		if err != nil {
			return models.Respond(c, err)
		}

		userID := user.ID.Hex()
		c.Locals(localUserID, userID)
		c.Locals(localUser, user)
		c.Locals(localClaims, claims)
		c.SetUserContext(context.WithValue(c.UserContext(), middleware.UserIDKey, userID))
		return c.Next()
	}
}

// optionalUserID returns the caller's id when a valid bearer token is present.
// It never records activity.
func (s *Server) optionalUserID(c *fiber.Ctx) string {
	token := middleware.BearerToken(c)
	if token == "" {
		return ""
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return ""
	}
	return claims.UserID
}

func (s *Server) markOnline(userID string) {
	s.updatePresence(userID, func(ctx context.Context, id bson.ObjectID) error {
		return s.users.Touch(ctx, id, time.Now().UTC())
	})
}

func (s *Server) markOffline(userID string) {
	s.updatePresence(userID, s.users.SetOffline)
}

func (s *Server) updatePresence(userID string, update func(context.Context, bson.ObjectID) error) {
	id, err := bson.ObjectIDFromHex(userID)
	if err != nil || s.users == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := update(ctx, id); err != nil {
		middleware.Logger.WarnContext(ctx, "presence update failed", "user_id", userID, "error", err)
	}
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if s.notifier.Enabled() {
		go s.wireBazm(s.shutdownCtx)
	}
	s.reaper.Start(s.shutdownCtx)

	log.Printf("Server starting on port %s...", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// wireBazm keeps retrying the hub's Redis subscription until it is live or
// ctx ends. The hub delivers locally in the meantime.
func (s *Server) wireBazm(ctx context.Context) {
	backoff := time.Second
	for {
		err := s.bazmHub.StartWiring(ctx)
		if err == nil {
			return
		}
		log.Printf("failed to start %s wiring, retrying in %s: %v", s.bazmHub.Name(), backoff, err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 30*time.Second)
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}
	s.reaper.Stop()

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if err := s.bazmHub.Shutdown(ctx); err != nil {
		log.Printf("error shutting down %s: %v", s.bazmHub.Name(), err)
	}
	s.presence.Stop()
	s.aiLimiter.Stop()

	if closer, ok := s.store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.Printf("error closing storage: %v", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(ctx); err != nil {
			log.Printf("error closing MongoDB: %v", err)
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
