package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/HoussemEK/Direction-Project/internal/auth"
	"github.com/HoussemEK/Direction-Project/internal/guard"
	"github.com/HoussemEK/Direction-Project/internal/handler"
	"github.com/HoussemEK/Direction-Project/internal/ledger"
	"github.com/HoussemEK/Direction-Project/internal/projection"
	"github.com/HoussemEK/Direction-Project/internal/provider"
	"github.com/HoussemEK/Direction-Project/internal/repository"
	"github.com/HoussemEK/Direction-Project/internal/service"
	"github.com/HoussemEK/Direction-Project/internal/settlement"
	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
)

const (
	aiFailureThreshold = 5
	aiResetTimeout     = time.Minute
	idempotencyTTL     = 24 * time.Hour
)

// Deps holds the infrastructure the services are built on.
type Deps struct {
	Pool   repository.Pool
	JWTMgr *auth.JWTManager
	Clock  clockwork.Clock
	Logger *slog.Logger

	// Drafter generates level content; nil disables AI drafting.
	Drafter             service.LevelDrafter
	AIRequestsPerMinute int
}

// Services is the assembled service layer.
type Services struct {
	Auth         *service.AuthService
	Users        *service.UserService
	Tasks        *service.TaskService
	Challenges   *service.ChallengeService
	Tracks       *service.TrackService
	Gamification *service.GamificationService
	Reflections  *service.ReflectionService
	AI           *service.AIService
}

// NewServices wires repositories, the ledger engine, the level gate and the
// guards into the service layer.
func NewServices(deps Deps) *Services {
	pool, clock, logger := deps.Pool, deps.Clock, deps.Logger

	// Repositories
	userRepo := repository.NewPgUserRepository()
	profileRepo := repository.NewProfileRepository()
	taskRepo := repository.NewTaskRepository()
	trackRepo := repository.NewTrackRepository()
	challengeRepo := repository.NewChallengeRepository()
	reflectionRepo := repository.NewReflectionRepository()
	entryRepo := repository.NewXPLedgerRepository()
	outboxRepo := repository.NewOutboxRepository()
	attemptRepo := repository.NewLoginAttemptRepository()

	// Ledger engine and level gate
	engine := ledger.NewEngine(profileRepo, entryRepo, outboxRepo)
	gate := settlement.NewLevelGate(taskRepo, trackRepo, outboxRepo)
	cache := projection.NewInMemoryStore(clock)

	// Guards
	lockout := guard.NewLockout(pool, attemptRepo, logger, guard.WithClock(clock))

	var ai *service.AIService
	if deps.Drafter != nil {
		ai = service.NewAIService(deps.Drafter,
			guard.NewRateLimiter(deps.AIRequestsPerMinute, time.Minute, guard.WithClock(clock)),
			guard.NewCircuitBreaker(aiFailureThreshold, aiResetTimeout, guard.WithClock(clock)),
			logger)
	}

	return &Services{
		Auth:         service.NewAuthService(pool, userRepo, profileRepo, outboxRepo, deps.JWTMgr, lockout, clock, logger),
		Users:        service.NewUserService(pool, userRepo, clock),
		Tasks:        service.NewTaskService(pool, taskRepo, trackRepo, userRepo, engine, gate, cache, clock, logger),
		Challenges:   service.NewChallengeService(pool, challengeRepo, engine, outboxRepo, clock, logger),
		Tracks:       service.NewTrackService(pool, trackRepo, taskRepo, userRepo, gate, ai, outboxRepo, clock, logger),
		Gamification: service.NewGamificationService(pool, profileRepo, entryRepo, taskRepo, reflectionRepo, outboxRepo, engine, cache, clock, logger),
		Reflections:  service.NewReflectionService(pool, reflectionRepo, userRepo, outboxRepo, cache, clock, logger),
		AI:           ai,
	}
}

// NewDrafter returns the AI level drafter for baseURL, or nil when baseURL is empty.
func NewDrafter(baseURL string, timeout time.Duration, logger *slog.Logger) service.LevelDrafter {
	if baseURL == "" {
		return nil
	}
	return provider.NewTrackDrafter(baseURL, timeout, logger)
}

// RouterDeps holds all dependencies needed by NewRouter.
type RouterDeps struct {
	Services       *Services
	JWTMgr         *auth.JWTManager
	Logger         *slog.Logger
	Clock          clockwork.Clock
	AllowedOrigins []string
	Ping           func(ctx context.Context) error
}

// NewRouter assembles the chi.Router with all routes and middleware.
func NewRouter(deps RouterDeps) chi.Router {
	svc := deps.Services
	logger := deps.Logger

	// Handlers
	authHandler := handler.NewAuthHandler(svc.Auth)
	userHandler := handler.NewUserHandler(svc.Users)
	taskHandler := handler.NewTaskHandler(svc.Tasks)
	challengeHandler := handler.NewChallengeHandler(svc.Challenges)
	trackHandler := handler.NewTrackHandler(svc.Tracks)
	gamificationHandler := handler.NewGamificationHandler(svc.Gamification)
	reflectionHandler := handler.NewReflectionHandler(svc.Reflections)
	aiHandler := handler.NewAIHandler(svc.AI)

	idempotent := handler.IdempotencyKey(guard.NewIdempotencyGuard(idempotencyTTL, guard.WithClock(deps.Clock)))

	// Router
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORSWithOrigins(deps.AllowedOrigins...))
	r.Use(handler.JSONContentType)

	// Health (no auth)
	r.Get("/health", handler.HealthHandler(deps.Ping))

	// Auth routes (no auth)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})

	// User-authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(auth.AuthenticateUser(deps.JWTMgr))

		r.Get("/users/me", userHandler.GetMe)
		r.Patch("/users/me", userHandler.UpdateMe)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", taskHandler.List)
			r.With(idempotent).Post("/", taskHandler.Create)
			r.Get("/{id}", taskHandler.Get)
			r.Patch("/{id}", taskHandler.Update)
			r.Delete("/{id}", taskHandler.Delete)
			r.Post("/{id}/complete", taskHandler.Complete)
		})

		r.Route("/challenges", func(r chi.Router) {
			r.Get("/meta", challengeHandler.Meta)
			r.Get("/active", challengeHandler.Active)
			r.Get("/", challengeHandler.List)
			r.With(idempotent).Post("/", challengeHandler.Create)
			r.Get("/{id}", challengeHandler.Get)
			r.Patch("/{id}", challengeHandler.Update)
			r.Delete("/{id}", challengeHandler.Delete)
			r.Patch("/{id}/start", challengeHandler.Start)
			r.Patch("/{id}/skip", challengeHandler.Skip)
			r.Patch("/{id}/complete", challengeHandler.Complete)
		})

		r.Route("/tracks", func(r chi.Router) {
			r.Get("/", trackHandler.List)
			r.With(idempotent).Post("/", trackHandler.Create)
			r.Get("/{id}", trackHandler.Get)
			r.Patch("/{id}", trackHandler.Update)
			r.Delete("/{id}", trackHandler.Delete)
			r.Get("/{id}/gate", trackHandler.Gate)
			r.With(idempotent).Post("/{id}/levels/next", trackHandler.NextLevel)
			r.Patch("/{id}/levels/current/complete", trackHandler.CompleteLevel)
			r.Patch("/{id}/complete", trackHandler.Complete)
		})

		r.Route("/reflections", func(r chi.Router) {
			r.Get("/", reflectionHandler.List)
			r.Get("/today", reflectionHandler.Today)
			r.With(idempotent).Post("/", reflectionHandler.Create)
			r.Get("/{id}", reflectionHandler.Get)
			r.Patch("/{id}", reflectionHandler.Update)
			r.Delete("/{id}", reflectionHandler.Delete)
		})

		r.Route("/gamification", func(r chi.Router) {
			r.Get("/stats", gamificationHandler.Stats)
			r.Get("/activity", gamificationHandler.Activity)
			r.Get("/history", gamificationHandler.History)
			r.Get("/audit", gamificationHandler.Audit)
		})

		r.Post("/ai/tracks/draft", aiHandler.DraftLevel)
	})

	return r
}
