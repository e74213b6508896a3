package api

import (
	"net/http"
	"time"

	"codegrade/internal/api/handler"
	"codegrade/internal/api/middleware"
	"codegrade/internal/app/service"
	"codegrade/internal/common/security"
	"codegrade/internal/domain/repository"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// DefaultRequestTimeout bounds a request when Deps leaves it unset.
const DefaultRequestTimeout = 2 * time.Minute

type Deps struct {
	AuthService       *service.AuthService
	UserService       *service.UserService
	ProblemService    *service.ProblemService
	SubmissionService *service.SubmissionService

	Tokens     *security.TokenManager
	Blocklist  repository.TokenBlocklist
	Limiter    middleware.Limiter
	CORSOrigin string

	// RequestTimeout must exceed the judge poll budget, see config.Load.
	RequestTimeout time.Duration
	Log            *zap.Logger
}

func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.AccessLog(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{d.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Searches the Authorization header, then the token cookie.
	r.Use(middleware.Verifier(d.Tokens))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	guards := handler.Guards{
		Authenticate: middleware.Authenticator(d.Blocklist, log),
		Cooldown:     middleware.Cooldown(d.Limiter, log),
	}

	r.Route("/api/v1", func(v1 chi.Router) {
		authHandler := handler.NewAuthHandler(d.AuthService, d.Tokens.TTL(), guards, log)
		v1.Route("/auth", authHandler.RegisterRoutes)

		userHandler := handler.NewUserHandler(d.UserService, guards, log)
		v1.Route("/users", userHandler.RegisterRoutes)

		problemHandler := handler.NewProblemHandler(d.ProblemService, d.SubmissionService, guards, log)
		v1.Route("/problems", problemHandler.RegisterRoutes)

		submissionHandler := handler.NewSubmissionHandler(d.SubmissionService, guards, log)
		v1.Route("/submissions", submissionHandler.RegisterRoutes)

		catalogHandler := handler.NewCatalogHandler(d.UserService, log)
		v1.Group(catalogHandler.RegisterRoutes)
	})

	return r
}
