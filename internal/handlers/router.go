package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/nkiryanov/bazario/internal/handlers/middleware"
	"github.com/nkiryanov/bazario/internal/logger"
	"github.com/nkiryanov/bazario/internal/models"
	"github.com/nkiryanov/bazario/internal/ratelimit"
	"github.com/nkiryanov/bazario/internal/service/auth"
)

type RouterConfig struct {
	Auth    authService
	Users   userService
	Limiter ratelimit.Limiter // Login and mail sending are limited per client ip
	Metrics httpMetrics
	Logger  logger.Logger

	// Clock to calculate token 'expires_in', time.Now if not set
	Now func() time.Time
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	l := cfg.Logger

	limit := func(scope string) func(http.Handler) http.Handler {
		return middleware.RateLimit(cfg.Limiter, scope, l)
	}

	r := chi.NewRouter()
	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		middleware.LoggerMiddleware(l),
		middleware.Metrics(cfg.Metrics),
		chimw.Recoverer,
		chimw.Heartbeat("/ping"),
		middleware.Authenticate(cfg.Auth, l),
	)

	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Method(http.MethodPost, "/register", handleRegister(cfg.Auth, l))
		r.With(limit("login")).Method(http.MethodPost, "/login", handleLogin(cfg.Auth, l, cfg.Now))
		r.Method(http.MethodPost, "/refresh", handleRefresh(cfg.Auth, l, cfg.Now))
		r.With(middleware.RequireUser).Method(http.MethodPost, "/logout", handleLogout(cfg.Auth, l))

		r.Method(http.MethodPost, "/verify-email", handleVerifyEmail(cfg.Auth, l))
		r.With(limit("send-verify-email")).Method(http.MethodPost, "/send-verify-email", handleSendVerifyEmail(cfg.Auth, l))
		r.Method(http.MethodPost, "/restore-password", handleRestorePassword(cfg.Auth, l))
		r.With(limit("send-restore-password")).Method(http.MethodPost, "/send-restore-password", handleSendRestorePassword(cfg.Auth, l))
	})

	r.Route("/user", func(r chi.Router) {
		r.Use(middleware.RequireUser)
		r.Method(http.MethodGet, "/", handleUserMe())
		r.Method(http.MethodPut, "/", handleUpdateUser(cfg.Users, l))
	})

	return r
}

type authService interface {
	// Has to return apperrors.ErrUserAlreadyExists if email or phone taken
	Register(ctx context.Context, p auth.RegisterParams) (models.User, error)

	// Has to return apperrors.ErrInvalidCredentials if user not found or password wrong
	// and apperrors.ErrUserNotVerified if email not verified yet
	Login(ctx context.Context, handle string, password string) (models.TokenPair, error)

	// If token expired: has to return apperrors.ErrRefreshTokenExpired
	// If token not found: has to return apperrors.ErrRefreshTokenNotFound
	Refresh(ctx context.Context, refresh string) (models.TokenPair, error)

	Logout(ctx context.Context, user models.User) error

	VerifyEmail(ctx context.Context, token string) error
	SendVerifyEmail(ctx context.Context, handle string) error
	RestorePassword(ctx context.Context, token string, password string) error
	SendRestorePassword(ctx context.Context, handle string) error

	// Return user by access token
	Authenticate(ctx context.Context, access string) (models.User, error)
}

type userService interface {
	UpdateProfile(ctx context.Context, userID uuid.UUID, update models.ProfileUpdate) (models.User, error)
}

type httpMetrics interface {
	ObserveHTTP(method string, route string, status int, d time.Duration)
	Handler() http.Handler
}
