package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/nkiryanov/bazario/internal/db"
	"github.com/nkiryanov/bazario/internal/handlers"
	"github.com/nkiryanov/bazario/internal/logger"
	"github.com/nkiryanov/bazario/internal/mailer"
	"github.com/nkiryanov/bazario/internal/metrics"
	"github.com/nkiryanov/bazario/internal/ratelimit"
	"github.com/nkiryanov/bazario/internal/repository/postgres"
	"github.com/nkiryanov/bazario/internal/service/auth"
	"github.com/nkiryanov/bazario/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/bazario/internal/service/maildispatch"
	"github.com/nkiryanov/bazario/internal/service/sweeper"
	"github.com/nkiryanov/bazario/internal/service/user"
)

const shutdownTimeout = 5 * time.Second

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger     logger.Logger
	dispatcher *maildispatch.Dispatcher
	sweeper    *sweeper.Sweeper

	// Closed when app stopped
	pool  *pgxpool.Pool
	redis *redis.Client
}

func NewServerApp(ctx context.Context, c *Config) (app *ServerApp, err error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}
	defer func() {
		if err != nil {
			pool.Close()
		}
	}()

	// Initialize repositories
	storage := postgres.NewStorage(pool)
	m := metrics.New()

	// Initialize services
	tokenManager, err := tokenmanager.New(tokenmanager.Config{
		SecretKey:  c.SecretKey,
		AccessTTL:  c.AccessTokenTTL,
		RefreshTTL: c.RefreshTokenTTL,
	}, storage)
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}
	userService := user.NewService(auth.DefaultHasher, storage)

	var sender mailer.Sender = mailer.NewLogSender(logger)
	if c.SMTP.Host != "" {
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     c.SMTP.Host,
			Port:     c.SMTP.Port,
			Username: c.SMTP.Username,
			Password: c.SMTP.Password,
			From:     c.SMTP.From,
			TLSMode:  c.SMTP.TLSMode,
		})
	} else {
		logger.Warn("SMTP host not set, mails will be written to log")
	}
	dispatcher := maildispatch.New(sender, maildispatch.Config{Logger: logger, Metrics: m})

	authService, err := auth.NewService(auth.Config{
		VerificationTTL: c.VerificationTTL,
		Mailer:          mailer.New(c.FrontendURL, dispatcher),
		Logger:          logger,
		Metrics:         m,
	}, tokenManager, userService, storage)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	var (
		limiter     ratelimit.Limiter
		redisClient *redis.Client
	)
	switch c.RedisURL {
	case "":
		limiter = ratelimit.NewMemoryLimiter(c.RateLimit, c.RateLimitWindow, nil)
	default:
		opts, err := redis.ParseURL(c.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url. Err: %w", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("error while connecting to redis. Err: %w", err)
		}
		limiter = ratelimit.NewRedisLimiter(redisClient, c.RateLimit, c.RateLimitWindow, nil)
	}

	mux := handlers.NewRouter(handlers.RouterConfig{
		Auth:    authService,
		Users:   userService,
		Limiter: limiter,
		Metrics: m,
		Logger:  logger,
	})

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		logger:     logger,
		dispatcher: dispatcher,
		sweeper:    sweeper.New(storage, sweeper.Config{Logger: logger}),
		pool:       pool,
		redis:      redisClient,
	}, nil
}

// Run http server and background workers until context cancelled or server failed
func (s *ServerApp) Run(ctx context.Context) error {
	defer s.close()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.serve(ctx)
	})
	g.Go(func() error {
		<-s.dispatcher.Process(ctx)
		return nil
	})
	g.Go(func() error {
		<-s.sweeper.Run(ctx)
		return nil
	})

	return g.Wait()
}

// Start http server and close gracefully on context cancellation
func (s *ServerApp) serve(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *ServerApp) close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	s.pool.Close()
}
