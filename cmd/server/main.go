// @title        ADISA admin API
// @version      1.0
// @description  Authentication, invitations and two-factor enrollment for the ADISA admin backend.
// @BasePath     /
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/africtivistes/adisa/internal/api"
	"github.com/africtivistes/adisa/internal/api/handler"
	"github.com/africtivistes/adisa/internal/api/middleware"
	"github.com/africtivistes/adisa/internal/core/ports"
	"github.com/africtivistes/adisa/internal/core/service"
	"github.com/africtivistes/adisa/internal/infrastructure/db/mongo"
	"github.com/africtivistes/adisa/internal/infrastructure/db/redis"
	"github.com/africtivistes/adisa/internal/infrastructure/mail"
	"github.com/africtivistes/adisa/internal/infrastructure/queue"
	"github.com/africtivistes/adisa/internal/pkg/config"
	"github.com/africtivistes/adisa/internal/pkg/totp"
	"github.com/africtivistes/adisa/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		// The logger is not configured yet.
		bootLog := logger.Init(logger.Options{})
		bootLog.Fatal().Err(err).Msg("load configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "adisa-api",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	mongoClient, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()

	redisClient, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		return err
	}
	defer redisClient.Close()

	accounts := mongo.NewAccountRepository(db)
	invitations := mongo.NewInvitationRepository(db)
	if err := mongo.EnsureIndexes(ctx, accounts, invitations); err != nil {
		return err
	}

	dispatcher := queue.NewMailDispatcher(cfg.Mail.Workers, newMailer(cfg, log), log)
	dispatcher.Start(context.Background())
	defer dispatcher.Close()

	sessions := service.NewSessionManager(
		redis.NewSessionStore(redisClient, cfg.Session.TTL),
		cfg.Session.Secret,
		cfg.Session.TTL,
		log,
	)
	authService := service.NewAuthService(accounts, sessions, log)

	e := api.NewRouter(api.Dependencies{
		Log: log,
		Cookies: middleware.Cookies{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.CookieSecure,
			TTL:    cfg.Session.TTL,
		},
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Auth:               authService,
		Invitations:        service.NewInvitationService(accounts, invitations, dispatcher, cfg.BaseURL, cfg.BcryptCost, log),
		TwoFactor:          service.NewTwoFactorService(accounts, sessions, redis.NewReplayGuard(redisClient), totp.New(cfg.TOTPIssuer), log),
		Accounts:           service.NewAccountService(accounts, sessions, cfg.BcryptCost, log),
		Enrollment:         sessions,
		Health: map[string]handler.Pinger{
			"mongodb": mongo.Pinger{Client: mongoClient},
			"redis":   redis.Pinger{Client: redisClient},
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

func newMailer(cfg *config.Config, log zerolog.Logger) ports.Mailer {
	if cfg.Mail.PostmarkToken == "" {
		log.Warn().Msg("MAIL_POSTMARK_TOKEN not set, emails are logged instead of sent")
		return mail.NewLogMailer(log)
	}
	return mail.NewPostmark(cfg.Mail.PostmarkToken, cfg.Mail.From)
}
