package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"talkregistration/config"
	"talkregistration/internal/adapters/auth"
	"talkregistration/internal/adapters/email"
	"talkregistration/internal/adapters/sessionize"
	delivery "talkregistration/internal/delivery/http"
	"talkregistration/internal/delivery/http/controllers"
	"talkregistration/internal/metrics"
	"talkregistration/internal/ratelimit"
	"talkregistration/internal/repository/postgres"
	"talkregistration/internal/seed"
	"talkregistration/internal/services"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the registration API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply database migrations before serving (postgres only)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := config.NewLogger()
	slog.SetDefault(logger)

	venue, err := cfg.Venue()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if migrateOnStart && cfg.StoreBackend == config.StorePostgres {
		if err := migrateDatabase(ctx, cfg.DBUrl, postgres.MigrateUp); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	st, err := openStores(ctx, cfg, hasher)
	if err != nil {
		return err
	}
	defer st.Close()
	logger.Info("store ready", "backend", cfg.StoreBackend)

	if cfg.SeedAgenda {
		n, err := seed.Load(ctx, st.talks, venue)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info("agenda seeded", "talks", n)
		}
	}

	m := metrics.New()

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.Email.AWSRegion,
			AccessKeyID:        cfg.Email.AWSAccessKeyID,
			SecretAccessKey:    cfg.Email.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.Email.InsecureSkipVerify,
		},
	}, logger)
	if err != nil {
		return err
	}
	renderer, err := email.NewTemplateRenderer(venue)
	if err != nil {
		return err
	}
	emailService := services.NewEmailService(mailer, renderer, logger)
	notifier := services.NewEmailNotifier(emailService, m, logger, cfg.NotifierWorkers, cfg.NotifierQueueSize, cfg.RequestTimeout)
	notifier.Start(ctx)
	defer notifier.Stop()

	issuer := auth.NewJWTIssuer(cfg.JWTSecret)
	verifier := auth.NewJWTVerifier(cfg.JWTSecret)
	fetcher := sessionize.NewHTTPFetcher(&http.Client{Timeout: cfg.RequestTimeout}, cfg.SessionizeBaseURL)

	authService := services.NewAuthService(st.users, issuer, verifier, cfg.JWTExpiry, notifier, cfg.RequestTimeout)
	locks := services.NewTalkLocks()
	talkService := services.NewTalkService(st.talks, st.registrations, fetcher, locks, venue, cfg.RequestTimeout)
	registrationService := services.NewRegistrationService(st.registrations, st.talks, st.users, notifier, m, locks, logger, cfg.RequestTimeout)
	userService := services.NewUserService(st.users, cfg.RequestTimeout)

	if cfg.AdminEmail != "" {
		admin, err := authService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return err
		}
		logger.Info("admin account ready", "email", admin.Email)
	}

	limiter := ratelimit.New(cfg.AuthRateLimit, cfg.AuthRateWindow)
	go pruneLimiter(ctx, limiter, cfg.AuthRateWindow, logger)

	router := delivery.NewRouter(delivery.RouterDeps{
		Logger:        logger,
		CORSOrigins:   cfg.CORSAllowedOrigins,
		Talks:         controllers.NewTalkController(logger, talkService),
		Registrations: controllers.NewRegistrationController(logger, registrationService),
		Auth:          controllers.NewAuthController(logger, authService, cfg.JWTExpiry),
		Users:         controllers.NewUserController(logger, userService),
		Health:        controllers.NewHealthController(logger, cfg.Environment, m),
		Verifier:      verifier,
		AuthLimiter:   limiter,
		Metrics:       m,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.Addr(), "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-sigCh:
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return srv.Shutdown(shutdownCtx)
}

// pruneLimiter drops idle rate limit buckets once per window until ctx is done.
func pruneLimiter(ctx context.Context, limiter *ratelimit.Limiter, every time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Prune(); n > 0 {
				logger.Debug("pruned rate limit buckets", "count", n)
			}
		}
	}
}
