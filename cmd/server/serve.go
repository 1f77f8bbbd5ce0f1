package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"ezeatin-backend/internal/config"
	"ezeatin-backend/internal/database"
	"ezeatin-backend/internal/finalize"
	"ezeatin-backend/internal/handlers"
	"ezeatin-backend/internal/logging"
	customMiddleware "ezeatin-backend/internal/middleware"
	"ezeatin-backend/internal/notify"
	"ezeatin-backend/internal/onboarding"
	"ezeatin-backend/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
}

func runServe(cmd *cobra.Command) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Error("Invalid configuration", zap.Error(err))
		return err
	}

	catalog, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		log.Error("Failed to load question catalog", zap.Error(err))
		return err
	}

	if err := database.Connect(cfg.MongoURI, cfg.DBName, log); err != nil {
		log.Error("Failed to connect to MongoDB", zap.Error(err))
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = database.Disconnect(ctx)
	}()

	// Initialize repositories
	userRepo := repository.NewUserRepo()
	profileRepo := repository.NewProfileRepo()
	sessionRepo := repository.NewSessionRepo()

	// Ensure indexes
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	for name, ensure := range map[string]func(context.Context) error{
		"users":               userRepo.EnsureIndexes,
		"profiles":            profileRepo.EnsureIndexes,
		"onboarding_sessions": sessionRepo.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			log.Warn("Failed to create indexes", zap.String("collection", name), zap.Error(err))
		}
	}
	cancel()

	profileFinalizer := finalize.NewProfileFinalizer(profileRepo, userRepo, newNotifier(cfg, log), log)
	defer profileFinalizer.Wait()

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var finalizer onboarding.Finalizer = profileFinalizer
	if cfg.OutboxPath != "" {
		outbox, err := finalize.OpenOutbox(cfg.OutboxPath, log)
		if err != nil {
			log.Error("Failed to open outbox", zap.Error(err))
			return err
		}
		defer outbox.Close()
		finalizer = finalize.NewFallbackFinalizer(profileFinalizer, outbox, log)
		go replayLoop(runCtx, outbox, profileFinalizer, cfg.OutboxReplayInterval, log)
	}

	manager := onboarding.NewManager(sessionRepo, catalog, finalizer, log,
		onboarding.WithFinalizeTimeout(cfg.FinalizeTimeout),
		// A Completing session younger than this may belong to another replica.
		onboarding.WithCompletingGrace(2*cfg.FinalizeTimeout))

	// Initialize handlers
	onboardingHandler := handlers.NewOnboardingHandler(manager, catalog, userRepo, log)
	userHandler := handlers.NewUserHandler(userRepo, profileRepo, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(cfg, log, onboardingHandler, userHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("EZ Eatin' backend starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", zap.Error(err))
			return err
		}
	case <-runCtx.Done():
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Graceful shutdown failed", zap.Error(err))
			return err
		}
	}
	return nil
}

func newRouter(cfg config.Config, log *zap.Logger, oh *handlers.OnboardingHandler, uh *handlers.UserHandler) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"ezeatin-backend"}`))
	})

	// Protected routes (JWT required)
	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.JWTAuth(cfg.JWTSecret))

		r.Route("/onboarding", oh.Routes)
		r.Get("/user/status", uh.GetStatus)
		r.Get("/user/profile", uh.GetProfile)
	})
	return r
}

func newNotifier(cfg config.Config, log *zap.Logger) notify.Notifier {
	if cfg.ResendAPIKey == "" {
		log.Warn("RESEND_API_KEY not set, welcome emails are only logged")
		return notify.NewLogNotifier(log)
	}
	return notify.NewResendNotifier(cfg.ResendAPIKey, cfg.FromEmail, log)
}

func replayLoop(ctx context.Context, outbox *finalize.Outbox, f onboarding.Finalizer, every time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := outbox.Replay(ctx, f)
			if err != nil {
				log.Warn("Outbox replay incomplete", zap.Int("replayed", n), zap.Error(err))
			}
		}
	}
}
