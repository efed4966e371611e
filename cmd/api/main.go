package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finders_crm_backend/internal/adapters"
	"finders_crm_backend/internal/events"
	apphttp "finders_crm_backend/internal/http"
	"finders_crm_backend/internal/http/router"
	identityrepo "finders_crm_backend/internal/identity/repository"
	leadsrepo "finders_crm_backend/internal/leads/repository"
	"finders_crm_backend/internal/notification"
	"finders_crm_backend/internal/notification/inapp"
	"finders_crm_backend/internal/referrals"
	"finders_crm_backend/platform/config"
	"finders_crm_backend/platform/db"
	"finders_crm_backend/platform/logger"
	"finders_crm_backend/platform/validator"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.NewWithOptions(logger.Options{Env: cfg.Env, Level: cfg.LogLevel})
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if cfg.GetMigrationsEnabled() {
		if err := db.Retry(ctx, log, "database migrations", 3, 2*time.Second, func() error {
			return db.RunMigrations(ctx, pool)
		}); err != nil {
			log.Error("failed to run database migrations", "error", err)
			panic("failed to run database migrations: " + err.Error())
		}
		log.Info("database migrations complete")
	}

	// Handlers run in-process; Wait drains them before the pool closes.
	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	val := validator.New()

	leadReader := adapters.NewReferralLeadReader(leadsrepo.New(pool))
	userDirectory := adapters.NewIdentityUserDirectory(identityrepo.New(pool))

	referralsModule := referrals.NewModule(pool, eventBus, leadReader, userDirectory, val, log)

	notificationModule := notification.New(inapp.NewRepository(pool), log)
	notificationModule.RegisterHandlers(eventBus)

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: db.NewPoolAdapter(pool),
		Modules: []apphttp.Module{
			referralsModule,
			notificationModule,
		},
	}

	engine := router.New(app)
	srv := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}
