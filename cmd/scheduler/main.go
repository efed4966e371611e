package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"finders_crm_backend/internal/adapters"
	"finders_crm_backend/internal/events"
	identityrepo "finders_crm_backend/internal/identity/repository"
	leadsrepo "finders_crm_backend/internal/leads/repository"
	"finders_crm_backend/internal/notification"
	"finders_crm_backend/internal/notification/inapp"
	referralsrepo "finders_crm_backend/internal/referrals/repository"
	referralsservice "finders_crm_backend/internal/referrals/service"
	"finders_crm_backend/internal/scheduler"
	"finders_crm_backend/platform/config"
	"finders_crm_backend/platform/db"
	"finders_crm_backend/platform/logger"
)

func main() {
	cfg, err := config.LoadWithoutAuth()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.NewWithOptions(logger.Options{Env: cfg.Env, Level: cfg.LogLevel})
	log.Info("starting scheduler", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	notificationModule := notification.New(inapp.NewRepository(pool), log)
	notificationModule.RegisterHandlers(eventBus)

	referralSvc := referralsservice.New(
		referralsrepo.New(pool),
		adapters.NewReferralLeadReader(leadsrepo.New(pool)),
		adapters.NewIdentityUserDirectory(identityrepo.New(pool)),
		eventBus,
		log,
	)

	worker, err := scheduler.NewWorker(cfg, referralSvc, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}
