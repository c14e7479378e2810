// File: cmd/app/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"interpretation-booking/internal/config"
	"interpretation-booking/internal/domain/ports/adapter"
	pg "interpretation-booking/internal/infra/db/postgres"
	"interpretation-booking/internal/infra/logging"
	"interpretation-booking/internal/infra/metrics"
	"interpretation-booking/internal/infra/notify"
	red "interpretation-booking/internal/infra/redis"
	"interpretation-booking/internal/infra/sched"
	"interpretation-booking/internal/infra/web"
	"interpretation-booking/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool := pg.MustConnectPostgres(cfg.Database.URL)
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	jobRepo := pg.NewJobRepo(pool)
	assignmentRepo := pg.NewAssignmentRepo(pool)
	translatorRepo := pg.NewTranslatorRepo(pool)
	customerRepo := pg.NewCustomerRepo(pool)
	languageRepo := pg.NewLanguageRepo(pool)
	tm := pg.NewTxManager(pool)

	// ---- Notification pipeline ----
	dispatcher, err := notify.NewDispatcher(pool, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("notify dispatcher")
	}
	senders := &notify.Senders{
		Email: notify.NewSMTPSender(cfg.Notify.SMTP, logger),
		Push:  notify.NewRESTPushSender(cfg.Notify.Push, logger),
		SMS:   notify.NewRESTSMSSender(cfg.Notify.SMS, logger),
	}
	workersDone, err := notify.StartWorkers(ctx, pool, cfg.Notify.Workers, senders, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("notify workers")
	}

	// ---- Use cases ----
	matcher := usecase.NewMatcher(jobRepo, translatorRepo, customerRepo, logger)
	bookingUC := usecase.NewBookingUseCase(
		jobRepo, assignmentRepo, translatorRepo, customerRepo, languageRepo,
		tm, matcher, locker, cfg.Redis.LockTTL, adapter.RealClock{}, dispatcher, logger,
	)

	// ---- Timeout sweeper ----
	worker := sched.NewTimeoutWorker(cfg.Scheduler.SweepInterval, bookingUC, logger)
	go func() { _ = worker.Run(ctx) }()

	// ---- HTTP server ----
	srv := web.NewServer(bookingUC, cfg.Web.APIKey, logger)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	server := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Web.Port), Handler: mux}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()
	_ = server.Shutdown(context.Background())
	<-workersDone
}
