package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"posgrocery/internal/config"
	"posgrocery/internal/infra"
	"posgrocery/internal/model"
	"posgrocery/internal/repository"
	"posgrocery/internal/router"
	"posgrocery/internal/service"
	"posgrocery/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Structured logger — dev: pretty, prod: JSON
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cacheCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	dispatcher := worker.NewDispatcher(rdb)

	// The snapshot worker gets its own service instance wired here (the
	// composition root) so the pool runs independently of the HTTP router.
	productRepo := repository.NewProductRepository(db)
	ledgerRepo := repository.NewStockLedgerRepository(db)
	lotRepo := repository.NewStockLotRepository(db)
	policyRepo := repository.NewCostPolicyRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	policySvc := service.NewCostPolicyService(policyRepo, productRepo, model.CostMethod(cfg.DefaultCostMethod))
	valuationSvc := service.NewValuationService(lotRepo, productRepo)
	snapshotSvc := service.NewSnapshotService(snapshotRepo, productRepo, ledgerRepo, policySvc, valuationSvc)

	pool := worker.NewPool(rdb, snapshotSvc)
	pool.Start(ctx, cfg.WorkerPoolSize)
	worker.StartSnapshotCron(ctx, worker.SnapshotCronConfig{
		RDB:        rdb,
		Dispatcher: dispatcher,
		Hour:       cfg.SnapshotHour,
	})

	r := router.New(cfg, db, rdb, cacheCB, dispatcher)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("posgrocery backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
