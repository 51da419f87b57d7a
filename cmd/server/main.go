// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the service packages.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"rescar/internal/audit"
	carmetrics "rescar/internal/carpool/metrics"
	carservice "rescar/internal/carpool/service"
	carstore "rescar/internal/carpool/store"
	"rescar/internal/platform/config"
	"rescar/internal/platform/database"
	"rescar/internal/platform/httpserver"
	"rescar/internal/platform/logger"
	platformredis "rescar/internal/platform/redis"
	resmetrics "rescar/internal/reservation/metrics"
	resservice "rescar/internal/reservation/service"
	resstore "rescar/internal/reservation/store"
	httptransport "rescar/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		catalogStore carservice.CatalogStore
		resStore     resservice.ReservationStore
		auditStore   audit.Store
		carOpts      []carservice.Option
	)
	if cfg.DatabaseURL != "" {
		db, err := database.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			log.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
		catalogStore = carstore.NewPostgres(db)
		resStore = resstore.NewPostgres(db)
		auditStore = audit.NewPostgresStore(db)
		carOpts = append(carOpts, carservice.WithTx(database.NewTxRunner(db)))
	} else {
		log.Info("no DATABASE_URL, using in-memory stores")
		catalogMem := carstore.NewMemory()
		catalogStore = catalogMem
		resStore = resstore.NewMemory(catalogMem)
		auditStore = audit.NewInMemoryStore()
	}

	var resOpts []resservice.Option
	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		resOpts = append(resOpts,
			resservice.WithIdempotencyCache(resstore.NewIdempotencyCache(redisClient.Client, cfg.IdempotencyTTL)))
	}

	events := make(chan audit.Event, 256)
	worker := audit.NewWorker(auditStore, events)
	publisher := audit.NewChannelPublisher(events)

	cars := carservice.New(catalogStore, append(carOpts,
		carservice.WithLogger(log),
		carservice.WithAuditPublisher(publisher),
		carservice.WithMetrics(carmetrics.New()),
	)...)
	reservations := resservice.New(resStore, append(resOpts,
		resservice.WithLogger(log),
		resservice.WithAuditPublisher(publisher),
		resservice.WithMetrics(resmetrics.New()),
	)...)

	handler := httptransport.NewHandler(cars, reservations, log)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("starting rescar", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("shutdown with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
