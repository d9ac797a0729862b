package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vigilhq/vigil/internal/config"
	"github.com/vigilhq/vigil/internal/httpapi"
	"github.com/vigilhq/vigil/internal/incident"
	"github.com/vigilhq/vigil/internal/logging"
	"github.com/vigilhq/vigil/internal/notify"
	"github.com/vigilhq/vigil/internal/probe"
	"github.com/vigilhq/vigil/internal/repo"
	"github.com/vigilhq/vigil/internal/repo/memory"
	"github.com/vigilhq/vigil/internal/repo/postgres"
	"github.com/vigilhq/vigil/internal/scheduler"
)

type stores struct {
	monitors  repo.MonitorStore
	results   repo.ResultStore
	pages     repo.StatusPageStore
	incidents repo.IncidentStore
	close     func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store_init_failed", zap.Error(err))
	}
	defer st.close()

	dispatcher := notify.NewDispatcher(logger, notify.NewHeartbeat(), notify.NewStatuspage())
	correlator := incident.NewCorrelator(logger, st.pages, st.incidents)
	runner := scheduler.NewRunner(
		logger,
		st.monitors,
		st.results,
		probe.NewHTTPChecker(),
		correlator,
		dispatcher,
		cfg.Concurrency,
		cfg.Retention,
	)

	if cfg.CheckInterval > 0 {
		go runner.Run(ctx, cfg.CheckInterval)
		logger.Info("interval_runner_started", zap.Duration("interval", cfg.CheckInterval))
	}

	api := httpapi.NewServer(logger, runner, st.pages, st.results, st.incidents,
		cfg.CronSecret, cfg.APIKeys, cfg.AllowedOrigins)

	srv := &http.Server{Addr: cfg.Addr, Handler: api.Router()}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
		dispatcher.Wait()
	}()

	logger.Info("api_listen", zap.String("addr", cfg.Addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("listen_failed", zap.Error(err))
	}
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("no_database_url", zap.String("mode", "in-memory"))
		mem := memory.New()
		return &stores{
			monitors:  mem,
			results:   mem,
			pages:     mem,
			incidents: mem,
			close:     func() {},
		}, nil
	}
	pg, err := postgres.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}
	return &stores{
		monitors:  pg,
		results:   pg,
		pages:     pg,
		incidents: pg,
		close:     pg.Close,
	}, nil
}
