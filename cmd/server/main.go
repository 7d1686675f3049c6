package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/example/carpool-search/internal/config"
	"github.com/example/carpool-search/internal/dispatch"
	"github.com/example/carpool-search/internal/geo"
	"github.com/example/carpool-search/internal/geocode"
	httpapi "github.com/example/carpool-search/internal/http"
	"github.com/example/carpool-search/internal/ingest"
	"github.com/example/carpool-search/internal/logging"
	"github.com/example/carpool-search/internal/payments"
	"github.com/example/carpool-search/internal/routing"
	"github.com/example/carpool-search/internal/search"
	"github.com/example/carpool-search/internal/storage"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	if cfg.PGDSN != "" && cfg.RunMigrations {
		if err := runMigrations(cfg.PGDSN); err != nil {
			logger.Error("migration failed", "error", err)
			os.Exit(1)
		}
		logger.Info("migrations applied")
	}

	var store storage.RideStore
	if cfg.PGDSN != "" {
		ps, err := storage.NewPostgresStore(cfg.PGDSN)
		if err != nil {
			logger.Error("postgres unavailable", "error", err)
			os.Exit(1)
		}
		defer ps.Close()
		store = ps
	} else {
		logger.Warn("PG_DSN not set, using in-memory ride store")
		store = storage.NewMemoryStore()
	}

	var router routing.Client
	if cfg.OSRMEndpoint != "" {
		router = routing.NewCachingClient(routing.NewOSRMClient(cfg.OSRMEndpoint, cfg.RouteTimeout), cfg.RouteCacheTTL)
	}

	var geocoder geocode.Client
	if cfg.GeocodeAPIKey != "" {
		geocoder = geocode.NewHTTPClient(cfg.GeocodeEndpoint, cfg.GeocodeAPIKey, cfg.GeocodeTimeout)
	}

	searcher := search.NewService(store, router, geocoder, logger)
	searcher.RefineTopN = cfg.RefineTopN
	searcher.CandidateLimit = cfg.CandidateLimit
	searcher.RouteTimeout = cfg.RouteTimeout
	searcher.SessionTTL = cfg.SessionTTL
	if cfg.RedisAddr != "" {
		idx := geo.NewRideIndex(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisGeoKey)
		defer idx.Close()
		searcher.Prefilt = idx
	}

	deps := httpapi.Deps{
		Logger:   logger,
		Store:    store,
		Search:   searcher,
		Router:   router,
		Currency: cfg.Currency,
	}
	if cfg.StripeAPIKey != "" {
		deps.Payments = payments.NewStripeClient(cfg.StripeAPIKey)
	}
	if len(cfg.KafkaBrokers) > 0 {
		kp := ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaRideTopic, cfg.KafkaBookingTopic)
		defer kp.Close()
		deps.Events = kp
	}
	wsreg := dispatch.NewWSRegistry()
	deps.WSReg = wsreg
	deps.Notifier = dispatch.NewPushDispatcher(cfg.PushEndpoint, wsreg)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewServer(deps),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("carpool-search listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func runMigrations(dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	b, err := os.ReadFile(filepath.Join("migrations", "001_create_rides.sql"))
	if err != nil {
		return err
	}
	_, err = db.Exec(string(b))
	return err
}
