package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmeiser/popcorn-sales-manager-sub005/api/routes"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/access"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/accounts"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/campaigns"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/catalogs"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/invites"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/orders"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/paymentmethods"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/pipeline"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/profiles"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/shares"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/templates"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/auth/session"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/config"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/logger"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/metrics"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/migrate"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/redis"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	svcs, err := buildServices(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}

	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, redisClient, httpMetrics, svcs),
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-stopCtx.Done():
		logg.Info(ctx, "shutdown signal received")
	}

	graceCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	closeErr := multierr.Combine(
		server.Shutdown(graceCtx),
		redisClient.Close(),
		dbClient.Close(),
	)
	if closeErr != nil {
		logg.Error(ctx, "shutdown finished with errors", closeErr)
		os.Exit(1)
	}
	logg.Info(ctx, "shutdown complete")
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (routes.Services, error) {
	gdb := dbClient.DB()

	accountsRepo := accounts.NewRepository(gdb)
	profilesRepo := profiles.NewRepository(gdb)
	sharesRepo := shares.NewRepository(gdb)
	invitesRepo := invites.NewRepository(gdb)
	campaignsRepo := campaigns.NewRepository(gdb)
	ordersRepo := orders.NewRepository(gdb)
	catalogsRepo := catalogs.NewRepository(gdb)
	templatesRepo := templates.NewRepository(gdb)

	engine, err := access.NewEngine(sharesRepo)
	if err != nil {
		return routes.Services{}, err
	}
	runner := pipeline.NewRunner(logg)

	accountsSvc, err := accounts.NewService(accountsRepo)
	if err != nil {
		return routes.Services{}, err
	}
	profilesSvc, err := profiles.NewService(profilesRepo, engine, dbClient, runner)
	if err != nil {
		return routes.Services{}, err
	}
	sharesSvc, err := shares.NewService(sharesRepo, profilesRepo, runner)
	if err != nil {
		return routes.Services{}, err
	}
	invitesSvc, err := invites.NewService(invitesRepo, profilesRepo, sharesRepo, dbClient, runner, cfg.Invites.TTL)
	if err != nil {
		return routes.Services{}, err
	}
	campaignsSvc, err := campaigns.NewService(campaignsRepo, profilesRepo, catalogsRepo, engine, dbClient, runner)
	if err != nil {
		return routes.Services{}, err
	}
	ordersSvc, err := orders.NewService(ordersRepo, campaignsRepo, profilesRepo, catalogsRepo, engine, dbClient, runner)
	if err != nil {
		return routes.Services{}, err
	}
	catalogsSvc, err := catalogs.NewService(catalogsRepo, accountsRepo, dbClient, runner)
	if err != nil {
		return routes.Services{}, err
	}
	templatesSvc, err := templates.NewService(templatesRepo, accountsRepo, runner)
	if err != nil {
		return routes.Services{}, err
	}
	paymentMethodsSvc, err := paymentmethods.NewService(accountsRepo, runner)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Accounts:       accountsSvc,
		Profiles:       profilesSvc,
		Shares:         sharesSvc,
		Invites:        invitesSvc,
		Campaigns:      campaignsSvc,
		Orders:         ordersSvc,
		Catalogs:       catalogsSvc,
		Templates:      templatesSvc,
		PaymentMethods: paymentMethodsSvc,
	}, nil
}
