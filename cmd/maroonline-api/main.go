// README: Entry point; loads config, wires services, starts the HTTP server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"maroonline/internal/config"
	httptransport "maroonline/internal/http"
	"maroonline/internal/infra"
	"maroonline/internal/metrics"
	"maroonline/internal/modules/auth"
	"maroonline/internal/modules/icebreaker"
	"maroonline/internal/modules/matching"
	"maroonline/internal/modules/profile"
	"maroonline/internal/modules/transit"
	"maroonline/internal/modules/trip"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	if level > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	if err := infra.Migrate(ctx, cfg.DB.DSN, logger); err != nil {
		return err
	}
	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	route, err := transit.LoadRoute(transit.RouteSource{
		File:        cfg.Transit.RouteFile,
		GTFSPath:    cfg.Transit.GTFSPath,
		GTFSRouteID: cfg.Transit.GTFSRouteID,
	})
	if err != nil {
		return err
	}
	logger.Info("route loaded", "route", route.Name(), "stations", route.Len())

	m := metrics.New()
	m.StartDBStatsCollector(dbPool, 15*time.Second)
	defer m.Shutdown()

	var mailer auth.Mailer = auth.NewLogMailer(logger)
	if cfg.Mail.SMTPHost != "" {
		mailer = auth.NewSMTPMailer(cfg.Mail.SMTPHost, cfg.Mail.SMTPPort, cfg.Mail.Username, cfg.Mail.Password, cfg.Mail.From)
	} else {
		logger.Warn("no SMTP host configured; login codes are only logged")
	}
	authSvc := auth.NewService(auth.NewStore(redisClient), mailer, auth.Config{
		AllowedDomain:     cfg.Auth.AllowedDomain,
		CodeTTL:           cfg.Auth.CodeTTL,
		SessionTTL:        cfg.Auth.SessionTTL,
		CodeRatePerMinute: cfg.Auth.CodeRatePerMinute,
	}, logger)

	profileSvc := profile.NewService(profile.NewStore(dbPool), logger)
	tripSvc := trip.NewService(trip.NewStore(dbPool), route, logger)

	matchingStore := matching.NewStore(redisClient, cfg.Matching.SuggestionTTL, cfg.Matching.LockTTL)
	matchingSvc := matching.NewService(matchingStore, tripSvc, matching.NewRanker(route, cfg.Matching.TopK), logger).
		WithObserver(m)

	estimator, err := transit.NewConfiguredChain(cfg.Transit, loc, logger)
	if err != nil {
		return err
	}
	if cfg.Transit.CTAKey == "" && cfg.Transit.MapsKey == "" {
		logger.Warn("no transit estimator configured; trip creation will answer no upcoming train")
	}

	var gen icebreaker.Generator
	if cfg.AI.GeminiKey != "" {
		gemini, err := icebreaker.NewGeminiProvider(ctx, cfg.AI.GeminiKey)
		if err != nil {
			return err
		}
		defer gemini.Close()
		gen = gemini
	}
	icebreakerSvc := icebreaker.NewService(icebreaker.NewStore(dbPool, cfg.AI.MonthlyTokens), gen, logger)

	server := httptransport.NewServer(cfg.HTTP.Addr, httptransport.ServerDeps{
		Auth:       authSvc,
		Profile:    profileSvc,
		Trip:       tripSvc,
		Matching:   matchingSvc,
		Icebreaker: icebreakerSvc,
		Estimator:  estimator,
		Route:      route,
		Metrics:    m,
		Logger:     logger,
		Window:     cfg.Window(),
		Location:   loc,
	})
	return server.Run(ctx, cfg.HTTP.ShutdownTimeout)
}
