package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/conexio/contactsync/internal/auth"
	"github.com/conexio/contactsync/internal/config"
	"github.com/conexio/contactsync/internal/db"
	"github.com/conexio/contactsync/internal/remote"
	"github.com/conexio/contactsync/internal/repositories"
	"github.com/conexio/contactsync/internal/sync"
)

func main() {
	var (
		entity    = flag.String("entity", "", "import a single entity type instead of all")
		statsOnly = flag.Bool("stats-only", false, "refresh campaign analytics counters only")
		migrate   = flag.String("migrations", "migrations", "migrations directory")
	)
	flag.Parse()

	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, *migrate, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	limiter := remote.NewLimiter(cfg.RateLimitCalls, cfg.RateLimitPeriod)
	tokenRepo := repositories.NewTokenRepo(pool)

	authClient := remote.NewClient(cfg.AuthBaseURL, cfg.AuthVersion, limiter, nil, log)
	manager := auth.NewManager(tokenRepo, authClient, cfg.AuthBaseURL, cfg.AuthVersion,
		cfg.ClientID, cfg.ClientSecret, cfg.RedirectURI, log)

	client := remote.NewClient(cfg.APIBaseURL, cfg.APIVersion, limiter, manager, log)
	fetcher := sync.NewFetcher(client, log)
	store := repositories.NewStore(pool, log)
	engine := sync.NewEngine(client, fetcher, store, cfg.MembershipBatchSize, log)

	switch {
	case *statsOnly:
		err = engine.ImportCampaignStats(ctx)
	case *entity != "":
		err = engine.Import(ctx, *entity)
	default:
		err = engine.ImportAll(ctx)
	}
	if err != nil {
		log.Error("import finished with failures", zap.Error(err))
		os.Exit(1)
	}
	log.Info("import finished")
}
