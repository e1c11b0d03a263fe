package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/conexio/contactsync/internal/auth"
	"github.com/conexio/contactsync/internal/config"
	"github.com/conexio/contactsync/internal/db"
	"github.com/conexio/contactsync/internal/events"
	"github.com/conexio/contactsync/internal/remote"
	"github.com/conexio/contactsync/internal/repositories"
	"github.com/conexio/contactsync/internal/sync"
	"github.com/conexio/contactsync/internal/wire"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	limiter := remote.NewLimiter(cfg.RateLimitCalls, cfg.RateLimitPeriod)
	tokenRepo := repositories.NewTokenRepo(pool)
	authClient := remote.NewClient(cfg.AuthBaseURL, cfg.AuthVersion, limiter, nil, log)
	manager := auth.NewManager(tokenRepo, authClient, cfg.AuthBaseURL, cfg.AuthVersion,
		cfg.ClientID, cfg.ClientSecret, cfg.RedirectURI, log)

	client := remote.NewClient(cfg.APIBaseURL, cfg.APIVersion, limiter, manager, log)
	fetcher := sync.NewFetcher(client, log)
	store := repositories.NewStore(pool, log)
	engine := sync.NewEngine(client, fetcher, store, cfg.MembershipBatchSize, log)

	campaignRepo := repositories.NewCampaignRepo(pool)
	publisher := sync.NewPublisher(client, campaignRepo, cfg.ScheduleMargin,
		cfg.PreviewRecipients, cfg.PreviewMessage, log)

	subscriber := events.NewRedisSubscriber(rdb, log)
	err = subscriber.Subscribe(ctx, cfg.SyncStream, func(req events.SyncRequest) {
		if err := dispatch(ctx, engine, publisher, store, req); err != nil {
			log.Error("sync request failed",
				zap.String("entity", req.Entity),
				zap.String("op", req.Op),
				zap.Int64("local_id", req.LocalID),
				zap.Error(err),
			)
			return
		}
		log.Info("sync request done",
			zap.String("entity", req.Entity),
			zap.String("op", req.Op),
			zap.Int64("local_id", req.LocalID),
		)
	})
	if err != nil {
		log.Fatal("failed to subscribe", zap.Error(err))
	}

	log.Info("worker started", zap.String("stream", cfg.SyncStream))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Info("shutting down worker")
		cancel()
	case <-ctx.Done():
	}
}

// dispatch pushes one local record's state to the remote service. Deletes
// carry the remote id in the request because the local row may already be
// gone by the time the worker sees it.
func dispatch(ctx context.Context, engine *sync.Engine, publisher *sync.Publisher, store *repositories.Store, req events.SyncRequest) error {
	if req.Op == events.OpDelete {
		rec := wire.NewRecord(req.Entity)
		rec.LocalID = req.LocalID
		rec.RemoteID = req.RemoteID
		return engine.Delete(ctx, rec, "")
	}

	// Campaigns run through the publisher: the generic write path cannot
	// carry the nested primary activity the create call requires, and the
	// wire protocol rejects whole-record campaign updates past creation.
	if req.Entity == wire.TypeEmailCampaign {
		switch req.Op {
		case events.OpCreate:
			return publisher.Create(ctx, req.LocalID)
		case events.OpUpdate:
			return publisher.UpdateContent(ctx, req.LocalID, false)
		case events.OpSchedule:
			return publisher.Schedule(ctx, req.LocalID)
		case events.OpUnschedule:
			return publisher.Unschedule(ctx, req.LocalID)
		case events.OpRename:
			return publisher.Rename(ctx, req.LocalID)
		default:
			return &sync.PreconditionError{Op: req.Op, Reason: "unsupported operation for " + req.Entity}
		}
	}

	if req.Entity == wire.TypeContact {
		rec, err := store.LoadContactRecord(ctx, req.LocalID)
		if err != nil {
			return err
		}
		if req.Op == events.OpMemberships {
			listIDs := make([]string, 0, len(rec.Multi["list_memberships"]))
			for _, ref := range rec.Multi["list_memberships"] {
				listIDs = append(listIDs, ref.RemoteID)
			}
			return engine.AddListMemberships(ctx, listIDs, []string{rec.RemoteID})
		}
		return engine.PushContact(ctx, rec)
	}

	rec, err := store.LoadRecord(ctx, req.Entity, req.LocalID)
	if err != nil {
		return err
	}
	switch req.Op {
	case events.OpCreate:
		return engine.Create(ctx, rec)
	case events.OpUpdate:
		return engine.Update(ctx, rec)
	default:
		return &sync.PreconditionError{Op: req.Op, Reason: "unsupported operation for " + req.Entity}
	}
}
