package main

import (
	"context"

	"github.com/venturematch/venture-match/internal/app"
	"github.com/venturematch/venture-match/internal/cache"
	"github.com/venturematch/venture-match/internal/config"
	"github.com/venturematch/venture-match/internal/db"
	"github.com/venturematch/venture-match/internal/logger"
	"github.com/venturematch/venture-match/internal/notify"
	"github.com/venturematch/venture-match/internal/server"
	"github.com/venturematch/venture-match/internal/service/discovery"
	"github.com/venturematch/venture-match/internal/service/interest"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}
	if err := db.Migrate(database); err != nil {
		log.Error("failed to migrate db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		// feed pages fall back to uncached reads until it comes back
		log.Warn("redis unreachable at startup", "err", err)
	}

	// Match events go to NATS when configured, nowhere otherwise
	var publisher notify.Publisher
	if cfg.NATS.URL != "" {
		pub, err := notify.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			log.Error("failed to connect to nats", "err", err)
			return
		}
		defer pub.Close()
		publisher = pub
	}

	appCtx := app.New(database, redisCache, log, publisher, cfg)

	registrars := []server.Registrar{
		discovery.NewRegistrar(appCtx, nil),
		interest.NewRegistrar(appCtx, nil),
	}

	addr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	log.Info("starting http server", "addr", addr)

	if err := server.Start(cfg, server.NewRouter(appCtx, registrars...)); err != nil {
		log.Error("http server exited", "err", err)
	}
}
