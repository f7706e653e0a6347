package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"boss_alert_bot/internal/domain/tracker"
	"boss_alert_bot/internal/infra/config"
	idb "boss_alert_bot/internal/infra/database"
	"boss_alert_bot/internal/infra/jsonbin"
	"boss_alert_bot/internal/infra/redisstore"

	"github.com/sirupsen/logrus"
)

// initTrackerStore selects and returns the configured tracker store backend
// together with a function releasing its resources.
func initTrackerStore(ctx context.Context, cfg *config.AppConfig, log *logrus.Entry) (tracker.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.TrackerStore {
	case config.StoreJSONBin:
		log.WithField("base_url", cfg.JSONBinBaseURL).Info("Using JSONBin tracker store")
		client := &http.Client{Timeout: 10 * time.Second}
		return jsonbin.NewStore(cfg.JSONBinBaseURL, cfg.JSONBinBinID, cfg.JSONBinAPIKey, client), noop, nil

	case config.StorePostgres, config.StoreSQLite:
		db, err := idb.NewConnection(cfg.TrackerStore, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		repo := idb.NewTrackerRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.WithField("driver", cfg.TrackerStore).Info("Using SQL tracker store")
		return repo, db.Close, nil

	case config.StoreRedis:
		rdb := redisstore.NewClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		store := redisstore.NewStore(rdb, cfg.RedisKey)
		if err := store.Ping(ctx); err != nil {
			rdb.Close()
			return nil, nil, err
		}
		log.WithField("key", cfg.RedisKey).Info("Using redis tracker store")
		return store, rdb.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown tracker store %q", cfg.TrackerStore)
}
