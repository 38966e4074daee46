package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/scenestack/internal/config"
	"github.com/aretw0/scenestack/pkg/adapters/memory"
	"github.com/aretw0/scenestack/pkg/adapters/redis"
	"github.com/aretw0/scenestack/pkg/masterdata"
	"github.com/aretw0/scenestack/pkg/persistence/middleware"
	"github.com/aretw0/scenestack/pkg/ports"
	"github.com/aretw0/scenestack/pkg/session"
	backend "github.com/redis/go-redis/v9"
)

// backends holds the snapshot store and master data selected by the configuration.
type backends struct {
	store      ports.SnapshotStore
	masterData ports.MasterData
	client     *backend.Client
}

func openBackends(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backends, error) {
	b := &backends{store: memory.NewStore()}

	if cfg.Redis.Enabled() {
		b.client = backend.NewClient(&backend.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := b.client.Ping(ctx).Err(); err != nil {
			b.client.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Redis.Addr, err)
		}
		prefix := cfg.Redis.Prefix
		if prefix == "" {
			prefix = redis.DefaultPrefix
		}
		b.store = redis.NewFromClient(b.client, redis.WithPrefix(prefix+"snapshot:"), redis.WithTTL(cfg.Redis.TTL))
		logger.Info("using redis snapshot store", "addr", cfg.Redis.Addr, "prefix", prefix)
	}

	if err := b.wrapStore(cfg.Snapshot, logger); err != nil {
		b.Close()
		return nil, err
	}

	switch cfg.MasterData.Source {
	case config.SourceFile:
		db, err := masterdata.LoadFile(cfg.MasterData.Path)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.masterData = db
		logger.Info("master data loaded", "path", cfg.MasterData.Path, "stages", len(db.Stages()))
	case config.SourceRedis:
		prefix := cfg.Redis.Prefix
		if prefix == "" {
			prefix = redis.DefaultPrefix
		}
		db, err := redis.NewMasterDataSource(b.client, prefix+"masterdata:").Load(ctx)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.masterData = db
		logger.Info("master data loaded from redis", "stages", len(db.Stages()))
	}
	return b, nil
}

// wrapStore applies argument masking and encryption. Masking runs first so sealed
// snapshots never contain masked values in clear. The result is serialized per slot.
func (b *backends) wrapStore(cfg config.SnapshotConfig, logger *slog.Logger) error {
	active, fallback, err := cfg.Keys()
	if err != nil {
		return err
	}
	var mws []middleware.Middleware
	if len(cfg.MaskKeys) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(cfg.MaskKeys))
	}
	if active != nil {
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		}))
		logger.Info("snapshot encryption enabled", "fallback_keys", len(fallback))
	}
	b.store = session.NewManager(middleware.Chain(b.store, mws...), session.WithLogger(logger))
	return nil
}

func (b *backends) Close() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}
