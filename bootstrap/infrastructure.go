package bootstrap

import (
	"fmt"

	"go_branch_chat/config"
	"go_branch_chat/pkg/logging"
	"go_branch_chat/platform/cache"
	"go_branch_chat/platform/database"
	"go_branch_chat/platform/events"
	"go_branch_chat/platform/redis"
	"go_branch_chat/platform/storage"
)

// Infrastructure holds the external systems. Only the event bus and the L1
// cache are always present; the rest is enabled by configuration.
type Infrastructure struct {
	DB             *database.DB
	Redis          *redis.Service
	Storage        *storage.Service
	Cache          cache.CacheService
	EventPublisher events.Publisher
}

func NewInfrastructure(cfg *config.Config) (*Infrastructure, error) {
	infra := &Infrastructure{}

	// database
	switch cfg.StoreType {
	case "postgres":
		db, err := database.InitPostgres(cfg)
		if err != nil {
			return nil, err
		}
		infra.DB = db
		if err := infra.DB.AutoMigrate(); err != nil {
			return nil, err
		}
	case "memory", "":
		logging.Logger.Warn().Msg("using in-memory conversation store; conversations are lost on exit")
	default:
		return nil, fmt.Errorf("unknown STORE_TYPE %q", cfg.StoreType)
	}

	// redis services
	if cfg.RedisURL != "" {
		redisService, err := redis.InitRedis(cfg)
		if err != nil {
			logging.Logger.Error().Err(err).Msg("fail Initializing Redis")
			return nil, err
		}
		infra.Redis = redisService
	}

	// storage services
	if cfg.StorageType != "" {
		storageService, err := storage.InitStorageService(cfg)
		if err != nil {
			logging.Logger.Error().Err(err).Msg("fail Initializing Bucket")
			return nil, err
		}
		infra.Storage = storageService
	}

	// cache and event publisher
	l1CacheService := cache.InitL1Cache()
	if infra.Redis != nil {
		infra.Cache = cache.NewCacheService(l1CacheService, infra.Redis)
		infra.EventPublisher = events.NewRedisPublisher(infra.Redis.Rdb)
	} else {
		infra.Cache = cache.NewCacheService(l1CacheService, nil)
		infra.EventPublisher = events.NewLocalPublisher()
	}

	return infra, nil
}

func (infra *Infrastructure) Shutdown() error {
	if err := infra.EventPublisher.Close(); err != nil {
		logging.Logger.Error().Err(err).Msg("fail closing event publisher")
		return err
	}
	if infra.DB != nil {
		if err := infra.DB.Close(); err != nil {
			logging.Logger.Error().Err(err).Msg("fail closing database")
			return err
		}
	}
	if infra.Redis != nil {
		if err := infra.Redis.Close(); err != nil {
			logging.Logger.Error().Err(err).Msg("fail closing redis")
			return err
		}
	}
	return nil
}
