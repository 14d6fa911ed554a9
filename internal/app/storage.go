package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/MrSnakeDoc/shelf/internal/config"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/redis"
	"github.com/MrSnakeDoc/shelf/internal/session"
	"github.com/MrSnakeDoc/shelf/internal/store/file"
	"github.com/MrSnakeDoc/shelf/internal/store/memory"
	redisstore "github.com/MrSnakeDoc/shelf/internal/store/redis"
	"github.com/MrSnakeDoc/shelf/internal/store/sqlite"
)

// Storage is a session storage backend the app owns.
type Storage interface {
	session.Storage
	io.Closer
	Name() string
}

// OpenStorage builds the backend named by cfg.Storage.
func OpenStorage(ctx context.Context, cfg *config.Config, log logger.Logger) (Storage, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return memory.NewStore(), nil

	case config.StorageFile:
		path := cfg.StoragePath
		if path == "" {
			p, err := file.DefaultPath(cfg.Profile)
			if err != nil {
				return nil, err
			}
			path = p
		}
		var opts []file.Option
		if cfg.StoragePassphrase != "" {
			opts = append(opts, file.WithPassphrase(cfg.StoragePassphrase))
		}
		log.Debug("using file session storage", logger.String("path", path))
		return file.NewStore(path, opts...), nil

	case config.StorageSQLite:
		path := cfg.StoragePath
		if path == "" {
			p, err := file.DefaultPath(cfg.Profile)
			if err != nil {
				return nil, err
			}
			path = filepath.Join(filepath.Dir(p), "sessions.db")
		}
		log.Debug("using sqlite session storage", logger.String("path", path))
		return sqlite.Open(path, cfg.Profile)

	case config.StorageRedis:
		log.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.Connect(ctx, redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return redisstore.NewStore(client, cfg.Profile, cfg.RedisKeyTTL), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
}
