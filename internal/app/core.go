package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/clip/internal/cache"
	"github.com/MrSnakeDoc/clip/internal/clipper"
	"github.com/MrSnakeDoc/clip/internal/config"
	"github.com/MrSnakeDoc/clip/internal/logger"
	"github.com/MrSnakeDoc/clip/internal/outline"
	"github.com/MrSnakeDoc/clip/internal/redis"
	"github.com/MrSnakeDoc/clip/internal/report"
	"github.com/MrSnakeDoc/clip/internal/scheduler"
	"github.com/MrSnakeDoc/clip/internal/settings"
	"github.com/MrSnakeDoc/clip/internal/store/memory"
	redisstore "github.com/MrSnakeDoc/clip/internal/store/redis"
	"github.com/MrSnakeDoc/clip/internal/transport"
)

// Core is everything a clip needs, shared by the server and the CLI.
type Core struct {
	Cache       *cache.Service
	Settings    settings.Provider
	Clipper     *clipper.Clipper
	Transport   *transport.Client
	redisClient *goredis.Client
}

// NewCore opens the configured store and wires the clipper. reporter may be nil.
func NewCore(ctx context.Context, cfg *config.Config, log logger.Logger, reporter report.Reporter) (*Core, error) {
	core := &Core{}

	var store cache.Store
	switch cfg.Store {
	case config.StoreRedis:
		client, err := redis.New(ctx, redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
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
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		core.redisClient = client
		store = redisstore.NewStore(client)
	default:
		log.Warn("using in-memory store, provisioning state is lost on restart")
		store = memory.New()
	}
	core.Cache = cache.New(store)

	retries := cfg.MaxRetries
	if retries == 0 {
		retries = transport.NoRetries
	}
	core.Transport = transport.New(transport.Options{
		Timeout:        cfg.FetchTimeout,
		MaxRetries:     retries,
		InitialBackoff: cfg.InitialBackoff,
		Logger:         log,
	})

	defaults := settings.Settings{
		OutlineURL:     cfg.OutlineURL,
		APIToken:       cfg.OutlineToken,
		CollectionName: cfg.CollectionName,
	}
	if cfg.SettingsFile != "" {
		log.Info("reading outline settings from file", logger.String("file", cfg.SettingsFile))
		core.Settings = settings.NewFile(cfg.SettingsFile, defaults)
	} else {
		core.Settings = settings.Static(defaults)
	}

	if reporter == nil {
		reporter = report.Multi{report.Log{Logger: log}, report.Metrics{}}
	}
	tr := core.Transport
	core.Clipper = clipper.New(clipper.Options{
		Settings: core.Settings,
		Cache:    core.Cache,
		Connect: func(s settings.Settings) clipper.Remote {
			return outline.New(s.OutlineURL, s.APIToken, tr, log)
		},
		Reporter: reporter,
		Logger:   log,
	})

	return core, nil
}

// Prober adapts the clipper's current Outline client for the folder auditor.
func (c *Core) Prober(ctx context.Context) (scheduler.Prober, error) {
	return c.Clipper.Remote(ctx)
}

// Close releases the store connection.
func (c *Core) Close() error {
	if c.redisClient == nil {
		return nil
	}
	return c.redisClient.Close()
}
