// Package app assembles the bot's components from configuration. Every
// binary builds its dependencies here so the wiring stays in one place.
package app

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"philcali.me/chefbot/internal/config"
	"philcali.me/chefbot/internal/controller"
	"philcali.me/chefbot/internal/data"
	"philcali.me/chefbot/internal/dynamodb/favorites"
	"philcali.me/chefbot/internal/dynamodb/token"
	"philcali.me/chefbot/internal/session"
	"philcali.me/chefbot/internal/spoonacular"
	"philcali.me/chefbot/internal/sqlstore"
)

type App struct {
	Config     *config.Config
	Favorites  data.FavoriteRepository
	Sessions   *session.Registry
	Controller *controller.Controller

	closers []func() error
}

// OpenFavorites connects the configured favorites backend.
func OpenFavorites(ctx context.Context, cfg config.StoreConfig) (data.FavoriteRepository, func() error, error) {
	switch cfg.Type {
	case "sqlite":
		store, err := sqlstore.Open(ctx, sqlstore.SQLite, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case "postgres":
		store, err := sqlstore.Open(ctx, sqlstore.Postgres, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case "dynamodb":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("load AWS config: %w", err)
		}
		client := dynamodb.NewFromConfig(awsCfg)
		store := favorites.NewFavoriteService(cfg.TableName, client, token.NewGCM([]byte(cfg.TokenSecret)))
		return store, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}

// SessionFactory builds per-conversation result caches. Redis entries
// expire after the idle timeout, matching the in-memory sweeper.
func SessionFactory(ctx context.Context, cfg config.SessionConfig) (session.CacheFactory, func() error, error) {
	switch cfg.Type {
	case "memory":
		return session.MemoryFactory, func() error { return nil }, nil
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		return session.NewRedisFactory(client, cfg.IdleTimeout), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown session type %q", cfg.Type)
	}
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	store, closeStore, err := OpenFavorites(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	app.Favorites = store
	app.closers = append(app.closers, closeStore)

	factory, closeCache, err := SessionFactory(ctx, cfg.Session)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}
	app.closers = append(app.closers, closeCache)

	recipes := spoonacular.NewClient(spoonacular.Settings{
		BaseURL:       cfg.Spoonacular.BaseURL,
		Token:         cfg.Spoonacular.APIKey,
		Timeout:       cfg.Spoonacular.Timeout,
		RatePerSecond: cfg.Spoonacular.RatePerSecond,
		Burst:         cfg.Spoonacular.Burst,
	})
	app.Sessions = session.NewRegistry(factory, cfg.Session.IdleTimeout)
	app.Controller = controller.NewController(recipes, app.Favorites, app.Sessions)

	log.Info().
		Str("store", cfg.Store.Type).
		Str("session", cfg.Session.Type).
		Msg("application assembled")
	return app, nil
}

// Close disposes the sessions before closing their backends.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Sessions != nil {
		errs = append(errs, a.Sessions.Close(ctx))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}
