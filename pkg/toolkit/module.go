// Package toolkit builds the asset registry an editor or engine session
// works against.
package toolkit

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/rpgtoolkit/toolkit/pkg/assets"
	"github.com/rpgtoolkit/toolkit/pkg/config"
	"github.com/rpgtoolkit/toolkit/pkg/formats/catalog"
	"github.com/rpgtoolkit/toolkit/pkg/formats/program"
	"github.com/rpgtoolkit/toolkit/pkg/formats/statuseffect"

	"github.com/go-redis/redis/v9"
	"github.com/rs/zerolog/log"
)

//go:embed core
var core embed.FS

const (
	RESOURCE_SCHEME = "res"
	CACHE_SCHEME    = "cache"
	REDIS_SCHEME    = "redis"
	DATABASE_SCHEME = "db"
)

// Core returns the assets shipped with the toolkit, served under res:.
func Core() fs.FS {
	files, err := fs.Sub(core, "core")
	if err != nil {
		panic(err)
	}
	return files
}

func Serializers() []assets.Serializer {
	return []assets.Serializer{
		statuseffect.Serializer{},
		program.Serializer{},
		catalog.Serializer{},
	}
}

func redisStore(ctx context.Context, settings config.RedisSettings) (assets.Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr: settings.Address,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("could not reach redis at %s: %w", settings.Address, err)
	}

	// A zero ttl stores without expiry.
	return assets.NewRedisCache(client, settings.TTL), nil
}

// Setup creates a registry for the project described by settings. Resolvers
// are registered so that the built-in and store schemes are consulted before
// the filesystem.
func Setup(ctx context.Context, settings *config.Config) (*assets.Registry, error) {
	logger := log.With().Str("service", "toolkit").Logger()

	registry := assets.NewRegistry()

	resolvers := []assets.Resolver{
		assets.NewResourceResolver(RESOURCE_SCHEME, Core()),
	}

	if dir := settings.Assets.CacheDirectory; dir != "" {
		logger.Debug().Str("dir", dir).Msg("using cache directory")
		resolvers = append(resolvers, assets.NewStoreResolver(CACHE_SCHEME, assets.FSStore(dir)))
	}

	if settings.Assets.Redis.Address != "" {
		store, err := redisStore(ctx, settings.Assets.Redis)
		if err != nil {
			return nil, err
		}
		logger.Debug().Str("address", settings.Assets.Redis.Address).Msg("using redis")
		resolvers = append(resolvers, assets.NewStoreResolver(REDIS_SCHEME, store))
	}

	if path := settings.Assets.Database; path != "" {
		store, err := assets.NewSQLStore(path)
		if err != nil {
			return nil, err
		}
		logger.Debug().Str("path", path).Msg("using database")
		resolvers = append(resolvers, assets.NewStoreResolver(DATABASE_SCHEME, store))
	}

	roots := settings.Roots()
	resolvers = append(resolvers, assets.NewFileResolver(roots...))

	for _, resolver := range resolvers {
		if err := registry.RegisterResolver(resolver); err != nil {
			return nil, err
		}
	}

	for _, serializer := range Serializers() {
		if err := registry.RegisterSerializer(serializer); err != nil {
			return nil, err
		}
	}

	logger.Info().Strs("roots", roots).Msgf("registry ready with %d resolvers", len(resolvers))
	return registry, nil
}
