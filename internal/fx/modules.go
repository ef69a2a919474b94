package fx

import (
	"valoripper/internal/aggregate"
	"valoripper/internal/assets"
	"valoripper/internal/catalog"
	"valoripper/internal/config"
	"valoripper/internal/hdev"
	"valoripper/internal/history"
	"valoripper/internal/logger"
	"valoripper/internal/match"
	"valoripper/internal/riot"
	"valoripper/internal/server"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	// storage
	fx.Provide(history.NewDB),
	fx.Provide(history.NewRepository),
	// static data
	fx.Provide(catalog.NewStore),
	fx.Provide(catalog.NewResolver),
	// upstream clients
	fx.Provide(riot.NewAuthenticator),
	fx.Provide(func(a *riot.Authenticator) riot.SessionSource { return a }),
	fx.Provide(riot.NewClient),
	fx.Provide(hdev.NewClient),
	fx.Provide(assets.NewFetcher),
	// svc
	fx.Provide(match.NewService),
	fx.Provide(match.NewPoller),
	fx.Provide(aggregate.NewService),
	// api
	fx.Provide(server.NewAPI),
)
