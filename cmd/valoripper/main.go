package main

import (
	"context"
	"database/sql"
	"net/http"

	"valoripper/internal/catalog"
	"valoripper/internal/config"
	"valoripper/internal/constants"
	fxmodules "valoripper/internal/fx"
	"valoripper/internal/match"
	"valoripper/internal/middleware"
	"valoripper/internal/server"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(run),
	).Run()
}

func run(
	lc fx.Lifecycle,
	api *server.API,
	poller *match.Poller,
	store *catalog.Store,
	cfg *config.Config,
	db *sql.DB,
	logger zerolog.Logger,
) {
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})

	handler := middleware.RequestID(logger)(c.Handler(api.Handler()))

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler,
	}

	pollCtx, stopPolling := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Warm the catalog snapshots in the background; the resolver
			// fetches on demand if this has not finished yet.
			go store.EnsureStaticData(pollCtx)

			go poller.Run(pollCtx)

			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down")
			stopPolling()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing session database")
			}

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}
			logger.Info().Msg("stopped gracefully")
			return nil
		},
	})
}
