package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"halo-watcher/internal/config"
	"halo-watcher/internal/constants"
	fxmodules "halo-watcher/internal/fx"
	"halo-watcher/internal/middleware"
	"halo-watcher/internal/presence"
	"halo-watcher/internal/server"
	"halo-watcher/internal/service"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runServer),
	).Run()
}

func runServer(
	lc fx.Lifecycle,
	watcherServer *server.WatcherServer,
	watcher *service.Watcher,
	monitor *presence.Monitor,
	source *presence.HTTPSource,
	cfg *config.Config,
	db *sql.DB,
	logger zerolog.Logger,
) {
	mux := http.NewServeMux()
	watcherServer.Routes(mux)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})

	handler := middleware.RequestID(logger)(c.Handler(mux))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: handler,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()

			// Seeding presence and the startup reconciliation notice
			// need the network; do them off the startup path.
			go func() {
				seedCtx, cancel := context.WithTimeout(context.Background(), constants.RequestTimeout)
				defer cancel()

				watcher.AnnounceStartup(seedCtx)

				activities, err := source.Current(seedCtx)
				if err != nil {
					logger.Warn().Err(err).Msg("failed to seed presence state")
					return
				}
				monitor.Seed(activities)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			watcher.Shutdown()

			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}
			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}
