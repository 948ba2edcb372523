package fx

import (
	"halo-watcher/internal/api"
	"halo-watcher/internal/config"
	"halo-watcher/internal/database"
	"halo-watcher/internal/logger"
	"halo-watcher/internal/notify"
	"halo-watcher/internal/presence"
	"halo-watcher/internal/repository"
	"halo-watcher/internal/server"
	"halo-watcher/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideHaloAPI(c *api.WaypointClient) service.HaloAPI {
	return c
}

func ProvideNotifier(d *notify.DiscordWebhook) notify.Notifier {
	return d
}

func ProvideMonitor(cfg *config.Config, watcher *service.Watcher, log zerolog.Logger) *presence.Monitor {
	return presence.NewMonitor(cfg.TargetActivity, watcher.HandleStart, watcher.HandleStop, log)
}

var Module = fx.Options(
	fx.Provide(logger.New),
	config.Module,
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewMatchRepository),
	fx.Provide(repository.NewAssetRepository),
	// remote client + sinks
	fx.Provide(api.NewWaypointClient),
	fx.Provide(ProvideHaloAPI),
	fx.Provide(notify.NewDiscordWebhook),
	fx.Provide(ProvideNotifier),
	// svc
	fx.Provide(service.NewSyncService),
	fx.Provide(service.NewReportService),
	fx.Provide(service.NewWatcher),
	// presence
	fx.Provide(presence.NewHTTPSource),
	fx.Provide(ProvideMonitor),
	// server
	fx.Provide(server.NewWatcherServer),
)
