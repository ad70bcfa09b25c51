package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"rssd/config"
	"rssd/control"
	"rssd/dispatch"
	"rssd/fetch"
	"rssd/queue"
	"rssd/server"
	"rssd/store"
	"rssd/watcher"
)

const fetchTimeout = 30 * time.Second

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the feed watcher daemon",
		Description: `Starts the rssd daemon: polls every watched feed on its refresh
interval, records new items in the SQLite database and forwards each
new item to the configured webhook exactly once.

The watched feed set is the union of the configured list and feeds
added at runtime through the control socket. Runtime changes are
persisted and survive restarts.`,
		Flags: []cli.Flag{
			configFlag(),
			verboseFlag(),
		},
		Action: func(ctx *cli.Context) error {
			setLogLevel(ctx.Int("verbose"))

			cfg, err := config.LoadConfig(ctx.String("config"))
			if err != nil {
				return err
			}

			if err := store.Migrate(cfg.Database.Path); err != nil {
				return err
			}

			st, err := store.Open(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer st.Close()

			runCtx, stop := signal.NotifyContext(ctx.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			eventQueue := queue.New(cfg.Feeds.Queue)

			registry := watcher.NewRegistry(runCtx, watcher.Config{
				Fetcher: fetch.NewHTTPFetcher(fetchTimeout),
				Store:   st,
				Queue:   eventQueue,
				Refresh: cfg.Feeds.Refresh(),
				Fail:    cfg.Feeds.Fail(),
			})

			started := registry.Bootstrap(initialFeeds(runCtx, cfg, st))
			log.WithField("feeds", started).Info("Feed registry initialized")

			dispatcher := dispatch.New(
				eventQueue,
				dispatch.WebhookPayloadBuilder{},
				buildSink(cfg),
				st,
				cfg.Notify.MaxAttempts,
				cfg.Notify.Backoff(),
			)
			go dispatcher.Run(runCtx)

			ctl := control.NewServer(cfg.Socket, Version, registry)
			go func() {
				if err := ctl.Listen(runCtx); err != nil {
					log.WithError(err).Error("Control server failed")
					stop()
				}
			}()

			if cfg.Server.Enabled {
				app := server.Server(&server.ServerConfig{
					Version:  Version,
					Registry: registry,
				})
				go func() {
					log.WithField("listen", cfg.Server.Listen).Info("Starting status server")
					if err := app.Listen(cfg.Server.Listen); err != nil {
						log.WithError(err).Error("Status server failed")
					}
				}()
				defer app.ShutdownWithTimeout(10 * time.Second)
			}

			if cfg.Retention.MaxAgeDays > 0 {
				go tidyLoop(runCtx, st, cfg.Retention.MaxAgeDays)
			}

			<-runCtx.Done()
			log.Info("Gracefully shutting down...")
			registry.Shutdown()

			return nil
		},
	}
}

// initialFeeds merges the configured feed list with the persisted
// watch list from a previous run.
func initialFeeds(ctx context.Context, cfg *config.Config, st *store.Store) []string {
	urls := cfg.Feeds.URLs()

	persisted, err := st.ListFeeds(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to load persisted feeds")
		return urls
	}

	return append(urls, persisted...)
}

func buildSink(cfg *config.Config) dispatch.Sink {
	if cfg.Notify.Webhook == "" {
		log.Warn("No webhook configured, notifications will only be logged")
		return dispatch.LogSink{}
	}
	return dispatch.NewWebhookSink(cfg.Notify.Webhook, fetchTimeout)
}

func tidyLoop(ctx context.Context, st *store.Store, maxAgeDays int) {
	maxAge := time.Duration(maxAgeDays) * 24 * time.Hour

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := st.Tidy(ctx, maxAge); err != nil {
				log.WithError(err).Error("Error tidying database")
			}
		}
	}
}
