package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/3dxone/news-mirror/app/api"
	"github.com/3dxone/news-mirror/app/cfg"
	"github.com/3dxone/news-mirror/app/discord"
	"github.com/3dxone/news-mirror/app/feed"
	"github.com/3dxone/news-mirror/app/preview"
	"github.com/3dxone/news-mirror/app/tasks"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	appCfg, err := cfg.Load()
	if err != nil {
		return err
	}
	if appCfg == nil {
		// Help was shown
		return nil
	}

	setupLogging(appCfg.Debug)

	slog.Info("Starting News Mirror", "version", appCfg.Version, "channel_id", appCfg.ChannelID)

	channelConfig, err := feed.LoadChannelConfig(appCfg.ChannelConfig)
	if err != nil {
		return fmt.Errorf("failed to load channel configuration: %w", err)
	}

	discordClient, err := discord.NewClient(appCfg.DiscordToken, appCfg.ChannelID, appCfg.GetUpstreamTimeout())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Nothing is served until the bot token and channel are confirmed
	if err := discordClient.Verify(ctx); err != nil {
		return fmt.Errorf("failed to connect to Discord: %w", err)
	}

	store := feed.NewStore()
	previewFetcher := preview.NewFetcher(&http.Client{Timeout: appCfg.GetPreviewTimeout()}, appCfg.UserAgent)
	builder := feed.NewBuilder(previewFetcher, appCfg.PreviewWorkers, appCfg.GetPreviewTimeout())

	scheduler := tasks.NewScheduler(discordClient, builder, feed.NewFilterer(), store, channelConfig, tasks.Settings{
		Interval:     appCfg.GetRefreshInterval(),
		MessageLimit: appCfg.MessageLimit,
	})
	scheduler.Start()
	defer scheduler.Stop()

	generator := feed.NewGenerator(feed.GeneratorConfig{
		Title:       channelConfig.Title,
		Description: channelConfig.Description,
		Link:        channelConfig.Link,
		SelfURL:     selfURL(appCfg),
		Version:     appCfg.Version,
	})

	apiHandler := api.NewHandler(store, generator, appCfg.Version)
	server := api.NewServer(apiHandler)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		slog.Info("Endpoints available",
			"news", fmt.Sprintf("http://localhost:%s/news", appCfg.Port),
			"rss", fmt.Sprintf("http://localhost:%s/news.rss", appCfg.Port),
			"health", fmt.Sprintf("http://localhost:%s/health", appCfg.Port))

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case serverErr = <-serverErrChan:
		slog.Error("Server error", "error", serverErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	slog.Info("News Mirror shutdown complete")
	return serverErr
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func selfURL(appCfg *cfg.Cfg) string {
	if appCfg.BaseUrl != "" {
		return appCfg.BaseUrl + "/news.rss"
	}
	return fmt.Sprintf("http://localhost:%s/news.rss", appCfg.Port)
}
