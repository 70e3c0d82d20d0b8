package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tinapav47-ux/igramrelay/internal/adapters/downloader"
	"github.com/tinapav47-ux/igramrelay/internal/adapters/telegram"
	"github.com/tinapav47-ux/igramrelay/internal/config"
	"github.com/tinapav47-ux/igramrelay/internal/core/domain"
	"github.com/tinapav47-ux/igramrelay/internal/janitor"
	"github.com/tinapav47-ux/igramrelay/internal/metrics"
	"github.com/tinapav47-ux/igramrelay/internal/relay"
	"github.com/tinapav47-ux/igramrelay/internal/server"
	"github.com/tinapav47-ux/igramrelay/internal/service"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd, true)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
	addConfigFlags(cmd)
	return cmd
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	m := metrics.New()

	cls, err := buildClassifier(cfg, logger)
	if err != nil {
		return err
	}
	scr, stopEngine, err := buildScraper(cfg, m, logger)
	if err != nil {
		return err
	}
	defer stopEngine()

	bot, err := telegram.NewBot(ctx, cfg.BotToken, cfg.LogLevel == "debug", logger)
	if err != nil {
		return err
	}
	client := telegram.NewClient(bot)

	handler := service.New(service.Deps{
		Classifier:  cls,
		Scraper:     scr,
		Fetcher:     downloader.NewHTTPDownloader(cfg.TempDir, cfg.DownloadTimeout),
		Deliverer:   relay.New(client, cfg.MaxUploadBytes, logger),
		Messenger:   client,
		Metrics:     m,
		Logger:      logger,
		StatusDelay: cfg.StatusDeleteDelay,
	})
	dispatcher := telegram.NewDispatcher(func(ctx context.Context, msg domain.Inbound) {
		handler.Handle(ctx, msg)
	}, logger)

	g, gctx := errgroup.WithContext(ctx)

	srvCfg := server.Config{
		Addr:        net.JoinHostPort("", cfg.Port),
		WebhookPath: cfg.WebhookPath,
		Metrics:     m.Handler(),
	}
	if cfg.WebhookMode() {
		link, err := telegram.WebhookURL(cfg.PublicURL, cfg.WebhookPath)
		if err != nil {
			return err
		}
		if err := telegram.RegisterWebhook(bot, link, cfg.WebhookSecret); err != nil {
			return err
		}
		logger.Info("webhook registered", "url", link)
		wh := telegram.NewWebhook(gctx, bot, dispatcher, cfg.WebhookSecret, logger)
		srvCfg.Webhook = wh
		defer wh.Wait()
	} else {
		poller := telegram.NewPoller(bot, dispatcher, logger)
		g.Go(func() error { return poller.Run(gctx) })
	}

	if cfg.Port != "" {
		srv := server.New(srvCfg, logger)
		g.Go(func() error { return srv.Run(gctx) })
	}

	jan := janitor.New(cfg.TempDir, downloader.FilePrefix, cfg.JanitorMaxAge, cfg.JanitorInterval, logger)
	g.Go(func() error { return jan.Run(gctx) })

	logger.Info("igramrelay started",
		"version", version,
		"mode", map[bool]string{true: "webhook", false: "polling"}[cfg.WebhookMode()],
		"engine", cfg.BrowserEngine,
		"temp_dir", cfg.TempDir,
	)
	if err := g.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	logger.Info("igramrelay stopped")
	return nil
}
