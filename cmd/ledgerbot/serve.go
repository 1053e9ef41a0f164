package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/ledgerbot/internal/bot"
	"github.com/Veraticus/ledgerbot/internal/charts"
	"github.com/Veraticus/ledgerbot/internal/common"
	"github.com/Veraticus/ledgerbot/internal/config"
	"github.com/Veraticus/ledgerbot/internal/telegram"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var telegramRetry = common.RetryOptions{
	MaxAttempts:  5,
	InitialDelay: time.Second,
	MaxDelay:     30 * time.Second,
	Multiplier:   2,
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot against the Telegram Bot API",
		Long: `Long-poll Telegram for updates and answer every chat the bot is in.

The bot token is read from telegram.token in the config file or from
LEDGERBOT_TELEGRAM_TOKEN.`,
		RunE: runServe,
	}

	cmd.Flags().Duration("batch-delay", 0, "quiet period before a batch is executed")
	cmd.Flags().Int("workers", 0, "updates handled concurrently")
	_ = viper.BindPFlag("batch.delay", cmd.Flags().Lookup("batch-delay"))
	_ = viper.BindPFlag("telegram.workers", cmd.Flags().Lookup("workers"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.RequireToken(); err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return fmt.Errorf("failed to connect to Telegram: %w", err)
	}
	api.Debug = cfg.Telegram.Debug

	adapter := telegram.NewAdapter(api, telegramRetry)
	b := bot.New(adapter, store, botOptions(cfg, api.Self.UserName))
	poller := telegram.NewPoller(api, adapter, b, cfg.Telegram.PollTimeout, cfg.Telegram.Workers)

	slog.Info("🤖 Serving", "bot", api.Self.UserName, "storage", cfg.Storage.Driver, "version", version)
	err = poller.Run(ctx)

	slog.Info("Waiting for pending batches")
	b.Wait()

	if errors.Is(err, context.Canceled) {
		slog.Info("Stopped")
		return nil
	}
	return err
}

func botOptions(cfg *config.Config, name string) bot.Options {
	opts := bot.Options{
		Name:       name,
		Version:    version,
		BatchDelay: cfg.Batch.Delay,
		MaxPayload: cfg.Callback.MaxPayload,
	}
	if cfg.Report.Charts {
		opts.Charts = charts.NewRenderer()
	}
	return opts
}
