package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"github.com/RajshekharX12/vpn/internal/bot"
	"github.com/RajshekharX12/vpn/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot",
	Long: `Start long-polling Telegram for updates and serve the owner's chat.

The bot token is read from the WGKEEPER_BOT_TOKEN (or BOT_TOKEN)
environment variable; a .env file in the working directory is honored.
The first user to tap the owner button becomes the only user the bot
will talk to.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := requireRoot(); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	token, err := config.BotToken()
	if err != nil {
		return err
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return fmt.Errorf("connecting to Telegram: %w", err)
	}
	globalLogger.Info("authorized on Telegram", "username", api.Self.UserName)

	mgr, err := newManager(cfg)
	if err != nil {
		return err
	}
	inst := newInstaller(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b := bot.New(globalLogger, api, cfg, mgr, inst)
	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	globalLogger.Info("bot stopped")
	return nil
}
