package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/tgl-chat/backend/internal/config"
	"github.com/zhouzirui/tgl-chat/backend/internal/logging"
)

var (
	wsURL    string
	apiBase  string
	logLevel string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "chatprobe",
	Short: "Terminal front end for the Team Global Logistics chat widget",
	Long: `chatprobe mounts the chat widget's connection manager in a terminal.

It connects to the chat endpoint, keeps reconnecting while the endpoint is
down, and offers the quote form when a message mentions prices or shipping.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		if wsURL == "" {
			wsURL = cfg.Chat.URL
		}
		if apiBase == "" {
			apiBase = cfg.Lead.APIBase
		}
		if logLevel == "" {
			logLevel = cfg.LogLevel
		}

		logger, err = logging.New(logLevel)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&wsURL, "url", "", "chat WebSocket endpoint (default CHAT_WS_URL)")
	rootCmd.PersistentFlags().StringVar(&apiBase, "api", "", "contact API base URL (default CONTACT_API_BASE)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default LOG_LEVEL)")

	rootCmd.AddCommand(chatCmd, leadCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
