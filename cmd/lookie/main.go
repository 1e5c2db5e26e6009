// Command lookie drives a styling conversation against the recommendation backend from a terminal.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/lookie/backend/internal/config"
	"github.com/zhouzirui/lookie/backend/internal/logging"
)

var (
	gatewayURL     string
	gatewayTimeout time.Duration
	logLevel       string
	logger         *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "lookie",
	Short: "Lookie - persona stylist in your terminal",
	Long: `lookie walks through negative preferences, TPO and per-category
recommendations with one of the stylist personas, then prints the final
outfit and a lookbook QR code.

Example:
  lookie chat --persona pme`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(logging.Options{Level: logLevel, Format: "console"})
		if err != nil {
			return err
		}
		zap.ReplaceGlobals(logger)
		return nil
	},
}

func init() {
	_ = godotenv.Load()

	defaults := config.GatewayConfig{BaseURL: "http://127.0.0.1:8000"}
	if cfg, err := config.Load(); err == nil {
		defaults = cfg.Gateway
	}

	rootCmd.PersistentFlags().StringVar(&gatewayURL, "gateway", defaults.BaseURL, "recommendation backend base URL")
	rootCmd.PersistentFlags().DurationVar(&gatewayTimeout, "timeout", defaults.Timeout, "per-request timeout, 0 disables it")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(chatCmd, personasCmd, vocabCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
