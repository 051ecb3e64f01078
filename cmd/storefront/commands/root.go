package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/suteetoe/storefront/pkg/config"
	"github.com/suteetoe/storefront/pkg/logger"
	"go.uber.org/zap"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Storefront catalog and order API",
	Long: `Storefront serves the product catalog, trending list and order checkout
over HTTP, backed by PostgreSQL.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, tokenCmd)
}

// bootstrap loads configuration and builds the global logger.
func bootstrap() (*config.Config, *zap.Logger, error) {
	appConfig, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}

	if err := logger.InitLogger(&logger.LogConfig{
		Level:       appConfig.Log.Level,
		Environment: appConfig.Server.Env,
		ServiceName: appConfig.ServiceName,
	}); err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return appConfig, logger.GetLogger(), nil
}
