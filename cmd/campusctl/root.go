package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"smartcampus/internal/app"
	"smartcampus/internal/config"
	"smartcampus/internal/logger"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "campusctl",
	Short: "Administer the smart campus database",
	Long: `campusctl applies schema migrations, loads seed data and manages
logins for the smart campus API. It reads the same environment variables
and CONFIG_FILE as the api and worker binaries.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

func loadConfig() (config.App, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.App{}, nil, err
	}
	level := "warn"
	if verbose {
		level = "debug"
	}
	log, err := logger.New(cfg.Env, level)
	if err != nil {
		return config.App{}, nil, err
	}
	return cfg, log, nil
}

// openApp opens the database and services without queue or rate limit
// backends, which administrative commands never use.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cfg.QueueBackend = app.QueueMemory
	cfg.RateLimitBackend = "memory"
	return app.Open(ctx, cfg, log)
}
