// Package cli implements sixcities-admin, the operator tool for the shared
// store, the rate limiter and the database schema.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/sixcities/internal/config"
	"github.com/turtacn/sixcities/internal/infrastructure/monitoring"
	"github.com/turtacn/sixcities/internal/infrastructure/persistence/redis"
	"github.com/turtacn/sixcities/pkg/logger"
)

const connectTimeout = 5 * time.Second

var configDir string

// rootCmd represents the base command when the `sixcities-admin` binary is called without any subcommands.
// rootCmd 代表在没有任何子命令的情况下调用 `sixcities-admin` 二进制文件时的基本命令。
var rootCmd = &cobra.Command{
	Use:   "sixcities-admin",
	Short: "Administer the six cities backend.",
	Long: `sixcities-admin performs operator tasks against the same configuration
the server uses: clearing cached entries, resetting rate limit windows,
migrating the schema and minting bearer tokens for testing.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "directory holding config.yaml")
}

// Execute is the main entry point for the CLI application.
// Execute 是 CLI 应用程序的主入口点。
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads configuration the way the server does, logging at warn level.
func loadConfig() (*config.Config, logger.Logger, error) {
	log, err := monitoring.NewZapLogger(&config.LogConfig{Level: "warn"})
	if err != nil {
		return nil, nil, err
	}
	var paths []string
	if configDir != "" {
		paths = append(paths, configDir)
	}
	cfg, err := config.LoadConfig(log, paths...)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// connectStore dials the shared store once. Admin commands need it up.
func connectStore(ctx context.Context, cfg *config.Config, log logger.Logger) (*redis.Connection, *redis.RedisStore, error) {
	conn, err := redis.NewConnection(redis.ConfigFromSettings(&cfg.Redis), log)
	if err != nil {
		return nil, nil, err
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := conn.Connect(connectCtx); err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, redis.NewRedisStore(conn, redis.StoreOptions{OpTimeout: cfg.RateLimit.StoreTimeout}, log), nil
}
