package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goVerify "github.com/MrEthical07/goVerify"
	"github.com/MrEthical07/goVerify/sqlstore"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	Version = "0.1.0"

	flagConfig       string
	flagLogLevel     string
	flagRedisAddr    string
	flagDialect      string
	flagDSN          string
	flagLockoutStore string
)

var rootCmd = &cobra.Command{
	Use:   "goverify",
	Short: "goverify – credential verification operator tool",
	Long: "goverify inspects and operates a goVerify deployment.\n\n" +
		"Configuration is read from --config (TOML) or from GOVERIFY_* variables; a .env file is loaded first.",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "goverify %s\n", Version)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "TOML config file; GOVERIFY_* variables are used when empty")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagRedisAddr, "redis-addr", os.Getenv("REDIS_ADDR"), "redis address")
	rootCmd.PersistentFlags().StringVar(&flagDialect, "db-dialect", envOr("GOVERIFY_DB_DIALECT", "postgres"), "account database dialect: postgres or sqlite")
	rootCmd.PersistentFlags().StringVar(&flagDSN, "dsn", os.Getenv("GOVERIFY_DATABASE_URL"), "account database DSN")
	rootCmd.PersistentFlags().StringVar(&flagLockoutStore, "lockout-store", "redis", "lockout record store: redis or sql")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(deriveCmd)
	rootCmd.AddCommand(signCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(flagLogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadConfig() (goVerify.Config, error) {
	if flagConfig != "" {
		return goVerify.LoadConfigFile(flagConfig)
	}
	return goVerify.ConfigFromEnv()
}

func openSQL(ctx context.Context) (*sqlstore.Store, error) {
	if flagDSN == "" {
		return nil, errors.New("--dsn or GOVERIFY_DATABASE_URL is required")
	}
	dialect, err := sqlstore.ParseDialect(flagDialect)
	if err != nil {
		return nil, err
	}
	return sqlstore.Open(ctx, dialect, flagDSN)
}

// openEngine builds an Engine over the configured Redis and SQL stores. The
// returned func releases every handle.
func openEngine(ctx context.Context) (*goVerify.Engine, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if flagRedisAddr == "" {
		return nil, nil, errors.New("--redis-addr or REDIS_ADDR is required")
	}
	db, err := openSQL(ctx)
	if err != nil {
		return nil, nil, err
	}
	rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{flagRedisAddr}})

	b := goVerify.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAccountStore(db).
		WithLogger(newLogger())
	switch flagLockoutStore {
	case "redis":
	case "sql":
		b = b.WithLockoutStore(db)
	default:
		_ = rdb.Close()
		_ = db.Close()
		return nil, nil, fmt.Errorf("unknown lockout store %q", flagLockoutStore)
	}

	engine, err := b.Build()
	if err != nil {
		_ = rdb.Close()
		_ = db.Close()
		return nil, nil, err
	}
	return engine, func() {
		engine.Close()
		_ = rdb.Close()
		_ = db.Close()
	}, nil
}
