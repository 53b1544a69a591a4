package main

import (
	"fmt"
	"os"

	"quillboard/internal/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	logger  *zap.Logger
	v       *viper.Viper = config.New()
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "quill",
	Short: "quillboard - a small multi-user article board",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ReadFile(v, cfgFile); err != nil {
			return err
		}

		var err error
		cfg, err = config.Load(v)
		if err != nil {
			return err
		}

		logger, err = newLogger(cfg.LogFormat)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	SilenceUsage: true,
}

func newLogger(format string) (*zap.Logger, error) {
	if format == "json" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ./config.yaml)")
	flags.String("redis", "localhost:6379", "Address of Redis server")
	flags.String("badger", "./badger-data", "Path to BadgerDB data directory")
	flags.String("store", config.EngineHybrid, "Storage engine: hybrid or postgres")
	flags.String("postgres-dsn", "", "PostgreSQL connection string")
	flags.String("auth-secret", "", "HMAC secret for session tokens")
	flags.String("log-format", "console", "Log format: console or json")

	for _, name := range []string{"redis", "badger", "store", "postgres-dsn", "auth-secret", "log-format"} {
		if err := v.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(serveCmd, tokenCmd, addCmd, listCmd, deleteCmd, importCmd)
}

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
