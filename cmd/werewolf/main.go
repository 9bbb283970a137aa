// Command werewolf plays and inspects Werewolf games from the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vntrieu/werewolf/internal/config"
	"github.com/vntrieu/werewolf/internal/log"
	"github.com/vntrieu/werewolf/internal/store"
)

// globalOptions are the flags shared by every subcommand.
type globalOptions struct {
	sqlitePath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "werewolf",
		Short:         "Play automated Werewolf games",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.sqlitePath, "sqlite", "", "SQLite file for game records (default WEREWOLF_SQLITE_PATH; DATABASE_URL wins when set)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: error, warn, info, debug, trace (default WEREWOLF_LOG_LEVEL)")

	root.AddCommand(newRunCmd(opts), newListCmd(opts), newShowCmd(opts))
	return root
}

// setup loads the environment, applies the global flags and opens the game store.
func (o *globalOptions) setup(ctx context.Context) (config.Config, *log.Logger, store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	if o.sqlitePath != "" {
		cfg.SQLitePath = o.sqlitePath
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	logger := log.New(os.Stderr, level)

	st, backend, err := store.Open(ctx, cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	logger.Debug("game store: %s", backend)
	return cfg, logger, st, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "werewolf:", err)
		os.Exit(1)
	}
}
