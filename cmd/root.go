package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/abhisek/feynman/internal/config"
	"github.com/abhisek/feynman/internal/llm"
	"github.com/abhisek/feynman/internal/store"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "feynman",
	Short: "Adaptive learning sessions driven by an LLM",
	Long: `Feynman plans a short learning path for any topic, teaches it one
checkpoint at a time, quizzes you, and re-teaches in simpler terms when a
quiz goes badly.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Event log database: SQLite path or postgres:// URL (overrides FEYNMAN_DB)")
	rootCmd.PersistentFlags().String("config", "", "Path to TOML config file (default $XDG_CONFIG_HOME/feynman/config.toml)")
	rootCmd.PersistentFlags().String("env-file", ".env", "Load environment variables from this file if it exists")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(learnCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads the .env file and config, and builds the logger. Environment
// variables from the .env file never override ones already set.
func setup(cmd *cobra.Command) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file: %w", err)
		}
	}

	configPath, _ := cmd.Flags().GetString("config")
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = c

	verbose, _ := cmd.Flags().GetBool("verbose")
	logger = cfg.Logger(os.Stderr, verbose)
	slog.SetDefault(logger)
	return nil
}

// resolveDBPath returns the database location using --db (highest
// priority), then FEYNMAN_DB or the config file, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg != nil && cfg.Store.DSN != "" {
		return cfg.Store.DSN, store.EnsureDir(cfg.Store.DSN)
	}
	return store.DefaultDBPath()
}

func openStore(cmd *cobra.Command) (*store.Store, error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

// newProvider resolves provider settings (config file, FEYNMAN_* and
// standard key discovery) and builds the middleware-wrapped provider.
func newProvider(ctx context.Context, opts llm.Options, adjust func(*llm.Config)) (llm.Provider, error) {
	lc := cfg.LLMConfig()
	if adjust != nil {
		adjust(&lc)
	}
	lc, err := llm.ResolveConfig(lc)
	if err != nil {
		return nil, fmt.Errorf("LLM provider not configured: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = logger
	}
	return llm.NewProvider(ctx, lc, opts)
}
