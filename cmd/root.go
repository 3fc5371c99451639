package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/abhisek/qagen/internal/config"
	"github.com/abhisek/qagen/internal/store"
)

// appConfig is loaded once before any subcommand runs.
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "qagen",
	Short: "Generate question banks from documents with LLMs",
	Long: `qagen splits documents into chunks, asks one or more LLM providers for
question-and-answer pairs or multiple choice questions per chunk, repairs and
validates the output, and writes the resulting question bank as JSON.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		envFile, _ := cmd.Flags().GetString("env-file")

		cfg, err := config.Load(config.Options{ConfigFile: configFile, EnvFile: envFile})
		if err != nil {
			return err
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.LogLevel = lvl
		}
		if err := setupLogging(cfg.LogLevel); err != nil {
			return err
		}
		appConfig = cfg
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file (default ./qagen.yaml or $XDG_CONFIG_HOME/qagen/qagen.yaml)")
	rootCmd.PersistentFlags().String("env-file", ".env", "Path to a dotenv file loaded before reading QAGEN_* variables")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides QAGEN_DB env var)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn or error")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(chunkCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// setupLogging sends human-readable logs to stderr so stdout stays
// reserved for generated output.
func setupLogging(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()
	return nil
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then the db_path setting or QAGEN_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if appConfig != nil && appConfig.DBPath != "" {
		return appConfig.DBPath, store.EnsureDir(appConfig.DBPath)
	}
	return store.DefaultDBPath()
}

// openStore opens the database chosen by resolveDBPath.
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
