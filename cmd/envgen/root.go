package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/pthm/envgen/internal/cli"
	"github.com/pthm/envgen/internal/logger"
)

var (
	// Global state set during PersistentPreRunE
	cfg        *cli.Config
	configPath string

	// Persistent flags
	cfgFile string
	verbose int
	quiet   bool
	logJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "envgen",
	Short: "Typed environment configuration generator",
	Long: `envgen - typed environment configuration generator

envgen reads services and their typed environment variables from a
declaration file or a Postgres store and generates a .env template,
TypeScript Zod schemas, Go envconfig structs or Python pydantic settings.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for help/completion/version/license commands
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" || cmd.Name() == "license" {
			return nil
		}

		var err error
		cfg, configPath, err = cli.LoadConfig(cfgFile)
		if err != nil {
			return cli.ConfigError("loading configuration", err)
		}

		if err := logger.Initialize(logger.Options{
			JSON:    logJSON || cfg.Log.JSON,
			Level:   cfg.Log.Level,
			Verbose: verbose > 0,
			Quiet:   quiet,
		}); err != nil {
			return cli.ConfigError("configuring logger", err)
		}
		logger.Logger.Debugw("configuration loaded", "path", configPath)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
	SilenceUsage:  true, // Don't show usage on errors
	SilenceErrors: true, // We handle errors ourselves
}

// Command group IDs
const (
	groupDeclaration = "declaration"
	groupGenerate    = "generate"
	groupStore       = "store"
	groupUtility     = "utility"
)

func init() {
	// Persistent flags (available to all commands)
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: auto-discover envgen.yaml)")
	pf.CountVarP(&verbose, "verbose", "v", "increase verbosity (can be repeated)")
	pf.BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	pf.BoolVar(&logJSON, "log-json", false, "emit logs as JSON on stderr")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupDeclaration, Title: "Declaration:"},
		&cobra.Group{ID: groupGenerate, Title: "Generate:"},
		&cobra.Group{ID: groupStore, Title: "Store:"},
		&cobra.Group{ID: groupUtility, Title: "Utility:"},
	)

	// Declaration commands
	validateCmd.GroupID = groupDeclaration
	doctorCmd.GroupID = groupDeclaration
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(doctorCmd)

	// Generate commands
	generateCmd.GroupID = groupGenerate
	targetsCmd.GroupID = groupGenerate
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(targetsCmd)

	// Store commands
	migrateCmd.GroupID = groupStore
	statusCmd.GroupID = groupStore
	importCmd.GroupID = groupStore
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(importCmd)

	// Utility commands
	configCmd.GroupID = groupUtility
	versionCmd.GroupID = groupUtility
	licenseCmd.GroupID = groupUtility
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(licenseCmd)
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		cli.ExitWithError(err)
	}
}

// resolveString returns the first non-empty string from the provided values.
// Used to implement precedence: flag > config > default.
func resolveString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// resolveBool returns true if any of the provided values is true.
// Used for boolean flags where any true value should win.
func resolveBool(values ...bool) bool {
	for _, v := range values {
		if v {
			return true
		}
	}
	return false
}

// resolveStrings returns the first non-empty list.
func resolveStrings(values ...[]string) []string {
	for _, v := range values {
		if len(v) > 0 {
			return v
		}
	}
	return nil
}

// resolveDSN gets the database DSN from flag or config.
func resolveDSN(flagDSN string) (string, error) {
	if flagDSN != "" {
		return flagDSN, nil
	}

	dsn, err := cfg.DSN()
	if err != nil {
		return "", cli.ConfigError("database configuration", err)
	}
	if dsn == "" {
		return "", cli.ConfigError("database URL is required (use --db or set in config)", nil)
	}
	return dsn, nil
}

// openDB opens and pings the store database.
func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, cli.DBConnectError("connecting to database", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, cli.DBConnectError("connecting to database", err)
	}
	return db, nil
}
