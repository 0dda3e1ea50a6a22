// Package cli provides the command-line interface for twindx
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AbdouB/twindx/internal/config"
	"github.com/AbdouB/twindx/internal/db"
)

var (
	cfg        config.Config
	logger     *slog.Logger
	database   *db.DB
	configPath string
	dbPath     string
	outputText bool // --text flag for human-readable output (default is JSON)
	verbose    bool
	version    = "dev"

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "twindx",
	Short: "Counterfactual disease scoring over causal diagnostic networks",
	Long: `twindx - Counterfactual Diagnosis

Scores candidate diseases for clinical vignettes with a noisy-OR belief rule
and twin-network interventions: the posterior, the expected disablement and the
expected sufficiency of every disease.

Quick Start:
  twindx validate --datapath data          # Check network structure
  twindx run --datapath data               # Score every vignette
  twindx report                            # Evaluate the latest run
  twindx nodes "chest pain"                # Find node ids by name

Settings are read from --config (YAML), then TWINDX_* environment variables,
then command flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup for help commands
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if dbPath != "" {
			cfg.Output.DBPath = dbPath
		}
		if verbose {
			cfg.Log.Level = "debug"
		}
		logger = newLogger(cfg.Log)
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeDB()
	},
}

// SetVersion sets the version reported by the version command
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the CLI. An interrupt cancels the command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Post-run hooks are skipped when a command fails
	defer closeDB()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		outputError(err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Result database path (default .twindx/results.db or ~/.twindx/results.db)")
	rootCmd.PersistentFlags().BoolVar(&outputText, "text", false, "Human-readable text output (default is JSON)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(versionCmd)
}

func newLogger(lc config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: lc.SlogLevel()}
	format := lc.Format
	if format == "auto" {
		// Text for people at a terminal, JSON for log collectors
		format = "json"
		if f, ok := stderr.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			format = "text"
		}
	}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(stderr, opts))
	}
	return slog.New(slog.NewTextHandler(stderr, opts))
}

// openDB opens the result database on first use
func openDB() (*db.DB, error) {
	if database != nil {
		return database, nil
	}
	d, err := db.Open(cfg.Output.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	database = d
	return database, nil
}

func closeDB() {
	if database != nil {
		database.Close()
		database = nil
	}
}

// outputResult outputs the result in the appropriate format
// Default is JSON, use --text for human-readable
func outputResult(result interface{}) {
	if outputText {
		fmt.Fprintf(stdout, "%+v\n", result)
	} else {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		enc.Encode(result)
	}
}

// outputError outputs an error in the appropriate format
func outputError(err error) {
	if outputText {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	} else {
		result := map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
		enc := json.NewEncoder(stderr)
		enc.Encode(result)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if outputText {
			fmt.Fprintf(stdout, "twindx version %s\n", version)
			return
		}
		outputResult(map[string]string{"version": version})
	},
}
