package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/AbdouB/twindx/internal/dataset"
	"github.com/AbdouB/twindx/internal/db"
	"github.com/AbdouB/twindx/internal/evidence"
	"github.com/AbdouB/twindx/internal/experiment"
	"github.com/AbdouB/twindx/internal/inference"
	"github.com/AbdouB/twindx/internal/network"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Score every vignette against its network",
	Long: `Score every vignette: the disease posterior, the expected disablement and
the expected sufficiency of each disease in the vignette's network.

Vignettes naming an unknown network are skipped and reported. Results are
written to <results>/experimental_results.json and, unless --no-store is given,
to the result database.

Examples:
  twindx run --datapath data
  twindx run --datapath data --first 10 --workers 1
  twindx run --propagation propagate --normalize
  twindx run --metrics-file /var/lib/node_exporter/twindx.prom`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyRunFlags(cmd); err != nil {
			return err
		}

		nets, err := loadNetworks()
		if err != nil {
			return err
		}
		vignettes, err := dataset.LoadVignettes(filepath.Join(cfg.Data.Path, cfg.Data.VignettesFile))
		if err != nil {
			return err
		}

		scorer := inference.NewScorer(scorerOptions(), logger)
		runner := experiment.NewRunner(scorer,
			evidence.Extractor{RiskBoost: cfg.Scoring.RiskBoost},
			experiment.Options{First: cfg.Scoring.First, Workers: cfg.Scoring.Workers},
			logger)

		sum, err := runner.Run(cmd.Context(), nets, vignettes)
		if err != nil {
			return fmt.Errorf("run failed: %w", err)
		}

		resultsPath := filepath.Join(cfg.Output.ResultsDir, dataset.ResultsFile)
		if err := dataset.WriteResults(resultsPath, sum.Results); err != nil {
			return fmt.Errorf("failed to write results: %w", err)
		}

		response := map[string]interface{}{
			"status":   "ok",
			"run_id":   sum.Run.RunID,
			"scored":   sum.Run.Scored,
			"skipped":  sum.Run.Skipped,
			"warnings": sum.Run.Warnings,
			"results":  resultsPath,
		}

		if cfg.Output.Store {
			if notes, _ := cmd.Flags().GetString("notes"); notes != "" {
				sum.Run.Notes = &notes
			}
			d, err := openDB()
			if err != nil {
				return err
			}
			if err := storeSummary(d, sum); err != nil {
				return fmt.Errorf("failed to store run: %w", err)
			}
			response["db"] = d.Path()
		}

		if cfg.Output.MetricsFile != "" {
			if err := prometheus.WriteToTextfile(cfg.Output.MetricsFile, prometheus.DefaultGatherer); err != nil {
				return fmt.Errorf("failed to write metrics: %w", err)
			}
			response["metrics"] = cfg.Output.MetricsFile
		}

		if outputText {
			fmt.Fprintf(stdout, "Run %s\n", sum.Run.RunID)
			fmt.Fprintf(stdout, "  scored:   %d\n", sum.Run.Scored)
			fmt.Fprintf(stdout, "  skipped:  %d\n", sum.Run.Skipped)
			fmt.Fprintf(stdout, "  warnings: %d\n", sum.Run.Warnings)
			fmt.Fprintf(stdout, "  results:  %s\n", resultsPath)
			for _, s := range sum.Skipped {
				fmt.Fprintf(stdout, "  skipped %s: %s\n", s.VignetteID, s.Reason)
			}
			return nil
		}
		outputResult(response)
		return nil
	},
}

// scorerOptions builds the per-vignette scorer settings. Its worker bound is
// separate from the vignette fan-out so the two never multiply to NumCPU².
func scorerOptions() inference.Options {
	return inference.Options{
		Propagation: cfg.Scoring.PropagationMode(),
		Normalize:   cfg.Scoring.Normalize,
		Workers:     cfg.Scoring.DiseaseWorkers,
	}
}

// applyRunFlags copies explicitly set flags over the loaded config
func applyRunFlags(cmd *cobra.Command) error {
	f := cmd.Flags()
	if f.Changed("datapath") {
		cfg.Data.Path, _ = f.GetString("datapath")
	}
	if f.Changed("results") {
		cfg.Output.ResultsDir, _ = f.GetString("results")
	}
	if f.Changed("first") {
		cfg.Scoring.First, _ = f.GetInt("first")
	}
	if f.Changed("workers") {
		cfg.Scoring.Workers, _ = f.GetInt("workers")
	}
	if f.Changed("disease-workers") {
		cfg.Scoring.DiseaseWorkers, _ = f.GetInt("disease-workers")
	}
	if f.Changed("normalize") {
		cfg.Scoring.Normalize, _ = f.GetBool("normalize")
	}
	if f.Changed("propagation") {
		cfg.Scoring.Propagation, _ = f.GetString("propagation")
	}
	if f.Changed("risk-boost") {
		cfg.Scoring.RiskBoost, _ = f.GetFloat64("risk-boost")
	}
	if f.Changed("no-store") {
		noStore, _ := f.GetBool("no-store")
		cfg.Output.Store = !noStore
	}
	if f.Changed("metrics-file") {
		cfg.Output.MetricsFile, _ = f.GetString("metrics-file")
	}
	return cfg.Validate()
}

// loadNetworks reads the network set and applies structural validation. A
// malformed graph aborts the command.
func loadNetworks() (*dataset.NetworkSet, error) {
	nets, err := dataset.LoadNetworks(filepath.Join(cfg.Data.Path, cfg.Data.NetworksFile))
	if err != nil {
		return nil, err
	}
	var opts []network.ValidateOption
	if cfg.Scoring.CycleCheck {
		opts = append(opts, network.WithCycleCheck())
	}
	if err := nets.Validate(opts...); err != nil {
		return nil, err
	}
	for _, name := range nets.Names() {
		net, _ := nets.Get(name)
		for _, id := range net.Unlabeled() {
			node, _ := net.Node(id)
			logger.Warn("skipping node with unknown label",
				slog.String("network", name),
				slog.String("node", id),
				slog.String("label", string(node.Label)))
		}
	}
	logger.Debug("networks loaded", slog.Int("count", nets.Len()))
	return nets, nil
}

// storeSummary persists a finished run with its results, skips and warnings
func storeSummary(d *db.DB, sum *experiment.Summary) error {
	if err := db.NewRunRepository(d).Create(sum.Run); err != nil {
		return err
	}
	if err := db.NewScoreRepository(d).SaveResults(sum.Run.RunID, sum.Results); err != nil {
		return err
	}
	warnings := db.NewWarningRepository(d)
	if err := warnings.SaveSkipped(sum.Skipped); err != nil {
		return err
	}
	return warnings.SaveWarnings(sum.Warnings)
}

func init() {
	runCmd.Flags().String("datapath", "", "Folder containing the networks and vignettes files")
	runCmd.Flags().String("results", "", "Output folder for experimental_results.json")
	runCmd.Flags().Int("first", 0, "Score only the first N vignettes")
	runCmd.Flags().Int("workers", 0, "Concurrent vignette workers (0 = number of CPUs)")
	runCmd.Flags().Int("disease-workers", 1, "Concurrent twin evaluations per vignette (0 = number of CPUs)")
	runCmd.Flags().Bool("normalize", false, "Normalise the disease posterior to sum to 1")
	runCmd.Flags().String("propagation", "", "Parent activation: leaf or propagate")
	runCmd.Flags().Float64("risk-boost", 0, "Evidence value for present risk factors")
	runCmd.Flags().Bool("no-store", false, "Do not write the run to the database")
	runCmd.Flags().String("metrics-file", "", "Write Prometheus metrics to this textfile")
	runCmd.Flags().String("notes", "", "Free-text note stored with the run")

	rootCmd.AddCommand(runCmd)
}
