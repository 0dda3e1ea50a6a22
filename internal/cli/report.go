package cli

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AbdouB/twindx/internal/dataset"
	"github.com/AbdouB/twindx/internal/db"
	"github.com/AbdouB/twindx/internal/models"
	"github.com/AbdouB/twindx/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Evaluate scored vignettes against ground truth and doctors",
	Long: `Evaluate a scoring run: top-N accuracy per method, agreement of the top-1
disease with the doctors' differentials, the doctors' own top-N accuracy and the
true disease's score stratified by rareness.

Results come from the database (latest run unless --run is given) or, with
--results, from an experimental_results.json file.

Examples:
  twindx report
  twindx report --run 6f1c...
  twindx report --results my_results/experimental_results.json --text`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runID, _ := cmd.Flags().GetString("run")
		resultsFile, _ := cmd.Flags().GetString("results")
		topN, _ := cmd.Flags().GetInt("top-n")
		if cmd.Flags().Changed("datapath") {
			cfg.Data.Path, _ = cmd.Flags().GetString("datapath")
		}
		if topN < 1 {
			return fmt.Errorf("--top-n must be >= 1")
		}

		vignettes, err := dataset.LoadVignettes(filepath.Join(cfg.Data.Path, cfg.Data.VignettesFile))
		if err != nil {
			return err
		}

		var bundles map[string]models.Bundle
		source := resultsFile
		if resultsFile != "" {
			bundles, err = dataset.ReadResults(resultsFile)
			if err != nil {
				return err
			}
		} else {
			d, err := openDB()
			if err != nil {
				return err
			}
			run, err := resolveRun(d, runID)
			if err != nil {
				return err
			}
			bundles, err = db.NewScoreRepository(d).LoadBundles(run.RunID)
			if err != nil {
				return fmt.Errorf("failed to load scores: %w", err)
			}
			source = run.RunID
		}

		summary := report.Build(bundles, report.Cards(vignettes), topN)

		if outputText {
			printReport(source, summary)
			return nil
		}
		outputResult(map[string]interface{}{
			"source": source,
			"report": summary,
		})
		return nil
	},
}

// resolveRun returns the run with the given id, or the latest run when id is empty
func resolveRun(d *db.DB, id string) (*models.Run, error) {
	repo := db.NewRunRepository(d)
	var run *models.Run
	var err error
	if id == "" {
		run, err = repo.GetLatest()
	} else {
		run, err = repo.Get(id)
	}
	if err != nil {
		return nil, err
	}
	if run == nil {
		if id == "" {
			return nil, fmt.Errorf("no runs stored in %s; run 'twindx run' first", d.Path())
		}
		return nil, fmt.Errorf("run %s not found", id)
	}
	return run, nil
}

type curveRow struct {
	name  string
	curve []float64
}

var reportedN = []int{1, 3, 5, 10, 20}

func printReport(source string, s report.Summary) {
	fmt.Fprintf(stdout, "Report for %s (%d vignettes)\n", source, s.Vignettes)
	fmt.Fprintln(stdout, strings.Repeat("-", 50))

	fmt.Fprintln(stdout, "\nTop-N accuracy:")
	fmt.Fprintf(stdout, "  %-13s", "N")
	for _, n := range reportedN {
		fmt.Fprintf(stdout, " %6d", n)
	}
	fmt.Fprintln(stdout)
	rows := make([]curveRow, 0, len(models.Methods)+1)
	for _, m := range models.Methods {
		rows = append(rows, curveRow{string(m), s.TopN[m]})
	}
	rows = append(rows, curveRow{"doctors", s.DoctorTopN})
	for _, row := range rows {
		fmt.Fprintf(stdout, "  %-13s", row.name)
		for _, n := range reportedN {
			if n > len(row.curve) {
				fmt.Fprintf(stdout, " %6s", "-")
				continue
			}
			fmt.Fprintf(stdout, " %6.3f", row.curve[n-1])
		}
		fmt.Fprintln(stdout)
	}

	fmt.Fprintln(stdout, "\nDoctor agreement (top-1 in doctors' differentials):")
	for _, m := range models.Methods {
		fmt.Fprintf(stdout, "  %-13s %.4f\n", m, s.DoctorAgreement[m])
	}

	for _, m := range models.Methods {
		fmt.Fprintf(stdout, "\n%s stratified by rareness:\n", m)
		strata := s.Rareness[m]
		if len(strata) == 0 {
			fmt.Fprintln(stdout, "  (none)")
			continue
		}
		keys := make([]string, 0, len(strata))
		for k := range strata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			st := strata[k]
			fmt.Fprintf(stdout, "  %-15s mean=%.3f std=%.3f n=%d\n", k, st.Mean, st.Std, st.Count)
		}
	}
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored scoring runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		d, err := openDB()
		if err != nil {
			return err
		}
		runs, err := db.NewRunRepository(d).List(limit)
		if err != nil {
			return err
		}

		if !outputText {
			outputResult(map[string]interface{}{
				"runs":  runs,
				"count": len(runs),
			})
			return nil
		}

		if len(runs) == 0 {
			fmt.Fprintln(stdout, "No runs stored.")
			return nil
		}
		for _, r := range runs {
			fmt.Fprintf(stdout, "%s  %s  %-9s scored=%d skipped=%d warnings=%d\n",
				r.RunID, r.StartTime.Format("2006-01-02 15:04:05"), r.Propagation, r.Scored, r.Skipped, r.Warnings)
			if r.Notes != nil {
				fmt.Fprintf(stdout, "    %s\n", *r.Notes)
			}
		}
		return nil
	},
}

var warningsCmd = &cobra.Command{
	Use:   "warnings",
	Short: "Show data-quality warnings and skipped vignettes of a run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runID, _ := cmd.Flags().GetString("run")
		kind, _ := cmd.Flags().GetString("kind")

		d, err := openDB()
		if err != nil {
			return err
		}
		run, err := resolveRun(d, runID)
		if err != nil {
			return err
		}

		repo := db.NewWarningRepository(d)
		warnings, err := repo.ListWarnings(run.RunID, models.WarningKind(kind))
		if err != nil {
			return err
		}
		skipped, err := repo.ListSkipped(run.RunID)
		if err != nil {
			return err
		}
		counts, err := repo.CountByKind(run.RunID)
		if err != nil {
			return err
		}

		if !outputText {
			outputResult(map[string]interface{}{
				"run_id":   run.RunID,
				"counts":   counts,
				"warnings": warnings,
				"skipped":  skipped,
			})
			return nil
		}

		fmt.Fprintf(stdout, "Run %s\n", run.RunID)
		for _, s := range skipped {
			fmt.Fprintf(stdout, "  skipped %s (network %s): %s\n", s.VignetteID, s.Network, s.Reason)
		}
		for _, w := range warnings {
			fmt.Fprintf(stdout, "  %s %s/%s %s\n", w.Kind, w.VignetteID, w.Method, w.DiseaseID)
		}
		if len(skipped) == 0 && len(warnings) == 0 {
			fmt.Fprintln(stdout, "  (no warnings)")
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().String("run", "", "Run id (default latest)")
	reportCmd.Flags().String("results", "", "Read results from a JSON file instead of the database")
	reportCmd.Flags().String("datapath", "", "Folder containing the vignettes file")
	reportCmd.Flags().Int("top-n", report.DefaultTopN, "Length of the top-N accuracy curves")

	runsCmd.Flags().IntP("limit", "n", 20, "Maximum number of runs")

	warningsCmd.Flags().String("run", "", "Run id (default latest)")
	warningsCmd.Flags().String("kind", "", "Only warnings of this kind (empty_scores, missing_ground_truth)")

	rootCmd.AddCommand(reportCmd, runsCmd, warningsCmd)
}
