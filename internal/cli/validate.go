package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AbdouB/twindx/internal/dataset"
	"github.com/AbdouB/twindx/internal/network"
)

type networkCheck struct {
	Network  string   `json:"network"`
	Nodes    int      `json:"nodes"`
	Diseases int      `json:"diseases"`
	Symptoms int      `json:"symptoms"`
	Risks    int      `json:"risks"`
	Valid    bool     `json:"valid"`
	Error    string   `json:"error,omitempty"`
	Cycle    []string `json:"cycle,omitempty"`
	Skipped  []string `json:"skipped,omitempty"`
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every network for unknown parents, bad parameters and cycles",
	Long: `Check the structure of every network in the networks file: parameter
pairs within [0, 1], parent ids that exist and, unless disabled in the config,
the absence of dependency cycles. Nodes with an unknown label are listed as
skipped.

Exits non-zero when any network is malformed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("datapath") {
			cfg.Data.Path, _ = cmd.Flags().GetString("datapath")
		}
		nets, err := dataset.LoadNetworks(filepath.Join(cfg.Data.Path, cfg.Data.NetworksFile))
		if err != nil {
			return err
		}

		var opts []network.ValidateOption
		if cfg.Scoring.CycleCheck {
			opts = append(opts, network.WithCycleCheck())
		}

		checks := make([]networkCheck, 0, nets.Len())
		invalid := 0
		for _, name := range nets.Names() {
			net, _ := nets.Get(name)
			c := networkCheck{
				Network:  name,
				Nodes:    net.Len(),
				Diseases: len(net.Diseases()),
				Symptoms: len(net.Symptoms()),
				Risks:    len(net.Risks()),
				Valid:    true,
				Skipped:  net.Unlabeled(),
			}
			if err := net.Validate(opts...); err != nil {
				c.Valid = false
				c.Error = err.Error()
				var ge *network.GraphError
				if errors.As(err, &ge) {
					c.Cycle = ge.Cycle
				}
				invalid++
			}
			checks = append(checks, c)
		}

		if outputText {
			for _, c := range checks {
				mark := "ok"
				if !c.Valid {
					mark = "INVALID"
				}
				fmt.Fprintf(stdout, "%-8s %s (%d nodes: %d diseases, %d symptoms, %d risks)\n",
					mark, c.Network, c.Nodes, c.Diseases, c.Symptoms, c.Risks)
				if c.Error != "" {
					fmt.Fprintf(stdout, "         %s\n", c.Error)
				}
				if len(c.Skipped) > 0 {
					fmt.Fprintf(stdout, "         skipped (unknown label): %v\n", c.Skipped)
				}
			}
		} else {
			outputResult(map[string]interface{}{
				"networks": checks,
				"invalid":  invalid,
			})
		}

		if invalid > 0 {
			return fmt.Errorf("%d of %d networks are malformed: %w", invalid, nets.Len(), network.ErrMalformedGraph)
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().String("datapath", "", "Folder containing the networks file")
	rootCmd.AddCommand(validateCmd)
}
