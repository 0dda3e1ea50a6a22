package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AbdouB/twindx/internal/dataset"
	"github.com/AbdouB/twindx/internal/network"
	"github.com/AbdouB/twindx/internal/search"
)

type nodeHit struct {
	Network string  `json:"network"`
	ID      string  `json:"id"`
	Name    string  `json:"name,omitempty"`
	Label   string  `json:"label"`
	Score   float64 `json:"score,omitempty"`
}

var nodesCmd = &cobra.Command{
	Use:   "nodes [query]",
	Short: "List or fuzzy-search network nodes",
	Long: `List the nodes of every network, or fuzzy-search them by name and id.

Examples:
  twindx nodes --label Disease
  twindx nodes "chest pain"
  twindx nodes copd --network respiratory -n 5`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		label, _ := cmd.Flags().GetString("label")
		netName, _ := cmd.Flags().GetString("network")
		limit, _ := cmd.Flags().GetInt("limit")
		threshold, _ := cmd.Flags().GetFloat64("threshold")
		if cmd.Flags().Changed("datapath") {
			cfg.Data.Path, _ = cmd.Flags().GetString("datapath")
		}

		if label != "" && !network.Label(label).Valid() {
			return fmt.Errorf("unknown label %q (want Disease, Symptom or Risk)", label)
		}

		nets, err := dataset.LoadNetworks(filepath.Join(cfg.Data.Path, cfg.Data.NetworksFile))
		if err != nil {
			return err
		}
		if netName != "" {
			net, ok := nets.Get(netName)
			if !ok {
				return fmt.Errorf("network %q not found", netName)
			}
			nets = dataset.NewNetworkSet(net)
		}

		items := search.Items(nets, network.Label(label))

		var hits []nodeHit
		if len(args) == 0 {
			for _, it := range items {
				hits = append(hits, nodeHit{Network: it.Network, ID: it.ID, Name: it.Name, Label: string(it.Label)})
			}
		} else {
			for _, r := range search.Fuzzy(args[0], items, threshold) {
				hits = append(hits, nodeHit{Network: r.Network, ID: r.ID, Name: r.Name, Label: string(r.Label), Score: r.Score})
			}
		}
		if limit > 0 && len(hits) > limit {
			hits = hits[:limit]
		}

		if !outputText {
			if hits == nil {
				hits = []nodeHit{}
			}
			outputResult(map[string]interface{}{
				"nodes": hits,
				"count": len(hits),
			})
			return nil
		}

		if len(hits) == 0 {
			fmt.Fprintln(stdout, "(no matching nodes)")
			return nil
		}
		for _, h := range hits {
			name := h.Name
			if name == "" {
				name = "-"
			}
			if h.Score > 0 {
				fmt.Fprintf(stdout, "%-20s %-8s %-30s %s [%.2f]\n", h.Network, h.Label, h.ID, name, h.Score)
			} else {
				fmt.Fprintf(stdout, "%-20s %-8s %-30s %s\n", h.Network, h.Label, h.ID, name)
			}
		}
		return nil
	},
}

func init() {
	nodesCmd.Flags().String("label", "", "Only nodes with this label (Disease, Symptom, Risk)")
	nodesCmd.Flags().String("network", "", "Only nodes of this network")
	nodesCmd.Flags().String("datapath", "", "Folder containing the networks file")
	nodesCmd.Flags().IntP("limit", "n", 50, "Maximum number of results")
	nodesCmd.Flags().Float64P("threshold", "t", search.DefaultThreshold, "Minimum fuzzy match score (0.0-1.0)")

	rootCmd.AddCommand(nodesCmd)
}
