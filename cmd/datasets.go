package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/regioncheck/internal/region"
)

var (
	datasetsShapes   []string
	datasetsManifest string
	datasetsJSON     bool
)

// datasetInfo describes one registered dataset. Shared between the datasets
// command, run --dry-run, and the serve API.
type datasetInfo struct {
	Name     string   `json:"name"`
	Features int      `json:"features"`
	Columns  []string `json:"columns"`
}

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "Show loaded region datasets",
	Long:  "Load the configured shapefile datasets and describe each one without processing any addresses.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		reg, err := loadRegistry(ctx, datasetsShapes, datasetsManifest)
		if err != nil {
			return err
		}

		if datasetsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(describeDatasets(reg.List())); err != nil {
				return eris.Wrap(err, "datasets: encode")
			}
			return nil
		}

		fmt.Println("=== Region Datasets ===")
		fmt.Printf("Datasets loaded:  %d\n", reg.Len())
		fmt.Println()
		for _, info := range describeDatasets(reg.List()) {
			fmt.Printf("%s\n", info.Name)
			fmt.Printf("  features: %d\n", info.Features)
			fmt.Printf("  columns:  %s\n", strings.Join(info.Columns, ", "))
		}

		return nil
	},
}

func describeDatasets(datasets []*region.Dataset) []datasetInfo {
	infos := make([]datasetInfo, 0, len(datasets))
	for _, ds := range datasets {
		cols := make([]string, 0, len(ds.Schema()))
		for _, key := range ds.Schema() {
			cols = append(cols, region.ColumnName(ds.Name(), key))
		}
		infos = append(infos, datasetInfo{
			Name:     ds.Name(),
			Features: ds.Len(),
			Columns:  cols,
		})
	}
	return infos
}

func init() {
	datasetsCmd.Flags().StringArrayVar(&datasetsShapes, "shapes", nil, "shapefile directory, .zip, or .shp to load (repeatable, overrides config)")
	datasetsCmd.Flags().StringVar(&datasetsManifest, "manifest", "", "dataset manifest to preload (overrides config)")
	datasetsCmd.Flags().BoolVar(&datasetsJSON, "json", false, "print dataset descriptions as JSON")

	rootCmd.AddCommand(datasetsCmd)
}
