package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/regioncheck/internal/enrich"
	"github.com/sells-group/regioncheck/internal/region"
)

var (
	runInput    string
	runOutput   string
	runFormat   string
	runSheet    string
	runShapes   []string
	runManifest string
	runLimit    int
	runDelay    time.Duration
	runDryRun   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Enrich a file of addresses with region membership",
	Long: `Reads addresses from a CSV or XLSX file, geocodes each one, checks the
coordinates against every loaded region dataset, and writes the input columns
back out with an in_region flag plus one column per dataset attribute.

Examples:
  regioncheck run --input addresses.csv
  regioncheck run --input leads.xlsx --sheet Addresses --format xlsx
  regioncheck run --input addresses.csv --shapes shape_files/ri_towns.zip --limit 10 --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("run"); err != nil {
			return err
		}

		format := resolveFormat(runFormat, runOutput)
		switch format {
		case "csv", "xlsx", "json":
		default:
			return eris.Errorf("run: unknown format %q (want csv, xlsx, or json)", runFormat)
		}
		output := runOutput
		if output == "" {
			output = defaultOutputPath(runInput, format)
		}

		log := zap.L().With(zap.String("component", "cmd.run"))

		records, err := readAddressFile(runInput, runSheet)
		if err != nil {
			return err
		}
		limit := cfg.Pipeline.Limit
		if cmd.Flags().Changed("limit") {
			limit = runLimit
		}
		if limit > 0 && limit < len(records) {
			records = records[:limit]
		}

		reg, err := loadRegistry(ctx, runShapes, runManifest)
		if err != nil {
			return err
		}

		if runDryRun {
			return printRunPlan(cmd.OutOrStdout(), reg, records)
		}

		client, err := newGeocodeClient()
		if err != nil {
			return err
		}
		defer client.Close() //nolint:errcheck

		delay := time.Duration(cfg.Pipeline.DelayMS) * time.Millisecond
		if cmd.Flags().Changed("delay") {
			delay = runDelay
		}

		pipeline := enrich.New(reg, pointGeocoder{client: client},
			enrich.WithDelay(delay),
			enrich.WithObserver(func(p enrich.Progress) {
				log.Info("processed address",
					zap.Int("index", p.Index),
					zap.Int("total", p.Total),
					zap.String("address", p.Address),
					zap.Bool("in_region", p.InRegion),
					zap.Duration("remaining", p.Remaining))
			}))

		enriched, summary, runErr := pipeline.Run(ctx, records)
		if runErr != nil && len(enriched) == 0 {
			return runErr
		}

		rows, columns, err := enrich.Flatten(reg, records[:len(enriched)], enriched)
		if err != nil {
			return err
		}
		if err := writeRows(output, format, rows, columns); err != nil {
			return err
		}

		if runErr != nil {
			fmt.Printf("Run interrupted after %d of %d addresses; partial results written to %s\n",
				summary.Total, len(records), output)
			return runErr
		}

		log.Info("run complete",
			zap.Int("total", summary.Total),
			zap.Int("found", summary.Found),
			zap.Int("not_found", summary.NotFound),
			zap.Duration("elapsed", summary.Elapsed))
		fmt.Printf("Processed %d addresses (%d in region, %d not found) in %s\n",
			summary.Total, summary.Found, summary.NotFound, summary.Elapsed.Round(time.Second))
		fmt.Printf("Results written to %s\n", output)

		return nil
	},
}

// readAddressFile dispatches on the input extension.
func readAddressFile(path, sheet string) ([]enrich.AddressRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return enrich.ReadAddressCSV(path)
	case ".xlsx":
		return enrich.ReadAddressXLSX(path, sheet)
	default:
		return nil, eris.Errorf("run: unsupported input %s (want .csv or .xlsx)", path)
	}
}

// resolveFormat prefers the explicit flag, then the output extension.
func resolveFormat(format, output string) string {
	if format != "" {
		return format
	}
	switch strings.ToLower(filepath.Ext(output)) {
	case ".xlsx":
		return "xlsx"
	case ".json":
		return "json"
	default:
		return "csv"
	}
}

// defaultOutputPath derives the result path from the input path.
func defaultOutputPath(input, format string) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + "_with_regions." + format
}

func writeRows(path, format string, rows []map[string]any, columns []string) error {
	switch format {
	case "csv":
		return enrich.WriteCSV(path, rows, columns)
	case "xlsx":
		return enrich.WriteXLSX(path, rows, columns)
	case "json":
		file, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "run: create %s", path)
		}
		defer file.Close() //nolint:errcheck
		return enrich.WriteJSON(file, rows)
	default:
		return eris.Errorf("run: unknown format %q (want csv, xlsx, or json)", format)
	}
}

// printRunPlan describes the run without geocoding anything.
func printRunPlan(w io.Writer, reg *region.Registry, records []enrich.AddressRecord) error {
	var plan struct {
		Datasets  []datasetInfo `json:"datasets"`
		Addresses []string      `json:"addresses"`
	}

	plan.Datasets = describeDatasets(reg.List())
	for _, rec := range records {
		plan.Addresses = append(plan.Addresses, rec.Address)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(plan); err != nil {
		return eris.Wrap(err, "run: print plan")
	}
	return nil
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "address file to enrich (.csv or .xlsx)")
	runCmd.Flags().StringVar(&runOutput, "output", "", "result path (default input base + _with_regions.<format>)")
	runCmd.Flags().StringVar(&runFormat, "format", "", "output format: csv, xlsx, or json (default inferred from --output, else csv)")
	runCmd.Flags().StringVar(&runSheet, "sheet", "", "worksheet name for xlsx input (default first sheet)")
	runCmd.Flags().StringArrayVar(&runShapes, "shapes", nil, "shapefile directory, .zip, or .shp to load (repeatable, overrides config)")
	runCmd.Flags().StringVar(&runManifest, "manifest", "", "dataset manifest to preload (overrides config)")
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "process at most N addresses (0 = all)")
	runCmd.Flags().DurationVar(&runDelay, "delay", 0, "pause between addresses (default from config)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "describe the run without geocoding or writing output")
	_ = runCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(runCmd)
}
