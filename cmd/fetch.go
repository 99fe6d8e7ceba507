package main

import (
	"fmt"
	"net/url"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/regioncheck/internal/fetcher"
)

var (
	fetchURL     string
	fetchDest    string
	fetchExtract bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download a shapefile archive",
	Long: `Downloads a shapefile archive over http(s) or ftp into the destination
directory, optionally extracting the zip contents next to it.

Examples:
  regioncheck fetch --url https://www2.census.gov/geo/tiger/GENZ2023/shp/cb_2023_us_county_500k.zip
  regioncheck fetch --url ftp://ftp2.census.gov/geo/tiger/TIGER2023/PLACE/tl_2023_44_place.zip --extract`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("fetch"); err != nil {
			return err
		}

		log := zap.L().With(zap.String("component", "cmd.fetch"))

		dest := fetchDest
		if dest == "" {
			dest = cfg.Fetch.DestDir
		}

		f, err := fetcher.ForURL(fetchURL, fetcher.Options{
			HTTP: fetcher.HTTPOptions{
				UserAgent:  cfg.Fetch.UserAgent,
				Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
				MaxRetries: cfg.Fetch.MaxRetries,
			},
			FTP: fetcher.FTPOptions{
				Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
				MaxRetries: cfg.Fetch.MaxRetries,
			},
		})
		if err != nil {
			return err
		}

		name, err := archiveName(fetchURL)
		if err != nil {
			return err
		}
		archivePath := filepath.Join(dest, name)

		n, err := f.DownloadToFile(ctx, fetchURL, archivePath)
		if err != nil {
			return err
		}
		log.Info("downloaded archive",
			zap.String("url", fetchURL),
			zap.String("path", archivePath),
			zap.Int64("bytes", n))
		fmt.Printf("Downloaded %s (%d bytes)\n", archivePath, n)

		if fetchExtract {
			if !strings.EqualFold(filepath.Ext(archivePath), ".zip") {
				return eris.Errorf("fetch: --extract requires a .zip archive, got %s", name)
			}
			extractDir := strings.TrimSuffix(archivePath, filepath.Ext(archivePath))
			files, err := fetcher.ExtractZIP(archivePath, extractDir)
			if err != nil {
				return err
			}
			fmt.Printf("Extracted %d files to %s\n", len(files), extractDir)
		}

		return nil
	},
}

// archiveName derives the local file name from the URL path.
func archiveName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrapf(err, "fetch: parse url %s", rawURL)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", eris.Errorf("fetch: cannot derive a file name from %s", rawURL)
	}
	return name, nil
}

func init() {
	fetchCmd.Flags().StringVar(&fetchURL, "url", "", "archive URL (http, https, or ftp)")
	fetchCmd.Flags().StringVar(&fetchDest, "dest", "", "destination directory (default from config)")
	fetchCmd.Flags().BoolVar(&fetchExtract, "extract", false, "extract the downloaded zip next to the archive")
	_ = fetchCmd.MarkFlagRequired("url")

	rootCmd.AddCommand(fetchCmd)
}
