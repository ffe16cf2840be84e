package commands

import (
	"log/slog"

	"etariff-downloader/services/downloader"

	"github.com/spf13/cobra"
)

var fetchIDs *string

func init() {
	fetchIDs = fetchCmd.Flags().String("ids", "tariff_ids.txt", "File of identifiers to download, one per line.")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [--ids <path/to/ids.txt>]",
	Short: "Downloads the XML export for every identifier in a saved id file.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fatal("failed to read config", err)
		}
		ids, err := readIDFile(*fetchIDs)
		if err != nil {
			fatal("failed to read id file", err)
		}

		report, err := runDownloads(cmd.Context(), cfg, ids)
		if err != nil {
			fatal("download run failed", err)
		}
		logReport(report)
	},
}

func logReport(report downloader.Report) {
	slog.Info("download run finished",
		"total", report.Total,
		"skipped", report.Skipped,
		"downloaded", report.Downloaded,
		"failed", report.Failed,
	)
	if len(report.FailedIDs) > 0 {
		slog.Warn("failed identifiers, re-run to retry", "ids", report.FailedIDs)
	}
}
