package commands

import (
	"log/slog"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(downloadCmd)
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Runs the full pipeline: collect every tariff id, then download each XML export.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fatal("failed to read config", err)
		}

		ids, err := collectIdentifiers(cmd.Context(), cfg)
		if err != nil {
			fatal("id collection failed", err)
		}
		slog.Info("collection finished", "identifiers", len(ids))

		report, err := runDownloads(cmd.Context(), cfg, ids)
		if err != nil {
			fatal("download run failed", err)
		}
		logReport(report)
	},
}
