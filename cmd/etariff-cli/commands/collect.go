package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var collectOut *string

func init() {
	collectOut = collectCmd.Flags().String("out", "tariff_ids.txt", "File to write collected identifiers to, one per line. \"-\" prints to stdout.")
	rootCmd.AddCommand(collectCmd)
}

var collectCmd = &cobra.Command{
	Use:   "collect [--out <path/to/ids.txt>]",
	Short: "Paginates the tariff grid and saves every export identifier.",
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

		if *collectOut == "-" {
			for _, id := range ids {
				fmt.Println(id)
			}
			return
		}
		if err := writeIDFile(*collectOut, ids); err != nil {
			fatal("failed to write id file", err)
		}
		slog.Info("wrote id file", "path", *collectOut)
	},
}
