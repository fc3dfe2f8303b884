package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"power-price-level/internal/app"
)

var (
	recomputeLimit  int
	recomputeDryRun bool
)

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Reclassify stored days with the configured level rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		if recomputeLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.RecomputeOptions{
			Limit:  recomputeLimit,
			DryRun: recomputeDryRun,
		}

		return getApp().Recompute(cmd.Context(), opts)
	},
}

func init() {
	recomputeCmd.Flags().IntVar(&recomputeLimit, "limit", 31, "Number of most recent days to reclassify")
	recomputeCmd.Flags().BoolVar(&recomputeDryRun, "dry-run", false, "Report changes without writing to storage")
}
