package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"power-price-level/internal/app"
)

var (
	computeAt      string
	computePublish bool
)

var computeCmd = &cobra.Command{
	Use:   "compute <source.json>",
	Short: "Compute price and level states from a saved source state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := getApp()
		opts := app.ComputeOptions{
			SourcePath: args[0],
			Publish:    computePublish,
		}

		if computeAt != "" {
			at, err := time.ParseInLocation("2006-01-02T15:04", computeAt, a.Config.Location())
			if err != nil {
				return fmt.Errorf("invalid --at value: %w", err)
			}
			opts.At = at
		}

		return a.Compute(cmd.Context(), opts, cmd.OutOrStdout())
	},
}

func init() {
	computeCmd.Flags().StringVar(&computeAt, "at", "", "Local time to evaluate (YYYY-MM-DDTHH:MM, defaults to now)")
	computeCmd.Flags().BoolVar(&computePublish, "publish", false, "Also publish the states to the host")
}
