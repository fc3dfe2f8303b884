package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"power-price-level/internal/app"
)

var (
	exportDay     string
	exportPNGPath string
	exportCSVPath string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a stored day as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := getApp()
		opts := app.ExportOptions{
			PNGPath: exportPNGPath,
			CSVPath: exportCSVPath,
		}

		if exportDay != "" {
			day, err := time.ParseInLocation(time.DateOnly, exportDay, a.Config.Location())
			if err != nil {
				return fmt.Errorf("invalid --day value: %w", err)
			}
			opts.Day = day
		}

		return a.Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportDay, "day", "", "Day to export (YYYY-MM-DD, defaults to today)")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
}
