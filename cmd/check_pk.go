package cmd

import (
	"dqc/internal/engine"
	"dqc/internal/report"

	"github.com/spf13/cobra"
)

var checkPKCmd = &cobra.Command{
	Use:   "check-pk DSN [TABLE]",
	Short: "Report tables without a primary key",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		checks := report.KindSetOf(report.MissingPrimaryKey)
		if len(args) == 2 {
			return runTableCheck(cmd, args[0], args[1], checks)
		}
		return runDatabaseScan(cmd, args[0], checks, engine.ScanOptions{SkipTables: effectiveSkipTables()})
	},
}

func init() {
	RootCmd.AddCommand(checkPKCmd)
	checkPKCmd.Flags().StringArrayVar(&skipTables, "skip-table", []string{}, "table to skip (repeatable)")
}
