package cmd

import (
	"dqc/internal/report"

	"github.com/spf13/cobra"
)

var checkNaNCmd = &cobra.Command{
	Use:   "check-nan DSN TABLE",
	Short: "Find NULL and NaN values in one table",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTableCheck(cmd, args[0], args[1], report.KindSetOf(report.Nan))
	},
}

var checkReferencesCmd = &cobra.Command{
	Use:   "check-references DSN TABLE",
	Short: "Find rows whose foreign key points at a missing row",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTableCheck(cmd, args[0], args[1], report.KindSetOf(report.OrphanReference))
	},
}

var checkEncodingCmd = &cobra.Command{
	Use:   "check-encoding DSN TABLE",
	Short: "Find text values with control characters or invalid encoding",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTableCheck(cmd, args[0], args[1], report.KindSetOf(report.Encoding))
	},
}

func init() {
	RootCmd.AddCommand(checkNaNCmd, checkReferencesCmd, checkEncodingCmd)
	addClassFlags(checkNaNCmd)
}
