package cmd

import (
	"fmt"
	"io"

	"dqc/internal/engine"
	"dqc/internal/schema"

	"github.com/spf13/cobra"
)

type largeTablesView struct {
	Schema    string             `json:"schema" yaml:"schema"`
	Threshold int64              `json:"threshold" yaml:"threshold"`
	Tables    []engine.TableSize `json:"tables" yaml:"tables"`
}

var checkLargeTablesCmd = &cobra.Command{
	Use:   "check-large-tables DSN",
	Short: "List tables whose estimated row count exceeds the threshold",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := connect(cmd, args[0])
		if err != nil {
			return err
		}
		defer conn.Close()

		limit := effectiveThreshold(cmd)
		in := schema.NewIntrospector(conn.Conn, conn.Dialect, conn.Schema, log)
		scanner := engine.NewScanner(in, engine.NewChecker(conn.Conn, conn.Dialect, checkerOptions(cmd, conn, 0), log), log)

		sizes, err := scanner.LargeTables(cmd.Context(), limit, top, showAll, effectiveSkipTables())
		if err != nil {
			return err
		}

		view := largeTablesView{Schema: conn.Schema, Threshold: limit, Tables: sizes}
		if view.Tables == nil {
			view.Tables = []engine.TableSize{}
		}
		return render(cmd, view, func(w io.Writer) error {
			if len(sizes) == 0 {
				_, err := fmt.Fprintf(w, "No tables above %d rows.\n", limit)
				return err
			}
			tw := newTabWriter(w)
			fmt.Fprintln(tw, "TABLE\tESTIMATED ROWS\tLARGE")
			for _, s := range sizes {
				mark := ""
				if s.Large {
					mark = "yes"
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\n", s.Table, s.Rows, mark)
			}
			return tw.Flush()
		})
	},
}

func init() {
	RootCmd.AddCommand(checkLargeTablesCmd)
	addSizeFlags(checkLargeTablesCmd)
	checkLargeTablesCmd.Flags().BoolVar(&showAll, "show-all", false, "list every table, not only large ones")
	checkLargeTablesCmd.Flags().IntVar(&top, "top", 0, "list at most N tables (0 = no limit)")
}
