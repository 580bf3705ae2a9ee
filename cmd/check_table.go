package cmd

import (
	"io"
	"strings"

	"dqc/internal/engine"
	"dqc/internal/report"
	"dqc/internal/schema"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var checkTableCmd = &cobra.Command{
	Use:   "check-table DSN TABLE",
	Short: "Run every enabled check against one table",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTableCheck(cmd, args[0], args[1], selectedChecks(report.AllKinds))
	},
}

func init() {
	RootCmd.AddCommand(checkTableCmd)
	addClassFlags(checkTableCmd)
	addCheckFlags(checkTableCmd)
	checkTableCmd.Flags().Int64Var(&threshold, "threshold", engine.DefaultThreshold, "row count above which a table is large (overrides config)")
}

// runTableCheck is shared by every single-table command.
func runTableCheck(cmd *cobra.Command, dsn, table string, checks report.KindSet) error {
	conn, err := connect(cmd, dsn)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx := cmd.Context()
	opts := checkerOptions(cmd, conn, checks)
	in := schema.NewIntrospector(conn.Conn, conn.Dialect, conn.Schema, log)

	t, err := in.DescribeTable(ctx, table)
	if err != nil {
		return err
	}
	noteColumns(t, opts)

	var snapshot int64
	if t.RowCountExact {
		snapshot = t.RowEstimate
	} else if opts.NeedsCount() {
		if snapshot, err = in.CountRows(ctx, t.Name); err != nil {
			return err
		}
	} else if snapshot, err = in.EstimateRows(ctx, t.Name); err != nil {
		return err
	}

	tr, err := engine.NewChecker(conn.Conn, conn.Dialect, opts, log).CheckTable(ctx, t, snapshot)
	if err != nil {
		return err
	}

	view := report.BuildTable(tr)
	return render(cmd, view, func(w io.Writer) error {
		return writeTableView(w, view)
	})
}

// noteColumns logs which columns the column checks will look at.
func noteColumns(t *schema.Table, opts engine.Options) {
	if !opts.Checks.Has(report.Nan) && !opts.Checks.Has(report.Encoding) {
		return
	}
	var names []string
	for _, c := range t.Columns {
		if c.Class != schema.Other && opts.Classes.Has(c.Class) {
			names = append(names, c.Name)
		}
	}
	fields := logrus.Fields{"table": t.Name, "classes": describeClasses(opts.Classes)}
	if len(names) == 0 {
		log.WithFields(fields).Info("no columns of the selected types found")
		return
	}
	log.WithFields(fields).Infof("checking %d columns: %s", len(names), strings.Join(names, ", "))
}
