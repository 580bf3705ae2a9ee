package cmd

import (
	"fmt"
	"io"
	"os"

	"dqc/internal/engine"
	"dqc/internal/report"
	"dqc/internal/schema"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var checkDatabaseCmd = &cobra.Command{
	Use:   "check-database DSN",
	Short: "Run every enabled check against every table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDatabaseScan(cmd, args[0], selectedChecks(report.AllKinds), engine.ScanOptions{
			SkipTables: effectiveSkipTables(),
			SkipLarge:  skipLarge,
		})
	},
}

func init() {
	RootCmd.AddCommand(checkDatabaseCmd)
	addClassFlags(checkDatabaseCmd)
	addCheckFlags(checkDatabaseCmd)
	addSizeFlags(checkDatabaseCmd)
	checkDatabaseCmd.Flags().BoolVar(&skipLarge, "skip-large-tables", false, "skip tables whose estimated size exceeds the threshold")
}

func runDatabaseScan(cmd *cobra.Command, dsn string, checks report.KindSet, scanOpts engine.ScanOptions) error {
	conn, err := connect(cmd, dsn)
	if err != nil {
		return err
	}
	defer conn.Close()

	opts := checkerOptions(cmd, conn, checks)
	in := schema.NewIntrospector(conn.Conn, conn.Dialect, conn.Schema, log)
	scanner := engine.NewScanner(in, engine.NewChecker(conn.Conn, conn.Dialect, opts, log), log)

	bar := newScanProgress()
	rep, err := scanner.Scan(cmd.Context(), scanOpts, bar.update)
	bar.stop()
	if err != nil {
		return err
	}

	view := report.BuildDatabase(rep)
	return render(cmd, view, func(w io.Writer) error {
		if len(view.Tables) == 0 {
			fmt.Fprintf(w, "No tables found in schema %s.\n\n", conn.Schema)
		}
		return writeDatabaseView(w, view)
	})
}

// scanProgress draws a bar on stderr once the table count is known.
type scanProgress struct {
	enabled  bool
	progress *uiprogress.Progress
	bar      *uiprogress.Bar
	current  string
}

func newScanProgress() *scanProgress {
	return &scanProgress{enabled: textOutput() && !viper.GetBool("no_progress")}
}

func (p *scanProgress) update(table string, _, total int) {
	if !p.enabled {
		return
	}
	if p.bar == nil {
		uiprogress.Out = os.Stderr
		p.progress = uiprogress.New()
		p.progress.Start()
		p.bar = p.progress.AddBar(total).AppendCompleted().PrependElapsed()
		p.bar.PrependFunc(func(b *uiprogress.Bar) string {
			return fmt.Sprintf("Checking %-24s", p.current)
		})
	}
	p.current = table
	p.bar.Incr()
}

func (p *scanProgress) stop() {
	if p.progress != nil {
		p.progress.Stop()
	}
}
