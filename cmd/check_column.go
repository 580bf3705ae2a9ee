package cmd

import (
	"fmt"
	"io"

	"dqc/internal/schema"

	"github.com/spf13/cobra"
)

type columnMatchView struct {
	Table    string `json:"table" yaml:"table"`
	Present  bool   `json:"present" yaml:"present"`
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
	Nullable bool   `json:"nullable,omitempty" yaml:"nullable,omitempty"`
}

type columnView struct {
	Column  string            `json:"column" yaml:"column"`
	Found   []columnMatchView `json:"found" yaml:"found"`
	Missing []string          `json:"missing" yaml:"missing"`
}

func buildColumnView(column string, matches []schema.ColumnMatch) columnView {
	v := columnView{Column: column, Found: []columnMatchView{}, Missing: []string{}}
	for _, m := range matches {
		if m.Column == nil {
			v.Missing = append(v.Missing, m.Table)
			continue
		}
		v.Found = append(v.Found, columnMatchView{
			Table:    m.Table,
			Present:  true,
			Type:     m.Column.DataType,
			Nullable: m.Column.IsNullable,
		})
	}
	return v
}

func writeColumnView(w io.Writer, v columnView) error {
	fmt.Fprintf(w, "Column %s found in %d of %d tables\n\n", v.Column, len(v.Found), len(v.Found)+len(v.Missing))
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "TABLE\tTYPE\tNULLABLE")
	for _, m := range v.Found {
		nullable := "NO"
		if m.Nullable {
			nullable = "YES"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Table, m.Type, nullable)
	}
	for _, t := range v.Missing {
		fmt.Fprintf(tw, "%s\t-\t-\n", t)
	}
	return tw.Flush()
}

var checkColumnCmd = &cobra.Command{
	Use:   "check-column DSN COLUMN",
	Short: "Show which tables have a column, with its type and nullability",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := connect(cmd, args[0])
		if err != nil {
			return err
		}
		defer conn.Close()

		in := schema.NewIntrospector(conn.Conn, conn.Dialect, conn.Schema, log)
		matches, err := in.FindColumn(cmd.Context(), args[1])
		if err != nil {
			return err
		}

		view := buildColumnView(args[1], matches)
		return render(cmd, view, func(w io.Writer) error {
			return writeColumnView(w, view)
		})
	},
}

func init() {
	RootCmd.AddCommand(checkColumnCmd)
}
